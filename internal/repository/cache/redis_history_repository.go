package cache

import (
	"context"
	"fmt"
	"time"

	"move-quote-be/internal/entity"
	"move-quote-be/internal/repository/contract"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const historyKeyPrefix = "chat:history:"

func historyKey(token string) string { return historyKeyPrefix + token }

type RedisHistoryRepository struct {
	rdb     *redis.Client
	maxLen  int
	idleTTL time.Duration
}

func NewRedisHistoryRepository(rdb *redis.Client, maxLen int, idleTTL time.Duration) contract.HistoryRepository {
	return &RedisHistoryRepository{rdb: rdb, maxLen: maxLen, idleTTL: idleTTL}
}

func (r *RedisHistoryRepository) Append(ctx context.Context, token string, msgs ...entity.HistoryMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	values := make([]interface{}, len(msgs))
	for i, m := range msgs {
		b, err := sonic.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode history message: %w", err)
		}
		values[i] = b
	}

	key := historyKey(token)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, int64(-r.maxLen), -1)
		pipe.Expire(ctx, key, r.idleTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (r *RedisHistoryRepository) Recent(ctx context.Context, token string, n int) ([]entity.HistoryMessage, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := r.rdb.LRange(ctx, historyKey(token), int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	out := make([]entity.HistoryMessage, 0, len(raw))
	for _, s := range raw {
		var m entity.HistoryMessage
		if err := sonic.UnmarshalString(s, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *RedisHistoryRepository) Clear(ctx context.Context, token string) error {
	return r.rdb.Del(ctx, historyKey(token)).Err()
}
