package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"move-quote-be/internal/entity"
	"move-quote-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseHistory(t *testing.T, repo contract.HistoryRepository, token string) {
	t.Helper()
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, repo.Append(ctx, token, entity.HistoryMessage{
			Role:      "user",
			Content:   fmt.Sprintf("m%d", i),
			CreatedAt: time.Unix(int64(i), 0).UTC(),
		}))
	}

	got, err := repo.Recent(ctx, token, 10)
	require.NoError(t, err)
	require.Len(t, got, 3, "list is trimmed to max length")
	assert.Equal(t, "m2", got[0].Content)
	assert.Equal(t, "m4", got[2].Content)

	got, err = repo.Recent(ctx, token, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"m3", "m4"}, []string{got[0].Content, got[1].Content})

	require.NoError(t, repo.Clear(ctx, token))
	got, err = repo.Recent(ctx, token, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryHistoryRepository(t *testing.T) {
	exerciseHistory(t, NewMemoryHistoryRepository(3, time.Hour), "tok-mem")
}

func TestRedisHistoryRepository(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	t.Cleanup(func() { _ = rdb.Close() })

	exerciseHistory(t, NewRedisHistoryRepository(rdb, 3, time.Minute), fmt.Sprintf("tok-%d", time.Now().UnixNano()))
}
