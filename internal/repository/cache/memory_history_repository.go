package cache

import (
	"context"
	"sync"
	"time"

	"move-quote-be/internal/entity"
	"move-quote-be/internal/repository/contract"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryHistoryRepository is the single-instance fallback used when Redis is
// unreachable at startup.
type MemoryHistoryRepository struct {
	mu     sync.Mutex
	store  *gocache.Cache
	maxLen int
}

func NewMemoryHistoryRepository(maxLen int, idleTTL time.Duration) contract.HistoryRepository {
	return &MemoryHistoryRepository{
		store:  gocache.New(idleTTL, idleTTL/2+time.Minute),
		maxLen: maxLen,
	}
}

func (r *MemoryHistoryRepository) load(token string) []entity.HistoryMessage {
	if v, ok := r.store.Get(historyKey(token)); ok {
		return v.([]entity.HistoryMessage)
	}
	return nil
}

func (r *MemoryHistoryRepository) Append(_ context.Context, token string, msgs ...entity.HistoryMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := append(r.load(token), msgs...)
	if over := len(list) - r.maxLen; over > 0 {
		list = append([]entity.HistoryMessage(nil), list[over:]...)
	}
	r.store.SetDefault(historyKey(token), list)
	return nil
}

func (r *MemoryHistoryRepository) Recent(_ context.Context, token string, n int) ([]entity.HistoryMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.load(token)
	if n <= 0 {
		return nil, nil
	}
	if len(list) > n {
		list = list[len(list)-n:]
	}
	return append([]entity.HistoryMessage(nil), list...), nil
}

func (r *MemoryHistoryRepository) Clear(_ context.Context, token string) error {
	r.store.Delete(historyKey(token))
	return nil
}
