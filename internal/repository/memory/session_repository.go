package memory

import (
	"time"

	"move-quote-be/internal/pkg/logger"
	"move-quote-be/pkg/intake/session"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps live intake sessions in memory. Each Save restarts
// the idle window, so an entry expires after idleTTL without activity.
type SessionRepository struct {
	cache *cache.Cache
}

// NewSessionRepository purges expired sessions every cleanupInterval. A zero
// interval disables the janitor; expired entries are then dropped lazily on
// Get.
func NewSessionRepository(idleTTL, cleanupInterval time.Duration, log logger.ILogger) *SessionRepository {
	c := cache.New(idleTTL, cleanupInterval)
	c.OnEvicted(func(id string, _ interface{}) {
		log.Info("SESSION", "Session evicted", map[string]interface{}{"session_id": id})
	})
	return &SessionRepository{cache: c}
}

func (r *SessionRepository) Save(s *session.Session) {
	r.cache.Set(s.ID.String(), s, cache.DefaultExpiration)
}

func (r *SessionRepository) Touch(s *session.Session) bool {
	return r.cache.Replace(s.ID.String(), s, cache.DefaultExpiration) == nil
}

func (r *SessionRepository) Get(sessionID string) (*session.Session, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*session.Session), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
