package memory

import (
	"time"

	"swimcoach-be/pkg/rag/session"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps sessions in process memory. Named sessions expire
// after ttl of inactivity; the default session never expires.
type SessionRepository struct {
	cache *cache.Cache
	ttl   time.Duration
}

var _ session.Repository = (*SessionRepository)(nil)

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionRepository{
		cache: cache.New(ttl, 10*time.Minute),
		ttl:   ttl,
	}
}

func (r *SessionRepository) expiration(id string) time.Duration {
	if id == session.DefaultID {
		return cache.NoExpiration
	}
	return r.ttl
}

func (r *SessionRepository) Add(s *session.Session) error {
	return r.cache.Add(s.ID(), s, r.expiration(s.ID()))
}

// Get returns the session and pushes its expiry forward.
func (r *SessionRepository) Get(sessionID string) (*session.Session, bool) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	s := x.(*session.Session)
	if sessionID != session.DefaultID {
		r.cache.Set(sessionID, s, r.ttl)
	}
	return s, true
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
