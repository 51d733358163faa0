// Package session keeps the bounded conversational memory of a chat.
package session

import (
	"slices"
	"sync"
	"time"

	"swimcoach-be/pkg/store"
)

// DefaultLimit is how many exchanges and raw entries a session retains.
const DefaultLimit = 10

// Session holds the most recent exchanges and raw user entries, evicting the
// oldest first. All methods are safe for concurrent use; writers are serialized
// and readers always get a detached copy of one consistent state.
type Session struct {
	id    string
	limit int
	now   func() time.Time

	mu        sync.RWMutex
	exchanges []store.Exchange
	entries   []string
}

func New(id string, limit int) *Session {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Session{id: id, limit: limit, now: time.Now}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Limit() int {
	return s.limit
}

// Record appends one successful exchange and its raw query.
func (s *Session) Record(query, reply string, sources []store.PassageRef) {
	at := s.now()
	ex := store.Exchange{
		Query: store.Turn{Speaker: store.SpeakerUser, Text: query, Occurred: at},
		Reply: store.Turn{Speaker: store.SpeakerAssistant, Text: reply, Sources: slices.Clone(sources), Occurred: at},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchanges = pushBounded(s.exchanges, ex, s.limit)
	s.entries = pushBounded(s.entries, query, s.limit)
}

// Len is the number of retained exchanges.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.exchanges)
}

// Turns returns the retained log flattened to alternating user and assistant turns.
func (s *Session) Turns() []store.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return flatten(s.exchanges)
}

func (s *Session) RecentEntries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

func (s *Session) Snapshot() store.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.SessionSnapshot{
		ID:            s.id,
		Turns:         flatten(s.exchanges),
		RecentEntries: slices.Clone(s.entries),
	}
}

// Clear drops the conversation log, keeping recent entries.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchanges = nil
}

// ClearEntries drops the recent entries, keeping the conversation log.
func (s *Session) ClearEntries() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// PopEntry removes and returns the newest raw entry.
func (s *Session) PopEntry() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return "", false
	}
	last := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return last, true
}

// pushBounded appends v and drops from the front until len <= limit.
// It always returns a fresh backing array so earlier copies stay valid.
func pushBounded[T any](items []T, v T, limit int) []T {
	drop := max(len(items)+1-limit, 0)
	next := make([]T, 0, min(len(items)+1, limit))
	next = append(next, items[drop:]...)
	return append(next, v)
}

func flatten(exchanges []store.Exchange) []store.Turn {
	turns := make([]store.Turn, 0, 2*len(exchanges))
	for _, ex := range exchanges {
		turns = append(turns, ex.Query, ex.Reply)
	}
	return turns
}
