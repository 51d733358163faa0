package session

// DefaultID names the process-wide session used when a caller gives none.
const DefaultID = "global"

// Repository stores live sessions by ID.
type Repository interface {
	Get(id string) (*Session, bool)
	// Add stores s unless a session with the same ID exists.
	Add(s *Session) error
	Delete(id string)
}

// Manager hands out sessions, creating them on first use.
type Manager struct {
	repo  Repository
	limit int
}

func NewManager(repo Repository, limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{repo: repo, limit: limit}
}

// LoadOrCreate retrieves or creates a session. An empty id means DefaultID.
// Concurrent first calls for the same id all receive the same Session.
func (m *Manager) LoadOrCreate(id string) *Session {
	if id == "" {
		id = DefaultID
	}
	if s, ok := m.repo.Get(id); ok {
		return s
	}

	s := New(id, m.limit)
	if err := m.repo.Add(s); err != nil {
		if existing, ok := m.repo.Get(id); ok {
			return existing
		}
	}
	return s
}

// Lookup returns an existing session without creating one.
func (m *Manager) Lookup(id string) (*Session, bool) {
	if id == "" {
		id = DefaultID
	}
	return m.repo.Get(id)
}

func (m *Manager) Delete(id string) {
	m.repo.Delete(id)
}
