package session

import (
	"container/list"
	"sync"
	"time"
)

// StoreConfig bounds the in-memory session store.
type StoreConfig struct {
	Capacity int           // maximum concurrently tracked sessions
	TTL      time.Duration // idle lifetime of a session
}

// DefaultStoreConfig returns the default bounds.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Capacity: 1024,
		TTL:      30 * time.Minute,
	}
}

// Store is a bounded LRU+TTL map of session contexts. Lookup takes a global
// lock briefly; all per-session mutation happens under the context's own
// lock so sessions do not contend with each other.
type Store struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration

	sessions map[string]*storeEntry
	order    *list.List
}

type storeEntry struct {
	context *Context
	element *list.Element
}

// NewStore creates a session store.
func NewStore(cfg StoreConfig) *Store {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1024
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	return &Store{
		capacity: cfg.Capacity,
		ttl:      cfg.TTL,
		sessions: make(map[string]*storeEntry),
		order:    list.New(),
	}
}

// GetOrCreate returns the context for a session, creating it on first use.
// Expired sessions are swept opportunistically on every call.
func (s *Store) GetOrCreate(sessionID string) *Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepExpiredLocked()

	if entry, ok := s.sessions[sessionID]; ok {
		s.order.MoveToFront(entry.element)
		return entry.context
	}

	for len(s.sessions) >= s.capacity {
		s.evictOldestLocked()
	}

	entry := &storeEntry{context: newContext(sessionID)}
	entry.element = s.order.PushFront(sessionID)
	s.sessions[sessionID] = entry
	return entry.context
}

// Get returns the context for a session if it exists and has not expired.
func (s *Store) Get(sessionID string) (*Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepExpiredLocked()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	s.order.MoveToFront(entry.element)
	return entry.context, true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// sweepExpiredLocked must be called with the store lock held.
func (s *Store) sweepExpiredLocked() {
	cutoff := time.Now().Add(-s.ttl)
	for id, entry := range s.sessions {
		entry.context.mu.Lock()
		expired := entry.context.lastActivity.Before(cutoff)
		entry.context.mu.Unlock()
		if expired {
			s.order.Remove(entry.element)
			delete(s.sessions, id)
		}
	}
}

// evictOldestLocked must be called with the store lock held.
func (s *Store) evictOldestLocked() {
	oldest := s.order.Back()
	if oldest == nil {
		return
	}
	id := oldest.Value.(string)
	s.order.Remove(oldest)
	delete(s.sessions, id)
}
