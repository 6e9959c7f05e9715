package session

import "sync"

// MemoryStore is a mutex-guarded in-memory key-value store backing live
// carts between requests. Values are copied on the way in and out so no
// caller ever holds a reference into the store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (s *MemoryStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[key]
	return ok
}

func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true
}

func (s *MemoryStore) Put(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
}

func (s *MemoryStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
}

// Scope returns a view of the store whose keys are namespaced under the
// given owner, so multiple users share one store without colliding.
func (s *MemoryStore) Scope(owner string) *ScopedStore {
	return &ScopedStore{parent: s, prefix: owner + ":"}
}

// ScopedStore prefixes every key with its owner namespace.
type ScopedStore struct {
	parent *MemoryStore
	prefix string
}

func (s *ScopedStore) Has(key string) bool {
	return s.parent.Has(s.prefix + key)
}

func (s *ScopedStore) Get(key string) ([]byte, bool) {
	return s.parent.Get(s.prefix + key)
}

func (s *ScopedStore) Put(key string, value []byte) {
	s.parent.Put(s.prefix+key, value)
}

func (s *ScopedStore) Remove(key string) {
	s.parent.Remove(s.prefix + key)
}
