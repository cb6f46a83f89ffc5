// Package session provides session-scoped key/value storage for the
// draft pipeline. Storage stands in for the browsing context's session
// bucket: everything in it lives exactly as long as the session does.
package session

import (
	"fmt"
	"sync"
)

// Storage is the minimal key/value surface the draft store persists
// through. Implementations must be safe for concurrent use.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

func (s *MemoryStorage) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

func (s *MemoryStorage) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// FaultyStorage wraps a Storage and fails every operation. The draft
// store must degrade to no-ops when the underlying storage is broken
// (quota exceeded, storage disabled), so tests exercise that path here.
type FaultyStorage struct{}

func (FaultyStorage) Get(key string) (string, bool, error) {
	return "", false, fmt.Errorf("storage unavailable: get %s", key)
}

func (FaultyStorage) Set(key, value string) error {
	return fmt.Errorf("storage unavailable: set %s", key)
}

func (FaultyStorage) Remove(key string) error {
	return fmt.Errorf("storage unavailable: remove %s", key)
}
