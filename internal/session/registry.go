package session

import (
	"sync"

	"github.com/google/uuid"
)

type ID string

func NewID() ID {
	return ID(uuid.New().String())
}

// Registry hands out one isolated Storage per editing session. A fresh
// session always starts from an empty bucket.
type Registry struct {
	mu       sync.Mutex
	storages map[ID]Storage
}

func NewRegistry() *Registry {
	return &Registry{storages: make(map[ID]Storage)}
}

// StorageFor returns the session's storage, creating it on first use.
func (r *Registry) StorageFor(id ID) Storage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.storages[id]; ok {
		return s
	}
	s := NewMemoryStorage()
	r.storages[id] = s
	return s
}

// Drop discards a session's storage entirely, simulating session end.
func (r *Registry) Drop(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.storages, id)
}
