package session

import (
	"fmt"
	"sync"
	"testing"
)

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage()

	t.Run("Set and Get", func(t *testing.T) {
		if err := s.Set("k", "v"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		v, ok, err := s.Get("k")
		if err != nil || !ok {
			t.Fatalf("Expected key to exist, ok=%v err=%v", ok, err)
		}
		if v != "v" {
			t.Errorf("Expected %q, got %q", "v", v)
		}
	})

	t.Run("Get missing key", func(t *testing.T) {
		_, ok, err := s.Get("missing")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if ok {
			t.Error("Expected key to be absent")
		}
	})

	t.Run("Remove", func(t *testing.T) {
		s.Set("gone", "soon")
		if err := s.Remove("gone"); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		if _, ok, _ := s.Get("gone"); ok {
			t.Error("Expected key to be removed")
		}
	})

	t.Run("Concurrent access", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key := fmt.Sprintf("key-%d", i)
				s.Set(key, "value")
				s.Get(key)
				s.Remove(key)
			}(i)
		}
		wg.Wait()
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	t.Run("Same session gets same storage", func(t *testing.T) {
		id := NewID()
		a := r.StorageFor(id)
		b := r.StorageFor(id)
		a.Set("k", "v")
		if v, ok, _ := b.Get("k"); !ok || v != "v" {
			t.Error("Expected both handles to share one storage")
		}
	})

	t.Run("Different sessions are isolated", func(t *testing.T) {
		a := r.StorageFor(NewID())
		b := r.StorageFor(NewID())
		a.Set("k", "v")
		if _, ok, _ := b.Get("k"); ok {
			t.Error("Expected sessions to be isolated")
		}
	})

	t.Run("Drop discards the bucket", func(t *testing.T) {
		id := NewID()
		r.StorageFor(id).Set("k", "v")
		r.Drop(id)
		if _, ok, _ := r.StorageFor(id).Get("k"); ok {
			t.Error("Expected dropped session to start empty")
		}
	})
}
