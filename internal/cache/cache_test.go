package cache

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestCache_BasicOperations(t *testing.T) {
	cache := NewCache[string, string]()

	t.Run("Set and Get", func(t *testing.T) {
		cache.Set("test-key", "test-value")

		got, exists := cache.Get("test-key")
		if !exists {
			t.Error("Expected key to exist")
		}
		if got != "test-value" {
			t.Errorf("Expected %q, got %q", "test-value", got)
		}
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		_, exists := cache.Get("non-existent")
		if exists {
			t.Error("Expected key to not exist")
		}
	})

	t.Run("Overwrite existing key", func(t *testing.T) {
		cache.Set("overwrite-key", "value1")
		cache.Set("overwrite-key", "value2")

		got, exists := cache.Get("overwrite-key")
		if !exists {
			t.Error("Expected key to exist")
		}
		if got != "value2" {
			t.Errorf("Expected %q, got %q", "value2", got)
		}
	})
}

func TestCache_Delete(t *testing.T) {
	cache := NewCache[string, string]()

	t.Run("Delete existing key", func(t *testing.T) {
		cache.Set("delete-key", "delete-value")
		cache.Delete("delete-key")

		if _, exists := cache.Get("delete-key"); exists {
			t.Error("Expected key to be deleted")
		}
	})

	t.Run("Delete non-existent key", func(t *testing.T) {
		// Should not panic
		cache.Delete("non-existent")
	})
}

func TestCache_DeleteWhere(t *testing.T) {
	cache := NewCache[string, int]()
	cache.Set("homepage:hero_title:en", 1)
	cache.Set("homepage:hero_title:ar", 2)
	cache.Set("homepage:hero_subtitle:en", 3)

	cache.DeleteWhere(func(key string) bool {
		return strings.HasPrefix(key, "homepage:hero_title:")
	})

	if _, exists := cache.Get("homepage:hero_title:en"); exists {
		t.Error("Expected matching keys to be deleted")
	}
	if _, exists := cache.Get("homepage:hero_title:ar"); exists {
		t.Error("Expected matching keys to be deleted")
	}
	if _, exists := cache.Get("homepage:hero_subtitle:en"); !exists {
		t.Error("Expected non-matching keys to survive")
	}
}

func TestCache_Clear(t *testing.T) {
	cache := NewCache[string, string]()

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")
	cache.Set("key3", "value3")

	cache.Clear()

	if cache.Len() != 0 {
		t.Errorf("Expected empty cache, got %d items", cache.Len())
	}
}

func TestCache_SetTo(t *testing.T) {
	cache := NewCache[string, string]()
	cache.Set("old", "value")

	cache.SetTo(map[string]string{"new1": "v1", "new2": "v2"})

	if _, exists := cache.Get("old"); exists {
		t.Error("Expected old items to be replaced")
	}
	if got, exists := cache.Get("new1"); !exists || got != "v1" {
		t.Error("Expected new items to be set")
	}
}

func TestCache_Concurrency(t *testing.T) {
	cache := NewCache[int, string]()
	const numGoroutines = 100
	const numOperations = 1000

	var wg sync.WaitGroup

	// Writers
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				key := id*numOperations + j
				cache.Set(key, fmt.Sprintf("value-%d-%d", id, j))
			}
		}(i)
	}

	// Readers
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				cache.Get(id*numOperations + j) // Result may not exist yet
			}
		}(i)
	}

	wg.Wait()
}

func TestRenderedMarkdownCache(t *testing.T) {
	ClearRenderedMarkdownCache()

	t.Run("Set and get rendered markdown", func(t *testing.T) {
		html := []byte("<h1>Test</h1>")

		SetRenderedMarkdown("test-hash", "github", html, "test-extra")

		cached, found := GetRenderedMarkdown("test-hash", "github")
		if !found {
			t.Fatal("Expected cached content to be found")
		}
		if !bytes.Equal(cached.HTML, html) {
			t.Errorf("Expected HTML %q, got %q", html, cached.HTML)
		}
		if cached.Extra != "test-extra" {
			t.Errorf("Expected extra %v, got %v", "test-extra", cached.Extra)
		}
	})

	t.Run("Different syntax theme creates separate entries", func(t *testing.T) {
		html := []byte("<h1>Same Content</h1>")

		SetRenderedMarkdown("same-hash", "github", html, "github-extra")
		SetRenderedMarkdown("same-hash", "monokai", html, "monokai-extra")

		cached1, found1 := GetRenderedMarkdown("same-hash", "github")
		cached2, found2 := GetRenderedMarkdown("same-hash", "monokai")

		if !found1 || !found2 {
			t.Fatal("Expected both cached contents to be found")
		}
		if cached1.Extra == cached2.Extra {
			t.Error("Expected different extra data for different themes")
		}
	})

	t.Run("Clear rendered markdown cache", func(t *testing.T) {
		SetRenderedMarkdown("hash1", "theme1", []byte("html1"), nil)
		ClearRenderedMarkdownCache()

		if _, found := GetRenderedMarkdown("hash1", "theme1"); found {
			t.Error("Expected all cached content to be cleared")
		}
	})
}

func TestDynamicContentCache(t *testing.T) {
	InvalidateAllDynamicContent()

	t.Run("Set and get", func(t *testing.T) {
		SetDynamicContent("homepage", "hero_title", "en:dark", []byte("<h1>Title</h1>"), nil)

		cached, found := GetDynamicContent("homepage", "hero_title", "en:dark")
		if !found {
			t.Fatal("Expected cached content to be found")
		}
		if string(cached.HTML) != "<h1>Title</h1>" {
			t.Errorf("Unexpected HTML: %q", cached.HTML)
		}
	})

	t.Run("Scoped invalidation removes all variants of the pair", func(t *testing.T) {
		InvalidateAllDynamicContent()
		SetDynamicContent("homepage", "hero_title", "en:dark", []byte("a"), nil)
		SetDynamicContent("homepage", "hero_title", "ar:dark", []byte("b"), nil)
		SetDynamicContent("homepage", "hero_subtitle", "en:dark", []byte("c"), nil)

		InvalidateDynamicContent("homepage", "hero_title")

		if _, found := GetDynamicContent("homepage", "hero_title", "en:dark"); found {
			t.Error("Expected pair variants to be invalidated")
		}
		if _, found := GetDynamicContent("homepage", "hero_title", "ar:dark"); found {
			t.Error("Expected pair variants to be invalidated")
		}
		if _, found := GetDynamicContent("homepage", "hero_subtitle", "en:dark"); !found {
			t.Error("Expected other pairs to survive")
		}
	})

	t.Run("Family-wide invalidation", func(t *testing.T) {
		SetDynamicContent("homepage", "hero_title", "en:dark", []byte("a"), nil)
		SetDynamicContent("admissions", "intro", "en:dark", []byte("b"), nil)

		InvalidateAllDynamicContent()

		if DynamicContentLen() != 0 {
			t.Errorf("Expected empty dynamic cache, got %d", DynamicContentLen())
		}
	})

	t.Run("Invalidator adapter", func(t *testing.T) {
		SetDynamicContent("homepage", "hero_title", "en:dark", []byte("a"), nil)

		DynamicInvalidator{}.InvalidateDynamicContent("homepage", "hero_title")

		if _, found := GetDynamicContent("homepage", "hero_title", "en:dark"); found {
			t.Error("Expected adapter to invalidate the pair")
		}
	})
}

func BenchmarkCache_Set(b *testing.B) {
	cache := NewCache[int, string]()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Set(i, fmt.Sprintf("value-%d", i))
	}
}

func BenchmarkCache_Get(b *testing.B) {
	cache := NewCache[int, string]()
	for i := 0; i < 10000; i++ {
		cache.Set(i, fmt.Sprintf("value-%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get(i % 10000)
	}
}
