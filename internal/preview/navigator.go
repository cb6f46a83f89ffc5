// Package preview tracks whether a browsing context shows drafts or
// published content, and owns the only sanctioned transitions between
// the two modes.
package preview

import (
	"net/url"
	"sync"

	"github.com/rs/zerolog"
)

var previewLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	previewLogger = l
}

// Navigator exposes the context's current location. Preview mode has no
// storage of its own; it is recomputed from this URL on every check.
type Navigator interface {
	Current() *url.URL
	Push(u *url.URL)
}

// History is a pushState-style navigator: Push adds an entry without a
// reload, Back pops one and fires pop handlers, mirroring the browser's
// popstate event.
type History struct {
	mu    sync.Mutex
	stack []*url.URL
	pops  []func(*url.URL)
}

func NewHistory(start *url.URL) *History {
	return &History{stack: []*url.URL{start}}
}

func (h *History) Current() *url.URL {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stack[len(h.stack)-1]
}

func (h *History) Push(u *url.URL) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stack = append(h.stack, u)
}

// Back navigates one entry back, if possible, and notifies pop handlers
// with the newly current URL.
func (h *History) Back() {
	h.mu.Lock()
	if len(h.stack) < 2 {
		h.mu.Unlock()
		return
	}
	h.stack = h.stack[:len(h.stack)-1]
	current := h.stack[len(h.stack)-1]
	pops := append([]func(*url.URL){}, h.pops...)
	h.mu.Unlock()

	for _, cb := range pops {
		cb(current)
	}
}

func (h *History) OnPop(cb func(*url.URL)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pops = append(h.pops, cb)
}

// Depth reports the number of history entries.
func (h *History) Depth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.stack)
}
