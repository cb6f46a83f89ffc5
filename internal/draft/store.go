// Package draft implements the session-scoped store of pending content
// edits. Drafts are ephemeral, best-effort UI conveniences: every
// storage fault is swallowed and logged, never surfaced to callers as a
// blocking failure.
package draft

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnahda/portal/internal/config"
	"github.com/alnahda/portal/internal/model"
	"github.com/alnahda/portal/internal/session"
)

var draftLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	draftLogger = l
}

// Result reports whether a store operation actually persisted. Callers
// in the request path ignore it (drafts degrade silently); tests assert
// on it.
type Result struct {
	OK  bool
	Err error
}

func ok() Result              { return Result{OK: true} }
func failed(err error) Result { return Result{Err: err} }

// Event is the in-process notification emitted after a successful Save.
type Event struct {
	PageKey    string
	ElementKey string
	Content    *model.DraftEntry
}

// Store holds all draft entries for one editing session under a single
// fixed storage key. At most one entry exists per (pageKey, elementKey);
// a new write fully replaces the prior entry.
type Store struct {
	storage session.Storage
	key     string

	now func() time.Time

	mu     sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

func NewStore(storage session.Storage, bucketKey string) *Store {
	return &Store{
		storage: storage,
		key:     bucketKey,
		now:     time.Now,
		subs:    make(map[int]func(Event)),
	}
}

// SetClock overrides the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// BucketKey returns the fixed storage key holding the serialized map.
// The cross-tab storage-change listener watches this exact name.
func (s *Store) BucketKey() string {
	return s.key
}

func (s *Store) load() map[string]model.DraftEntry {
	raw, found, err := s.storage.Get(s.key)
	if err != nil {
		draftLogger.Error().Err(err).Msg("Error reading draft bucket")
		return map[string]model.DraftEntry{}
	}
	if !found || raw == "" {
		return map[string]model.DraftEntry{}
	}

	var entries map[string]model.DraftEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		draftLogger.Error().Err(err).Msg("Error decoding draft bucket")
		return map[string]model.DraftEntry{}
	}
	return entries
}

func (s *Store) persist(entries map[string]model.DraftEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("error encoding draft bucket: %w", err)
	}
	if err := s.storage.Set(s.key, string(raw)); err != nil {
		return fmt.Errorf("error writing draft bucket: %w", err)
	}
	return nil
}

// Save stamps the entry with the current time, upserts it into the
// session bucket and notifies subscribers synchronously. Last write
// wins; both language payloads are replaced together.
func (s *Store) Save(entry model.DraftEntry) Result {
	entry.Timestamp = s.now().UnixMilli()

	s.mu.Lock()
	entries := s.load()
	entries[model.ElementKeyOf(entry.PageKey, entry.ElementKey)] = entry
	err := s.persist(entries)
	subs := make([]func(Event), 0, len(s.subs))
	for _, cb := range s.subs {
		subs = append(subs, cb)
	}
	s.mu.Unlock()

	if err != nil {
		draftLogger.Error().Err(err).
			Str("page_key", entry.PageKey).
			Str("element_key", entry.ElementKey).
			Msg("Error saving draft")
		return failed(err)
	}

	for _, cb := range subs {
		cb(Event{PageKey: entry.PageKey, ElementKey: entry.ElementKey, Content: &entry})
	}

	return ok()
}

// Get returns the draft for the pair, or nil if absent or unreadable.
func (s *Store) Get(pageKey, elementKey string) *model.DraftEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	if entry, found := entries[model.ElementKeyOf(pageKey, elementKey)]; found {
		return &entry
	}
	return nil
}

// GetAll returns the whole draft map keyed by "pageKey:elementKey".
// Returns an empty map on any read failure.
func (s *Store) GetAll() map[string]model.DraftEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// ClearOne removes a single entry and re-persists the rest.
func (s *Store) ClearOne(pageKey, elementKey string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	delete(entries, model.ElementKeyOf(pageKey, elementKey))
	if err := s.persist(entries); err != nil {
		draftLogger.Error().Err(err).
			Str("page_key", pageKey).
			Str("element_key", elementKey).
			Msg("Error clearing draft")
		return failed(err)
	}
	return ok()
}

// ClearAll deletes the entire session bucket.
func (s *Store) ClearAll() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Remove(s.key); err != nil {
		draftLogger.Error().Err(err).Msg("Error clearing drafts")
		return failed(err)
	}
	return ok()
}

// HasAny reports whether the session holds any pending drafts.
func (s *Store) HasAny() bool {
	return len(s.GetAll()) > 0
}

// Subscribe registers a callback invoked synchronously whenever Save
// completes. The returned function removes the listener.
func (s *Store) Subscribe(cb func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = cb

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// IsPreviewRequested reports whether the URL carries the preview flag.
// Conceptually part of the preview controller; kept here because the
// store and the flag travel together.
func IsPreviewRequested(u *url.URL) bool {
	if u == nil {
		return false
	}
	return u.Query().Get(config.AppConfig.Preview.QueryParam) == config.PreviewParamOn
}

// BuildPreviewURL produces an absolute URL for launching an embedded
// preview frame: the preview flag plus a cache-busting timestamp.
func (s *Store) BuildPreviewURL(path string) string {
	base, err := url.Parse(config.AppConfig.Site.BaseURL)
	if err != nil {
		draftLogger.Error().Err(err).Msg("Invalid site base URL")
		return path
	}

	u := base.JoinPath(path)
	q := u.Query()
	q.Set(config.AppConfig.Preview.QueryParam, config.PreviewParamOn)
	q.Set(config.PreviewCacheBustParam, strconv.FormatInt(s.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String()
}
