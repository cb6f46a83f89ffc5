package draft

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alnahda/portal/internal/model"
	"github.com/alnahda/portal/internal/session"
)

func newTestStore() *Store {
	return NewStore(session.NewMemoryStorage(), "portal_preview_drafts")
}

func entry(page, element, ar, en string) model.DraftEntry {
	return model.DraftEntry{
		PageKey:     page,
		ElementKey:  element,
		ContentAr:   ar,
		ContentEn:   en,
		ElementType: model.ElementText,
	}
}

func TestStore_LastWriteWins(t *testing.T) {
	s := newTestStore()

	if res := s.Save(entry("homepage", "hero_title", "أ", "First")); !res.OK {
		t.Fatalf("Save failed: %v", res.Err)
	}
	if res := s.Save(entry("homepage", "hero_title", "ب", "Second")); !res.OK {
		t.Fatalf("Save failed: %v", res.Err)
	}

	got := s.Get("homepage", "hero_title")
	if got == nil {
		t.Fatal("Expected draft to exist")
	}
	if got.ContentEn != "Second" || got.ContentAr != "ب" {
		t.Errorf("Expected later write to win, got %+v", got)
	}

	all := s.GetAll()
	if len(all) != 1 {
		t.Errorf("Expected exactly one entry for the pair, got %d", len(all))
	}
	if _, found := all["homepage:hero_title"]; !found {
		t.Error("Expected map keyed by pageKey:elementKey")
	}
}

func TestStore_SessionIsolation(t *testing.T) {
	a := newTestStore()
	b := newTestStore()

	a.Save(entry("homepage", "hero_title", "عنوان", "Title"))

	if got := a.Get("homepage", "hero_title"); got == nil {
		t.Error("Expected draft in the writing session")
	}
	if got := b.Get("homepage", "hero_title"); got != nil {
		t.Error("Expected a fresh session to be empty")
	}
	if len(b.GetAll()) != 0 {
		t.Error("Expected fresh session GetAll to be empty")
	}
}

func TestStore_ClearAll(t *testing.T) {
	s := newTestStore()
	s.Save(entry("homepage", "hero_title", "a", "b"))
	s.Save(entry("homepage", "hero_subtitle", "c", "d"))
	s.Save(entry("admissions", "intro", "e", "f"))

	if !s.HasAny() {
		t.Fatal("Expected drafts before clear")
	}

	if res := s.ClearAll(); !res.OK {
		t.Fatalf("ClearAll failed: %v", res.Err)
	}

	if len(s.GetAll()) != 0 {
		t.Error("Expected empty map after ClearAll")
	}
	if s.HasAny() {
		t.Error("Expected HasAny to be false after ClearAll")
	}
}

func TestStore_ClearOne(t *testing.T) {
	s := newTestStore()
	s.Save(entry("homepage", "hero_title", "a", "b"))
	s.Save(entry("homepage", "hero_subtitle", "c", "d"))

	if res := s.ClearOne("homepage", "hero_title"); !res.OK {
		t.Fatalf("ClearOne failed: %v", res.Err)
	}

	all := s.GetAll()
	if _, found := all["homepage:hero_title"]; found {
		t.Error("Expected cleared key to be absent")
	}
	if e, found := all["homepage:hero_subtitle"]; !found || e.ContentEn != "d" {
		t.Error("Expected other keys to remain unchanged")
	}
}

func TestStore_SaveAndClearScenario(t *testing.T) {
	s := newTestStore()

	s.Save(model.DraftEntry{
		PageKey:     "homepage",
		ElementKey:  "hero_title",
		ContentAr:   "عنوان",
		ContentEn:   "Title",
		ElementType: model.ElementText,
	})

	got := s.Get("homepage", "hero_title")
	if got == nil {
		t.Fatal("Expected draft to exist")
	}
	if got.ContentAr != "عنوان" {
		t.Errorf("Expected Arabic payload to round-trip, got %q", got.ContentAr)
	}
	if got.Timestamp <= 0 {
		t.Errorf("Expected a positive timestamp, got %d", got.Timestamp)
	}

	s.ClearOne("homepage", "hero_title")
	if s.Get("homepage", "hero_title") != nil {
		t.Error("Expected nil after ClearOne")
	}
}

func TestStore_Subscribe(t *testing.T) {
	s := newTestStore()

	var events []Event
	unsubscribe := s.Subscribe(func(e Event) {
		events = append(events, e)
	})

	s.Save(entry("homepage", "hero_title", "a", "b"))
	if len(events) != 1 {
		t.Fatalf("Expected one synchronous notification, got %d", len(events))
	}
	if events[0].PageKey != "homepage" || events[0].ElementKey != "hero_title" {
		t.Errorf("Unexpected event: %+v", events[0])
	}
	if events[0].Content == nil || events[0].Content.ContentEn != "b" {
		t.Error("Expected event to carry the saved entry")
	}

	unsubscribe()
	s.Save(entry("homepage", "hero_title", "c", "d"))
	if len(events) != 1 {
		t.Error("Expected no notification after unsubscribe")
	}
}

func TestStore_FaultyStorageDegradesSilently(t *testing.T) {
	s := NewStore(session.FaultyStorage{}, "portal_preview_drafts")

	res := s.Save(entry("homepage", "hero_title", "a", "b"))
	if res.OK {
		t.Error("Expected Save to report failure internally")
	}
	if res.Err == nil {
		t.Error("Expected Save result to carry the storage error")
	}

	if got := s.Get("homepage", "hero_title"); got != nil {
		t.Error("Expected nil from unreadable storage")
	}
	if all := s.GetAll(); len(all) != 0 {
		t.Error("Expected empty map from unreadable storage")
	}
	if s.HasAny() {
		t.Error("Expected HasAny false on unreadable storage")
	}
	if res := s.ClearAll(); res.OK {
		t.Error("Expected ClearAll to report failure internally")
	}
}

func TestStore_TimestampUsesClock(t *testing.T) {
	s := newTestStore()
	fixed := time.UnixMilli(1700000000000)
	s.SetClock(func() time.Time { return fixed })

	s.Save(entry("homepage", "hero_title", "a", "b"))
	got := s.Get("homepage", "hero_title")
	if got.Timestamp != 1700000000000 {
		t.Errorf("Expected stamped clock time, got %d", got.Timestamp)
	}
}

func TestIsPreviewRequested(t *testing.T) {
	cases := []struct {
		rawURL string
		want   bool
	}{
		{"http://localhost:12700/pages/homepage?preview=1", true},
		{"http://localhost:12700/pages/homepage?preview=0", false},
		{"http://localhost:12700/pages/homepage?preview=true", false},
		{"http://localhost:12700/pages/homepage", false},
	}

	for _, tc := range cases {
		u, err := url.Parse(tc.rawURL)
		if err != nil {
			t.Fatal(err)
		}
		if got := IsPreviewRequested(u); got != tc.want {
			t.Errorf("IsPreviewRequested(%q) = %v, want %v", tc.rawURL, got, tc.want)
		}
	}

	if IsPreviewRequested(nil) {
		t.Error("Expected nil URL to report live mode")
	}
}

func TestStore_BuildPreviewURL(t *testing.T) {
	s := newTestStore()
	s.SetClock(func() time.Time { return time.UnixMilli(1700000000000) })

	got := s.BuildPreviewURL("/pages/homepage")

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("Expected a valid URL, got %q: %v", got, err)
	}
	if !u.IsAbs() {
		t.Errorf("Expected an absolute URL, got %q", got)
	}
	if !strings.HasSuffix(u.Path, "/pages/homepage") {
		t.Errorf("Expected path to be preserved, got %q", u.Path)
	}
	if u.Query().Get("preview") != "1" {
		t.Errorf("Expected preview flag, got %q", got)
	}
	if u.Query().Get("t") != "1700000000000" {
		t.Errorf("Expected cache-busting timestamp, got %q", got)
	}
}
