package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alnahda/portal/internal/cache"
	"github.com/alnahda/portal/internal/content"
	"github.com/alnahda/portal/internal/db"
	"github.com/alnahda/portal/internal/model"
	"github.com/alnahda/portal/internal/session"
)

func setupApp(t *testing.T) *http.ServeMux {
	t.Helper()

	Db = db.NewSQLite("file:" + t.Name() + "?mode=memory&cache=shared")
	if err := Db.InitDB(); err != nil {
		t.Fatalf("Failed to init database: %v", err)
	}
	t.Cleanup(func() { Db.Close() })

	repo := content.NewDBRepository(Db)
	if err := repo.SaveElement(&model.PageElement{
		PageKey:     "homepage",
		ElementKey:  "hero_title",
		ContentAr:   "أهلاً بكم",
		ContentEn:   "Welcome to Alnahda",
		ElementType: model.ElementText,
	}); err != nil {
		t.Fatalf("Failed to seed element: %v", err)
	}
	if err := repo.Init(); err != nil {
		t.Fatalf("Failed to init content repository: %v", err)
	}
	contentRepo = repo
	resolver = content.NewResolver(contentRepo)

	sessions = session.NewRegistry()
	editSessions = map[session.ID]*editSession{}
	authProvider = nil
	mediaStore = nil
	newsRepo = nil
	cache.InvalidateAllDynamicContent()

	return newMux()
}

// sessionCookie extracts the session cookie a handler set, so follow-up
// requests hit the same editing session.
func sessionCookie(res *http.Response) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == "portal-session" {
			return c
		}
	}
	return nil
}

func TestHealthz(t *testing.T) {
	mux := setupApp(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("Expected health payload, got %s", rec.Body.String())
	}
}

func TestRobots(t *testing.T) {
	mux := setupApp(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/robots.txt", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "User-agent") {
		t.Errorf("Expected robots body, got %s", rec.Body.String())
	}
}

func TestServePagePublished(t *testing.T) {
	mux := setupApp(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/pages/homepage", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "أهلاً بكم") {
		t.Errorf("Expected published arabic content, got %s", body)
	}
}

func TestDraftLifecycle(t *testing.T) {
	mux := setupApp(t)

	// Save a draft.
	payload := `{"pageKey":"homepage","elementKey":"hero_title","contentAr":"عنوان جديد","contentEn":"New title","elementType":"text"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/drafts", strings.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 saving draft, got %d: %s", rec.Code, rec.Body.String())
	}
	cookie := sessionCookie(rec.Result())
	if cookie == nil {
		t.Fatal("Expected a session cookie")
	}

	var saveResp struct {
		Draft   *model.DraftEntry `json:"draft"`
		Counter int64             `json:"counter"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&saveResp); err != nil {
		t.Fatalf("Failed to decode save response: %v", err)
	}
	if saveResp.Draft == nil || saveResp.Draft.Timestamp <= 0 {
		t.Errorf("Expected stamped draft, got %+v", saveResp.Draft)
	}
	if saveResp.Counter != 1 {
		t.Errorf("Expected counter 1, got %d", saveResp.Counter)
	}

	// Read it back on the same session.
	req := httptest.NewRequest("GET", "/api/drafts/homepage/hero_title", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 reading draft, got %d", rec.Code)
	}
	var entry model.DraftEntry
	if err := json.NewDecoder(rec.Body).Decode(&entry); err != nil {
		t.Fatalf("Failed to decode draft: %v", err)
	}
	if entry.ContentAr != "عنوان جديد" || entry.ContentEn != "New title" {
		t.Errorf("Draft round-trip mismatch: %+v", entry)
	}

	// A different session must not see it.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/drafts/homepage/hero_title", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a fresh session, got %d", rec.Code)
	}

	// Clear it.
	req = httptest.NewRequest("DELETE", "/api/drafts/homepage/hero_title", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204 clearing draft, got %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/drafts/homepage/hero_title", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after clear, got %d", rec.Code)
	}
}

func TestDraftValidation(t *testing.T) {
	mux := setupApp(t)

	rec := httptest.NewRecorder()
	payload := `{"pageKey":"homepage","elementKey":"hero_title","elementType":"video"}`
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/drafts", strings.NewReader(payload)))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for bad element type, got %d", rec.Code)
	}
}

func TestPreviewPageShowsDraft(t *testing.T) {
	mux := setupApp(t)

	payload := `{"pageKey":"homepage","elementKey":"hero_title","contentAr":"مسودة","contentEn":"Drafted","elementType":"text"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/drafts", strings.NewReader(payload)))
	cookie := sessionCookie(rec.Result())
	if cookie == nil {
		t.Fatal("Expected a session cookie")
	}

	// Preview request sees the draft.
	req := httptest.NewRequest("GET", "/pages/homepage?preview=1", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Result().Body)
	if !strings.Contains(string(body), "مسودة") {
		t.Errorf("Expected draft content in preview, got %s", body)
	}

	// Live request on the same session still sees published content.
	req = httptest.NewRequest("GET", "/pages/homepage", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	body, _ = io.ReadAll(rec.Result().Body)
	if strings.Contains(string(body), "مسودة") {
		t.Errorf("Expected live page to hide the draft, got %s", body)
	}
	if !strings.Contains(string(body), "أهلاً بكم") {
		t.Errorf("Expected published content on the live page, got %s", body)
	}
}

func TestPreviewModeToggleClearsDrafts(t *testing.T) {
	mux := setupApp(t)

	// Enable preview mode.
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/preview/mode", strings.NewReader(`{"enabled":true}`)))
	cookie := sessionCookie(rec.Result())
	if cookie == nil {
		t.Fatal("Expected a session cookie")
	}

	var modeResp struct {
		PreviewMode bool   `json:"previewMode"`
		URL         string `json:"url"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&modeResp); err != nil {
		t.Fatalf("Failed to decode mode response: %v", err)
	}
	if !modeResp.PreviewMode {
		t.Error("Expected preview mode on")
	}
	if !strings.Contains(modeResp.URL, "preview=1") {
		t.Errorf("Expected preview flag in URL, got %q", modeResp.URL)
	}

	// Stash a draft.
	payload := `{"pageKey":"homepage","elementKey":"hero_title","contentEn":"Pending","elementType":"text"}`
	req := httptest.NewRequest("POST", "/api/drafts", strings.NewReader(payload))
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 saving draft, got %d", rec.Code)
	}

	// Disable preview mode: the explicit toggle wipes drafts.
	req = httptest.NewRequest("POST", "/api/preview/mode", strings.NewReader(`{"enabled":false}`))
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if err := json.NewDecoder(rec.Body).Decode(&modeResp); err != nil {
		t.Fatalf("Failed to decode mode response: %v", err)
	}
	if modeResp.PreviewMode {
		t.Error("Expected preview mode off")
	}

	req = httptest.NewRequest("GET", "/api/drafts", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var all map[string]model.DraftEntry
	if err := json.NewDecoder(rec.Body).Decode(&all); err != nil {
		t.Fatalf("Failed to decode drafts: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("Expected drafts wiped by the toggle, got %d", len(all))
	}
}

func TestPreviewURL(t *testing.T) {
	mux := setupApp(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/preview/url?path=/pages/homepage", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !strings.Contains(resp.URL, "/pages/homepage") || !strings.Contains(resp.URL, "preview=1") {
		t.Errorf("Expected preview launch URL, got %q", resp.URL)
	}
	if !strings.Contains(resp.URL, "t=") {
		t.Errorf("Expected cache-busting param, got %q", resp.URL)
	}
}

func TestRelayOriginCheck(t *testing.T) {
	mux := setupApp(t)

	// Warm the dynamic content cache.
	cache.SetDynamicContent("homepage", "hero_title", "en:github", []byte("cached"), nil)

	// An untrusted origin is accepted on the wire but dropped silently.
	payload := `{"origin":"http://evil.example","envelope":{"type":"PREVIEW_CONTENT_UPDATED","payload":{"content":{"pageKey":"homepage","elementKey":"hero_title","contentEn":"x","elementType":"text","timestamp":1},"updateCounter":1}}}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/relay", strings.NewReader(payload)))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}
	if _, ok := cache.GetDynamicContent("homepage", "hero_title", "en:github"); !ok {
		t.Error("Expected cache untouched after untrusted message")
	}

	// The portal's own origin invalidates.
	cookie := sessionCookie(rec.Result())
	payload = `{"origin":"http://localhost:12700","envelope":{"type":"PREVIEW_CONTENT_UPDATED","payload":{"content":{"pageKey":"homepage","elementKey":"hero_title","contentEn":"x","elementType":"text","timestamp":1},"updateCounter":1}}}`
	req := httptest.NewRequest("POST", "/api/relay", strings.NewReader(payload))
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}
	if _, ok := cache.GetDynamicContent("homepage", "hero_title", "en:github"); ok {
		t.Error("Expected cache invalidated after trusted update")
	}
}

func TestRelayDuplicateCounter(t *testing.T) {
	mux := setupApp(t)

	send := func(cookie *http.Cookie, counter int) *http.Response {
		payload := `{"origin":"http://localhost:12700","envelope":{"type":"PREVIEW_CONTENT_UPDATED","payload":{"content":{"pageKey":"p","elementKey":"e","contentEn":"x","elementType":"text","timestamp":1},"updateCounter":` + string(rune('0'+counter)) + `}}}`
		req := httptest.NewRequest("POST", "/api/relay", strings.NewReader(payload))
		if cookie != nil {
			req.AddCookie(cookie)
		}
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec.Result()
	}

	res := send(nil, 1)
	cookie := sessionCookie(res)

	// A duplicate of counter 1 must leave a freshly warmed cache alone.
	cache.SetDynamicContent("p", "e", "en:github", []byte("cached"), nil)
	send(cookie, 1)
	if _, ok := cache.GetDynamicContent("p", "e", "en:github"); !ok {
		t.Error("Expected duplicate update to be ignored")
	}

	// A fresh counter invalidates.
	send(cookie, 2)
	if _, ok := cache.GetDynamicContent("p", "e", "en:github"); ok {
		t.Error("Expected newer update to invalidate")
	}
}

func TestPublish(t *testing.T) {
	mux := setupApp(t)

	payload := `{"pageKey":"admissions","elementKey":"intro","contentAr":"مقدمة","contentEn":"Apply today","elementType":"rich_text"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/publish", strings.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 publishing, got %d: %s", rec.Code, rec.Body.String())
	}

	el, err := contentRepo.GetElement("admissions", "intro")
	if err != nil {
		t.Fatalf("Expected published element, got error: %v", err)
	}
	if el.ContentEn != "Apply today" {
		t.Errorf("Published content mismatch: %+v", el)
	}
	if el.ContentHash == "" {
		t.Error("Expected a content hash on publish")
	}
}

func TestIdleSessionEviction(t *testing.T) {
	mux := setupApp(t)

	payload := `{"pageKey":"homepage","elementKey":"hero_title","contentEn":"Pending","elementType":"text"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/drafts", strings.NewReader(payload)))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 saving draft, got %d", rec.Code)
	}
	cookie := sessionCookie(rec.Result())
	if cookie == nil {
		t.Fatal("Expected a session cookie")
	}

	// Everything older than the cutoff goes, draft bucket included.
	if n := evictIdleSessions(0); n != 1 {
		t.Fatalf("Expected 1 evicted session, got %d", n)
	}

	editSessionsMu.Lock()
	remaining := len(editSessions)
	editSessionsMu.Unlock()
	if remaining != 0 {
		t.Errorf("Expected no editing sessions after eviction, got %d", remaining)
	}

	// The old cookie now maps to a fresh session with no drafts.
	req := httptest.NewRequest("GET", "/api/drafts/homepage/hero_title", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after eviction, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := setupApp(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/relay", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET on relay, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/drafts", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for PUT on drafts, got %d", rec.Code)
	}
}
