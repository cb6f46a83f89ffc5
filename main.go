package main

import (
	"embed"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/alnahda/portal/internal/auth"
	"github.com/alnahda/portal/internal/cache"
	"github.com/alnahda/portal/internal/config"
	"github.com/alnahda/portal/internal/content"
	"github.com/alnahda/portal/internal/db"
	"github.com/alnahda/portal/internal/draft"
	"github.com/alnahda/portal/internal/logger"
	"github.com/alnahda/portal/internal/media"
	"github.com/alnahda/portal/internal/model"
	"github.com/alnahda/portal/internal/preview"
	"github.com/alnahda/portal/internal/relay"
	"github.com/alnahda/portal/internal/render"
	"github.com/alnahda/portal/internal/routes"
	"github.com/alnahda/portal/internal/session"
	"github.com/alnahda/portal/internal/sse"
	"github.com/alnahda/portal/internal/theme"
	"github.com/alnahda/portal/internal/util"
)

//go:embed static/*
var staticAssets embed.FS

var mainLogger zerolog.Logger

var Db db.DB

var clients = sse.NewClients()

var contentRepo content.Repository
var resolver *content.Resolver
var newsRepo *content.NewsRepository

var sessions = session.NewRegistry()
var authProvider auth.Provider
var mediaStore media.Store

// editSession bundles everything one editing session owns: its draft
// store, the preview controller driving it and the relay endpoints.
type editSession struct {
	id          session.ID
	store       *draft.Store
	controller  *preview.Controller
	listener    *relay.Listener
	sender      *relay.Sender
	unsubscribe func()
	lastSeen    time.Time
}

var (
	editSessionsMu sync.Mutex
	editSessions   = map[session.ID]*editSession{}
)

const (
	sessionIdleTTL       = 2 * time.Hour
	sessionSweepInterval = 10 * time.Minute
)

// evictIdleSessions drops editing sessions not seen within idleFor,
// releasing their draft buckets. Drafts are session-scoped by contract,
// so an idle session's pending edits go with it.
func evictIdleSessions(idleFor time.Duration) int {
	cutoff := time.Now().Add(-idleFor)

	editSessionsMu.Lock()
	defer editSessionsMu.Unlock()

	evicted := 0
	for id, es := range editSessions {
		if es.lastSeen.Before(cutoff) {
			es.unsubscribe()
			sessions.Drop(id)
			delete(editSessions, id)
			evicted++
		}
	}
	return evicted
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file loaded")
	}

	if err := config.LoadConfig("config.yaml"); err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	l := logger.New(config.AppConfig.Logging.Level)
	setLoggers(l)
	mainLogger = l

	Db = db.NewSQLite(os.Getenv("PORTAL_DB"))
	if err := Db.InitDB(); err != nil {
		l.Fatal().Err(err).Msg("Error initializing database")
	}

	repo := content.NewDBRepository(Db)
	// Before Init: the reload loop reads the notifier unsynchronized.
	repo.SetReloadNotifier(handleElementReload)
	if err := repo.Init(); err != nil {
		l.Fatal().Err(err).Msg("Error initializing content repository")
	}
	contentRepo = repo
	resolver = content.NewResolver(contentRepo)

	if config.AppConfig.Features.News.Enabled {
		newsRepo = content.NewNewsRepository(config.AppConfig.Content.NewsDir)
		newsRepo.SetReloadNotifier(handleNewsReload)
		if err := newsRepo.Init(); err != nil {
			l.Error().Err(err).Msg("Error initializing news repository, news disabled")
			newsRepo = nil
		}
	}

	if config.AppConfig.Features.Authentication.Enabled {
		authProvider = auth.NewClerkProvider(os.Getenv("CLERK_API"), Db)
	}

	if config.AppConfig.Features.Media.Enabled {
		store, err := media.NewS3Store(
			os.Getenv("MEDIA_ACCESS_KEY_ID"),
			os.Getenv("MEDIA_ACCESS_KEY_SECRET"),
			config.AppConfig.Media.Endpoint,
			config.AppConfig.Media.Bucket,
		)
		if err != nil {
			l.Error().Err(err).Msg("Error initializing media store, media disabled")
		} else {
			mediaStore = store
		}
	}

	// Hash static assets for the ETag cache middleware.
	static, _ := fs.Sub(staticAssets, config.StaticLocalDir)
	fs.WalkDir(static, ".", func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			cache.SetStaticHash(config.StaticUrlPath+path, util.ContentHash([]byte(path)))
		}
		return nil
	})

	go func() {
		for range time.Tick(sessionSweepInterval) {
			if n := evictIdleSessions(sessionIdleTTL); n > 0 {
				mainLogger.Info().Int("sessions", n).Msg("Evicted idle editing sessions")
			}
		}
	}()

	mux := newMux()
	mux.Handle(config.StaticUrlPath, http.StripPrefix(config.StaticUrlPath, http.FileServer(http.FS(static))))

	securedMux := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == routes.RobotsPath { // Ignore robots.txt
			mux.ServeHTTP(w, r)
		} else {
			secureHeaders(mux.ServeHTTP)(w, r)
		}
	})

	var handler http.Handler = securedMux
	if authProvider != nil {
		handler = authProvider.WithHeaderAuthorization()(securedMux)
	}
	handlerFunc := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	})

	addr := config.AppConfig.Server.Host + ":" + config.AppConfig.Server.Port
	l.Info().Str("addr", addr).Msg("Portal listening")
	l.Fatal().Err(http.ListenAndServe(addr, cacheIt(handlerFunc))).Msg("Server stopped")
}

func setLoggers(l zerolog.Logger) {
	config.SetLogger(l)
	db.SetLogger(l)
	content.SetLogger(l)
	draft.SetLogger(l)
	preview.SetLogger(l)
	relay.SetLogger(l)
	render.SetLogger(l)
	auth.SetLogger(l)
	media.SetLogger(l)
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc(routes.RobotsPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCType, "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("User-agent: *\nDisallow:"))
	})

	mux.HandleFunc(routes.HealthzPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCType, config.CTypeJSON)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","drafts_cached":%d}`, cache.DynamicContentLen())
	})

	mux.HandleFunc(routes.ThemeOppositeIcon, func(w http.ResponseWriter, r *http.Request) {
		currTheme := r.URL.Query().Get("theme")
		if currTheme == "" {
			http.Error(w, "theme required", http.StatusBadRequest)
			return
		}

		w.Header().Set(config.HCType, config.CTypeHTML)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(theme.GetThemeIcon(currTheme)))
	})

	mux.HandleFunc(routes.ThemeToggle, serveThemePostToggle)
	mux.HandleFunc(routes.SyntaxThemeSet, serveSyntaxThemePostSet)
	mux.HandleFunc(routes.SyntaxThemeGet, serveSyntaxThemeGetTheme)
	mux.HandleFunc(routes.SSEPath, eventsHandler)

	mux.HandleFunc(routes.PagePath, servePage)
	mux.HandleFunc(routes.PartialsElement, servePartialElement)
	mux.HandleFunc(routes.NewsListPath, serveNewsList)
	mux.HandleFunc(routes.NewsPostPath, serveNewsPost)
	mux.HandleFunc(routes.RootPath, serveIndex)

	// Editing endpoints require an editor role when auth is enabled.
	withEditor := func(h http.HandlerFunc) http.HandlerFunc {
		if authProvider == nil {
			return h
		}
		return auth.RequireEditor(authProvider, h)
	}

	if config.AppConfig.Features.Editor.Enabled {
		mux.HandleFunc(routes.APIDrafts, withEditor(serveDrafts))
		mux.HandleFunc(routes.APIDraft, withEditor(serveDraft))
		mux.HandleFunc(routes.APIPreviewMode, withEditor(servePreviewMode))
		mux.HandleFunc(routes.APIPreviewURL, withEditor(servePreviewURL))
		mux.HandleFunc(routes.APIPreviewFresh, withEditor(servePreviewRefresh))
		mux.HandleFunc(routes.APIRelay, serveRelay)
		mux.HandleFunc(routes.APIPublish, withEditor(servePublish))
	}

	if authProvider != nil {
		mux.HandleFunc(routes.WebhookUser, authProvider.HandleWebhookUser)
	}

	if mediaStore != nil {
		mux.HandleFunc(routes.APIMedia, withEditor(serveMediaUpload))
		mux.HandleFunc(routes.APIMediaObject, serveMediaObject)
	}

	return mux
}

// sessionFor returns the editing session bound to the request cookie,
// creating the session (and the cookie) on first contact.
func sessionFor(w http.ResponseWriter, r *http.Request) *editSession {
	var id session.ID
	if cookie, err := r.Cookie(config.CookieSession); err == nil && cookie.Value != "" {
		id = session.ID(cookie.Value)
	} else {
		id = session.NewID()
		http.SetCookie(w, &http.Cookie{
			Name:     config.CookieSession,
			Value:    string(id),
			Path:     "/",
			HttpOnly: true,
		})
	}

	editSessionsMu.Lock()
	defer editSessionsMu.Unlock()

	if es, ok := editSessions[id]; ok {
		es.lastSeen = time.Now()
		return es
	}

	cfg := config.AppConfig
	store := draft.NewStore(sessions.StorageFor(id), cfg.Preview.SessionKey)

	base, err := url.Parse(cfg.Site.BaseURL)
	if err != nil {
		base = &url.URL{Scheme: "http", Host: "localhost"}
	}
	nav := preview.NewHistory(base)

	// With live preview off, draft saves still persist but nothing is
	// pushed to open frames; pages pick changes up on the next load.
	var frames relay.FrameSource = clients
	if !cfg.Features.Editor.LivePreview {
		frames = relay.FrameSourceFunc(func() []relay.Context { return nil })
	}
	sender := relay.NewSender(frames, nil, cfg.Preview.FrameTitleMarker)
	controller := preview.NewController(nav, store, sender)

	listener := relay.NewListener(relay.ListenerConfig{
		Origin:       base.Scheme + "://" + base.Host,
		TrustedHosts: cfg.Preview.TrustedHosts,
		Invalidator:  cache.DynamicInvalidator{},
		Store:        store,
		WatchKey:     cfg.Preview.SessionKey,
		Reload:       func() { clients.BroadcastAll("reload") },
		ReloadDelay:  time.Duration(cfg.Preview.ReloadDelayMs) * time.Millisecond,
	})

	es := &editSession{
		id:         id,
		store:      store,
		controller: controller,
		listener:   listener,
		sender:     sender,
		lastSeen:   time.Now(),
	}

	// Draft writes surface to the listener as storage signals, the way a
	// sibling tab would observe them.
	es.unsubscribe = store.Subscribe(func(ev draft.Event) {
		listener.HandleStorageSignal(relay.StorageSignal{
			Key:           store.BucketKey(),
			PageKey:       ev.PageKey,
			ElementKey:    ev.ElementKey,
			UpdateCounter: controller.Counter(),
		})
	})

	editSessions[id] = es
	return es
}

func handleElementReload(pageKey, elementKey string) {
	cache.InvalidateDynamicContent(pageKey, elementKey)
	go clients.Broadcast(pageKey, "reload")
}

func handleNewsReload(id model.NewsID) {
	go clients.Broadcast("news", "reload")
}

func writePage(w http.ResponseWriter, pd *model.PageData, title string, body string) {
	w.Header().Set(config.HCType, config.CTypeHTML)

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	dir := "rtl"
	if pd.Language == "en" {
		dir = "ltr"
	}
	fmt.Fprintf(&sb, `<html lang=%q dir=%q class=%q>`+"\n", pd.Language, dir, pd.Theme)
	fmt.Fprintf(&sb, "<head><title>%s</title>\n", html.EscapeString(title))
	fmt.Fprintf(&sb, `<link rel="stylesheet" href="%sportal.css">`+"\n", config.StaticUrlPath)
	fmt.Fprintf(&sb, "<style>%s</style>\n", pd.SyntaxCSS)
	fmt.Fprintf(&sb, `<script src="%spreview.js" defer></script>`+"\n", config.StaticUrlPath)
	sb.WriteString("</head>\n")
	sb.WriteString("<body>\n")
	if pd.ShowToolbar != nil && *pd.ShowToolbar {
		label := "وضع المعاينة — المسودات غير منشورة"
		if pd.Language == "en" {
			label = "Preview mode — drafts are not published"
		}
		fmt.Fprintf(&sb, `<div class="preview-banner">%s</div>`+"\n", label)
	}
	sb.WriteString(body)
	sb.WriteString("\n</body>\n</html>\n")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(sb.String()))
}

func serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != routes.RootPath {
		http.NotFound(w, r)
		return
	}
	renderPortalPage(w, r, "homepage")
}

func servePage(w http.ResponseWriter, r *http.Request) {
	pageKey := r.PathValue("page")
	if pageKey == "" {
		http.NotFound(w, r)
		return
	}
	renderPortalPage(w, r, pageKey)
}

func renderPortalPage(w http.ResponseWriter, r *http.Request, pageKey string) {
	pd := model.NewPageData(r)
	es := sessionFor(w, r)

	elements := resolver.ResolvePage(pageKey, es.store, pd.IsPreview)

	var sb strings.Builder
	title := pd.SiteName
	if pd.IsPreview {
		showToolbar := config.AppConfig.Features.Editor.Enabled
		pd.ShowToolbar = &showToolbar
		// Carries the marker so relay senders recognize this page as a
		// preview surface.
		title = pd.SiteName + " " + config.AppConfig.Preview.FrameTitleMarker
	}
	fmt.Fprintf(&sb, `<main data-page=%q>`+"\n", pageKey)
	for _, el := range elements {
		sb.WriteString(renderElementHTML(&el, pd))
	}
	sb.WriteString("</main>")

	w.Header().Set(config.HETag, util.ContentHashString(pd.Theme+pd.SyntaxTheme+sb.String()))
	writePage(w, pd, title, sb.String())
}

// renderElementHTML renders one element, reading through the dynamic
// content cache for published reads. Preview reads always render fresh:
// drafts change too often to be worth caching, and stale preview output
// is precisely what the pipeline exists to avoid.
func renderElementHTML(el *model.PageElement, pd *model.PageData) string {
	variant := pd.Language + ":" + pd.SyntaxTheme

	if !pd.IsPreview && el.ContentHash != "" {
		if cached, ok := cache.GetDynamicContent(el.PageKey, el.ElementKey, variant); ok {
			return string(cached.HTML)
		}
	}

	rendered := render.RenderElement(el, render.Language(pd.Language), pd.SyntaxTheme)
	out := fmt.Sprintf(`<div data-element=%q data-type=%q>%s</div>`+"\n",
		el.ElementKey, el.ElementType, rendered)

	if !pd.IsPreview && el.ContentHash != "" {
		cache.SetDynamicContent(el.PageKey, el.ElementKey, variant, []byte(out), nil)
	}
	return out
}

func servePartialElement(w http.ResponseWriter, r *http.Request) {
	pageKey := r.URL.Query().Get("page")
	elementKey := r.URL.Query().Get("element")
	if pageKey == "" || elementKey == "" {
		http.Error(w, "page and element required", http.StatusBadRequest)
		return
	}

	pd := model.NewPageData(r)
	es := sessionFor(w, r)

	el, err := resolver.ResolveElement(pageKey, elementKey, es.store, pd.IsPreview)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set(config.HCType, config.CTypeHTML)

	// source=1 returns the raw markdown highlighted for the editor's
	// source pane instead of the rendered element.
	if r.URL.Query().Get("source") == "1" && el.ElementType == model.ElementRichText {
		src := el.ContentAr
		if render.Language(pd.Language) == render.LangEn {
			src = el.ContentEn
		}
		highlighted, err := render.HighlightMarkdown(src, pd.SyntaxTheme)
		if err != nil {
			mainLogger.Warn().Err(err).Msg("Error highlighting element source")
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(highlighted))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(renderElementHTML(el, pd)))
}

func serveNewsList(w http.ResponseWriter, r *http.Request) {
	if newsRepo == nil {
		http.NotFound(w, r)
		return
	}

	pd := model.NewPageData(r)
	posts := newsRepo.GetNewsList()

	var sb strings.Builder
	sb.WriteString("<main data-page=\"news\">\n<ul>\n")
	for i := range posts {
		post := &posts[i]
		fmt.Fprintf(&sb, `<li><a href="/news/%s">%s</a></li>`+"\n",
			url.PathEscape(string(post.ID)), html.EscapeString(post.GetTitle()))
	}
	sb.WriteString("</ul>\n</main>")

	writePage(w, pd, pd.SiteName+" - News", sb.String())
}

func serveNewsPost(w http.ResponseWriter, r *http.Request) {
	if newsRepo == nil {
		http.NotFound(w, r)
		return
	}

	post, err := newsRepo.ReadNews(model.NewsID(r.PathValue("id")))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	pd := model.NewPageData(r)
	htmlContent, _ := render.RenderMarkdownCached(post.Markdown, post.MDContentHash, pd.SyntaxTheme)

	writePage(w, pd, post.GetTitle(), string(htmlContent))
}

func serveDrafts(w http.ResponseWriter, r *http.Request) {
	es := sessionFor(w, r)

	switch r.Method {
	case http.MethodPost:
		var req model.SaveDraftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		if err := req.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		es.controller.UpdatePreviewContent(req.Entry())

		saved := es.controller.GetPreviewContent(req.PageKey, req.ElementKey)
		w.Header().Set(config.HCType, config.CTypeJSON)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"draft":   saved,
			"counter": es.controller.Counter(),
		})

	case http.MethodGet:
		w.Header().Set(config.HCType, config.CTypeJSON)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(es.store.GetAll())

	case http.MethodDelete:
		es.store.ClearAll()
		cache.InvalidateAllDynamicContent()
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
	}
}

func serveDraft(w http.ResponseWriter, r *http.Request) {
	pageKey := r.PathValue("page")
	elementKey := r.PathValue("element")
	es := sessionFor(w, r)

	switch r.Method {
	case http.MethodGet:
		entry := es.controller.GetPreviewContent(pageKey, elementKey)
		if entry == nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set(config.HCType, config.CTypeJSON)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(entry)

	case http.MethodDelete:
		es.controller.ClearPreviewContent(pageKey, elementKey)
		cache.InvalidateDynamicContent(pageKey, elementKey)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
	}
}

func servePreviewMode(w http.ResponseWriter, r *http.Request) {
	es := sessionFor(w, r)

	switch r.Method {
	case http.MethodGet:
		w.Header().Set(config.HCType, config.CTypeJSON)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"previewMode": es.controller.IsPreviewMode(),
			"url":         es.controller.CurrentURL().String(),
		})

	case http.MethodPost:
		var req struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		es.controller.SetPreviewMode(req.Enabled)
		if !req.Enabled {
			cache.InvalidateAllDynamicContent()
		}

		w.Header().Set(config.HCType, config.CTypeJSON)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"previewMode": es.controller.IsPreviewMode(),
			"url":         es.controller.CurrentURL().String(),
		})

	default:
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
	}
}

func servePreviewURL(w http.ResponseWriter, r *http.Request) {
	es := sessionFor(w, r)

	path := r.URL.Query().Get("path")
	if path == "" {
		path = routes.RootPath
	}

	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"url": es.controller.BuildPreviewURL(path),
	})
}

func servePreviewRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	es := sessionFor(w, r)
	es.controller.RefreshPreview()
	es.sender.Broadcast(relay.RefreshRequest())

	w.WriteHeader(http.StatusAccepted)
}

// serveRelay is the message-receiving edge of the preview pipeline: a
// page context posts the envelope it saw, along with the origin that
// sent it, and the session's listener decides what to do with it.
func serveRelay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Origin   string         `json:"origin"`
		Envelope relay.Envelope `json:"envelope"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	es := sessionFor(w, r)
	es.listener.HandleMessage(req.Origin, req.Envelope)

	// Accepted regardless: untrusted or stale messages are dropped
	// silently, never reported to the sender.
	w.WriteHeader(http.StatusAccepted)
}

func servePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	var req model.PublishElementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	el := &model.PageElement{
		PageKey:     req.PageKey,
		ElementKey:  req.ElementKey,
		ContentAr:   req.ContentAr,
		ContentEn:   req.ContentEn,
		ElementType: model.ElementType(req.ElementType),
	}
	if err := contentRepo.SaveElement(el); err != nil {
		mainLogger.Error().Err(err).Msg("Error publishing element")
		http.Error(w, "Error publishing element", http.StatusInternalServerError)
		return
	}

	// The draft is now redundant; published content takes over.
	es := sessionFor(w, r)
	es.store.ClearOne(req.PageKey, req.ElementKey)
	cache.InvalidateDynamicContent(req.PageKey, req.ElementKey)
	go clients.Broadcast(req.PageKey, "reload")

	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(el)
}

func serveMediaUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	obj, err := mediaStore.Upload(r.Context(), header.Filename, header.Header.Get(config.HCType), file)
	if err != nil {
		mainLogger.Error().Err(err).Msg("Error uploading media")
		http.Error(w, "Error uploading media", http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(obj)
}

func serveMediaObject(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	switch r.Method {
	case http.MethodGet:
		body, contentType, err := mediaStore.Get(r.Context(), key)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if contentType != "" {
			w.Header().Set(config.HCType, contentType)
		}
		w.WriteHeader(http.StatusOK)
		w.Write(body)

	case http.MethodDelete:
		if err := mediaStore.Delete(r.Context(), key); err != nil {
			http.Error(w, "Error deleting media", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
	}
}

func serveThemePostToggle(w http.ResponseWriter, r *http.Request) {
	currentTheme := theme.GetThemeFromRequest(r)

	newTheme := config.DefaultTheme
	if currentTheme == config.DarkTheme {
		newTheme = config.LightTheme
	}

	http.SetCookie(w, &http.Cookie{
		Name:  config.CookieTheme,
		Value: newTheme,
		Path:  "/",
	})

	syntaxTheme := theme.GetDefaultSyntaxTheme(newTheme)
	if cookie, err := r.Cookie(config.CookieSyntaxTheme); err == nil {
		syntaxTheme = cookie.Value
	}

	w.Header().Set("Hx-Trigger", fmt.Sprintf(`{"themeChanged":{"value":"%s","syntaxTheme":"%s"}}`, newTheme, syntaxTheme))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(theme.GetThemeIcon(newTheme)))
}

func serveSyntaxThemePostSet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	currTheme := r.FormValue("syntax-theme-select")
	if currTheme == "" {
		http.Error(w, "theme required", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieSyntaxTheme,
		Value:    currTheme,
		Path:     "/",
		HttpOnly: true,
	})

	themeStyle := []byte(theme.GenerateSyntaxCSS(currTheme))
	w.WriteHeader(http.StatusOK)
	w.Header().Set(config.HCType, config.CTypeCSS)
	w.Header().Set(config.HETag, util.ContentHash(themeStyle))
	w.Write(themeStyle)
}

func serveSyntaxThemeGetTheme(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	currTheme := r.PathValue("theme")

	themeStyle := []byte(theme.GenerateSyntaxCSS(currTheme))
	w.WriteHeader(http.StatusOK)
	w.Header().Set(config.HCType, config.CTypeCSS)
	w.Header().Set(config.HETag, util.ContentHash(themeStyle))
	w.Write(themeStyle)
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	pageKey := r.URL.Query().Get("page")
	if pageKey == "" {
		http.Error(w, "Page parameter required", http.StatusBadRequest)
		return
	}

	w.Header().Set(config.HCType, "text/event-stream")
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Del("X-Content-Type-Options")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	fmt.Fprintf(w, "event: connected\ndata: SSE connection established\n\n")
	flusher.Flush()

	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = config.AppConfig.Site.BaseURL
	}

	client := &sse.Client{
		Msg:        make(chan string, 8),
		PageKey:    pageKey,
		PageTitle:  r.URL.Query().Get("title"),
		PageOrigin: origin,
	}

	clients.Add(client)
	mainLogger.Debug().Str("page", pageKey).Msg("SSE client connected")

	defer func() {
		clients.Delete(client)
		mainLogger.Debug().Str("page", pageKey).Msg("SSE client disconnected")
	}()

	notify := r.Context().Done()
	for {
		select {
		case msg := <-client.Msg:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-notify:
			return
		}
	}
}

func cacheIt(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCacheControl, "no-cache")
		w.Header().Set("Vary", "Cookie")

		// Add etag header to response if it's a static file
		if hash, ok := cache.GetStaticHash(r.URL.Path); ok {
			w.Header().Set(config.HCacheControl, "public, max-age=3600")
			w.Header().Set(config.HETag, hash)
		}

		h(w, r)
	}
}

func secureHeaders(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-XSS-Protection", "1; mode=block")

		h(w, r)
	}
}
