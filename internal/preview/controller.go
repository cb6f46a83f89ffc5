package preview

import (
	"net/url"
	"sync/atomic"

	"github.com/alnahda/portal/internal/config"
	"github.com/alnahda/portal/internal/draft"
	"github.com/alnahda/portal/internal/model"
	"github.com/alnahda/portal/internal/relay"
)

// Controller derives preview/live mode from the navigator URL and
// mediates every draft change an editor makes, fanning updates out to
// embedded preview frames via the relay sender.
//
// Two states exist: live and preview. Only the explicit
// SetPreviewMode(false) transition wipes drafts; leaving preview via
// back-navigation keeps them. That asymmetry matches the shipped
// editor behavior and is kept deliberately (see DESIGN.md).
type Controller struct {
	nav    Navigator
	store  *draft.Store
	sender *relay.Sender

	counter atomic.Int64
}

func NewController(nav Navigator, store *draft.Store, sender *relay.Sender) *Controller {
	return &Controller{
		nav:    nav,
		store:  store,
		sender: sender,
	}
}

// Store returns the session draft store backing this controller.
func (c *Controller) Store() *draft.Store {
	return c.store
}

// IsPreviewMode recomputes the mode from the current URL; it reacts to
// history pops for free since it never caches.
func (c *Controller) IsPreviewMode() bool {
	return draft.IsPreviewRequested(c.nav.Current())
}

// SetPreviewMode toggles the URL flag and pushes a history entry.
// Disabling additionally clears every pending draft; this is the one
// place live/draft divergence is forcibly reconciled.
func (c *Controller) SetPreviewMode(enabled bool) {
	current := c.nav.Current()
	u := *current
	q := u.Query()

	if enabled {
		q.Set(config.AppConfig.Preview.QueryParam, config.PreviewParamOn)
	} else {
		q.Del(config.AppConfig.Preview.QueryParam)
	}
	u.RawQuery = q.Encode()
	c.nav.Push(&u)

	if !enabled {
		c.store.ClearAll()
	}

	previewLogger.Info().Bool("enabled", enabled).Str("url", u.String()).Msg("Preview mode changed")
	c.sender.Broadcast(relay.ModeChanged(enabled))
}

// UpdatePreviewContent persists the draft, bumps the update counter and
// relays the change to every preview frame on the page.
func (c *Controller) UpdatePreviewContent(entry model.DraftEntry) {
	c.store.Save(entry)
	n := c.counter.Add(1)

	if saved := c.store.Get(entry.PageKey, entry.ElementKey); saved != nil {
		entry = *saved
	}
	c.sender.NotifyPreviewUpdate(entry, n)
}

// GetPreviewContent returns the pending draft for the pair, if any.
func (c *Controller) GetPreviewContent(pageKey, elementKey string) *model.DraftEntry {
	return c.store.Get(pageKey, elementKey)
}

// ClearPreviewContent discards a single draft and bumps the counter.
func (c *Controller) ClearPreviewContent(pageKey, elementKey string) {
	c.store.ClearOne(pageKey, elementKey)
	c.counter.Add(1)
}

// RefreshPreview bumps the counter without touching stored data, so
// consumers depending on it re-render.
func (c *Controller) RefreshPreview() {
	c.counter.Add(1)
}

// Counter exposes the monotonically increasing update counter for use
// as a cache-invalidation dependency.
func (c *Controller) Counter() int64 {
	return c.counter.Load()
}

// BuildPreviewURL delegates to the store's preview-launch URL builder.
func (c *Controller) BuildPreviewURL(path string) string {
	return c.store.BuildPreviewURL(path)
}

// CurrentURL returns the navigator's current location.
func (c *Controller) CurrentURL() *url.URL {
	return c.nav.Current()
}
