// Package routes defines HTTP route constants for the portal.
package routes

const (
	// Static and assets
	RobotsPath        = "/robots.txt"
	HealthzPath       = "/healthz"
	ThemeOppositeIcon = "/theme/opposite-icon"
	ThemeToggle       = "/theme/toggle"
	SyntaxThemeSet    = "/syntax-theme/set"
	SyntaxThemeGet    = "/syntax-theme/{theme}"

	// SSE
	SSEPath = "/sse"

	// Pages
	RootPath = "/"
	PagePath = "/pages/{page}"

	// News
	NewsListPath = "/news"
	NewsPostPath = "/news/{id}"

	// Partials
	PartialsElement = "/partials/element"

	// Draft and preview API
	APIDrafts        = "/api/drafts"
	APIDraft         = "/api/drafts/{page}/{element}"
	APIPreviewMode   = "/api/preview/mode"
	APIPreviewURL    = "/api/preview/url"
	APIPreviewFresh  = "/api/preview/refresh"
	APIRelay         = "/api/relay"
	APIPublish       = "/api/publish"

	// Media API
	APIMedia       = "/api/media"
	APIMediaObject = "/api/media/{key...}"

	// Auth
	WebhookUser = "/webhook/user"
)
