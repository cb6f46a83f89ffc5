package config

const (
	StaticUrlPath  = "/static/"
	StaticLocalDir = "static"

	// Query parameter appended to preview-launch URLs purely to defeat
	// caching of the embedded frame. Carries no semantics.
	PreviewCacheBustParam = "t"

	// Value the preview query parameter must carry for preview mode.
	PreviewParamOn = "1"
)
