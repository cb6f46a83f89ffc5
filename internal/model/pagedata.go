package model

import (
	"html/template"
	"net/http"

	"github.com/alnahda/portal/internal/config"
	"github.com/alnahda/portal/internal/theme"
)

// PageData carries everything a page template needs: site chrome, theme
// state and whether the session is viewing a draft preview.
type PageData struct {
	SiteName string

	PageURL string

	Theme string

	SyntaxCSS    template.CSS
	SyntaxTheme  string
	SyntaxThemes []string

	// Language of the rendered content, "ar" or "en".
	Language string

	IsPreview bool

	// Set by the page handler when the editor toolbar should show.
	ShowToolbar *bool
}

func NewPageData(r *http.Request) *PageData {
	syntaxTheme := theme.GetSyntaxThemeFromRequest(r)
	return &PageData{
		SiteName:     config.AppConfig.Site.Name,
		PageURL:      r.URL.Path,
		Theme:        theme.GetThemeFromRequest(r),
		SyntaxTheme:  syntaxTheme,
		SyntaxThemes: theme.GetSyntaxThemes(),
		SyntaxCSS:    theme.GenerateSyntaxCSS(syntaxTheme),
		Language:     languageFromRequest(r),
		IsPreview:    r.URL.Query().Get(config.AppConfig.Preview.QueryParam) == config.PreviewParamOn,
	}
}

func languageFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(config.CookieLanguage); err == nil && cookie.Value == "en" {
		return "en"
	}
	return "ar"
}
