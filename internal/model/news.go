package model

import (
	"html/template"
	"time"

	"github.com/alnahda/portal/internal/util"
)

type NewsID string

type NewsPost struct {
	ID NewsID

	Title   string
	Content template.HTML
	Path    string

	// Used for cache busting.
	// We cannot use the content hash because the content is already rendered.
	MDContentHash string

	Markdown     []byte
	CreatedDate  time.Time
	ModifiedDate time.Time

	// Optional data from front matter.
	Info *util.FrontMatter

	// Optional data: owner of the post (the editor who created it).
	Owner UserID
}

func (p *NewsPost) GetTitle() string {
	if p.Info != nil && p.Info.Title != "" {
		return p.Info.Title
	}
	return p.Title
}
