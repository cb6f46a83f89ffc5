// Package content stores and resolves published page content. Draft
// overlays come from the draft package; this package owns everything
// that survived publishing.
package content

import (
	"github.com/rs/zerolog"

	"github.com/alnahda/portal/internal/model"
)

var contentLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	contentLogger = l
}

type Repository interface {
	Init() error

	GetElements() ([]model.PageElement, map[string]*model.PageElement, error)
	GetElement(pageKey, elementKey string) (*model.PageElement, error)
	PageElements(pageKey string) []model.PageElement
	SaveElement(el *model.PageElement) error

	// SetReloadNotifier sets a function called whenever a published
	// element changes underneath the cache.
	SetReloadNotifier(notifier func(pageKey, elementKey string))
}
