package content

import (
	"slices"

	"github.com/alnahda/portal/internal/draft"
	"github.com/alnahda/portal/internal/model"
)

// Resolver answers "what should this visitor see" for a page element:
// the published row, unless the session is previewing and holds a
// pending draft for that element, in which case the draft wins.
type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// ResolveElement returns the element content for one (page, element)
// pair. When preview is off the store is never consulted.
func (r *Resolver) ResolveElement(pageKey, elementKey string, store *draft.Store, preview bool) (*model.PageElement, error) {
	if preview && store != nil {
		if entry := store.Get(pageKey, elementKey); entry != nil {
			return elementFromDraft(entry), nil
		}
	}
	return r.repo.GetElement(pageKey, elementKey)
}

// ResolvePage returns every element of a page with drafts overlaid.
// Draft-only elements (not yet published at all) are included too, so
// an editor can preview brand new content before its first publish.
func (r *Resolver) ResolvePage(pageKey string, store *draft.Store, preview bool) []model.PageElement {
	published := r.repo.PageElements(pageKey)
	if !preview || store == nil {
		return published
	}

	overlaid := make([]model.PageElement, 0, len(published))
	seen := make(map[string]bool, len(published))
	for _, el := range published {
		if entry := store.Get(el.PageKey, el.ElementKey); entry != nil {
			overlaid = append(overlaid, *elementFromDraft(entry))
		} else {
			overlaid = append(overlaid, el)
		}
		seen[el.ElementKey] = true
	}

	for _, entry := range store.GetAll() {
		if entry.PageKey != pageKey || seen[entry.ElementKey] {
			continue
		}
		overlaid = append(overlaid, *elementFromDraft(&entry))
	}

	slices.SortStableFunc(overlaid, func(a, b model.PageElement) int {
		return -a.ModifiedDate.Compare(b.ModifiedDate)
	})

	return overlaid
}

func elementFromDraft(entry *model.DraftEntry) *model.PageElement {
	el := &model.PageElement{
		PageKey:     entry.PageKey,
		ElementKey:  entry.ElementKey,
		ContentAr:   entry.ContentAr,
		ContentEn:   entry.ContentEn,
		ElementType: entry.ElementType,
	}
	if entry.Timestamp > 0 {
		el.ModifiedDate = entry.Time()
	}
	return el
}
