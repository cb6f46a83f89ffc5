// Package model defines core data structures and types for the portal.
package model

import "time"

type ElementType string

const (
	ElementText     ElementType = "text"
	ElementRichText ElementType = "rich_text"
	ElementImage    ElementType = "image"
	ElementButton   ElementType = "button"
)

func (t ElementType) IsValid() bool {
	switch t {
	case ElementText, ElementRichText, ElementImage, ElementButton:
		return true
	}
	return false
}

// DraftEntry is one pending, session-only edit to one content element.
// A new entry for the same (PageKey, ElementKey) pair fully replaces the
// prior one; both language payloads are overwritten together.
type DraftEntry struct {
	PageKey    string `json:"pageKey"`
	ElementKey string `json:"elementKey"`

	ContentAr string `json:"contentAr"`
	ContentEn string `json:"contentEn"`

	ElementType ElementType `json:"elementType"`

	// Milliseconds since epoch. Informational only, never used for
	// conflict resolution.
	Timestamp int64 `json:"timestamp"`
}

func (e *DraftEntry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// ElementKeyOf builds the canonical "pageKey:elementKey" draft map key.
func ElementKeyOf(pageKey, elementKey string) string {
	return pageKey + ":" + elementKey
}

// PageElement is a published content element row.
type PageElement struct {
	PageKey    string
	ElementKey string

	ContentAr string
	ContentEn string

	ElementType ElementType

	// Used for cache busting and change detection.
	ContentHash string

	ModifiedDate time.Time
}
