package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// SaveDraftRequest is the body of a draft save call. The timestamp is
// stamped server-side, so callers never supply it.
type SaveDraftRequest struct {
	PageKey     string `json:"pageKey"`
	ElementKey  string `json:"elementKey"`
	ContentAr   string `json:"contentAr"`
	ContentEn   string `json:"contentEn"`
	ElementType string `json:"elementType"`
}

func (r SaveDraftRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PageKey, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.ElementKey, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.ElementType, validation.Required, validation.By(validElementType)),
	)
}

func (r SaveDraftRequest) Entry() DraftEntry {
	return DraftEntry{
		PageKey:     r.PageKey,
		ElementKey:  r.ElementKey,
		ContentAr:   r.ContentAr,
		ContentEn:   r.ContentEn,
		ElementType: ElementType(r.ElementType),
	}
}

// PublishElementRequest promotes content into the published store.
type PublishElementRequest struct {
	PageKey     string `json:"pageKey"`
	ElementKey  string `json:"elementKey"`
	ContentAr   string `json:"contentAr"`
	ContentEn   string `json:"contentEn"`
	ElementType string `json:"elementType"`
}

func (r PublishElementRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PageKey, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.ElementKey, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.ElementType, validation.Required, validation.By(validElementType)),
	)
}

func validElementType(value interface{}) error {
	s, _ := value.(string)
	if !ElementType(s).IsValid() {
		return validation.NewError("validation_element_type", "must be one of: text, rich_text, image, button")
	}
	return nil
}
