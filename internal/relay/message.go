// Package relay propagates draft updates across browsing contexts (a
// host page and its embedded preview frames, or two tabs on the same
// origin). Delivery is best-effort and purely advisory: the receiving
// side always re-derives authoritative state from its draft store or
// the published database.
package relay

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/alnahda/portal/internal/model"
)

var relayLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	relayLogger = l
}

type MessageType string

const (
	TypeContentUpdated MessageType = "PREVIEW_CONTENT_UPDATED"
	TypeRefreshPreview MessageType = "REFRESH_PREVIEW"
	TypeModeChanged    MessageType = "PREVIEW_MODE_CHANGED"
	TypeReady          MessageType = "PREVIEW_READY"
)

type Payload struct {
	Content       *model.DraftEntry `json:"content,omitempty"`
	UpdateCounter int64             `json:"updateCounter,omitempty"`
	Enabled       *bool             `json:"enabled,omitempty"`
}

// Envelope is the message exchanged between browsing contexts.
// Receivers must validate the sender origin before trusting it.
type Envelope struct {
	Type      MessageType `json:"type"`
	Payload   *Payload    `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
}

func ContentUpdated(content model.DraftEntry, counter int64) Envelope {
	return Envelope{
		Type:      TypeContentUpdated,
		Payload:   &Payload{Content: &content, UpdateCounter: counter},
		Timestamp: time.Now().UnixMilli(),
	}
}

func RefreshRequest() Envelope {
	return Envelope{Type: TypeRefreshPreview, Timestamp: time.Now().UnixMilli()}
}

func ModeChanged(enabled bool) Envelope {
	return Envelope{
		Type:      TypeModeChanged,
		Payload:   &Payload{Enabled: &enabled},
		Timestamp: time.Now().UnixMilli(),
	}
}

func Ready() Envelope {
	return Envelope{Type: TypeReady, Timestamp: time.Now().UnixMilli()}
}
