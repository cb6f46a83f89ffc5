package relay

import (
	"strings"

	"github.com/alnahda/portal/internal/model"
)

// Sender fans envelopes out from one context: to every embedded frame
// whose title carries the marker, then upward to the parent when this
// context is itself embedded. No retries; a failed post to one target
// never aborts delivery to the rest.
type Sender struct {
	frames FrameSource
	parent Context // nil when top-level
	marker string
}

func NewSender(frames FrameSource, parent Context, marker string) *Sender {
	return &Sender{
		frames: frames,
		parent: parent,
		marker: marker,
	}
}

// NotifyPreviewUpdate relays a changed draft with its update counter.
func (s *Sender) NotifyPreviewUpdate(content model.DraftEntry, counter int64) {
	s.Broadcast(ContentUpdated(content, counter))
}

// Broadcast posts the envelope to every matching frame and the parent.
func (s *Sender) Broadcast(env Envelope) {
	if s.frames != nil {
		for _, frame := range s.frames.Frames() {
			if !strings.Contains(frame.Title(), s.marker) {
				continue
			}
			if err := frame.PostMessage(env); err != nil {
				relayLogger.Warn().Err(err).
					Str("frame_title", frame.Title()).
					Str("message_type", string(env.Type)).
					Msg("Error posting to preview frame")
			}
		}
	}

	if s.parent != nil {
		if err := s.parent.PostMessage(env); err != nil {
			relayLogger.Warn().Err(err).
				Str("message_type", string(env.Type)).
				Msg("Error posting to parent context")
		}
	}
}
