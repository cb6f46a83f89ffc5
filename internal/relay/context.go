package relay

// Context is one browsing context the relay can deliver envelopes to.
type Context interface {
	// Origin of the context, e.g. "http://localhost:12700".
	Origin() string

	// Title is the context's accessible title. Preview frames are
	// recognized by a fixed marker substring in it.
	Title() string

	PostMessage(env Envelope) error
}

// FrameSource lists the embedded frames currently on the page.
type FrameSource interface {
	Frames() []Context
}

// FrameSourceFunc adapts a function to the FrameSource interface.
type FrameSourceFunc func() []Context

func (f FrameSourceFunc) Frames() []Context { return f() }
