// Package sse manages Server-Sent Events clients, the transport that
// carries preview envelopes to open portal pages.
package sse

import (
	"encoding/json"
	"sync"

	"github.com/alnahda/portal/internal/relay"
)

// Client is one open event stream. PageKey scopes page-content
// broadcasts; PageTitle and PageOrigin describe the page the stream
// belongs to so the relay can treat the client as a message target.
type Client struct {
	Msg chan string

	PageKey    string
	PageTitle  string
	PageOrigin string

	mu     sync.Mutex
	closed bool
}

// Origin, Title and PostMessage make *Client a relay.Context: preview
// envelopes posted at the client are serialized onto its event stream.
func (c *Client) Origin() string { return c.PageOrigin }

func (c *Client) Title() string { return c.PageTitle }

func (c *Client) PostMessage(env relay.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.send(string(data))
}

// send delivers without blocking. Relay senders hold frame snapshots
// that can outlive the stream, so a disconnected client must report
// ErrClientGone instead of panicking on its closed channel.
func (c *Client) send(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientGone
	}
	select {
	case c.Msg <- msg:
		return nil
	default:
		return ErrClientGone
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Msg)
	}
}

type sseError string

func (e sseError) Error() string { return string(e) }

// ErrClientGone reports a client whose stream has ended or whose
// buffer is not draining.
const ErrClientGone = sseError("sse: client not draining")

type Clients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewClients() *Clients {
	return &Clients{
		clients: make(map[*Client]bool),
	}
}

func (s *Clients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *Clients) Delete(client *Client) {
	s.mu.Lock()
	delete(s.clients, client)
	s.mu.Unlock()
	client.close()
}

// Broadcast sends a raw message to every client watching a page.
func (s *Clients) Broadcast(pageKey string, msg string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if client.PageKey == pageKey {
			client.send(msg)
		}
	}
}

// BroadcastAll sends a raw message to every connected client.
func (s *Clients) BroadcastAll(msg string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		client.send(msg)
	}
}

// Frames returns the current clients as relay targets. Implements
// relay.FrameSource, so a Sender always sees the live client set.
func (s *Clients) Frames() []relay.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	frames := make([]relay.Context, 0, len(s.clients))
	for client := range s.clients {
		frames = append(frames, client)
	}
	return frames
}
