package relay

import (
	"strings"
	"sync"
	"time"

	"github.com/alnahda/portal/internal/draft"
)

// Invalidator is the rendering-cache surface the listener pokes when an
// update arrives. Invalidation is deliberately coarse for message-borne
// updates; only storage signals carry enough scope for a targeted one.
type Invalidator interface {
	InvalidateDynamicContent(pageKey, elementKey string)
	InvalidateAllDynamicContent()
}

// StorageSignal is the cross-tab change notification observed on the
// fixed draft bucket key.
type StorageSignal struct {
	Key           string
	PageKey       string
	ElementKey    string
	UpdateCounter int64
}

// ListenerConfig configures one listener instance.
type ListenerConfig struct {
	// Origin of the listening context. Messages from any other origin
	// are dropped unless a trusted host matches.
	Origin string

	// TrustedHosts is the explicit allow-list: an incoming origin that
	// contains one of these hosts is accepted.
	TrustedHosts []string

	Invalidator Invalidator

	// Store is the listening context's own draft store, cleared when a
	// mode-changed(false) message arrives.
	Store *draft.Store

	// WatchKey is the storage bucket name this listener reacts to.
	WatchKey string

	// Optional (pageKey, elementKey) scope for storage signals. When
	// unset, storage signals invalidate broadly.
	PageKey    string
	ElementKey string

	// Reload is invoked after ReloadDelay when a refresh-request
	// arrives, standing in for a full page reload.
	Reload      func()
	ReloadDelay time.Duration
}

// Listener reacts to relay envelopes and storage signals in one
// browsing context. Duplicate suppression state is per listener, not
// shared: two listeners may disagree on which update is stale, which is
// accepted given the advisory nature of the relay.
type Listener struct {
	cfg ListenerConfig

	mu          sync.Mutex
	lastCounter int64

	readyOnce sync.Once
}

func NewListener(cfg ListenerConfig) *Listener {
	if cfg.ReloadDelay <= 0 {
		cfg.ReloadDelay = 100 * time.Millisecond
	}
	return &Listener{cfg: cfg}
}

// Mount announces this context to its parent, once, if embedded.
func (l *Listener) Mount(parent Context) {
	if parent == nil {
		return
	}
	l.readyOnce.Do(func() {
		if err := parent.PostMessage(Ready()); err != nil {
			relayLogger.Warn().Err(err).Msg("Error announcing readiness to parent")
		}
	})
}

func (l *Listener) trusted(origin string) bool {
	if origin == l.cfg.Origin {
		return true
	}
	for _, host := range l.cfg.TrustedHosts {
		if host != "" && strings.Contains(origin, host) {
			return true
		}
	}
	return false
}

// accept records the counter and reports whether the update is fresh.
// Counter zero means the sender did not number the update; those are
// always processed.
func (l *Listener) accept(counter int64) bool {
	if counter == 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if counter <= l.lastCounter {
		return false
	}
	l.lastCounter = counter
	return true
}

// HandleMessage processes one incoming envelope. Untrusted origins are
// dropped silently; they are expected noise, not faults.
func (l *Listener) HandleMessage(origin string, env Envelope) {
	if !l.trusted(origin) {
		relayLogger.Debug().Str("origin", origin).Msg("Dropping message from untrusted origin")
		return
	}

	switch env.Type {
	case TypeContentUpdated:
		if env.Payload == nil || env.Payload.Content == nil {
			return
		}
		if !l.accept(env.Payload.UpdateCounter) {
			relayLogger.Debug().
				Int64("counter", env.Payload.UpdateCounter).
				Msg("Ignoring stale content update")
			return
		}
		// Coarse by design: every dynamic-content read is invalidated,
		// not just the changed pair.
		l.cfg.Invalidator.InvalidateAllDynamicContent()

	case TypeRefreshPreview:
		l.cfg.Invalidator.InvalidateAllDynamicContent()
		if l.cfg.Reload != nil {
			// Let in-flight invalidation settle before tearing the
			// page down.
			time.AfterFunc(l.cfg.ReloadDelay, l.cfg.Reload)
		}

	case TypeModeChanged:
		if env.Payload == nil || env.Payload.Enabled == nil {
			return
		}
		if !*env.Payload.Enabled {
			if l.cfg.Store != nil {
				l.cfg.Store.ClearAll()
			}
			l.cfg.Invalidator.InvalidateAllDynamicContent()
		}

	case TypeReady:
		relayLogger.Debug().Str("origin", origin).Msg("Preview context ready")

	default:
		relayLogger.Debug().Str("type", string(env.Type)).Msg("Ignoring unknown relay message")
	}
}

// HandleStorageSignal processes a cross-tab storage change on the draft
// bucket. Scoped invalidation when the listener was built with a pair,
// broad otherwise.
func (l *Listener) HandleStorageSignal(sig StorageSignal) {
	if sig.Key != l.cfg.WatchKey {
		return
	}
	if !l.accept(sig.UpdateCounter) {
		relayLogger.Debug().
			Int64("counter", sig.UpdateCounter).
			Msg("Ignoring stale storage signal")
		return
	}

	if l.cfg.PageKey != "" && l.cfg.ElementKey != "" {
		l.cfg.Invalidator.InvalidateDynamicContent(l.cfg.PageKey, l.cfg.ElementKey)
		return
	}
	l.cfg.Invalidator.InvalidateAllDynamicContent()
}
