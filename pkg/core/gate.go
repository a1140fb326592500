package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// GateConfig holds the configuration for a connectivity Gate.
type GateConfig struct {
	// Observer is the connectivity source. Nil means always online.
	Observer Observer
	// Strict folds Unknown into offline. Lenient gates assume online.
	Strict bool
	// Watch keeps a standing subscription instead of a one-shot check.
	Watch        bool
	Logger       *slog.Logger
	ErrorHandler func(error)
}

// Gate turns connectivity readings into a best-effort online flag.
// A positive reading does not guarantee that a remote call will succeed.
//
// A nil *Gate is valid and always online.
type Gate struct {
	mu          sync.RWMutex
	config      GateConfig
	state       Connectivity
	listeners   map[int]func(online bool)
	nextID      int
	unsubscribe func()
	lastCheck   *time.Time
	closed      bool
}

// NewGate creates a Gate. Call Start to take the first reading.
func NewGate(config GateConfig) *Gate {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	state := Unknown
	if config.Observer == nil {
		state = Online
	}
	return &Gate{
		config:    config,
		state:     state,
		listeners: make(map[int]func(bool)),
	}
}

// Start takes the mount-time reading and, in watch mode, subscribes to transitions.
// Observer failures leave the gate in the Unknown state.
func (g *Gate) Start(ctx context.Context) error {
	if g == nil || g.config.Observer == nil {
		return nil
	}

	g.mu.RLock()
	closed := g.closed
	g.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	g.Recheck(ctx)

	if !g.config.Watch {
		return nil
	}

	unsubscribe, err := g.config.Observer.Subscribe(func(s Status) {
		g.set(connectivityOf(s))
	})
	if err != nil {
		g.report(fmt.Errorf("failed to subscribe to connectivity: %w", err))
		g.set(Unknown)
		return nil
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		unsubscribe()
		return ErrClosed
	}
	g.unsubscribe = unsubscribe
	g.mu.Unlock()
	return nil
}

// Recheck reads connectivity now and returns the new state.
func (g *Gate) Recheck(ctx context.Context) Connectivity {
	if g == nil || g.config.Observer == nil {
		return Online
	}

	status, err := g.config.Observer.Check(ctx)
	next := connectivityOf(status)
	if err != nil {
		g.report(fmt.Errorf("connectivity check failed: %w", err))
		next = Unknown
	}

	now := time.Now()
	g.mu.Lock()
	g.lastCheck = &now
	g.mu.Unlock()

	g.set(next)
	return next
}

// Connectivity returns the last reading.
func (g *Gate) Connectivity() Connectivity {
	if g == nil {
		return Online
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Online reports whether remote calls should be attempted.
func (g *Gate) Online() bool {
	if g == nil {
		return true
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.onlineLocked()
}

func (g *Gate) onlineLocked() bool {
	switch g.state {
	case Online:
		return true
	case Offline:
		return false
	default:
		return !g.config.Strict
	}
}

// OnChange registers fn to be called when the online flag flips.
// The returned func unregisters it.
func (g *Gate) OnChange(fn func(online bool)) func() {
	if g == nil {
		return func() {}
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nextID
	g.nextID++
	g.listeners[id] = fn

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.listeners, id)
	}
}

// Close drops the standing subscription. It is safe to call more than once.
func (g *Gate) Close() error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.closed = true
	g.listeners = make(map[int]func(bool))
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	return nil
}

func (g *Gate) set(next Connectivity) {
	g.mu.Lock()
	if g.closed || g.state == next {
		g.mu.Unlock()
		return
	}
	wasOnline := g.onlineLocked()
	prev := g.state
	g.state = next
	online := g.onlineLocked()

	var notify []func(bool)
	if wasOnline != online {
		notify = make([]func(bool), 0, len(g.listeners))
		for _, fn := range g.listeners {
			notify = append(notify, fn)
		}
	}
	g.mu.Unlock()

	g.config.Logger.Debug("connectivity changed", "from", prev.String(), "to", next.String())
	for _, fn := range notify {
		fn(online)
	}
}

func (g *Gate) report(err error) {
	g.config.Logger.Warn("connectivity observer failed", "error", err)
	if g.config.ErrorHandler != nil {
		g.config.ErrorHandler(err)
	}
}
