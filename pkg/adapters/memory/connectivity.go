package memory

import (
	"context"
	"sync"

	"github.com/aretw0/thoughts/pkg/core"
)

// Connectivity is a core.Observer whose status is set by hand.
type Connectivity struct {
	mu     sync.Mutex
	status core.Status
	err    error
	subs   map[int]func(core.Status)
	nextID int
}

// NewConnectivity creates an observer reporting the given state.
func NewConnectivity(online bool) *Connectivity {
	return &Connectivity{
		status: core.Status{Connected: online},
		subs:   make(map[int]func(core.Status)),
	}
}

// Set switches between connected and disconnected.
func (c *Connectivity) Set(online bool) {
	c.SetStatus(core.Status{Connected: online})
}

// SetStatus publishes a full reading to every subscriber.
func (c *Connectivity) SetStatus(status core.Status) {
	c.mu.Lock()
	c.status = status
	c.err = nil
	subs := make([]func(core.Status), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(status)
	}
}

// Fail makes Check return err until the next Set.
func (c *Connectivity) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Check implements core.Observer.
func (c *Connectivity) Check(ctx context.Context) (core.Status, error) {
	if err := ctx.Err(); err != nil {
		return core.Status{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return core.Status{}, c.err
	}
	return c.status, nil
}

// Subscribe implements core.Observer.
func (c *Connectivity) Subscribe(fn func(core.Status)) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}, nil
}

// Subscribers returns the number of registered callbacks.
func (c *Connectivity) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

var _ core.Observer = (*Connectivity)(nil)
