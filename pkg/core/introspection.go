package core

import (
	"time"

	"github.com/aretw0/introspection"
)

// ListModelState exposes internal state for observability.
type ListModelState struct {
	Collection   string `json:"collection"`
	Strategy     string `json:"strategy"`
	State        string `json:"state"`
	Notes        int    `json:"notes"`
	Subscribed   bool   `json:"subscribed"`
	RefreshToken uint64 `json:"refresh_token"`
	Fetches      int    `json:"fetches"`
	Deletes      int    `json:"deletes"`
	Closed       bool   `json:"closed"`
}

// State implements introspection.Introspectable.
func (l *ListViewModel) State() any {
	l.mu.Lock()
	defer l.mu.Unlock()

	return ListModelState{
		Collection:   l.config.Collection,
		Strategy:     l.config.Strategy.String(),
		State:        l.state.String(),
		Notes:        len(l.notes),
		Subscribed:   l.sub != nil,
		RefreshToken: l.token,
		Fetches:      l.fetches,
		Deletes:      l.deletes,
		Closed:       l.closed,
	}
}

// ComponentType implements introspection.Component.
func (l *ListViewModel) ComponentType() string {
	return "list"
}

// GateState exposes internal state for observability.
type GateState struct {
	Connectivity string     `json:"connectivity"`
	Online       bool       `json:"online"`
	Strict       bool       `json:"strict"`
	Watching     bool       `json:"watching"`
	LastCheck    *time.Time `json:"last_check,omitempty"`
}

// State implements introspection.Introspectable.
func (g *Gate) State() any {
	if g == nil {
		return GateState{Connectivity: Online.String(), Online: true}
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	return GateState{
		Connectivity: g.state.String(),
		Online:       g.onlineLocked(),
		Strict:       g.config.Strict,
		Watching:     g.unsubscribe != nil,
		LastCheck:    g.lastCheck,
	}
}

// ComponentType implements introspection.Component.
func (g *Gate) ComponentType() string {
	return "gate"
}

var (
	_ introspection.Introspectable = (*ListViewModel)(nil)
	_ introspection.Component      = (*ListViewModel)(nil)
	_ introspection.Introspectable = (*Gate)(nil)
	_ introspection.Component      = (*Gate)(nil)
	_ introspection.Introspectable = (*InputController)(nil)
	_ introspection.Component      = (*InputController)(nil)
)
