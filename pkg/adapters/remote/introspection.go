package remote

import "github.com/aretw0/introspection"

// ClientState exposes internal state for observability.
type ClientState struct {
	URI           string `json:"uri"`
	Subscriptions int    `json:"subscriptions"`
}

// State implements introspection.Introspectable.
func (c *Client) State() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ClientState{URI: c.base.String(), Subscriptions: c.subs}
}

// ComponentType implements introspection.Component.
func (c *Client) ComponentType() string {
	return "store"
}

var (
	_ introspection.Introspectable = (*Client)(nil)
	_ introspection.Component      = (*Client)(nil)
)
