package server

import "github.com/aretw0/introspection"

// ServerState exposes internal state for observability.
type ServerState struct {
	Ready       bool `json:"ready"`
	Requests    int  `json:"requests"`
	Subscribers int  `json:"subscribers"`
}

// State implements introspection.Introspectable.
func (s *Server) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ServerState{
		Ready:       s.ready,
		Requests:    s.requests,
		Subscribers: s.subscribers,
	}
}

// ComponentType implements introspection.Component.
func (s *Server) ComponentType() string {
	return "server"
}

var (
	_ introspection.Introspectable = (*Server)(nil)
	_ introspection.Component      = (*Server)(nil)
)
