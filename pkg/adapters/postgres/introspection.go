package postgres

import "github.com/aretw0/introspection"

// StoreState exposes internal state for observability.
type StoreState struct {
	Listeners     int   `json:"listeners"`
	Notifications int   `json:"notifications"`
	ListenErrors  int   `json:"listen_errors"`
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	stat := s.pool.Stat()

	s.mu.Lock()
	defer s.mu.Unlock()
	return StoreState{
		Listeners:     s.listeners,
		Notifications: s.notifications,
		ListenErrors:  s.listenErrors,
		TotalConns:    stat.TotalConns(),
		IdleConns:     stat.IdleConns(),
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "store"
}

var (
	_ introspection.Introspectable = (*Store)(nil)
	_ introspection.Component      = (*Store)(nil)
)
