package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path          string         `json:"path"`
	Watchers      map[string]int `json:"watchers,omitempty"`
	WatcherActive bool           `json:"watcher_active"`
	WatcherErrors int            `json:"watcher_errors"`
	LastEvent     *time.Time     `json:"last_event,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	watchers := make(map[string]int, len(s.watchers))
	for c, n := range s.watchers {
		watchers[c] = n
	}

	return StoreState{
		Path:          s.Path,
		Watchers:      watchers,
		WatcherActive: len(watchers) > 0,
		WatcherErrors: s.watcherErrors,
		LastEvent:     s.lastEvent,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)

func (s *Store) watcherStarted(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers[collection]++
}

func (s *Store) watcherStopped(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers[collection]--
	if s.watchers[collection] <= 0 {
		delete(s.watchers, collection)
	}
}

func (s *Store) recordEvent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.lastEvent = &now
}

func (s *Store) recordWatcherError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherErrors++
}
