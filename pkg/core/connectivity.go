package core

import "context"

// Status is a connectivity reading.
type Status struct {
	Connected bool `json:"connected"`
	// Reachable is nil when the observer cannot tell.
	Reachable *bool `json:"reachable,omitempty"`
}

// Online reports whether the reading allows remote calls.
func (s Status) Online() bool {
	return s.Connected && (s.Reachable == nil || *s.Reachable)
}

// Observer reports network reachability.
type Observer interface {
	// Check reads the current status once.
	Check(ctx context.Context) (Status, error)

	// Subscribe calls fn on every transition until unsubscribe is called.
	Subscribe(fn func(Status)) (unsubscribe func(), err error)
}

// Connectivity is the tri-state view the Gate keeps.
type Connectivity int

const (
	Unknown Connectivity = iota
	Online
	Offline
)

func (c Connectivity) String() string {
	switch c {
	case Online:
		return "online"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

func connectivityOf(s Status) Connectivity {
	if s.Online() {
		return Online
	}
	return Offline
}
