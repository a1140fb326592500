package core

import (
	"slices"
	"strings"
	"time"
)

// DefaultCollection is the collection notes live in unless configured otherwise.
const DefaultCollection = "thoughts"

// Note is the central entity of the domain.
// It is a short piece of text identified by an ID the store assigned.
type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// HasTimestamp reports whether the store assigned a creation time.
func (n Note) HasTimestamp() bool {
	return !n.CreatedAt.IsZero()
}

// Payload is the body of a create request.
type Payload struct {
	Text string `json:"text"`
	// ServerTimestamp asks the store to stamp the note with its own clock.
	// Stores without a clock ignore it.
	ServerTimestamp bool `json:"server_timestamp,omitempty"`
}

// Validate rejects blank text.
func (p Payload) Validate() error {
	if strings.TrimSpace(p.Text) == "" {
		return ErrEmptyText
	}
	return nil
}

// NewestFirst returns a copy of notes in display order.
//
// When every note carries a CreatedAt the copy is sorted by it, descending,
// with ties resolved by reverse arrival. Otherwise the arrival order of the
// snapshot is reversed.
func NewestFirst(notes []Note) []Note {
	out := make([]Note, len(notes))
	copy(out, notes)
	slices.Reverse(out)

	for _, n := range out {
		if !n.HasTimestamp() {
			return out
		}
	}

	// Stable on the reversed copy keeps later arrivals first among equals.
	slices.SortStableFunc(out, func(a, b Note) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}
