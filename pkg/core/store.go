package core

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Direction of an ordered query.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// FieldCreatedAt is the only field stores are required to order by.
const FieldCreatedAt = "created_at"

// Order describes how a one-shot query should be sorted.
// The zero value means arrival order.
type Order struct {
	Field     string
	Direction Direction
}

var (
	// OrderNone keeps the store's arrival order.
	OrderNone = Order{}
	// OrderNewestFirst sorts by creation time, descending.
	OrderNewestFirst = Order{Field: FieldCreatedAt, Direction: Descending}
)

// IsZero reports whether no ordering was requested.
func (o Order) IsZero() bool {
	return o.Field == ""
}

// Sort orders notes in place. Arrival order is kept for the zero Order.
func (o Order) Sort(notes []Note) error {
	if o.IsZero() {
		return nil
	}
	if o.Field != FieldCreatedAt {
		return fmt.Errorf("%w: %s", ErrUnsupportedOrder, o.Field)
	}
	slices.SortStableFunc(notes, func(a, b Note) int {
		c := a.CreatedAt.Compare(b.CreatedAt)
		if o.Direction == Descending {
			return -c
		}
		return c
	})
	return nil
}

// Store is the contract of the remote data store holding the notes.
// Adhering to this interface keeps the view-models independent of the
// backend (memory, filesystem, Postgres, a remote HTTP service).
type Store interface {
	// Create persists a new note and returns the ID the store assigned.
	Create(ctx context.Context, collection string, p Payload) (string, error)

	// Delete removes a note. Deleting a missing ID is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Query returns every note in the collection.
	Query(ctx context.Context, collection string, order Order) ([]Note, error)
}

// Subscriber is implemented by stores that push changes.
type Subscriber interface {
	// Subscribe opens a change feed. The first snapshot on the returned
	// subscription is the current content of the collection.
	Subscribe(ctx context.Context, collection string) (Subscription, error)
}

// Subscription is a live change feed. Close must be called on teardown.
type Subscription interface {
	// Snapshots yields the full collection, in arrival order, after every change.
	// The channel is closed when the subscription ends.
	Snapshots() <-chan []Note

	// Close releases the feed. It is safe to call more than once.
	Close() error
}

// ValidateCollection rejects names that cannot be used as a path segment or table key.
func ValidateCollection(name string) error {
	if name == "" || strings.ContainsAny(name, `/\ `) || name == "." || name == ".." {
		return ErrInvalidCollection
	}
	return nil
}
