// Package memory provides in-process implementations of the store and
// connectivity contracts. Nothing survives the process.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/thoughts/pkg/core"
)

// Store is an in-memory core.Store and core.Subscriber.
// Notes are kept in arrival order per collection.
type Store struct {
	mu          sync.Mutex
	clock       func() time.Time
	timestamps  bool
	collections map[string][]core.Note
	subs        map[string]map[*core.Feed]struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for server timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithTimestamps enables or disables server timestamps.
// Disabled, the store behaves like a plain key-value feed and ordering falls
// back to arrival order.
func WithTimestamps(enabled bool) Option {
	return func(s *Store) {
		s.timestamps = enabled
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		clock:       time.Now,
		timestamps:  true,
		collections: make(map[string][]core.Note),
		subs:        make(map[string]map[*core.Feed]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create implements core.Store.
func (s *Store) Create(ctx context.Context, collection string, p core.Payload) (string, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return "", err
	}
	if err := p.Validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	note := core.Note{ID: uuid.NewString(), Text: p.Text}
	if p.ServerTimestamp && s.timestamps {
		note.CreatedAt = s.clock().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], note)
	s.broadcastLocked(collection)
	return note.ID, nil
}

// Delete implements core.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := core.ValidateCollection(collection); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	notes := s.collections[collection]
	i := slices.IndexFunc(notes, func(n core.Note) bool { return n.ID == id })
	if i < 0 {
		return nil
	}
	s.collections[collection] = slices.Delete(notes, i, i+1)
	s.broadcastLocked(collection)
	return nil
}

// Query implements core.Store.
func (s *Store) Query(ctx context.Context, collection string, order core.Order) ([]core.Note, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	out := slices.Clone(s.collections[collection])
	s.mu.Unlock()

	if out == nil {
		out = []core.Note{}
	}
	if err := order.Sort(out); err != nil {
		return nil, fmt.Errorf("failed to sort notes: %w", err)
	}
	return out, nil
}

// Subscribe implements core.Subscriber. The current content is delivered
// immediately.
func (s *Store) Subscribe(ctx context.Context, collection string) (core.Subscription, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var feed *core.Feed
	feed = core.NewFeed(func() { s.unsubscribe(collection, feed) })

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[*core.Feed]struct{})
	}
	s.subs[collection][feed] = struct{}{}
	feed.Send(slices.Clone(s.collections[collection]))
	return feed, nil
}

// Len returns the number of notes in a collection.
func (s *Store) Len(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}

// Subscribers returns the number of open subscriptions on a collection.
func (s *Store) Subscribers(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[collection])
}

func (s *Store) broadcastLocked(collection string) {
	for feed := range s.subs[collection] {
		feed.Send(slices.Clone(s.collections[collection]))
	}
}

func (s *Store) unsubscribe(collection string, feed *core.Feed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs[collection], feed)
}

var (
	_ core.Store      = (*Store)(nil)
	_ core.Subscriber = (*Store)(nil)
)
