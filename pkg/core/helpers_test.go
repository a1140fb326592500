package core_test

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/thoughts/pkg/adapters/memory"
	"github.com/aretw0/thoughts/pkg/core"
)

var errBoom = errors.New("boom")

// recordingStore wraps a memory store, records every request and can be told
// to fail or to hold queries until released.
type recordingStore struct {
	*memory.Store

	mu        sync.Mutex
	creates   []core.Payload
	deletes   []string
	queries   int
	createErr error
	deleteErr error
	queryErr  error
	hold      chan struct{}
}

func newRecordingStore(opts ...memory.Option) *recordingStore {
	return &recordingStore{Store: memory.New(opts...)}
}

func (s *recordingStore) Create(ctx context.Context, collection string, p core.Payload) (string, error) {
	s.mu.Lock()
	s.creates = append(s.creates, p)
	err := s.createErr
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	return s.Store.Create(ctx, collection, p)
}

func (s *recordingStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, id)
	err := s.deleteErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.Delete(ctx, collection, id)
}

// Query reads the store before waiting on hold, so a held query returns a
// snapshot from the time it was issued.
func (s *recordingStore) Query(ctx context.Context, collection string, order core.Order) ([]core.Note, error) {
	s.mu.Lock()
	s.queries++
	err := s.queryErr
	hold := s.hold
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	notes, err := s.Store.Query(ctx, collection, order)
	if hold != nil {
		<-hold
	}
	return notes, err
}

func (s *recordingStore) holdQueries() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hold = make(chan struct{})
	return s.hold
}

func (s *recordingStore) releaseQueries(hold chan struct{}) {
	s.mu.Lock()
	s.hold = nil
	s.mu.Unlock()
	close(hold)
}

func (s *recordingStore) failCreates(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createErr = err
}

func (s *recordingStore) failDeletes(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteErr = err
}

func (s *recordingStore) failQueries(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryErr = err
}

func (s *recordingStore) createdTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.creates))
	for _, p := range s.creates {
		out = append(out, p.Text)
	}
	return out
}

func (s *recordingStore) deletedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

func (s *recordingStore) queryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries
}

// pullOnly hides the Subscriber implementation of a store.
type pullOnly struct {
	core.Store
}

// errorSink collects reports sent to an ErrorHandler.
type errorSink struct {
	mu   sync.Mutex
	errs []error
}

func (e *errorSink) handle(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, err)
}

func (e *errorSink) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errs)
}

func texts(notes []core.Note) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.Text)
	}
	return out
}
