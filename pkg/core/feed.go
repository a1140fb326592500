package core

import "sync"

// Feed is a Subscription backed by a one-slot channel. A slow reader only
// misses intermediate snapshots, never the latest one.
type Feed struct {
	mu      sync.Mutex
	ch      chan []Note
	closed  bool
	onClose func()
}

// NewFeed creates an open Feed. onClose, if set, runs once on Close.
func NewFeed(onClose func()) *Feed {
	return &Feed{
		ch:      make(chan []Note, 1),
		onClose: onClose,
	}
}

// Send replaces any undelivered snapshot. It reports false once the feed is closed.
func (f *Feed) Send(snapshot []Note) bool {
	if snapshot == nil {
		snapshot = []Note{}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	select {
	case <-f.ch:
	default:
	}
	f.ch <- snapshot
	return true
}

// Snapshots implements Subscription.
func (f *Feed) Snapshots() <-chan []Note {
	return f.ch
}

// Closed reports whether Close was called.
func (f *Feed) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Close implements Subscription.
func (f *Feed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.ch)
	onClose := f.onClose
	f.mu.Unlock()

	if onClose != nil {
		onClose()
	}
	return nil
}

var _ Subscription = (*Feed)(nil)
