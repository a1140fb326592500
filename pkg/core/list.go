package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ListState distinguishes what a renderer should show.
type ListState int

const (
	// StateLoading means nothing has been loaded yet.
	StateLoading ListState = iota
	// StateLoaded means Notes holds the last snapshot, possibly empty.
	StateLoaded
	// StateOffline means fetching is suppressed until Retry succeeds.
	StateOffline
)

func (s ListState) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateOffline:
		return "offline"
	default:
		return "loading"
	}
}

// Strategy selects how the list learns about changes.
type Strategy int

const (
	// StrategyPush keeps a standing subscription to the store's change feed.
	StrategyPush Strategy = iota
	// StrategyPull re-fetches on mount and after every mutation.
	StrategyPull
)

func (s Strategy) String() string {
	if s == StrategyPull {
		return "pull"
	}
	return "push"
}

// ParseStrategy maps "push" and "pull" to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "push", "":
		return StrategyPush, nil
	case "pull":
		return StrategyPull, nil
	}
	return StrategyPush, fmt.Errorf("unknown strategy %q", s)
}

// View is what a renderer draws.
type View struct {
	State ListState
	// Notes is newest-first. It is nil unless State is StateLoaded.
	Notes []Note
}

// ListConfig holds the configuration for a ListViewModel.
type ListConfig struct {
	Store Store
	// Gate suppresses fetching while offline. Nil means always online.
	Gate         *Gate
	Collection   string
	Strategy     Strategy
	Logger       *slog.Logger
	ErrorHandler func(error)
}

// ListViewModel holds the materialized list of notes as last fetched or
// streamed from the store, and maps deletions to delete requests.
type ListViewModel struct {
	mu         sync.Mutex
	config     ListConfig
	subscriber Subscriber
	reporter   reporter

	state ListState
	notes []Note
	// token is the refresh token. Any result tagged with an older token is dropped.
	token   uint64
	sub     Subscription
	mounted bool
	closed  bool

	listeners map[int]func(View)
	nextID    int
	stopGate  func()

	fetches  int
	deletes  int
	inflight sync.WaitGroup
	pumps    sync.WaitGroup
}

// NewListViewModel creates a ListViewModel. The push strategy requires a
// store implementing Subscriber.
func NewListViewModel(config ListConfig) (*ListViewModel, error) {
	if config.Store == nil {
		return nil, errors.New("list view-model requires a store")
	}
	if config.Collection == "" {
		config.Collection = DefaultCollection
	}
	if err := ValidateCollection(config.Collection); err != nil {
		return nil, err
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	l := &ListViewModel{
		config:    config,
		reporter:  newReporter(config.Logger, config.ErrorHandler),
		state:     StateLoading,
		listeners: make(map[int]func(View)),
	}

	if config.Strategy == StrategyPush {
		sub, ok := config.Store.(Subscriber)
		if !ok {
			return nil, ErrSubscribeUnsupported
		}
		l.subscriber = sub
	}

	return l, nil
}

// Mount starts observing the store. While offline it only switches the
// view to StateOffline.
func (l *ListViewModel) Mount(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if l.mounted {
		l.mu.Unlock()
		return nil
	}
	l.mounted = true
	l.mu.Unlock()

	stop := l.config.Gate.OnChange(func(online bool) {
		if !online {
			l.goOffline()
		}
	})
	l.mu.Lock()
	l.stopGate = stop
	l.mu.Unlock()

	if !l.config.Gate.Online() {
		l.goOffline()
		return nil
	}
	return l.Refresh(ctx)
}

// Refresh forces a re-fetch in the pull model, or makes sure a subscription
// is active in the push model. It does nothing before Mount or while offline.
func (l *ListViewModel) Refresh(ctx context.Context) error {
	return l.refresh(ctx, false)
}

func (l *ListViewModel) refresh(ctx context.Context, retry bool) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if !l.mounted || l.state == StateOffline {
		l.mu.Unlock()
		return nil
	}
	if l.config.Strategy == StrategyPush && l.sub != nil {
		l.mu.Unlock()
		return nil
	}
	l.token++
	token := l.token
	l.fetches++
	l.mu.Unlock()

	if l.config.Strategy == StrategyPush {
		goRemote(ctx, &l.inflight, "subscribe", l.panicked, func(ctx context.Context) {
			l.subscribe(ctx, token, retry)
		})
		return nil
	}

	goRemote(ctx, &l.inflight, "query", l.panicked, func(ctx context.Context) {
		// NewestFirst expects arrival order.
		notes, err := l.config.Store.Query(ctx, l.config.Collection, OrderNone)
		if err != nil {
			l.reporter.report("failed to fetch notes", err, "collection", l.config.Collection)
			if retry {
				l.offlineAt(token)
			}
			return
		}
		l.apply(token, notes)
	})
	return nil
}

// Invalidate is Refresh for callbacks that have no context at hand.
func (l *ListViewModel) Invalidate() {
	_ = l.Refresh(context.Background())
}

// Retry re-evaluates connectivity and, when online, leaves the offline state
// and attempts one refresh. It reports whether the list is back online.
// If that refresh fails the list returns to StateOffline.
func (l *ListViewModel) Retry(ctx context.Context) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.mu.Unlock()

	l.config.Gate.Recheck(ctx)
	if !l.config.Gate.Online() {
		l.goOffline()
		return false
	}

	l.mu.Lock()
	if l.state == StateOffline {
		l.state = StateLoading
	}
	view, listeners := l.viewLocked(), l.listenersLocked()
	l.mu.Unlock()
	notify(listeners, view)

	return l.refresh(ctx, true) == nil
}

// Offline reports whether the list is in StateOffline.
func (l *ListViewModel) Offline() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == StateOffline
}

// DeleteNote issues one delete request for id. It returns false, issuing
// nothing, while offline. Deleting an ID that is already gone is harmless.
func (l *ListViewModel) DeleteNote(ctx context.Context, id string) bool {
	l.mu.Lock()
	if l.closed || l.state == StateOffline || !l.config.Gate.Online() {
		l.mu.Unlock()
		return false
	}
	if l.config.Strategy == StrategyPull {
		// A fetch issued before the delete could bring the note back.
		l.token++
	}
	l.deletes++
	l.mu.Unlock()

	goRemote(ctx, &l.inflight, "delete", l.panicked, func(ctx context.Context) {
		if err := l.config.Store.Delete(ctx, l.config.Collection, id); err != nil {
			l.reporter.report("failed to delete note", err, "collection", l.config.Collection, "id", id)
		} else {
			l.config.Logger.Debug("note deleted", "collection", l.config.Collection, "id", id)
		}
		if l.config.Strategy == StrategyPull {
			l.Invalidate()
		}
	})
	return true
}

// View returns a copy of what should be rendered now.
func (l *ListViewModel) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.viewLocked()
}

// OnChange registers fn to be called with every new View.
// The returned func unregisters it.
func (l *ListViewModel) OnChange(fn func(View)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	l.listeners[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.listeners, id)
	}
}

// Close releases the subscription and the gate registration. Results that
// arrive afterwards are discarded. It is safe to call more than once.
func (l *ListViewModel) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.token++
	sub := l.sub
	l.sub = nil
	stop := l.stopGate
	l.stopGate = nil
	l.listeners = make(map[int]func(View))
	l.mu.Unlock()

	if stop != nil {
		stop()
	}
	if sub != nil {
		return sub.Close()
	}
	return nil
}

// Wait blocks until every issued fetch, subscribe and delete has settled.
func (l *ListViewModel) Wait() {
	l.inflight.Wait()
}

func (l *ListViewModel) subscribe(ctx context.Context, token uint64, retry bool) {
	sub, err := l.subscriber.Subscribe(ctx, l.config.Collection)
	if err != nil {
		l.reporter.report("failed to subscribe to notes", err, "collection", l.config.Collection)
		if retry {
			l.offlineAt(token)
		}
		return
	}

	l.mu.Lock()
	if l.closed || l.token != token || l.state == StateOffline || l.sub != nil {
		l.mu.Unlock()
		_ = sub.Close()
		return
	}
	l.sub = sub
	l.mu.Unlock()

	goRemote(ctx, &l.pumps, "subscription", l.panicked, func(ctx context.Context) {
		l.pump(sub, token)
	})
}

func (l *ListViewModel) pump(sub Subscription, token uint64) {
	for snapshot := range sub.Snapshots() {
		l.apply(token, snapshot)
	}

	l.mu.Lock()
	current := l.sub == sub
	if current {
		l.sub = nil
	}
	closed := l.closed
	l.mu.Unlock()

	if current && !closed {
		l.reporter.report("subscription ended", errors.New("change feed closed by store"), "collection", l.config.Collection)
		l.goOffline()
	}
}

func (l *ListViewModel) apply(token uint64, notes []Note) {
	l.mu.Lock()
	if l.closed || l.token != token || l.state == StateOffline {
		l.mu.Unlock()
		l.config.Logger.Debug("dropping stale notes", "collection", l.config.Collection)
		return
	}
	l.notes = NewestFirst(notes)
	l.state = StateLoaded
	view, listeners := l.viewLocked(), l.listenersLocked()
	l.mu.Unlock()

	notify(listeners, view)
}

func (l *ListViewModel) goOffline() {
	l.leaveOnline(func() bool { return true })
}

// offlineAt goes offline only if token is still the current refresh token.
func (l *ListViewModel) offlineAt(token uint64) {
	l.leaveOnline(func() bool { return l.token == token })
}

// leaveOnline switches to StateOffline if current, evaluated under the lock,
// holds.
func (l *ListViewModel) leaveOnline(current func() bool) {
	l.mu.Lock()
	if l.closed || l.state == StateOffline || !current() {
		l.mu.Unlock()
		return
	}
	l.state = StateOffline
	l.token++
	sub := l.sub
	l.sub = nil
	view, listeners := l.viewLocked(), l.listenersLocked()
	l.mu.Unlock()

	if sub != nil {
		_ = sub.Close()
	}
	l.config.Logger.Info("notes list offline", "collection", l.config.Collection)
	notify(listeners, view)
}

func (l *ListViewModel) panicked(err error) {
	l.reporter.report("remote call panicked", err, "collection", l.config.Collection)
}

func (l *ListViewModel) viewLocked() View {
	v := View{State: l.state}
	if l.state == StateLoaded {
		v.Notes = make([]Note, len(l.notes))
		copy(v.Notes, l.notes)
	}
	return v
}

func (l *ListViewModel) listenersLocked() []func(View) {
	out := make([]func(View), 0, len(l.listeners))
	for _, fn := range l.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func(View), v View) {
	for _, fn := range listeners {
		fn(v)
	}
}
