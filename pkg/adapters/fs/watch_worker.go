package fs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/thoughts/pkg/core"
)

// watchWorker turns filesystem events in one collection directory into
// snapshots on a feed.
type watchWorker struct {
	*worker.BaseWorker
	store      *Store
	collection string
	feed       *core.Feed
	watcher    *fsnotify.Watcher
	debouncer  *debouncer
	cancel     context.CancelFunc
}

func newWatchWorker(store *Store, collection string, feed *core.Feed) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("fs-watcher:" + collection),
		store:      store,
		collection: collection,
		feed:       feed,
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(w.store.collectionDir(w.collection)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch collection: %w", err)
	}

	w.watcher = watcher
	w.debouncer = newDebouncer(w.store.config.Debounce)
	w.store.watcherStarted(w.collection)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}

	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"collection":        w.collection,
		}
	})
}

// run is the main event loop of the watcher.
func (w *watchWorker) run(ctx context.Context) (err error) {
	logger := w.store.config.Logger
	defer func() {
		if recovered := recover(); recovered != nil {
			panicErr := fmt.Errorf("watcher panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", panicErr, "stack", string(debug.Stack()))
			} else {
				logger.Error("watcher panic", "error", panicErr)
			}
			err = panicErr
		}
	}()
	defer w.store.watcherStopped(w.collection)
	defer w.watcher.Close()

	err = w.loop(ctx)

	// In-flight publishes must finish before the feed can be considered quiet.
	w.debouncer.stopAndWait(5 * time.Second)
	return err
}

func (w *watchWorker) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.processEvent(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.handleWatcherError(wErr)
		}
	}
}

// processEvent schedules a snapshot for events on note files.
func (w *watchWorker) processEvent(ctx context.Context, event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod || !isNoteFile(filepath.Base(event.Name)) {
		return false
	}

	w.store.config.Logger.Debug("event received", "name", event.Name, "op", event.Op.String())
	w.store.recordEvent()
	w.debouncer.add(func() {
		w.publish(ctx)
	})
	return true
}

func (w *watchWorker) publish(ctx context.Context) {
	if ctx.Err() != nil || w.feed.Closed() {
		return
	}
	notes, err := w.store.Query(ctx, w.collection, core.OrderNone)
	if err != nil {
		if ctx.Err() == nil {
			w.handleWatcherError(fmt.Errorf("failed to read collection %s: %w", w.collection, err))
		}
		return
	}
	w.feed.Send(notes)
}

func (w *watchWorker) handleWatcherError(err error) {
	w.store.config.Logger.Error("fsnotify error", "error", err)
	w.store.recordWatcherError()
	if w.store.config.ErrorHandler != nil {
		w.store.config.ErrorHandler(err)
	}
}

// debouncer runs only the last of a burst of calls, delay after the burst.
type debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	stopped bool
	pending sync.WaitGroup
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay}
}

func (d *debouncer) add(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil && d.timer.Stop() {
		d.pending.Done()
	}
	d.pending.Add(1)
	d.timer = time.AfterFunc(d.delay, func() {
		defer d.pending.Done()
		fn()
	})
}

// stopAndWait drops the scheduled call and waits for a running one.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil && d.timer.Stop() {
		d.pending.Done()
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
