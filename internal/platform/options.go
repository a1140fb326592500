package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/thoughts/pkg/core"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterMemory   = "memory"
	AdapterFS       = "fs"
	AdapterPostgres = "postgres"
	AdapterRemote   = "remote"
)

// options holds the internal configuration of an App.
type options struct {
	store        core.Store
	observer     core.Observer
	adapter      string
	logger       *slog.Logger
	errorHandler func(error)

	collection            string
	strategy              core.Strategy
	strict                bool
	watchConnectivity     bool
	serverTimestamps      bool
	restoreDraftOnFailure bool

	mustExist     bool
	forceTemp     bool
	devSafety     bool
	migrate       bool
	probeInterval time.Duration
}

// Option defines a functional option for configuring an App.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter:          AdapterFS,
		collection:       core.DefaultCollection,
		strategy:         core.StrategyPush,
		serverTimestamps: true,
		devSafety:        true,
	}
}

// WithStore injects a store, skipping adapter selection.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithObserver sets the connectivity source of the gate.
// Without one, the remote adapter probes its server and the others are always online.
func WithObserver(observer core.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithAdapter selects the store by name: memory, fs, postgres or remote.
// Defaults to fs.
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithErrorHandler sets the diagnostic channel for failed remote calls.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}

// WithCollection sets the collection notes are stored in.
func WithCollection(name string) Option {
	return func(o *options) {
		o.collection = name
	}
}

// WithStrategy selects the push or pull list model.
func WithStrategy(s core.Strategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// WithStrict makes an unknown connectivity reading count as offline.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithWatchConnectivity keeps a standing connectivity subscription.
func WithWatchConnectivity(watch bool) Option {
	return func(o *options) {
		o.watchConnectivity = watch
	}
}

// WithServerTimestamps controls whether creates ask the store to stamp notes.
// Enabled by default.
func WithServerTimestamps(enabled bool) Option {
	return func(o *options) {
		o.serverTimestamps = enabled
	}
}

// WithRestoreDraftOnFailure puts the text of a failed create back into an
// empty draft. Disabled by default.
func WithRestoreDraftOnFailure(restore bool) Option {
	return func(o *options) {
		o.restoreDraftOnFailure = restore
	}
}

// WithMustExist requires the fs directory to exist already.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithForceTemp re-roots the fs directory into the system temp directory.
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithDevSafety controls the sandbox used for the fs adapter under `go run`
// and `go test`. Enabled by default.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithMigrate applies postgres migrations when the store is opened.
func WithMigrate(migrate bool) Option {
	return func(o *options) {
		o.migrate = migrate
	}
}

// WithProbeInterval sets how often the remote connectivity probe polls.
func WithProbeInterval(d time.Duration) Option {
	return func(o *options) {
		o.probeInterval = d
	}
}
