package thoughts

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/thoughts/internal/platform"
	"github.com/aretw0/thoughts/pkg/core"
)

// --- Types ---

// App is a wired store, gate, input controller and list view-model.
type App = platform.App

// AppState is the introspection snapshot of an App.
type AppState = platform.AppState

// Backend is an opened store with its connectivity source.
type Backend = platform.Backend

// Config is the content of a thoughts.yaml file.
type Config = platform.FileConfig

// Adapter names.
const (
	AdapterMemory   = platform.AdapterMemory
	AdapterFS       = platform.AdapterFS
	AdapterPostgres = platform.AdapterPostgres
	AdapterRemote   = platform.AdapterRemote
)

// --- Configuration ---

// Option defines a functional option for configuring an App.
type Option = platform.Option

// WithStore injects a store, skipping adapter selection.
func WithStore(store core.Store) Option {
	return platform.WithStore(store)
}

// WithObserver sets the connectivity source.
func WithObserver(observer core.Observer) Option {
	return platform.WithObserver(observer)
}

// WithAdapter selects the store by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithErrorHandler sets the diagnostic channel for failed remote calls.
func WithErrorHandler(fn func(error)) Option {
	return platform.WithErrorHandler(fn)
}

// WithCollection sets the collection notes are stored in.
func WithCollection(name string) Option {
	return platform.WithCollection(name)
}

// WithStrategy selects the push or pull list model.
func WithStrategy(s core.Strategy) Option {
	return platform.WithStrategy(s)
}

// WithStrict makes an unknown connectivity reading count as offline.
func WithStrict(strict bool) Option {
	return platform.WithStrict(strict)
}

// WithWatchConnectivity keeps a standing connectivity subscription.
func WithWatchConnectivity(watch bool) Option {
	return platform.WithWatchConnectivity(watch)
}

// WithServerTimestamps controls whether creates ask the store to stamp notes.
func WithServerTimestamps(enabled bool) Option {
	return platform.WithServerTimestamps(enabled)
}

// WithRestoreDraftOnFailure puts the text of a failed create back into an
// empty draft.
func WithRestoreDraftOnFailure(restore bool) Option {
	return platform.WithRestoreDraftOnFailure(restore)
}

// WithMustExist requires the fs directory to exist already.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithForceTemp re-roots the fs directory into the system temp directory.
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithDevSafety controls the fs sandbox used under `go run` and `go test`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithMigrate applies postgres migrations when the store is opened.
func WithMigrate(migrate bool) Option {
	return platform.WithMigrate(migrate)
}

// WithProbeInterval sets how often the remote connectivity probe polls.
func WithProbeInterval(d time.Duration) Option {
	return platform.WithProbeInterval(d)
}

// --- Factory ---

// New opens the backend named by the options and wires an App over it.
// The uri is adapter-specific: a directory, a DSN or a base URL.
func New(ctx context.Context, uri string, opts ...Option) (*App, error) {
	return platform.New(ctx, uri, opts...)
}

// Open resolves a backend without building the view-models.
func Open(ctx context.Context, uri string, opts ...Option) (*Backend, error) {
	return platform.Open(ctx, uri, opts...)
}

// Migrate applies the postgres schema at dsn.
func Migrate(ctx context.Context, dsn string, opts ...Option) error {
	return platform.Migrate(ctx, dsn, opts...)
}

// --- Config ---

// ConfigFileName is the file FindConfig looks for.
const ConfigFileName = platform.ConfigFileName

// ErrConfigNotFound is returned by FindConfig when no thoughts.yaml exists.
var ErrConfigNotFound = platform.ErrConfigNotFound

// FindConfig looks upwards from startDir for thoughts.yaml.
func FindConfig(startDir string) (string, error) {
	return platform.FindConfig(startDir)
}

// LoadConfig reads a thoughts.yaml file.
func LoadConfig(path string) (Config, error) {
	return platform.LoadConfig(path)
}
