package platform

import (
	"context"
	"fmt"

	"github.com/aretw0/thoughts/pkg/adapters/fs"
	"github.com/aretw0/thoughts/pkg/adapters/memory"
	"github.com/aretw0/thoughts/pkg/adapters/postgres"
	"github.com/aretw0/thoughts/pkg/adapters/remote"
	"github.com/aretw0/thoughts/pkg/core"
)

// Backend is an opened store with its connectivity source and teardown.
type Backend struct {
	Store core.Store
	// Observer is nil when the backend cannot tell whether it is reachable.
	Observer core.Observer
	close    func()
}

// Close releases connections held by the backend.
func (b *Backend) Close() {
	if b != nil && b.close != nil {
		b.close()
	}
}

// Open resolves the store named by WithAdapter. The uri is adapter-specific:
// a directory for fs, a DSN for postgres, a base URL for remote.
func Open(ctx context.Context, uri string, opts ...Option) (*Backend, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return open(ctx, uri, o)
}

func open(ctx context.Context, uri string, o *options) (*Backend, error) {
	if o.store != nil {
		return &Backend{Store: o.store, Observer: o.observer}, nil
	}

	var (
		b   *Backend
		err error
	)
	switch o.adapter {
	case AdapterMemory:
		b = &Backend{Store: memory.New(memory.WithTimestamps(true))}
	case AdapterFS:
		b, err = openFS(ctx, uri, o)
	case AdapterPostgres:
		b, err = openPostgres(ctx, uri, o)
	case AdapterRemote:
		b, err = openRemote(uri, o)
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
	if err != nil {
		return nil, err
	}

	if o.observer != nil {
		b.Observer = o.observer
	}
	return b, nil
}

func openFS(ctx context.Context, path string, o *options) (*Backend, error) {
	useTemp := o.forceTemp || (o.devSafety && IsDevRun())
	resolved := ResolvePath(path, useTemp)

	if useTemp && o.logger != nil {
		o.logger.Warn("running in SAFE MODE (Dev/Test)", "original_path", path, "resolved_path", resolved)
	}

	store := fs.NewStore(fs.Config{
		Path:         resolved,
		MustExist:    o.mustExist && !useTemp,
		Logger:       o.logger,
		ErrorHandler: o.errorHandler,
	})
	if err := store.Initialize(ctx); err != nil {
		return nil, err
	}
	return &Backend{Store: store}, nil
}

func openPostgres(ctx context.Context, dsn string, o *options) (*Backend, error) {
	pool, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if o.migrate {
		if err := postgres.Migrate(pool, o.logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}

	store := postgres.NewStore(pool, postgres.Config{
		Logger:       o.logger,
		ErrorHandler: o.errorHandler,
	})
	return &Backend{Store: store, close: pool.Close}, nil
}

func openRemote(uri string, o *options) (*Backend, error) {
	client, err := remote.New(remote.Config{
		URI:          uri,
		Logger:       o.logger,
		ErrorHandler: o.errorHandler,
	})
	if err != nil {
		return nil, err
	}

	var observerOpts []remote.ObserverOption
	if o.probeInterval > 0 {
		observerOpts = append(observerOpts, remote.WithInterval(o.probeInterval))
	}
	return &Backend{Store: client, Observer: remote.NewObserver(client, observerOpts...)}, nil
}

// Migrate applies the postgres schema at dsn.
func Migrate(ctx context.Context, dsn string, opts ...Option) error {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	pool, err := postgres.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	return postgres.Migrate(pool, o.logger)
}
