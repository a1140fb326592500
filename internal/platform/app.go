package platform

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/introspection"

	"github.com/aretw0/thoughts/pkg/core"
)

// App wires a store, a connectivity gate, an input controller and a list
// view-model over one collection.
type App struct {
	Backend *Backend
	Gate    *core.Gate
	Input   *core.InputController
	List    *core.ListViewModel

	logger *slog.Logger
}

// New opens the backend and builds the components. Call Start to take the
// first connectivity reading and mount the list.
func New(ctx context.Context, uri string, opts ...Option) (*App, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	backend, err := open(ctx, uri, o)
	if err != nil {
		return nil, err
	}

	gate := core.NewGate(core.GateConfig{
		Observer:     backend.Observer,
		Strict:       o.strict,
		Watch:        o.watchConnectivity,
		Logger:       o.logger,
		ErrorHandler: o.errorHandler,
	})

	list, err := core.NewListViewModel(core.ListConfig{
		Store:        backend.Store,
		Gate:         gate,
		Collection:   o.collection,
		Strategy:     o.strategy,
		Logger:       o.logger,
		ErrorHandler: o.errorHandler,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}

	var afterWrite func()
	if o.strategy == core.StrategyPull {
		afterWrite = list.Invalidate
	}

	input, err := core.NewInputController(core.InputConfig{
		Store:                 backend.Store,
		Gate:                  gate,
		Collection:            o.collection,
		ServerTimestamp:       o.serverTimestamps,
		RestoreDraftOnFailure: o.restoreDraftOnFailure,
		Suspended:             list.Offline,
		AfterWrite:            afterWrite,
		Logger:                o.logger,
		ErrorHandler:          o.errorHandler,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &App{
		Backend: backend,
		Gate:    gate,
		Input:   input,
		List:    list,
		logger:  o.logger,
	}, nil
}

// Start reads connectivity and mounts the list.
func (a *App) Start(ctx context.Context) error {
	if err := a.Connect(ctx); err != nil {
		return err
	}
	return a.List.Mount(ctx)
}

// Connect only takes the first connectivity reading. The list stays
// unmounted, so writes issue no fetches.
func (a *App) Connect(ctx context.Context) error {
	return a.Gate.Start(ctx)
}

// Wait blocks until every issued remote call has settled.
func (a *App) Wait() {
	a.Input.Wait()
	a.List.Wait()
}

// Close lets pending calls settle, then releases the list, the gate and the backend.
func (a *App) Close() error {
	a.Wait()
	err := errors.Join(a.List.Close(), a.Gate.Close())
	a.Backend.Close()
	return err
}

// AppState aggregates the state of every component.
type AppState struct {
	Store any `json:"store,omitempty"`
	Gate  any `json:"gate"`
	Input any `json:"input"`
	List  any `json:"list"`
}

// State implements introspection.Introspectable.
func (a *App) State() any {
	s := AppState{
		Gate:  a.Gate.State(),
		Input: a.Input.State(),
		List:  a.List.State(),
	}
	if store, ok := a.Backend.Store.(introspection.Introspectable); ok {
		s.Store = store.State()
	}
	return s
}

// ComponentType implements introspection.Component.
func (a *App) ComponentType() string {
	return "app"
}

var (
	_ introspection.Introspectable = (*App)(nil)
	_ introspection.Component      = (*App)(nil)
)
