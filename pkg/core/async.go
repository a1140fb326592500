package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/lifecycle"
)

// goRemote runs a remote call on a tracked goroutine.
// The call is detached from the caller's cancellation: once issued, a request
// is left for the store to settle.
func goRemote(ctx context.Context, wg *sync.WaitGroup, name string, report func(error), fn func(ctx context.Context)) {
	wg.Add(1)
	lifecycle.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		defer wg.Done()
		fn(ctx)
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		report(fmt.Errorf("%s panic: %w", name, err))
	}))
}

// reporter sends failures to the log and the configured diagnostic channel.
type reporter struct {
	logger  *slog.Logger
	handler func(error)
}

func newReporter(logger *slog.Logger, handler func(error)) reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return reporter{logger: logger, handler: handler}
}

func (r reporter) report(msg string, err error, args ...any) {
	r.logger.Error(msg, append([]any{"error", err}, args...)...)
	if r.handler != nil {
		r.handler(fmt.Errorf("%s: %w", msg, err))
	}
}
