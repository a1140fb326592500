package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/thoughts"
	"github.com/aretw0/thoughts/pkg/core"
)

// options translates the merged configuration into App options.
func options(extra ...thoughts.Option) ([]thoughts.Option, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		thoughts.WithLogger(slog.Default()),
		thoughts.WithErrorHandler(reportError),
	)
	return append(opts, extra...), nil
}

// openApp builds an App with the given list strategy and starts it. Unless
// mount is set only connectivity is read, leaving the list unloaded.
func openApp(ctx context.Context, strategy core.Strategy, mount bool) (*thoughts.App, error) {
	opts, err := options(thoughts.WithStrategy(strategy))
	if err != nil {
		return nil, err
	}

	app, err := thoughts.New(ctx, cfg.URI, opts...)
	if err != nil {
		return nil, err
	}
	start := app.Connect
	if mount {
		start = app.Start
	}
	if err := start(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

// render prints a view the way every command shows the list.
func render(w io.Writer, v core.View) {
	switch v.State {
	case core.StateLoading:
		fmt.Fprintln(w, "Loading...")
	case core.StateOffline:
		fmt.Fprintln(w, "Offline.")
	default:
		if len(v.Notes) == 0 {
			fmt.Fprintln(w, "No thoughts yet.")
			return
		}
		for _, n := range v.Notes {
			when := "-"
			if n.HasTimestamp() {
				when = n.CreatedAt.Local().Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s  %s  %s\n", n.ID, when, n.Text)
		}
	}
}
