package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/thoughts/pkg/core"
)

var (
	watchRetry    time.Duration
	watchStrategy string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the list and redraw it on every change",
	Long: `Watch keeps the list live until interrupted. With the push strategy it
follows the store's change feed; with pull it reloads after each change made
here. While offline nothing is fetched; --retry re-checks periodically.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		name := watchStrategy
		if name == "" {
			name = cfg.Strategy
		}
		strategy, err := core.ParseStrategy(name)
		if err != nil {
			fatal("Error parsing strategy", err)
		}

		// Watching only makes sense with connectivity transitions.
		cfg.Watch = true

		app, err := openApp(ctx, strategy, true)
		if err != nil {
			fatal("Error initializing thoughts", err)
		}
		defer app.Close()

		views := make(chan core.View, 1)
		unsubscribe := app.List.OnChange(func(v core.View) { offerView(views, v) })
		defer unsubscribe()

		render(os.Stdout, app.List.View())

		var retry <-chan time.Time
		if watchRetry > 0 {
			ticker := time.NewTicker(watchRetry)
			defer ticker.Stop()
			retry = ticker.C
		}

		for {
			select {
			case <-ctx.Done():
				return
			case v := <-views:
				fmt.Println("---")
				render(os.Stdout, v)
			case <-retry:
				if app.List.View().State == core.StateOffline {
					app.List.Retry(ctx)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchRetry, "retry", 0, "Retry interval while offline (0 disables)")
	watchCmd.Flags().StringVar(&watchStrategy, "strategy", "", "List strategy: push or pull")
}

// offerView replaces whatever view is pending with v. It never blocks.
func offerView(views chan core.View, v core.View) {
	select {
	case <-views:
	default:
	}
	select {
	case views <- v:
	default:
	}
}
