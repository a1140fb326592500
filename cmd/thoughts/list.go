package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/thoughts/pkg/core"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List thoughts, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		app, err := openApp(ctx, core.StrategyPull, true)
		if err != nil {
			fatal("Error initializing thoughts", err)
		}
		defer app.Close()
		app.Wait()

		view := app.List.View()
		if failures.Load() > 0 || view.State == core.StateLoading {
			fatal("Error listing thoughts", errors.New("could not load notes"))
		}

		if listJSON {
			if view.State == core.StateOffline {
				fatal("Error listing thoughts", errors.New("offline"))
			}
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(view.Notes); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		render(os.Stdout, view)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
}
