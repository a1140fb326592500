package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/thoughts/pkg/core"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a thought",
	Long:  `Delete removes a note by ID. Deleting an ID that is already gone succeeds.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		ctx := context.Background()

		app, err := openApp(ctx, core.StrategyPull, false)
		if err != nil {
			fatal("Error initializing thoughts", err)
		}
		defer app.Close()

		if !app.List.DeleteNote(ctx, id) {
			fatal("Error deleting thought", errors.New("offline"))
		}
		app.Wait()

		if failures.Load() > 0 {
			fatal("Error deleting thought", fmt.Errorf("store rejected delete of %s", id))
		}
		fmt.Printf("Thought deleted: %s\n", id)
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
