package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/thoughts/pkg/core"
)

var addCmd = &cobra.Command{
	Use:   "add [text...]",
	Short: "Add a thought",
	Long:  `Add submits the arguments, joined by spaces, as one new note.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		app, err := openApp(ctx, core.StrategyPull, false)
		if err != nil {
			fatal("Error initializing thoughts", err)
		}
		defer app.Close()

		text := strings.Join(args, " ")
		app.Input.SetDraft(text)
		if !app.Input.Submit(ctx) {
			if !app.Gate.Online() {
				fatal("Error adding thought", errors.New("offline"))
			}
			fatal("Error adding thought", core.ErrEmptyText)
		}
		app.Input.Wait()

		if failures.Load() > 0 {
			fatal("Error adding thought", fmt.Errorf("store rejected %q", text))
		}
		fmt.Println("Thought added.")
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
