package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/thoughts"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if cfg.Adapter != thoughts.AdapterPostgres {
			fatal("Error migrating", errors.New("migrate needs --adapter postgres"))
		}
		if err := thoughts.Migrate(context.Background(), cfg.URI, thoughts.WithLogger(slog.Default())); err != nil {
			fatal("Error migrating", err)
		}
		fmt.Println("Schema up to date.")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
