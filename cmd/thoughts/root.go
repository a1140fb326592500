package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"

	"github.com/aretw0/thoughts"
)

var (
	verbose    bool
	configPath string

	flagAdapter    string
	flagURI        string
	flagCollection string
	flagStrict     bool

	// cfg is the merged configuration: file, then environment, then flags.
	cfg           thoughts.Config
	sentryEnabled bool
	// failures counts remote calls that failed during this command.
	failures atomic.Int32
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "thoughts",
	Short: "Jot down short notes and watch them arrive",
	Long: `thoughts keeps a live, newest-first list of short notes.
Notes live in a store: a local directory, Postgres, or a thoughts server.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)

		if err := loadConfig(cmd); err != nil {
			return err
		}
		return initSentry(logger)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if sentryEnabled {
			sentry.Flush(2 * time.Second)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to thoughts.yaml (default: search upwards from the working directory)")
	rootCmd.PersistentFlags().StringVar(&flagAdapter, "adapter", "", "Store adapter: memory, fs, postgres or remote")
	rootCmd.PersistentFlags().StringVar(&flagURI, "uri", "", "Store location: directory, DSN or server URL")
	rootCmd.PersistentFlags().StringVarP(&flagCollection, "collection", "c", "", "Collection to use")
	rootCmd.PersistentFlags().BoolVar(&flagStrict, "strict", false, "Treat unknown connectivity as offline")
}

func loadConfig(cmd *cobra.Command) error {
	cfg = thoughts.Config{}

	path := configPath
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		found, err := thoughts.FindConfig(wd)
		if err != nil && !errors.Is(err, thoughts.ErrConfigNotFound) {
			return err
		}
		path = found
	}
	if path != "" {
		loaded, err := thoughts.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
		slog.Debug("config loaded", "path", path)
	}

	if err := cfg.ApplyEnv(nil); err != nil {
		return err
	}

	if changed(cmd, "adapter") {
		cfg.Adapter = flagAdapter
	}
	if changed(cmd, "uri") {
		cfg.URI = flagURI
	}
	if changed(cmd, "collection") {
		cfg.Collection = flagCollection
	}
	if changed(cmd, "strict") {
		cfg.Strict = flagStrict
	}

	if cfg.Adapter == "" {
		cfg.Adapter = thoughts.AdapterFS
	}
	if cfg.URI == "" && cfg.Adapter == thoughts.AdapterFS {
		cfg.URI = ".thoughts"
	}
	return nil
}

func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}

func initSentry(logger *slog.Logger) error {
	sentryEnabled = false
	if cfg.SentryDSN == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:     cfg.SentryDSN,
		Release: "thoughts@" + strings.TrimSpace(thoughts.Version),
	})
	if err != nil {
		return fmt.Errorf("failed to init sentry: %w", err)
	}
	sentryEnabled = true
	logger.Debug("sentry enabled")
	return nil
}

// reportError is the diagnostic channel of every component.
func reportError(err error) {
	failures.Add(1)
	if sentryEnabled {
		sentry.CaptureException(err)
	}
}
