package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/thoughts"
	"github.com/aretw0/thoughts/pkg/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the configured store over HTTP",
	Long: `Serve exposes the configured store (fs, postgres or memory) through the
HTTP API that the remote adapter talks to.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.Adapter == thoughts.AdapterRemote {
			fatal("Error starting server", errors.New("cannot serve a remote store"))
		}

		opts, err := options()
		if err != nil {
			fatal("Error reading config", err)
		}
		backend, err := thoughts.Open(ctx, cfg.URI, opts...)
		if err != nil {
			fatal("Error opening store", err)
		}
		defer backend.Close()

		api, err := server.New(server.Config{
			Store:  backend.Store,
			Logger: slog.Default(),
			Sentry: sentryEnabled,
		})
		if err != nil {
			fatal("Error creating server", err)
		}

		addr := serveAddr
		if !cmd.Flags().Changed("addr") && cfg.Addr != "" {
			addr = cfg.Addr
		}

		srv := &http.Server{
			Addr:        addr,
			Handler:     api.Routes(),
			IdleTimeout: time.Minute,
			ReadTimeout: 5 * time.Second,
		}

		errs := make(chan error, 1)
		go func() {
			slog.Info("serving thoughts", "addr", addr, "adapter", cfg.Adapter)
			errs <- srv.ListenAndServe()
		}()

		select {
		case err := <-errs:
			if !errors.Is(err, http.ErrServerClosed) {
				fatal("Error serving", err)
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown failed", "error", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
}
