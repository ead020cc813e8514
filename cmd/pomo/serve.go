package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/pomo/internal/api"
	"github.com/verte-zerg/pomo/internal/config"
	"github.com/verte-zerg/pomo/internal/pomodoro"
	"github.com/verte-zerg/pomo/internal/store"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	addr     string
	dbPath   string
	apiKey   string
	logLevel string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			opts.resolve(cmd, fileCfg.Server)
			return runServe(opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&opts.dbPath, "db", config.DefaultDBPath(), "SQLite database path")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

// resolve applies config values to flags the user did not set. The server
// api key is read from the [server] table only, not from the client flag.
func (o *serveOptions) resolve(cmd *cobra.Command, cfg config.ServerConfig) {
	applyStringConfig(cmd, "addr", &o.addr, cfg.Addr)
	applyStringConfig(cmd, "db", &o.dbPath, cfg.DBPath)
	applyStringConfig(cmd, "log-level", &o.logLevel, cfg.LogLevel)
	if cfg.APIKey != nil {
		o.apiKey = *cfg.APIKey
	}
	if cmd.Flags().Changed("api-key") {
		o.apiKey = clientAPIKey
	}
}

func runServe(opts *serveOptions) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(opts.logLevel)}))
	slog.SetDefault(logger)

	st, err := store.Open(opts.dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Error("failed to close store", "error", cerr)
		}
	}()

	svc := pomodoro.NewService(st, logger)
	router := api.NewRouter(svc, st, opts.apiKey, logger)
	if opts.apiKey == "" {
		logger.Warn("api key not set, bearer auth disabled")
	}

	srv := &http.Server{
		Addr:         opts.addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("pomo server starting", "addr", opts.addr, "db", opts.dbPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
