package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Aikinexis/flint/internal/api"
	"github.com/Aikinexis/flint/internal/config"
	"github.com/Aikinexis/flint/internal/logging"
	"github.com/Aikinexis/flint/internal/memory"
	"github.com/Aikinexis/flint/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the flint HTTP server",
	Long: `Start the HTTP API: context assembly, semantic memory, and snapshot
persistence. Configuration comes from --config and FLINT_* environment
variables.

Examples:
  # Serve on the default address
  flint serve

  # Override the listen address
  FLINT_SERVER_ADDR=:9090 flint serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	store, err := storage.OpenSnapshotStore(cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}
	defer store.Close()

	mm := memory.NewManager()
	srv := api.NewServer(mm, store, *cfg, log)

	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("flint listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("data_dir", cfg.Data.Dir))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		return err
	}
	return nil
}
