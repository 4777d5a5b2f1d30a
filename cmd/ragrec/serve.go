package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragrec/internal/ingest/source"
	"github.com/kailas-cloud/ragrec/internal/metrics"
	chiTransport "github.com/kailas-cloud/ragrec/internal/transport/chi"
	"github.com/kailas-cloud/ragrec/internal/version"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var seed []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags, seed)
		},
	}
	cmd.Flags().StringSliceVar(&seed, "seed", nil, "sources to ingest before serving (files or URLs)")
	return cmd
}

func runServe(ctx context.Context, flags *rootFlags, seed []string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logger := a.cfg, a.logger

	logger.Info("Starting ragrec API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", flags.env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_driver", cfg.Index.Driver),
	)

	if len(seed) > 0 {
		loaders := make([]source.Loader, 0, len(seed))
		for _, s := range seed {
			loaders = append(loaders, source.Resolve(s, a.sources))
		}
		report, err := a.ingest.Ingest(ctx, loaders)
		if err != nil {
			return fmt.Errorf("seed corpus: %w", err)
		}
		logger.Info("Corpus seeded", zap.Int("items", report.Items))
	}

	metrics.RegisterHTTPMetrics()
	server := chiTransport.NewServer(a.recommend, a.ingest, a.health, chiTransport.Options{
		APIKeys:      cfg.Auth.APIKeys,
		MaxBodyBytes: int64(cfg.HTTP.MaxBodyKB) << 10,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
