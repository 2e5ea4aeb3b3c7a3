package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/storm-sos-dispatch/internal/adapter/http"
	"github.com/couchcryptid/storm-sos-dispatch/internal/app"
	"github.com/couchcryptid/storm-sos-dispatch/internal/config"
	"github.com/couchcryptid/storm-sos-dispatch/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	a, err := app.Build(cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to build service", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, a.Pipeline, httpadapter.WriteTimeoutFor(a.RecipientBudget), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("sos service listening", "addr", cfg.HTTPAddr, "simulated", a.Pipeline.Simulated())
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Shutdown waits for in-flight dispatches, which can outlast SHUTDOWN_TIMEOUT.
	drain := max(cfg.ShutdownTimeout, srv.WriteTimeout())
	logger.Info("shutting down", "drain_timeout", drain)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := a.Close(); err != nil {
		logger.Error("close error", "error", err)
	}

	logger.Info("shutdown complete")
}
