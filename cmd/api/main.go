package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"visioncloud-backend/internal/bootstrap"
	"visioncloud-backend/internal/shared/config"
	"visioncloud-backend/internal/shared/server"
	"visioncloud-backend/internal/shared/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		telemetry.Error("server.bootstrap_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		telemetry.Info("server.start", map[string]any{"addr": srv.Addr, "env": cfg.Env})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		telemetry.Info("server.shutdown", nil)
		err := srv.Shutdown(shutdownCtx)
		if cerr := app.Close(shutdownCtx); cerr != nil {
			telemetry.Warn("server.close_failed", map[string]any{"error": cerr.Error()})
		}
		return err
	})

	if err := g.Wait(); err != nil {
		telemetry.Error("server.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
