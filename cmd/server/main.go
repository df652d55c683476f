package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/tamween/internal/application"
	"github.com/JonMunkholm/tamween/internal/config"
	"github.com/JonMunkholm/tamween/internal/logging"
	"github.com/JonMunkholm/tamween/internal/realtime"
	"github.com/JonMunkholm/tamween/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, err := application.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open register", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := reg.Close(); err != nil {
			slog.Warn("failed to close storage", "error", err)
		}
	}()

	hub := realtime.NewHub()
	changes, unsubscribe := reg.Service.Subscribe(64)
	defer unsubscribe()

	server := web.NewServer(reg.Service, hub, cfg)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx, changes)
		return nil
	})

	g.Go(func() error {
		if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := reg.Service.WaitForImports(shutdownCtx); err != nil {
			slog.Warn("imports still running at shutdown", "error", err)
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
