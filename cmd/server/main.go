package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/leadimport/internal/config"
	"github.com/JonMunkholm/leadimport/internal/core"
	"github.com/JonMunkholm/leadimport/internal/database"
	"github.com/JonMunkholm/leadimport/internal/events"
	"github.com/JonMunkholm/leadimport/internal/logging"
	"github.com/JonMunkholm/leadimport/internal/metrics"
	"github.com/JonMunkholm/leadimport/internal/web"
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

	ctx := context.Background()
	store, err := database.Open(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"), "table", cfg.Import.Table)
	} else {
		slog.Info("connected to database", "table", cfg.Import.Table)
	}

	notifier, err := events.New(cfg.Events)
	if err != nil {
		slog.Error("failed to connect to event broker", "error", err)
		os.Exit(1)
	}
	defer notifier.Close()

	svcCfg, err := core.NewServiceConfig(cfg.Import)
	if err != nil {
		slog.Error("invalid import configuration", "error", err)
		os.Exit(1)
	}

	opts := []core.Option{core.WithNotifier(notifier)}
	serverOpts := []web.Option{web.WithHealthCheck("database", store.Ping)}
	if p, ok := notifier.(*events.Publisher); ok {
		serverOpts = append(serverOpts, web.WithHealthCheck("broker", p.Check))
		slog.Info("publishing import events", "exchange", cfg.Events.Exchange, "routing_key", cfg.Events.RoutingKey)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		opts = append(opts, core.WithRecorder(m))
	}

	service := core.NewService(store, store, svcCfg, opts...)
	server := web.NewServer(service, cfg, m, serverOpts...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
