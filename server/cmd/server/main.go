// Command storepulse-server serves restaurant store health metrics, scores
// and anomalies computed from an upstream order provider.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/storepulse/storepulse/server/internal/api"
	"github.com/storepulse/storepulse/server/internal/baseline"
	"github.com/storepulse/storepulse/server/internal/cache"
	"github.com/storepulse/storepulse/server/internal/config"
	"github.com/storepulse/storepulse/server/internal/instrumentation"
	"github.com/storepulse/storepulse/server/internal/service"
	"github.com/storepulse/storepulse/server/internal/upstream"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "path to config file; empty uses defaults and environment only")
	flag.Parse()

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var level slog.LevelVar
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Server.SlogLevel())

	slog.Info("storepulse-server starting",
		"version", version,
		"config", *configPath,
		"http_port", cfg.Server.HTTPPort,
		"upstream", cfg.Upstream.URL,
		"auth_mode", cfg.Upstream.Auth.Mode,
		"cache", cfg.Cache.Enabled,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := upstream.New(cfg.Upstream, logger)
	if err != nil {
		slog.Error("failed to create upstream client", "err", err)
		os.Exit(1)
	}

	var respCache cache.Cache = cache.Noop{}
	if cfg.Cache.Enabled {
		rc, err := cache.NewRedis(cfg.Cache.RedisURL, cfg.Cache.Password, cfg.Cache.TTL, logger)
		if err != nil {
			slog.Error("failed to connect to redis", "err", err)
			os.Exit(1)
		}
		respCache = rc
	}
	defer respCache.Close() //nolint:errcheck

	// Rolling baselines with background TTL eviction.
	tracker := baseline.New(cfg.Baseline.TTL, cfg.Baseline.Alpha, cfg.Baseline.MinSamples, cfg.Baseline.MinInterval)
	go tracker.Run(ctx)

	metrics := instrumentation.New()
	svc := service.New(service.Options{
		Source:         client,
		Cache:          respCache,
		Tracker:        tracker,
		Metrics:        metrics,
		Logger:         logger,
		MaxConcurrency: cfg.Upstream.MaxConcurrency,
		Compute:        cfg.Compute,
	})

	if *configPath != "" {
		go func() {
			err := config.Watch(ctx, *configPath, func(next *config.Config) {
				level.Set(next.Server.SlogLevel())
				svc.UpdateCompute(next.Compute)
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: api.New(svc, api.Options{
			Metrics:     metrics,
			Logger:      logger,
			CORSOrigins: cfg.Server.CORSOrigins,
			Version:     version,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Upstream.Timeout + 10*time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("storepulse-server shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown", "err", err)
	}
}
