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

	"github.com/gigmarket/portal-core/internal/admission"
	"github.com/gigmarket/portal-core/internal/api"
	"github.com/gigmarket/portal-core/internal/config"
	"github.com/gigmarket/portal-core/internal/provider"
	"github.com/gigmarket/portal-core/internal/reconcile"
	"github.com/gigmarket/portal-core/internal/session"
	"github.com/gigmarket/portal-core/internal/store"
	"github.com/gigmarket/portal-core/internal/surface"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := store.Migrate(cfg.DatabaseURL); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("migrations applied")
	} else if err := store.CheckSchema(ctx, pool); err != nil {
		if errors.Is(err, store.ErrSchemaMissing) {
			// Keep serving: sign-in attempts will be denied with
			// store_unavailable until the schema is provisioned.
			slog.Error("administrator schema is missing; all admissions will be denied with store_unavailable", "error", err)
		} else {
			slog.Error("failed to verify schema", "error", err)
			os.Exit(1)
		}
	}

	admins := admission.NewRepository(pool)
	tags := surface.NewRepository(pool)
	gate := admission.NewGate(admins)

	queue := reconcile.NewQueue(cfg.ReconcileQueueSize)
	go queue.Start(ctx)

	reconciler := reconcile.New(admins, tags, cfg.Surface, queue)

	idp := provider.NewClient(cfg.ProviderURL, cfg.ProviderJWTSecret)
	bootstrap := session.NewBootstrap(idp, gate, reconciler, time.Duration(cfg.ProviderTimeoutSeconds)*time.Second)
	go bootstrap.Run(ctx)

	router := api.NewRouter(api.RouterDeps{
		Bootstrap:       bootstrap,
		Provider:        idp,
		Gate:            gate,
		Admins:          admins,
		DB:              pool,
		Version:         cfg.Version,
		JWTSecret:       cfg.ProviderJWTSecret,
		ServiceKeyHash:  cfg.ServiceKeyHash,
		SignInRateLimit: cfg.SignInRateLimit,
		SignInRateBurst: cfg.SignInRateBurst,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting portal-core server", "port", cfg.Port, "version", cfg.Version, "surface", cfg.Surface)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
