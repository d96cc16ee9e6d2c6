package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skilldesk/skilldesk/internal/content"
	"github.com/skilldesk/skilldesk/internal/events"
	"github.com/skilldesk/skilldesk/internal/platform/cache"
	"github.com/skilldesk/skilldesk/internal/platform/config"
	"github.com/skilldesk/skilldesk/internal/platform/database"
	"github.com/skilldesk/skilldesk/internal/progress"
	"github.com/skilldesk/skilldesk/internal/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(newLogHandler(cfg.Log))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := database.New(ctx, cfg.Database.URL, database.PoolConfig{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	var snapshots *cache.Cache
	if cfg.Cache.Enabled {
		snapshots, err = cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Error("failed to connect to cache", "error", err)
			os.Exit(1)
		}
		defer snapshots.Close()
	}

	exec := retry.New(retry.Config{
		MaxAttempts:         cfg.Retry.MaxAttempts,
		DestructiveAttempts: cfg.Retry.DestructiveAttempts,
		BaseDelay:           cfg.Retry.BaseDelay,
		MaxDelay:            cfg.Retry.MaxDelay,
	})

	catalog, err := content.NewPostgresStore(db.Pool, exec)
	if err != nil {
		slog.Error("failed to create content store", "error", err)
		os.Exit(1)
	}
	if cfg.LibraryPath != "" {
		if err := content.SeedLibrary(ctx, catalog, cfg.LibraryPath); err != nil {
			slog.Error("failed to seed library", "error", err)
			os.Exit(1)
		}
	}

	ledgerStore, err := progress.NewPostgresStore(db.Pool, exec)
	if err != nil {
		slog.Error("failed to create progress store", "error", err)
		os.Exit(1)
	}

	hub := events.NewHub()
	ledger := progress.NewLedger(progress.LedgerConfig{
		Store:   ledgerStore,
		Courses: catalog,
		Sink:    hub,
	})

	app := &app{
		ledger:   ledger,
		users:    ledgerStore,
		hub:      hub,
		db:       db,
		cache:    snapshots,
		cacheTTL: cfg.Cache.TTL,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      app.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func newLogHandler(cfg config.LogConfig) slog.Handler {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.NewJSONHandler(os.Stdout, opts)
}
