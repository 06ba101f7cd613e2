// FinSight Lab - Adaptive Learning Progression Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/finsightlab/progression/internal/api"
	"github.com/finsightlab/progression/internal/config"
	"github.com/finsightlab/progression/internal/engine"
	"github.com/finsightlab/progression/internal/identity"
	"github.com/finsightlab/progression/internal/middleware"
	"github.com/finsightlab/progression/internal/notify"
	"github.com/finsightlab/progression/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize storage. SQLite failure at startup is not fatal: the
	// engine keeps serving from memory until the medium recovers.
	var repo store.Repository
	if cfg.MemoryOnly {
		repo = store.NewMemory()
		slog.Info("Using in-memory session store")
	} else {
		sqlite, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			slog.Warn("Failed to initialize SQLite, starting degraded", "error", err)
			repo = store.NewMemory()
		} else {
			repo = store.NewResilient(sqlite)
			slog.Info("Session store connected", "db_path", cfg.DBPath)
		}
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()

	// Initialize services.
	hub := notify.NewHub()
	eng := engine.New(engine.DefaultConfig(), repo, hub)

	// Initialize handlers.
	handler := api.NewHandler(eng)
	wsHandler := notify.NewWebSocketHandler(hub, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	handler.RegisterHealth(r)
	handler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/notifications", wsHandler.ServeHTTP)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // long-lived WebSocket subscriptions
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startPruneWorker(ctx, repo, cfg.SessionIdleTTL, cfg.PruneInterval)
	slog.Info("Prune worker started", "idle_ttl", cfg.SessionIdleTTL, "interval", cfg.PruneInterval)

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// startPruneWorker periodically removes sessions idle past the TTL.
func startPruneWorker(ctx context.Context, repo store.Repository, idleTTL, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := repo.PruneIdleSessions(ctx, idleTTL)
				if err != nil {
					slog.Warn("Session prune failed", "error", err)
					continue
				}
				if removed > 0 {
					slog.Info("Pruned idle sessions", "removed", removed)
				}
			}
		}
	}()
}
