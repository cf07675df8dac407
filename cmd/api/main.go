// Package main is the entry point for the trip timeline API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/tripline/internal/config"
	"github.com/pkordes/tripline/internal/geocode"
	"github.com/pkordes/tripline/internal/handler"
	"github.com/pkordes/tripline/internal/middleware"
	"github.com/pkordes/tripline/internal/repo"
	"github.com/pkordes/tripline/internal/service"
	"github.com/pkordes/tripline/internal/session"
	"github.com/pkordes/tripline/migrations"
)

// sweepInterval is how often idle editing sessions are collected.
const sweepInterval = time.Minute

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	// --- Migrations -------------------------------------------------------
	if cfg.MigrateOnStart {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		n, err := migrations.Up(ctx, db)
		db.Close()
		if err != nil {
			return err
		}
		slog.Info("migrations applied", "count", n)
	}

	// --- Database ---------------------------------------------------------
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("database connection established")

	// --- Services ---------------------------------------------------------
	var geocoder geocode.Geocoder
	if cfg.GeocoderURL != "" {
		client := &http.Client{Timeout: 10 * time.Second}
		geocoder = geocode.Cached(geocode.NewNominatim(cfg.GeocoderURL, cfg.GeocoderUserAgent, client))
		slog.Info("geocoding enabled", "url", cfg.GeocoderURL)
	}

	store := repo.NewTimelineStore(pool, geocoder)
	timelines := service.NewTimelineService(store, logger)
	trips := service.NewTripService(repo.NewTripRepo(pool))
	export := service.NewExportService(timelines)
	sessions := session.NewRegistry(timelines, cfg.SessionTTL)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body limit. Editing routes additionally require a bearer token
	// when JWT_SECRET is set.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET not set; editing routes are unauthenticated")
	}
	srv := handler.NewServer(trips, timelines, export, sessions)
	r.Mount("/", handler.Handler(srv, middleware.NewAuthHandler([]byte(cfg.JWTSecret))))

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sessions.Run(gctx, sweepInterval)
	})
	g.Go(func() error {
		// Graceful shutdown: once a signal arrives, give in-flight requests
		// (including saves) up to 15 seconds to complete.
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
