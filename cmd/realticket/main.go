// cmd/realticket/main.go
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
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"realticket/internal/auth"
	"realticket/internal/config"
	"realticket/internal/eventstore"
	"realticket/internal/marketplace"
	"realticket/internal/telemetry"
)

const (
	version         = "0.1.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, "realticket", version)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("failed to flush telemetry", "error", err)
		}
	}()

	journal, closeJournal, err := openJournal(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer closeJournal()

	svc, err := marketplace.NewService(ctx, journal, marketplace.Config{
		Deployer:     cfg.Deployer,
		Settings:     cfg.Settings,
		RefundExcess: cfg.RefundExcess,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	keys, err := auth.ParseKeyring(cfg.APIKeys)
	if err != nil {
		return err
	}
	if keys.Len() == 0 {
		logger.Warn("no api keys configured, every mutating request will be rejected")
	}
	limiter := auth.NewRateLimiter(cfg.RateLimit)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	marketplace.NewHandler(svc).Routes(r, auth.Authenticate(keys), limiter.Middleware)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "deployer", cfg.Deployer, "refund_excess", cfg.RefundExcess)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openJournal connects the PostgreSQL journal, or keeps events in memory when dsn is empty.
func openJournal(ctx context.Context, dsn string, logger *slog.Logger) (eventstore.Journal, func(), error) {
	if dsn == "" {
		logger.Warn("DATABASE_URL not set, keeping the event journal in memory")
		return eventstore.NewMemoryStore(), func() {}, nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}
	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(startupCtx); err != nil {
		db.Close()
		return nil, nil, err
	}

	store := eventstore.NewPostgresStore(db)
	if err := store.Migrate(startupCtx); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("event journal ready", "backend", "postgres")
	return store, func() { db.Close() }, nil
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
