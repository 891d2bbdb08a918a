// Command server runs the table-booking backend: HTTP API, SQLite store,
// and the background reminder scanner.
//
// Startup order: env file, config, logging, tracing, store (open +
// migrate), reminder scanner, HTTP server. Shutdown reverses it on
// SIGINT/SIGTERM with a bounded grace period.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/filin-lounge/booking-backend/internal/config"
	httpapi "github.com/filin-lounge/booking-backend/internal/http"
	"github.com/filin-lounge/booking-backend/internal/notify"
	"github.com/filin-lounge/booking-backend/internal/observability"
	"github.com/filin-lounge/booking-backend/internal/repo"
	"github.com/filin-lounge/booking-backend/internal/scheduler"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Optional .env for local development; real deployments set env vars.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	setupLogging(cfg)

	gin.SetMode(cfg.GinMode)

	otelShutdown, err := observability.Setup(context.Background(), cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tracing")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	notifier := notify.LogNotifier{Logger: log.With().Str("component", "notify").Logger()}

	scanner := scheduler.NewReminderScanner(db, notifier, cfg.Reminder,
		log.With().Str("component", "reminders").Logger())
	if err := scanner.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to start reminder scanner")
	}

	engine := gin.New()
	httpapi.RegisterRoutes(engine, db, notifier, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if err := scanner.Stop(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown failed")
	}
	if err := otelShutdown(ctx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("bye")
}

// setupLogging configures the global zerolog logger from config: level,
// timestamp format, and optional pretty console output for development.
func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
