package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/kroma-labs/sentinel-dbtrace/example/dbtrace/internal/config"
	"github.com/kroma-labs/sentinel-dbtrace/example/dbtrace/internal/database"
	"github.com/kroma-labs/sentinel-dbtrace/example/dbtrace/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.DebugLevel).
		With().Timestamp().Logger()

	// 1. Setup OpenTelemetry (Tracing + Metrics)
	shutdownTracing, shutdownMetrics, err := telemetry.Setup(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to setup OTel")
	}
	defer func() {
		shutdownTracing(ctx)
		shutdownMetrics(ctx)
	}()

	// 2. Start Prometheus Metrics Server
	metricsServer := &http.Server{Addr: config.MetricsPort}
	go func() {
		logger.Info().Str("addr", config.MetricsPort).Msg("starting Prometheus metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("metrics server failed")
		}
	}()

	// 3. Open the instrumented connection pool
	db, err := database.New(ctx, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.CreateTable(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to create table")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(config.OperationInterval) * time.Second)
	defer ticker.Stop()

	tracer := otel.Tracer("example-app")
	logger.Info().Msg("example app started, press Ctrl+C to stop")

	for {
		select {
		case <-ticker.C:
			// Database spans become children of this span.
			ctx, span := tracer.Start(ctx, "db-operations")

			if n, err := db.InsertUsers(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to insert users")
			} else {
				logger.Info().Int64("inserted", n).Msg("inserted users")
			}

			if users, err := db.QueryUsers(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to query users")
			} else {
				for _, u := range users {
					logger.Info().Str("name", u.Name).Stringer("phone", u.Phone).Msg("user")
				}
			}

			if err := db.RenameWithSavepoint(ctx, logger); err != nil {
				logger.Error().Err(err).Msg("failed transaction")
			}

			span.End()
			logger.Info().Interface("pool", db.Stats()).Msg("database operations completed")

		case <-sigChan:
			logger.Info().Msg("shutting down gracefully")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error().Err(err).Msg("metrics server shutdown error")
			}
			return
		}
	}
}
