package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guttosm/idxpulse/config"
	"github.com/guttosm/idxpulse/internal/app"
	"github.com/guttosm/idxpulse/internal/cache"
	"github.com/guttosm/idxpulse/internal/logger"
	"github.com/guttosm/idxpulse/internal/pipeline"
)

// startServer starts the HTTP server for api mode in its own goroutine and
// returns the instance so the caller can shut it down.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown blocks until SIGINT or SIGTERM, then drains in-flight
// requests (10s budget) and runs cleanup.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// main is the entry point of the idxpulse application.
//
// Modes (selected via --mode flag):
//   - process: Runs the aggregation pipeline over unprocessed daily
//     partitions in the bucket (stock phase, then index rollup phase).
//   - api:     Starts the read-only REST API over produced aggregates.
//
// Flags:
//   - --mode:     Execution mode ("process" or "api"). Default: "process".
//   - --days:     Limit processing to the N most recent discovered dates
//     (0 = all).
//   - --parallel: Override max concurrency for both phases (0 = config).
//   - --force:    Reprocess partitions even if their outputs exist.
//   - --port:     Port for API mode. Defaults to value from config.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	mode := flag.String("mode", "process", "Mode: process or api")
	days := flag.Int("days", 0, "Process only the N most recent dates (0 = all discovered)")
	parallel := flag.Int("parallel", 0, "Max concurrent partition jobs (0 = use config)")
	force := flag.Bool("force", false, "Reprocess partitions even if outputs already exist")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	flag.Parse()

	switch *mode {
	case "process":
		logger.L().Info().Msg("running aggregation pipeline")

		cfg := config.AppConfig
		if *parallel > 0 {
			cfg.Batch.StockParallel = *parallel
			cfg.Batch.IndexParallel = *parallel
		}

		store, err := app.InitBlobStore(ctx, cfg)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("blob store connect error")
		}

		contentCache := cache.New(
			int64(cfg.Cache.MaxMB)*1024*1024,
			time.Duration(cfg.Cache.TTLMinutes)*time.Minute,
		)

		summary, err := pipeline.New(store, contentCache, cfg.Batch).Run(ctx, *days, *force)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("pipeline failed")
		}
		logger.L().Info().
			Int("processed", summary.Processed).
			Int("skipped", summary.Skipped).
			Int("failed", summary.Failed).
			Msg("pipeline completed")
		if summary.Failed > 0 {
			os.Exit(1)
		}

	case "api":
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp(ctx)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
