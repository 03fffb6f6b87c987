// Package main provides the entrypoint for the transit journey planner.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/breatheroute/raptor/internal/config"
	"github.com/breatheroute/raptor/internal/database"
	"github.com/breatheroute/raptor/internal/ops"
	"github.com/breatheroute/raptor/internal/resilience"
	"github.com/breatheroute/raptor/internal/search"
	"github.com/breatheroute/raptor/internal/telemetry"
	"github.com/breatheroute/raptor/internal/timetable"
	"github.com/breatheroute/raptor/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Service.Version == "" {
		cfg.Service.Version = Version
	}

	log := newLogger(cfg)
	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Service.Environment).
		Msg("starting planner")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, cfg.TelemetryConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	retry := resilience.DefaultRetryConfig()
	pool, err := database.Connect(ctx, cfg.Database, retry, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database") //nolint:gocritic // telemetry flush is best-effort
	}
	defer pool.Close()

	store := timetable.NewStore()
	if err := timetable.LoadInto(ctx, store, timetable.NewPostgresRepository(pool), retry, log); err != nil {
		log.Fatal().Err(err).Msg("failed to load timetable")
	}

	searchMetrics, err := search.NewMetrics(tp.Meter)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize search metrics")
	}
	defaults := cfg.SearchDefaults()
	service := search.NewService(search.Config{
		Store:    store,
		Logger:   log.With().Str("component", "search").Logger(),
		Tracer:   tp.Tracer,
		Metrics:  searchMetrics,
		Timeout:  cfg.Search.Timeout,
		Defaults: &defaults,
	})

	registry := resilience.NewRegistry()
	var batch ops.BatchStats
	errCh := make(chan error, 2)

	if cfg.PubSub.Enabled {
		handler, closeFn, err := startWorker(ctx, cfg, service, registry, log, errCh)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start plan worker")
		}
		defer closeFn()
		batch = handler.Batch()
	} else {
		log.Warn().Msg("pubsub disabled, serving ops endpoints only")
	}

	httpMetrics, err := ops.NewHTTPMetrics(tp.Meter)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize http metrics")
	}
	server := &http.Server{
		Addr: ":" + strconv.Itoa(cfg.Service.OpsPort),
		Handler: ops.NewRouter(ops.RouterConfig{
			Version:   cfg.Service.Version,
			BuildTime: BuildTime,
			Logger:    log.With().Str("component", "ops").Logger(),
			Tracer:    tp.Tracer,
			Metrics:   httpMetrics,
			Timetable: store,
			Search:    service,
			Batch:     batch,
			Registry:  registry,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("ops server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("component failed, shutting down")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("ops server forced to shutdown")
	}

	t := service.Totals()
	log.Info().
		Int64("requests", t.Requests).
		Int64("failed", t.Failed).
		Int64("paths", t.Paths).
		Msg("planner stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Service.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	log := zerolog.New(os.Stdout)
	if cfg.IsDevelopment() {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return log.Level(level).
		With().
		Timestamp().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Logger()
}

// startWorker subscribes to plan requests. Receive errors are sent to errCh;
// the returned function stops the publisher and closes the client.
func startWorker(
	ctx context.Context,
	cfg *config.Config,
	planner worker.Planner,
	registry *resilience.Registry,
	log zerolog.Logger,
	errCh chan<- error,
) (*worker.Handler, func(), error) {
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, err
	}

	logger := log.With().Str("component", "worker").Logger()
	publisher, err := worker.NewPublisher(worker.PublisherConfig{
		Client:   client,
		Topic:    cfg.PubSub.ResultTopic,
		Registry: registry,
		Logger:   logger,
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	handler := worker.NewHandler(worker.HandlerConfig{
		Planner:   planner,
		Batch:     cfg.BatchConfig(),
		Publisher: publisher,
		Logger:    logger,
	})
	subscriber := worker.NewPubSubHandler(worker.PubSubConfig{
		Client:           client,
		SubscriptionName: cfg.PubSub.Subscription,
		MaxOutstanding:   cfg.PubSub.MaxOutstanding,
		Handler:          handler,
		Logger:           logger,
	})

	go func() {
		if err := subscriber.Start(ctx); err != nil && ctx.Err() == nil {
			errCh <- err
		}
	}()

	return handler, func() {
		publisher.Stop()
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close pubsub client")
		}
	}, nil
}
