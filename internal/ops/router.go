// Package ops serves the planner's operational HTTP endpoints.
package ops

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/breatheroute/raptor/internal/resilience"
)

// RouterConfig holds the collaborators of the ops router.
type RouterConfig struct {
	Version    string
	BuildTime  string
	Logger     zerolog.Logger
	Tracer     trace.Tracer
	Propagator propagation.TextMapPropagator
	Metrics    *HTTPMetrics
	Timetable  TimetableSource
	Search     SearchStats
	Batch      BatchStats
	Registry   *resilience.Registry
	StatsLimit RateLimitConfig
	Now        func() time.Time
}

// NewRouter creates the ops router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("ops")
	}
	if cfg.Propagator == nil {
		cfg.Propagator = otel.GetTextMapPropagator()
	}
	if cfg.StatsLimit.RequestLimit <= 0 || cfg.StatsLimit.WindowLength <= 0 {
		cfg.StatsLimit = StatsRateLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	r := chi.NewRouter()

	// Order matters: the request id must exist before spans and logs use it.
	r.Use(RequestID)
	r.Use(Tracing(cfg.Tracer, cfg.Propagator))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(Logger(cfg.Logger))
	r.Use(Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)

	h := &Handler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		timetable: cfg.Timetable,
		search:    cfg.Search,
		batch:     cfg.Batch,
		registry:  cfg.Registry,
		now:       cfg.Now,
	}

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.With(RateLimitByIP(cfg.StatsLimit)).Get("/stats", h.Stats)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, "no such endpoint")
	})

	return r
}
