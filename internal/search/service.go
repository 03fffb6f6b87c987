package search

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/breatheroute/raptor/internal/raptor/optimize"
	"github.com/breatheroute/raptor/internal/raptor/path"
	"github.com/breatheroute/raptor/internal/raptor/rangeraptor"
	"github.com/breatheroute/raptor/internal/timetable"
)

const tracerName = "github.com/breatheroute/raptor/internal/search"

// Config holds configuration for the search service.
type Config struct {
	// Store provides the timetable searched by every request.
	Store *timetable.Store

	// Logger for service operations.
	Logger zerolog.Logger

	// Tracer for request spans (default: the global tracer provider).
	Tracer trace.Tracer

	// Metrics records request metrics when set.
	Metrics *Metrics

	// Timeout bounds one request (default: 5 seconds).
	Timeout time.Duration

	// Defaults fill parameters a request leaves out (default: DefaultDefaults()).
	Defaults *Defaults
}

// Service runs plan requests against the current timetable. It is safe for
// concurrent use; each request owns its search state.
type Service struct {
	store    *timetable.Store
	logger   zerolog.Logger
	tracer   trace.Tracer
	metrics  *Metrics
	timeout  time.Duration
	defaults Defaults
	validate *validator.Validate

	requests  atomic.Int64
	failed    atomic.Int64
	empty     atomic.Int64
	paths     atomic.Int64
	optimized atomic.Int64
}

// NewService creates a new search service.
func NewService(cfg Config) *Service {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	defaults := DefaultDefaults()
	if cfg.Defaults != nil {
		defaults = *cfg.Defaults
	}

	return &Service{
		store:    cfg.Store,
		logger:   cfg.Logger,
		tracer:   tracer,
		metrics:  cfg.Metrics,
		timeout:  timeout,
		defaults: defaults,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Route searches for the Pareto-optimal paths of req. Failures are returned as
// *Error; an unreachable destination is an empty response, not an error.
func (s *Service) Route(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	logger := s.logger.With().Str("request_id", req.RequestID).Logger()

	ctx, span := s.tracer.Start(ctx, "search.Route",
		trace.WithAttributes(
			attribute.String("request.id", req.RequestID),
			attribute.Int("request.access", len(req.Access)),
			attribute.Int("request.egress", len(req.Egress)),
			attribute.Int("request.via", len(req.Via)),
		),
	)
	defer span.End()

	resp, err := s.route(ctx, req, logger)
	elapsed := time.Since(start)
	s.record(ctx, resp, err, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn().Err(err).Dur("duration", elapsed).Msg("search failed")
		return nil, err
	}

	resp.Stats.Duration = elapsed
	span.SetAttributes(
		attribute.Int("search.paths", len(resp.Paths)),
		attribute.Int("search.iterations", resp.Stats.Iterations),
	)
	logger.Info().
		Int("paths", len(resp.Paths)).
		Int("iterations", resp.Stats.Iterations).
		Int("rounds", resp.Stats.Rounds).
		Int("optimized", resp.Stats.PathsOptimized).
		Dur("duration", elapsed).
		Msg("search completed")
	return resp, nil
}

func (s *Service) route(ctx context.Context, req Request, logger zerolog.Logger) (*Response, error) {
	tt, err := s.store.Get()
	if err != nil {
		return nil, &Error{Op: "load", RequestID: req.RequestID, Err: err}
	}

	rreq, err := s.build(tt, req)
	if err != nil {
		return nil, &Error{Op: "validate", RequestID: req.RequestID, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp := &Response{RequestID: req.RequestID, Timetable: tt}

	forward, reverse, err := s.heuristics(ctx, tt, rreq, logger)
	if err != nil {
		return nil, &Error{Op: "heuristics", RequestID: req.RequestID, Err: err}
	}
	resp.Stats.MinTravelTime = -1
	if !forward.DestinationReached {
		logger.Debug().Msg("destination unreachable, skipping main search")
		return resp, nil
	}
	resp.Stats.MinTravelTime = forward.MinTravelDuration

	opts := rangeraptor.Options{Logger: logger, Subscribe: s.subscribe(ctx)}
	if reverse != nil {
		opts.StopFilter = reverse.ReachedStops()
		resp.Stats.ReachableStops = int(opts.StopFilter.Count())
	}

	mcCtx, span := s.tracer.Start(ctx, "search.MultiCriteria")
	res, err := rangeraptor.RouteMultiCriteria(mcCtx, tt, rreq, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, &Error{Op: "route", RequestID: req.RequestID, Err: err}
	}
	span.SetAttributes(attribute.Int("search.paths", len(res.Paths)))
	span.End()

	resp.Paths = res.Paths
	resp.Stats.Iterations = res.Stats.Iterations
	resp.Stats.Rounds = res.Stats.Rounds
	resp.Stats.ArrivalsAccepted = res.Stats.ArrivalsAccepted
	resp.Stats.ArrivalsRejected = res.Stats.ArrivalsRejected
	resp.Stats.RouteFailures = res.Stats.RouteFailures
	resp.Stats.StageFailures = res.Stats.StageFailures
	resp.Stats.PathsInvalid = res.Stats.PathsInvalid

	if s.defaults.OptimizeTransfers && len(resp.Paths) > 0 {
		_, span := s.tracer.Start(ctx, "search.OptimizeTransfers")
		opt := optimize.New(tt, rreq.Slack, rreq.Cost, rreq.Via)
		resp.Paths, resp.Stats.PathsOptimized = opt.OptimizeAll(resp.Paths)
		span.SetAttributes(attribute.Int("search.optimized", resp.Stats.PathsOptimized))
		span.End()
	}
	path.Sort(resp.Paths)
	return resp, nil
}

// heuristics runs the forward and, given a latest arrival time, the reverse
// best-time search concurrently. Either failing fails both.
func (s *Service) heuristics(ctx context.Context, tt *timetable.Timetable, req rangeraptor.Request, logger zerolog.Logger) (*rangeraptor.Heuristics, *rangeraptor.Heuristics, error) {
	ctx, span := s.tracer.Start(ctx, "search.Heuristics")
	defer span.End()

	opts := rangeraptor.Options{Logger: logger}
	var forward, reverse *rangeraptor.Heuristics

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := rangeraptor.RouteHeuristics(gctx, tt, req, true, opts)
		if err != nil {
			return fmt.Errorf("forward: %w", err)
		}
		forward = h
		return nil
	})
	if req.LatestArrivalTime > 0 {
		g.Go(func() error {
			h, err := rangeraptor.RouteHeuristics(gctx, tt, req, false, opts)
			if err != nil {
				return fmt.Errorf("reverse: %w", err)
			}
			reverse = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, fmt.Errorf("%w: %w", ErrHeuristicFailed, err)
	}

	span.SetAttributes(
		attribute.Bool("heuristics.reached", forward.DestinationReached),
		attribute.Bool("heuristics.reverse", reverse != nil),
	)
	return forward, reverse, nil
}

// subscribe feeds the iteration and round metrics from the search lifecycle.
func (s *Service) subscribe(ctx context.Context) func(*rangeraptor.Subscriptions) {
	if s.metrics == nil {
		return nil
	}
	return func(subs *rangeraptor.Subscriptions) {
		subs.OnIterationComplete(func(int) { s.metrics.recordIteration(ctx) })
		subs.OnRoundComplete(func(_ int, reached bool) { s.metrics.recordRound(ctx, reached) })
	}
}

func (s *Service) record(ctx context.Context, resp *Response, err error, elapsed time.Duration) {
	s.requests.Add(1)
	paths := 0
	switch {
	case err != nil:
		s.failed.Add(1)
	case len(resp.Paths) == 0:
		s.empty.Add(1)
	default:
		paths = len(resp.Paths)
		s.paths.Add(int64(paths))
		s.optimized.Add(int64(resp.Stats.PathsOptimized))
	}
	if s.metrics != nil {
		s.metrics.RecordRequest(ctx, paths, elapsed, err)
	}
}

// Totals returns the cumulative counters since the service was created.
func (s *Service) Totals() Totals {
	return Totals{
		Requests:  s.requests.Load(),
		Failed:    s.failed.Load(),
		Empty:     s.empty.Load(),
		Paths:     s.paths.Load(),
		Optimized: s.optimized.Load(),
	}
}
