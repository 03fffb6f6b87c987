package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/breatheroute/raptor/internal/search"
)

// Planner routes one plan request. *search.Service implements it.
type Planner interface {
	Route(ctx context.Context, req search.Request) (*search.Response, error)
}

// BatchPlanner plans many requests with bounded concurrency.
type BatchPlanner struct {
	planner Planner
	config  BatchConfig
	logger  zerolog.Logger
	metrics *BatchMetrics
}

// BatchMetrics tracks batch statistics.
type BatchMetrics struct {
	mu sync.RWMutex

	TotalBatches  int64
	TotalRequests atomic.Int64
	Successful    atomic.Int64
	Failed        atomic.Int64

	LastBatchAt       time.Time
	LastBatchDuration time.Duration
}

// BatchPlannerConfig holds configuration for creating a BatchPlanner.
type BatchPlannerConfig struct {
	Planner Planner
	Config  BatchConfig
	Logger  zerolog.Logger
}

// NewBatchPlanner creates a new batch planner.
func NewBatchPlanner(cfg BatchPlannerConfig) *BatchPlanner {
	return &BatchPlanner{
		planner: cfg.Planner,
		config:  cfg.Config.withDefaults(),
		logger:  cfg.Logger,
		metrics: &BatchMetrics{},
	}
}

// BatchResult contains the results of a batch, in request order.
type BatchResult struct {
	StartTime  time.Time
	Duration   time.Duration
	Results    []PlanResult
	Successful int
	Failed     int
}

// Run plans every request. A failed request yields an error result and does
// not stop the others; only cancellation of ctx does.
func (b *BatchPlanner) Run(ctx context.Context, reqs []search.Request) *BatchResult {
	start := time.Now()
	result := &BatchResult{StartTime: start, Results: make([]PlanResult, len(reqs))}

	b.logger.Info().
		Int("requests", len(reqs)).
		Int("concurrency", b.config.Concurrency).
		Msg("starting plan batch")

	var ok, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.Concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				result.Results[i] = NewErrorResult(req.RequestID, err)
				failed.Add(1)
				return nil
			}
			reqCtx, cancel := context.WithTimeout(gctx, b.config.Timeout)
			defer cancel()

			resp, err := b.planner.Route(reqCtx, req)
			result.Results[i] = resultFor(req, resp, err)
			if err != nil {
				failed.Add(1)
				b.logger.Debug().Err(err).Int("index", i).Msg("batch request failed")
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	result.Successful = int(ok.Load())
	result.Failed = int(failed.Load())
	result.Duration = time.Since(start)
	b.updateMetrics(result, len(reqs))

	b.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("plan batch completed")

	return result
}

func (b *BatchPlanner) updateMetrics(result *BatchResult, requests int) {
	b.metrics.TotalRequests.Add(int64(requests))
	b.metrics.Successful.Add(int64(result.Successful))
	b.metrics.Failed.Add(int64(result.Failed))

	b.metrics.mu.Lock()
	defer b.metrics.mu.Unlock()
	b.metrics.TotalBatches++
	b.metrics.LastBatchAt = result.StartTime.Add(result.Duration)
	b.metrics.LastBatchDuration = result.Duration
}

// MetricsSnapshot returns a snapshot of the batch metrics as a map.
func (b *BatchPlanner) MetricsSnapshot() map[string]interface{} {
	b.metrics.mu.RLock()
	defer b.metrics.mu.RUnlock()

	return map[string]interface{}{
		"total_batches":       b.metrics.TotalBatches,
		"total_requests":      b.metrics.TotalRequests.Load(),
		"successful_requests": b.metrics.Successful.Load(),
		"failed_requests":     b.metrics.Failed.Load(),
		"last_batch_at":       b.metrics.LastBatchAt,
		"last_batch_duration": b.metrics.LastBatchDuration.String(),
	}
}
