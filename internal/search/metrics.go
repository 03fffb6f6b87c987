package search

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OpenTelemetry instruments of the search service.
type Metrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	pathCount       metric.Int64Histogram
	iterations      metric.Int64Counter
	rounds          metric.Int64Counter
}

// NewMetrics creates the search instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requestTotal, err := meter.Int64Counter(
		"search.request.total",
		metric.WithDescription("Total number of search requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"search.request.duration",
		metric.WithDescription("Duration of search requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	pathCount, err := meter.Int64Histogram(
		"search.paths",
		metric.WithDescription("Number of paths returned per request"),
		metric.WithUnit("{path}"),
	)
	if err != nil {
		return nil, err
	}

	iterations, err := meter.Int64Counter(
		"search.iterations",
		metric.WithDescription("Range-raptor iterations run by the multi-criteria search"),
		metric.WithUnit("{iteration}"),
	)
	if err != nil {
		return nil, err
	}

	rounds, err := meter.Int64Counter(
		"search.rounds",
		metric.WithDescription("Range-raptor rounds run by the multi-criteria search"),
		metric.WithUnit("{round}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		pathCount:       pathCount,
		iterations:      iterations,
		rounds:          rounds,
	}, nil
}

// RecordRequest records the outcome of one request.
func (m *Metrics) RecordRequest(ctx context.Context, paths int, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.Bool("error", err != nil),
	}
	var se *Error
	if errors.As(err, &se) {
		attrs = append(attrs, attribute.String("search.op", se.Op))
	}

	// Request contexts may already be past their deadline.
	ctx = context.WithoutCancel(ctx)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if err == nil {
		m.pathCount.Record(ctx, int64(paths))
	}
}

func (m *Metrics) recordIteration(ctx context.Context) {
	m.iterations.Add(context.WithoutCancel(ctx), 1)
}

func (m *Metrics) recordRound(ctx context.Context, destinationReached bool) {
	m.rounds.Add(context.WithoutCancel(ctx), 1,
		metric.WithAttributes(attribute.Bool("destination_reached", destinationReached)))
}
