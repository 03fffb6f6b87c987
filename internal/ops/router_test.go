package ops_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/breatheroute/raptor/internal/ops"
	"github.com/breatheroute/raptor/internal/resilience"
	"github.com/breatheroute/raptor/internal/search"
	"github.com/breatheroute/raptor/internal/timetable"
)

var fixedNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type fakeSearch struct{ totals search.Totals }

func (f fakeSearch) Totals() search.Totals { return f.totals }

type fakeBatch struct{}

func (fakeBatch) MetricsSnapshot() map[string]interface{} {
	return map[string]interface{}{"batches_total": int64(2)}
}

type fakeBreaker struct {
	name  string
	state gobreaker.State
}

func (b fakeBreaker) Name() string { return b.name }
func (b fakeBreaker) State() gobreaker.State { return b.state }
func (b fakeBreaker) Counts() gobreaker.Counts { return gobreaker.Counts{} }

func loadedStore(t *testing.T) *timetable.Store {
	t.Helper()
	tt, err := timetable.NewBuilder().
		AddStops("A", "B").
		AddRoute("R1", "A", "B").
		AddTrip("R1", "t1", 8*3600, 8*3600+600).
		Build()
	require.NoError(t, err)

	store := timetable.NewStore()
	store.Set(tt)
	return store
}

func newRouter(t *testing.T, cfg ops.RouterConfig) http.Handler {
	t.Helper()
	cfg.Logger = zerolog.Nop()
	cfg.Now = func() time.Time { return fixedNow }
	if cfg.Timetable == nil {
		cfg.Timetable = timetable.NewStore()
	}
	return ops.NewRouter(cfg)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newRouter(t, ops.RouterConfig{Version: "1.2.0", BuildTime: "2026-03-01"})

	rec := get(t, h, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(ops.RequestIDHeader))

	var body ops.Health
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, ops.StatusOK, body.Status)
	assert.Equal(t, "1.2.0", body.Version)
	assert.Equal(t, "2026-03-01", body.BuildTime)
	assert.True(t, fixedNow.Equal(body.Time))
}

func TestReady(t *testing.T) {
	t.Run("not loaded", func(t *testing.T) {
		h := newRouter(t, ops.RouterConfig{})

		rec := get(t, h, "/ready")

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body ops.Health
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, ops.StatusNotReady, body.Status)
		assert.Equal(t, timetable.ErrTimetableNotLoaded.Error(), body.Detail)
	})

	t.Run("loaded", func(t *testing.T) {
		h := newRouter(t, ops.RouterConfig{Timetable: loadedStore(t)})

		rec := get(t, h, "/ready")

		require.Equal(t, http.StatusOK, rec.Code)
		var body ops.Health
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, ops.StatusOK, body.Status)
		require.NotNil(t, body.Timetable)
		assert.Equal(t, 2, body.Timetable.Stops)
		assert.Equal(t, 1, body.Timetable.Routes)
		assert.Equal(t, 1, body.Timetable.Trips)
	})
}

func TestStats(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register(fakeBreaker{name: "plan-results", state: gobreaker.StateOpen})

	h := newRouter(t, ops.RouterConfig{
		Timetable: loadedStore(t),
		Search:    fakeSearch{totals: search.Totals{Requests: 7, Failed: 1, Paths: 12}},
		Batch:     fakeBatch{},
		Registry:  registry,
	})

	rec := get(t, h, "/stats")

	require.Equal(t, http.StatusOK, rec.Code)
	var body ops.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, ops.StatusDegraded, body.Status)
	require.NotNil(t, body.Search)
	assert.Equal(t, int64(7), body.Search.Requests)
	assert.Equal(t, int64(12), body.Search.Paths)
	assert.EqualValues(t, 2, body.Batch["batches_total"])
	require.Len(t, body.Dependencies, 1)
	assert.Equal(t, "plan-results", body.Dependencies[0].Name)
	assert.Equal(t, gobreaker.StateOpen.String(), body.Dependencies[0].State)
	require.NotNil(t, body.Timetable)
}

func TestStatsWithoutTimetable(t *testing.T) {
	h := newRouter(t, ops.RouterConfig{})

	rec := get(t, h, "/stats")

	require.Equal(t, http.StatusOK, rec.Code)
	var body ops.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, ops.StatusNotReady, body.Status)
	assert.Nil(t, body.Search)
	assert.Empty(t, body.Dependencies)
}

func TestStatsRateLimited(t *testing.T) {
	h := newRouter(t, ops.RouterConfig{
		StatsLimit: ops.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute},
	})

	require.Equal(t, http.StatusOK, get(t, h, "/stats").Code)

	rec := get(t, h, "/stats")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	// Health is not limited.
	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)
}

func TestRequestIDPropagated(t *testing.T) {
	h := newRouter(t, ops.RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(ops.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(ops.RequestIDHeader))
}

func TestNotFound(t *testing.T) {
	h := newRouter(t, ops.RouterConfig{})

	rec := get(t, h, "/nope")

	require.Equal(t, http.StatusNotFound, rec.Code)
	var p ops.Problem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.Equal(t, "/nope", p.Instance)
	assert.NotEmpty(t, p.TraceID)
}

func TestTracingSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	h := newRouter(t, ops.RouterConfig{Tracer: provider.Tracer("ops-test")})

	get(t, h, "/ready")

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /ready", spans[0].Name())
	var status int64
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "http.response.status_code" {
			status = kv.Value.AsInt64()
		}
	}
	assert.Equal(t, int64(http.StatusServiceUnavailable), status)
}

func TestRecovery(t *testing.T) {
	mw := ops.Recovery(zerolog.Nop())
	h := ops.RequestID(mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := get(t, h, "/boom")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var p ops.Problem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.Equal(t, "an unexpected error occurred", p.Detail)
	assert.Equal(t, rec.Header().Get(ops.RequestIDHeader), p.TraceID)
}

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := ops.NewHTTPMetrics(provider.Meter("ops-test"))
	require.NoError(t, err)

	h := newRouter(t, ops.RouterConfig{Metrics: metrics})
	get(t, h, "/health")
	get(t, h, "/ready")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	var total int64
	for _, m := range rm.ScopeMetrics[0].Metrics {
		if m.Name != "http.server.request.total" {
			continue
		}
		sum, ok := m.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		for _, dp := range sum.DataPoints {
			total += dp.Value
		}
	}
	assert.Equal(t, int64(2), total)
}
