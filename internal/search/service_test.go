package search_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/breatheroute/raptor/internal/raptor/transit"
	"github.com/breatheroute/raptor/internal/search"
	"github.com/breatheroute/raptor/internal/timetable"
)

func hm(h, m int) int { return transit.HMS(h, m, 0) }

func intPtr(v int) *int { return &v }

// loadedStore holds two routes sharing B and C, and a stop Z no route serves.
func loadedStore(t *testing.T) *timetable.Store {
	t.Helper()
	tt, err := timetable.NewBuilder().
		AddStops("A", "B", "C", "E", "Z").
		AddRoute("R1", "A", "B", "C").
		AddTrip("R1", "t1", hm(8, 5), hm(8, 10), hm(8, 20)).
		AddRoute("R2", "B", "C", "E").
		AddTrip("R2", "u1", hm(8, 11), hm(8, 22), hm(8, 40)).
		Build()
	require.NoError(t, err)

	store := timetable.NewStore()
	store.Set(tt)
	return store
}

func newService(t *testing.T, store *timetable.Store, defaults *search.Defaults) (*search.Service, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	return search.NewService(search.Config{
		Store:    store,
		Logger:   zerolog.Nop(),
		Tracer:   tp.Tracer("test"),
		Defaults: defaults,
	}), sr
}

func planRequest(egress string) search.Request {
	return search.Request{
		EarliestDepartureTime: hm(8, 0),
		SearchWindow:          intPtr(0),
		Access:                []search.AccessPath{{StopID: "A", Duration: 60}},
		Egress:                []search.AccessPath{{StopID: egress, Duration: 60}},
	}
}

func spanNames(sr *tracetest.SpanRecorder) []string {
	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	return names
}

func TestService_Route(t *testing.T) {
	svc, sr := newService(t, loadedStore(t), nil)

	resp, err := svc.Route(context.Background(), planRequest("E"))
	require.NoError(t, err)

	assert.NotEmpty(t, resp.RequestID)
	require.Len(t, resp.Paths, 1)
	p := resp.Paths[0]
	assert.Equal(t, hm(8, 41), p.EndTime)
	assert.Equal(t, 1, p.Transfers)

	// The change moves from B to C, where the wait is longer.
	c, _ := resp.Timetable.StopIndex("C")
	assert.Equal(t, c, p.Legs[1].ToStop)
	assert.Equal(t, 1, resp.Stats.PathsOptimized)
	assert.Equal(t, 1, resp.Stats.Iterations)
	assert.Positive(t, resp.Stats.MinTravelTime)

	assert.ElementsMatch(t,
		[]string{"search.Heuristics", "search.MultiCriteria", "search.OptimizeTransfers", "search.Route"},
		spanNames(sr))
}

func TestService_Route_WithoutOptimization(t *testing.T) {
	defaults := search.DefaultDefaults()
	defaults.OptimizeTransfers = false
	svc, sr := newService(t, loadedStore(t), &defaults)

	resp, err := svc.Route(context.Background(), planRequest("E"))
	require.NoError(t, err)
	require.Len(t, resp.Paths, 1)

	b, _ := resp.Timetable.StopIndex("B")
	assert.Equal(t, b, resp.Paths[0].Legs[1].ToStop)
	assert.Zero(t, resp.Stats.PathsOptimized)
	assert.NotContains(t, spanNames(sr), "search.OptimizeTransfers")
}

func TestService_Route_KeepsRequestID(t *testing.T) {
	svc, _ := newService(t, loadedStore(t), nil)

	req := planRequest("E")
	req.RequestID = "req-42"
	resp, err := svc.Route(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "req-42", resp.RequestID)
}

func TestService_Route_InvalidRequest(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*search.Request)
	}{
		{"unknown access stop", func(r *search.Request) { r.Access[0].StopID = "nowhere" }},
		{"no egress", func(r *search.Request) { r.Egress = nil }},
		{"negative duration", func(r *search.Request) { r.Access[0].Duration = -1 }},
		{"arrival before departure", func(r *search.Request) { r.LatestArrivalTime = hm(7, 0) }},
		{"half opening hours", func(r *search.Request) { r.Access[0].OpensAt = intPtr(hm(7, 0)) }},
		{"empty via", func(r *search.Request) { r.Via = []search.ViaLocation{{Label: "empty"}} }},
		{"unknown via stop", func(r *search.Request) {
			r.Via = []search.ViaLocation{{Label: "x", StopIDs: []string{"nowhere"}}}
		}},
		{"negative via wait", func(r *search.Request) {
			r.Via = []search.ViaLocation{{Label: "b", MinWait: -1, StopIDs: []string{"B"}}}
		}},
		{"waiting pass-through", func(r *search.Request) {
			r.Via = []search.ViaLocation{{Label: "b", PassThrough: true, MinWait: 60, StopIDs: []string{"B"}}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t, loadedStore(t), nil)
			req := planRequest("E")
			tt.modify(&req)

			_, err := svc.Route(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, search.ErrInvalidRequest)

			var serr *search.Error
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, "validate", serr.Op)
			assert.True(t, serr.IsClientError())
		})
	}
}

func TestService_Route_NotLoaded(t *testing.T) {
	svc, _ := newService(t, timetable.NewStore(), nil)

	_, err := svc.Route(context.Background(), planRequest("E"))
	assert.ErrorIs(t, err, timetable.ErrTimetableNotLoaded)
}

func TestService_Route_Unreachable(t *testing.T) {
	svc, sr := newService(t, loadedStore(t), nil)

	resp, err := svc.Route(context.Background(), planRequest("Z"))
	require.NoError(t, err)
	assert.Empty(t, resp.Paths)
	assert.Zero(t, resp.Stats.Iterations)
	assert.Equal(t, -1, resp.Stats.MinTravelTime)
	assert.NotContains(t, spanNames(sr), "search.MultiCriteria")
	assert.Equal(t, int64(1), svc.Totals().Empty)
}

func TestService_Route_LatestArrival(t *testing.T) {
	svc, _ := newService(t, loadedStore(t), nil)

	req := planRequest("E")
	req.LatestArrivalTime = hm(8, 45)
	resp, err := svc.Route(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, resp.Paths, 1)
	assert.Positive(t, resp.Stats.ReachableStops)

	req.LatestArrivalTime = hm(8, 30)
	resp, err = svc.Route(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.Paths)
}

func TestService_Route_Cancelled(t *testing.T) {
	svc, sr := newService(t, loadedStore(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Route(ctx, planRequest("E"))
	require.Error(t, err)
	assert.ErrorIs(t, err, search.ErrHeuristicFailed)
	assert.ErrorIs(t, err, search.ErrSearchTimeout)
	assert.True(t, errors.Is(err, context.Canceled))

	for _, s := range sr.Ended() {
		if s.Name() == "search.Route" {
			assert.Equal(t, "Error", s.Status().Code.String())
		}
	}
}

func TestService_Totals(t *testing.T) {
	svc, _ := newService(t, loadedStore(t), nil)

	_, err := svc.Route(context.Background(), planRequest("E"))
	require.NoError(t, err)
	_, err = svc.Route(context.Background(), planRequest("nowhere"))
	require.Error(t, err)

	assert.Equal(t, search.Totals{Requests: 2, Failed: 1, Paths: 1, Optimized: 1}, svc.Totals())
}

func TestService_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := search.NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	svc := search.NewService(search.Config{
		Store:   loadedStore(t),
		Logger:  zerolog.Nop(),
		Metrics: metrics,
	})
	_, err = svc.Route(context.Background(), planRequest("E"))
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), sums["search.request.total"])
	assert.Equal(t, int64(1), sums["search.iterations"])
	assert.Positive(t, sums["search.rounds"])
}

func TestError(t *testing.T) {
	err := &search.Error{Op: "route", RequestID: "r1", Err: search.ErrSearchTimeout}
	assert.Equal(t, "search route r1: search timed out", err.Error())
	assert.ErrorIs(t, err, search.ErrSearchTimeout)
	assert.False(t, err.IsClientError())
}

func TestService_Route_ViaMinWait(t *testing.T) {
	svc, _ := newService(t, loadedStore(t), nil)

	// The only change at B leaves one minute.
	req := planRequest("E")
	req.Via = []search.ViaLocation{{Label: "b", StopIDs: []string{"B"}}}
	resp, err := svc.Route(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Paths, 1)
	assert.True(t, resp.Paths[0].ViaSatisfied)

	req.Via[0].MinWait = 120
	resp, err = svc.Route(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.Paths)
}
