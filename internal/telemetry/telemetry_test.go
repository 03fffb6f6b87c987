package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/breatheroute/raptor/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:  "raptor-test",
		OTLPEndpoint: "localhost:4317",
		Enabled:      false,
	})
	require.NoError(t, err)

	assert.NotNil(t, provider.Tracer)
	assert.NotNil(t, provider.Meter)
	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "ParentBased{root:AlwaysOnSampler"},
		{1, "ParentBased{root:AlwaysOnSampler"},
		{0.25, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		got := telemetry.Sampler(telemetry.Config{SampleRatio: tt.ratio}).Description()
		assert.Contains(t, got, tt.want)
	}
}

func TestNewMeterProvider_SearchBuckets(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := telemetry.NewMeterProvider(reader, nil)
	t.Cleanup(func() { _ = mp.Shutdown(ctx) })

	meter := mp.Meter("telemetry-test")
	duration, err := meter.Float64Histogram("search.request.duration")
	require.NoError(t, err)
	paths, err := meter.Int64Histogram("search.paths")
	require.NoError(t, err)

	duration.Record(ctx, 0.03)
	paths.Record(ctx, 4)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	bounds := map[string][]float64{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		switch data := m.Data.(type) {
		case metricdata.Histogram[float64]:
			require.Len(t, data.DataPoints, 1)
			bounds[m.Name] = data.DataPoints[0].Bounds
		case metricdata.Histogram[int64]:
			require.Len(t, data.DataPoints, 1)
			bounds[m.Name] = data.DataPoints[0].Bounds
		}
	}

	assert.Equal(t, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, bounds["search.request.duration"])
	assert.Equal(t, []float64{0, 1, 2, 3, 5, 8, 13, 21}, bounds["search.paths"])
}

func TestViews(t *testing.T) {
	assert.Len(t, telemetry.Views(), 3)
}

func TestResource(t *testing.T) {
	res, err := telemetry.Resource(context.Background(), telemetry.Config{
		ServiceName:    "raptor-test",
		ServiceVersion: "1.0.0",
		Environment:    "staging",
	})
	require.NoError(t, err)

	attrs := res.Set()
	name, ok := attrs.Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "raptor-test", name.AsString())
	env, ok := attrs.Value(semconv.DeploymentEnvironmentKey)
	require.True(t, ok)
	assert.Equal(t, "staging", env.AsString())
}
