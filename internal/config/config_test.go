package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/raptor/internal/config"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "raptor-planner", cfg.Service.Name)
	assert.Equal(t, 8080, cfg.Service.OpsPort)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 5*time.Second, cfg.Search.Timeout)
	assert.True(t, cfg.Search.OptimizeTransfers)

	d := cfg.SearchDefaults()
	assert.Equal(t, 2400, d.SearchWindow)
	assert.Equal(t, 60, d.IterationStep)
	assert.Equal(t, 5, d.MaxTransfers)
	assert.Equal(t, 60, d.Cost.BoardCost)
}

func TestLoad_File(t *testing.T) {
	p := writeFile(t, `
service:
  name: planner-test
  environment: staging
search:
  timeout: 2s
  search_window: 30m
  max_transfers: 3
  slack:
    board: 30
    alight: 15
    transfer: 60
  cost:
    board_cost: 90
    transfer_cost: 300
    wait_reluctance: 0.8
    transit_reluctance: 1.0
worker:
  concurrency: 6
`)
	cfg, err := config.Load(p)
	require.NoError(t, err)

	assert.Equal(t, "planner-test", cfg.Service.Name)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 2*time.Second, cfg.Search.Timeout)
	assert.Equal(t, 6, cfg.BatchConfig().Concurrency)

	d := cfg.SearchDefaults()
	assert.Equal(t, 1800, d.SearchWindow)
	assert.Equal(t, 3, d.MaxTransfers)
	assert.Equal(t, 60, d.Slack.Transfer)
	assert.InDelta(t, 0.8, d.Cost.WaitReluctance, 1e-9)

	// Keys the file leaves out keep their defaults.
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	p := writeFile(t, "service:\n  ops_port: 9000\n")
	t.Setenv("OPS_PORT", "9100")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("SEARCH_TIMEOUT", "750ms")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := config.Load(p)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Service.OpsPort)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 750*time.Millisecond, cfg.Search.Timeout)
	assert.True(t, cfg.TelemetryConfig().Enabled)
	assert.Equal(t, "localhost:4317", cfg.TelemetryConfig().OTLPEndpoint)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "bad environment", file: "service:\n  environment: moon\n"},
		{name: "negative slack", file: "search:\n  slack:\n    board: -1\n"},
		{name: "pubsub without project", env: map[string]string{"PUBSUB_ENABLED": "true"}},
		{name: "port not a number", env: map[string]string{"DB_PORT": "five"}},
		{name: "malformed yaml", file: "service: [\n"},
		{name: "min conns above max", file: "database:\n  max_conns: 2\n  min_conns: 4\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			p := ""
			if tt.file != "" {
				p = writeFile(t, tt.file)
			}

			_, err := config.Load(p)
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
