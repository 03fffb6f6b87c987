// Package config loads the planner configuration from an optional YAML file,
// environment variables and an optional .env file, in that order of precedence
// from lowest to highest.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/breatheroute/raptor/internal/database"
	"github.com/breatheroute/raptor/internal/raptor/transit"
	"github.com/breatheroute/raptor/internal/search"
	"github.com/breatheroute/raptor/internal/telemetry"
	"github.com/breatheroute/raptor/internal/worker"
)

// ErrInvalidConfig indicates a configuration that failed to parse or validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the planner configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Database  database.Config `yaml:"database"`
	PubSub    PubSubConfig    `yaml:"pubsub"`
	Search    SearchConfig    `yaml:"search"`
	Worker    WorkerConfig    `yaml:"worker"`
}

// ServiceConfig identifies the process.
type ServiceConfig struct {
	Name        string `yaml:"name" validate:"required"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment" validate:"oneof=development staging production"`
	OpsPort     int    `yaml:"ops_port" validate:"gt=0,lte=65535"`
	LogLevel    string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// TelemetryConfig configures the OTLP exporters.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" validate:"required_if=Enabled true"`
	SampleRatio  float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`
}

// PubSubConfig configures the plan request subscription and result topic.
type PubSubConfig struct {
	Enabled        bool   `yaml:"enabled"`
	ProjectID      string `yaml:"project_id" validate:"required_if=Enabled true"`
	Subscription   string `yaml:"subscription" validate:"required_if=Enabled true"`
	ResultTopic    string `yaml:"result_topic" validate:"required_if=Enabled true"`
	MaxOutstanding int    `yaml:"max_outstanding" validate:"gte=0"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	Timeout              time.Duration       `yaml:"timeout" validate:"gt=0"`
	SearchWindow         time.Duration       `yaml:"search_window" validate:"gte=0"`
	IterationStep        time.Duration       `yaml:"iteration_step" validate:"gte=1s"`
	MaxTransfers         int                 `yaml:"max_transfers" validate:"gte=0,lte=20"`
	Slack                transit.Slack       `yaml:"slack"`
	Cost                 transit.CostFactors `yaml:"cost"`
	OptimizeTransfers    bool                `yaml:"optimize_transfers"`
	ConstrainedTransfers bool                `yaml:"constrained_transfers"`
}

// WorkerConfig configures plan job processing.
type WorkerConfig struct {
	Concurrency int           `yaml:"concurrency" validate:"gte=1"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
}

// Default returns the configuration used when nothing is configured.
func Default() Config {
	sd := search.DefaultDefaults()
	bc := worker.DefaultBatchConfig()
	return Config{
		Service: ServiceConfig{
			Name:        "raptor-planner",
			Version:     "dev",
			Environment: "development",
			OpsPort:     8080,
			LogLevel:    "info",
		},
		Telemetry: TelemetryConfig{OTLPEndpoint: "localhost:4317"},
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			User:            "raptor",
			Password:        "localdev",
			Database:        "raptor",
			SSLMode:         "disable",
			MaxConns:        10,
			MinConns:        2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		PubSub: PubSubConfig{MaxOutstanding: 10},
		Search: SearchConfig{
			Timeout:              5 * time.Second,
			SearchWindow:         time.Duration(sd.SearchWindow) * time.Second,
			IterationStep:        time.Duration(sd.IterationStep) * time.Second,
			MaxTransfers:         sd.MaxTransfers,
			Slack:                sd.Slack,
			Cost:                 sd.Cost,
			OptimizeTransfers:    sd.OptimizeTransfers,
			ConstrainedTransfers: sd.ConstrainedTransfers,
		},
		Worker: WorkerConfig{
			Concurrency: bc.Concurrency,
			Timeout:     bc.Timeout,
		},
	}
}

// Load reads the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func applyEnv(c *Config) error {
	var errs []error
	envString("SERVICE_NAME", &c.Service.Name)
	envString("APP_VERSION", &c.Service.Version)
	envString("APP_ENV", &c.Service.Environment)
	envString("LOG_LEVEL", &c.Service.LogLevel)
	errs = append(errs, envInt("OPS_PORT", &c.Service.OpsPort))

	errs = append(errs, envBool("OTEL_ENABLED", &c.Telemetry.Enabled))
	envString("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Telemetry.OTLPEndpoint)

	envString("DB_HOST", &c.Database.Host)
	errs = append(errs, envInt("DB_PORT", &c.Database.Port))
	envString("DB_USER", &c.Database.User)
	envString("DB_PASSWORD", &c.Database.Password)
	envString("DB_NAME", &c.Database.Database)
	envString("DB_SSL_MODE", &c.Database.SSLMode)
	errs = append(errs, envInt("DB_MAX_CONNS", &c.Database.MaxConns))

	errs = append(errs, envBool("PUBSUB_ENABLED", &c.PubSub.Enabled))
	envString("PUBSUB_PROJECT_ID", &c.PubSub.ProjectID)
	envString("PUBSUB_SUBSCRIPTION", &c.PubSub.Subscription)
	envString("PUBSUB_RESULT_TOPIC", &c.PubSub.ResultTopic)

	errs = append(errs,
		envDuration("SEARCH_TIMEOUT", &c.Search.Timeout),
		envDuration("SEARCH_WINDOW", &c.Search.SearchWindow),
		envInt("SEARCH_MAX_TRANSFERS", &c.Search.MaxTransfers),
		envBool("SEARCH_OPTIMIZE_TRANSFERS", &c.Search.OptimizeTransfers),
		envInt("WORKER_CONCURRENCY", &c.Worker.Concurrency),
		envDuration("WORKER_TIMEOUT", &c.Worker.Timeout),
	)
	return errors.Join(errs...)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not an integer", key, v)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not a boolean", key, v)
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not a duration", key, v)
	}
	*dst = d
	return nil
}

// IsDevelopment reports whether the service runs in development.
func (c *Config) IsDevelopment() bool {
	return c.Service.Environment == "development"
}

// TelemetryConfig returns the telemetry setup for the service.
func (c *Config) TelemetryConfig() telemetry.Config {
	return telemetry.Config{
		ServiceName:    c.Service.Name,
		ServiceVersion: c.Service.Version,
		Environment:    c.Service.Environment,
		OTLPEndpoint:   c.Telemetry.OTLPEndpoint,
		Enabled:        c.Telemetry.Enabled,
		SampleRatio:    c.Telemetry.SampleRatio,
	}
}

// SearchDefaults returns the request defaults of the search service.
func (c *Config) SearchDefaults() search.Defaults {
	return search.Defaults{
		SearchWindow:         int(c.Search.SearchWindow / time.Second),
		IterationStep:        int(c.Search.IterationStep / time.Second),
		MaxTransfers:         c.Search.MaxTransfers,
		Slack:                c.Search.Slack,
		Cost:                 c.Search.Cost,
		OptimizeTransfers:    c.Search.OptimizeTransfers,
		ConstrainedTransfers: c.Search.ConstrainedTransfers,
	}
}

// BatchConfig returns the batch planner setup.
func (c *Config) BatchConfig() worker.BatchConfig {
	return worker.BatchConfig{
		Concurrency: c.Worker.Concurrency,
		Timeout:     c.Worker.Timeout,
	}
}
