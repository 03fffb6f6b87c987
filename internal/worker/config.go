// Package worker plans journeys for requests arriving over Pub/Sub and
// publishes the results.
package worker

import (
	"time"
)

// Job types understood by the plan handler.
const (
	JobPlan      = "plan"
	JobPlanBatch = "plan_batch"
)

// BatchConfig holds configuration for the batch planner.
type BatchConfig struct {
	// Concurrency is the number of requests planned at the same time.
	// Default: 3
	Concurrency int

	// Timeout bounds each request.
	// Default: 10 seconds
	Timeout time.Duration
}

// DefaultBatchConfig returns the default batch configuration.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Concurrency: 3,
		Timeout:     10 * time.Second,
	}
}

func (c BatchConfig) withDefaults() BatchConfig {
	d := DefaultBatchConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}
