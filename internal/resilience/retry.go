package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrRetriesExhausted is returned when an operation failed on every attempt.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryConfig configures exponential backoff.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	// Default: 5
	MaxRetries uint64

	// InitialInterval is the first wait between attempts.
	// Default: 500ms
	InitialInterval time.Duration

	// MaxInterval caps the wait between attempts.
	// Default: 10 seconds
	MaxInterval time.Duration
}

// DefaultRetryConfig returns the start-up retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.MaxRetries == 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.InitialInterval == 0 {
		c.InitialInterval = d.InitialInterval
	}
	if c.MaxInterval == 0 {
		c.MaxInterval = d.MaxInterval
	}
	return c
}

// Permanent marks an error as not retryable.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Retry runs op until it succeeds, returns a permanent error, the retries are
// used up or ctx is done. notify, if not nil, is called before every wait.
func Retry(ctx context.Context, cfg RetryConfig, op func(ctx context.Context) error, notify func(err error, wait time.Duration)) error {
	cfg = cfg.withDefaults()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.MaxInterval = cfg.MaxInterval
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, cfg.MaxRetries), ctx)

	permanent := false
	err := backoff.RetryNotify(func() error {
		err := op(ctx)
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			permanent = true
		}
		return err
	}, policy, notify)
	switch {
	case err == nil, permanent:
		return err
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	default:
		return fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
	}
}
