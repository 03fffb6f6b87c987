package timetable

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/raptor/internal/resilience"
)

// Repository loads a timetable from a backing store.
type Repository interface {
	Load(ctx context.Context) (*Timetable, error)
}

// StaticRepository serves a timetable built in memory. It is used in
// development and tests.
type StaticRepository struct {
	Timetable *Timetable
}

// Load implements Repository.
func (r StaticRepository) Load(context.Context) (*Timetable, error) {
	if r.Timetable == nil {
		return nil, ErrTimetableNotLoaded
	}
	return r.Timetable, nil
}

// LoadInto loads a timetable with retries and stores it. Invalid timetables
// are not retried.
func LoadInto(ctx context.Context, store *Store, repo Repository, retry resilience.RetryConfig, logger zerolog.Logger) error {
	start := time.Now()
	var tt *Timetable
	err := resilience.Retry(ctx, retry, func(ctx context.Context) error {
		t, err := repo.Load(ctx)
		if err != nil {
			if isInvalid(err) {
				return resilience.Permanent(err)
			}
			return err
		}
		tt = t
		return nil
	}, func(err error, wait time.Duration) {
		logger.Warn().Err(err).Dur("retry_in", wait).Msg("timetable load failed, retrying")
	})
	if err != nil {
		return fmt.Errorf("load timetable: %w", err)
	}

	store.Set(tt)
	s := tt.Summary()
	logger.Info().
		Int("stops", s.Stops).
		Int("routes", s.Routes).
		Int("trips", s.Trips).
		Int("transfers", s.Transfers).
		Int("constrained_transfers", s.ConstrainedTransfers).
		Dur("duration", time.Since(start)).
		Msg("timetable loaded")
	return nil
}
