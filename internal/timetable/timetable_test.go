package timetable_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/raptor/internal/raptor/transit"
	"github.com/breatheroute/raptor/internal/resilience"
	"github.com/breatheroute/raptor/internal/timetable"
)

func hm(h, m int) int { return transit.HMS(h, m, 0) }

func sampleBuilder() *timetable.Builder {
	return timetable.NewBuilder().
		AddStops("A", "B", "C", "D").
		AddRoute("R1", "A", "B", "C").
		AddTrip("R1", "late", hm(9, 0), hm(9, 10), hm(9, 20)).
		AddTrip("R1", "early", hm(8, 0), hm(8, 10), hm(8, 20)).
		AddRoute("R2", "C", "D").
		AddTrip("R2", "r2", hm(8, 30), hm(8, 40)).
		AddWalk("B", "D", 300)
}

func TestBuilder_Build(t *testing.T) {
	tt, err := sampleBuilder().Build()
	require.NoError(t, err)

	assert.Equal(t, 4, tt.NumberOfStops())
	assert.Equal(t, 2, tt.NumberOfRoutes())

	r1, ok := tt.RouteByName("R1")
	require.True(t, ok)
	require.Len(t, r1.Trips, 2)
	assert.Equal(t, "early", r1.Trips[0].ID, "trips are sorted by departure")
	assert.Equal(t, 0, r1.Trips[0].Index)
	assert.Equal(t, 1, r1.Trips[1].Index)

	c, ok := tt.StopIndex("C")
	require.True(t, ok)
	assert.ElementsMatch(t, []int{0, 1}, tt.RoutesByStop(c))

	b, _ := tt.StopIndex("B")
	d, _ := tt.StopIndex("D")
	assert.Equal(t, []transit.Transfer{{Stop: d, Duration: 300, C1: 30000}}, tt.TransfersFrom(b))
	assert.Equal(t, []transit.Transfer{{Stop: b, Duration: 300, C1: 30000}}, tt.TransfersTo(d))

	assert.Equal(t, timetable.Summary{Stops: 4, Routes: 2, Trips: 3, Transfers: 2}, tt.Summary())
}

func TestBuilder_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *timetable.Builder)
	}{
		{
			name: "unknown stop in route",
			build: func(b *timetable.Builder) {
				b.AddRoute("R", "A", "X")
			},
		},
		{
			name: "departs before arrival",
			build: func(b *timetable.Builder) {
				b.AddRoute("R", "A", "B").AddTripTimes("R", "t", []int{100, 200}, []int{90, 200})
			},
		},
		{
			name: "time decreases along trip",
			build: func(b *timetable.Builder) {
				b.AddRoute("R", "A", "B").AddTrip("R", "t", 200, 100)
			},
		},
		{
			name: "overtaking trips",
			build: func(b *timetable.Builder) {
				b.AddRoute("R", "A", "B").
					AddTrip("R", "slow", 100, 1000).
					AddTrip("R", "fast", 200, 500)
			},
		},
		{
			name: "route without trips",
			build: func(b *timetable.Builder) {
				b.AddRoute("R", "A", "B")
			},
		},
		{
			name: "wrong number of times",
			build: func(b *timetable.Builder) {
				b.AddRoute("R", "A", "B").AddTrip("R", "t", 100)
			},
		},
		{
			name: "duplicate trip",
			build: func(b *timetable.Builder) {
				b.AddRoute("R", "A", "B").AddTrip("R", "t", 100, 200).AddTrip("R", "t", 300, 400)
			},
		},
		{
			name: "transfer to unknown stop",
			build: func(b *timetable.Builder) {
				b.AddRoute("R", "A", "B").AddTrip("R", "t", 100, 200).AddTransfer("A", "X", 60, 6000)
			},
		},
		{
			name: "constrained transfer from unknown trip",
			build: func(b *timetable.Builder) {
				b.AddRoute("R", "A", "B").AddTrip("R", "t", 100, 200).
					AddConstrainedTransfer(timetable.ConstrainedTransferSpec{FromTrip: "x", ToRoute: "R"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := timetable.NewBuilder().AddStops("A", "B")
			tt.build(b)
			_, err := b.Build()
			assert.ErrorIs(t, err, timetable.ErrInvalidTimetable)
		})
	}
}

func TestBuilder_ConstrainedTransfer(t *testing.T) {
	tt, err := sampleBuilder().
		AddConstrainedTransfer(timetable.ConstrainedTransferSpec{
			FromTrip:    "early",
			FromStopPos: 2,
			ToRoute:     "R2",
			ToStopPos:   0,
			Constraint:  transit.TransferConstraint{Guaranteed: true},
		}).
		Build()
	require.NoError(t, err)

	r2, _ := tt.RouteByName("R2")
	assert.True(t, r2.HasConstraints())
	assert.True(t, r2.Constraints.ExistAt(0))
	assert.False(t, r2.Constraints.ExistAt(1))
	assert.Equal(t, 1, tt.Summary().ConstrainedTransfers)

	r1, _ := tt.RouteByName("R1")
	assert.False(t, r1.HasConstraints())
}

func TestStore(t *testing.T) {
	store := timetable.NewStore()
	assert.False(t, store.Loaded())
	_, err := store.Get()
	assert.ErrorIs(t, err, timetable.ErrTimetableNotLoaded)

	tt, err := sampleBuilder().Build()
	require.NoError(t, err)
	store.Set(tt)

	got, err := store.Get()
	require.NoError(t, err)
	assert.Same(t, tt, got)
}

type flakyRepository struct {
	failures int
	calls    int
	result   *timetable.Timetable
	err      error
}

func (r *flakyRepository) Load(context.Context) (*timetable.Timetable, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if r.calls <= r.failures {
		return nil, fmt.Errorf("attempt %d: connection reset", r.calls)
	}
	return r.result, nil
}

var fastRetry = resilience.RetryConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

func TestLoadInto_RetriesTransientErrors(t *testing.T) {
	tt, err := sampleBuilder().Build()
	require.NoError(t, err)
	repo := &flakyRepository{failures: 2, result: tt}
	store := timetable.NewStore()

	require.NoError(t, timetable.LoadInto(context.Background(), store, repo, fastRetry, zerolog.Nop()))

	assert.Equal(t, 3, repo.calls)
	assert.True(t, store.Loaded())
}

func TestLoadInto_InvalidTimetableIsPermanent(t *testing.T) {
	repo := &flakyRepository{err: fmt.Errorf("%w: route R: no trips", timetable.ErrInvalidTimetable)}
	store := timetable.NewStore()

	err := timetable.LoadInto(context.Background(), store, repo, fastRetry, zerolog.Nop())

	assert.ErrorIs(t, err, timetable.ErrInvalidTimetable)
	assert.Equal(t, 1, repo.calls)
	assert.False(t, store.Loaded())
}

func TestStaticRepository(t *testing.T) {
	_, err := timetable.StaticRepository{}.Load(context.Background())
	assert.True(t, errors.Is(err, timetable.ErrTimetableNotLoaded))
}
