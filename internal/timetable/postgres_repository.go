package timetable

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/breatheroute/raptor/internal/raptor/transit"
)

// PostgresRepository loads the timetable from PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL timetable repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Load reads stops, patterns, trips, transfers and constrained transfers and
// builds a timetable from them.
func (r *PostgresRepository) Load(ctx context.Context) (*Timetable, error) {
	b := NewBuilder()
	steps := []struct {
		name string
		load func(context.Context, *Builder) error
	}{
		{"stops", r.loadStops},
		{"patterns", r.loadPatterns},
		{"trips", r.loadTrips},
		{"transfers", r.loadTransfers},
		{"constrained transfers", r.loadConstrainedTransfers},
	}
	for _, step := range steps {
		if err := step.load(ctx, b); err != nil {
			return nil, fmt.Errorf("load %s: %w", step.name, err)
		}
	}
	return b.Build()
}

func (r *PostgresRepository) loadStops(ctx context.Context, b *Builder) error {
	query := `
		SELECT id, name
		FROM stops
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		b.AddStop(id, name)
	}
	return rows.Err()
}

func (r *PostgresRepository) loadPatterns(ctx context.Context, b *Builder) error {
	query := `
		SELECT name, stop_ids
		FROM patterns
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var stops []string
		if err := rows.Scan(&name, &stops); err != nil {
			return err
		}
		b.AddRoute(name, stops...)
	}
	return rows.Err()
}

func (r *PostgresRepository) loadTrips(ctx context.Context, b *Builder) error {
	query := `
		SELECT id, pattern, arrivals, departures
		FROM trips
		ORDER BY pattern, id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, pattern string
		var arrivals, departures []int32
		if err := rows.Scan(&id, &pattern, &arrivals, &departures); err != nil {
			return err
		}
		b.AddTripTimes(pattern, id, toInts(arrivals), toInts(departures))
	}
	return rows.Err()
}

func (r *PostgresRepository) loadTransfers(ctx context.Context, b *Builder) error {
	query := `
		SELECT from_stop, to_stop, duration_seconds, cost
		FROM transfers
		ORDER BY from_stop, to_stop
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var from, to string
		var duration, cost int32
		if err := rows.Scan(&from, &to, &duration, &cost); err != nil {
			return err
		}
		b.AddTransfer(from, to, int(duration), transit.ToCost(int(cost)))
	}
	return rows.Err()
}

func (r *PostgresRepository) loadConstrainedTransfers(ctx context.Context, b *Builder) error {
	query := `
		SELECT
			from_trip, from_stop_pos, to_route, to_trip, to_stop_pos,
			not_allowed, guaranteed, stay_seated, min_transfer_time
		FROM constrained_transfers
		ORDER BY from_trip, from_stop_pos
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			spec                  ConstrainedTransferSpec
			toTrip                *string
			fromPos, toPos, minTx int32
		)
		err := rows.Scan(
			&spec.FromTrip,
			&fromPos,
			&spec.ToRoute,
			&toTrip,
			&toPos,
			&spec.Constraint.NotAllowed,
			&spec.Constraint.Guaranteed,
			&spec.Constraint.StaySeated,
			&minTx,
		)
		if err != nil {
			return err
		}
		if toTrip != nil {
			spec.ToTrip = *toTrip
		}
		spec.FromStopPos, spec.ToStopPos = int(fromPos), int(toPos)
		spec.Constraint.MinTransferTime = int(minTx)
		b.AddConstrainedTransfer(spec)
	}
	return rows.Err()
}

func toInts(in []int32) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

func isInvalid(err error) bool {
	return errors.Is(err, ErrInvalidTimetable)
}
