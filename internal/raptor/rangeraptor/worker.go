// Package rangeraptor implements the range-raptor search: rounds of transit and
// transfer relaxation, repeated for every departure time of a search window.
package rangeraptor

import (
	"context"
	"fmt"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/rs/zerolog"

	"github.com/breatheroute/raptor/internal/raptor/transit"
	"github.com/breatheroute/raptor/internal/raptor/tripsearch"
)

// routingStrategy is the state and relaxation logic plugged into the driver.
// Iteration setup, marking and commits are wired through lifecycle callbacks.
type routingStrategy interface {
	relaxRoute(round int, route *transit.Route, search tripsearch.Search)
	relaxTransfers(round int)
	touchedPreviousRound() *bitset.BitSet
	isNewRoundAvailable() bool
	destinationReachedInRound() bool
}

// worker drives a strategy through iterations and rounds.
type worker struct {
	data      transit.Data
	calc      Calculator
	strategy  routingStrategy
	publisher *Publisher

	iterations          []int
	maxRounds           int
	minRounds           int
	step                int
	timeDependentAccess bool

	routes *bitset.BitSet
	logger zerolog.Logger
	stats  *Stats
}

type workerConfig struct {
	data                transit.Data
	calc                Calculator
	strategy            routingStrategy
	publisher           *Publisher
	departureTime       int
	window              int
	step                int
	maxRounds           int
	minRounds           int
	timeDependentAccess bool
	logger              zerolog.Logger
	stats               *Stats
}

func newWorker(cfg workerConfig) *worker {
	return &worker{
		data:                cfg.data,
		calc:                cfg.calc,
		strategy:            cfg.strategy,
		publisher:           cfg.publisher,
		iterations:          cfg.calc.IterationTimes(cfg.departureTime, cfg.window, cfg.step),
		maxRounds:           cfg.maxRounds,
		minRounds:           cfg.minRounds,
		step:                cfg.step,
		timeDependentAccess: cfg.timeDependentAccess,
		routes:              bitset.New(uint(cfg.data.NumberOfRoutes())),
		logger:              cfg.logger,
		stats:               cfg.stats,
	}
}

// route runs every iteration. The context is checked before each round.
func (w *worker) route(ctx context.Context) error {
	start := time.Now()
	defer func() { w.stats.Duration += time.Since(start) }()

	for i, departureTime := range w.iterations {
		w.publisher.setupIteration(departureTime)
		w.stats.Iterations++

		round := 0
		for w.hasMoreRounds(round) {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: iteration %s round %d: %w",
					ErrSearchTimeout, transit.FormatTime(departureTime), round+1, err)
			}
			round++
			w.stats.Rounds++

			w.publisher.prepareForNextRound(round)
			w.relaxTransit(round, w.useExactSearch(i, round))
			w.safely("transit commit", round, func() { w.publisher.transitsForRoundComplete(round) })
			w.safely("transfers", round, func() { w.strategy.relaxTransfers(round) })
			w.safely("transfer commit", round, func() { w.publisher.transfersForRoundComplete(round) })
			w.publisher.roundComplete(round, w.strategy.destinationReachedInRound())
		}
		w.publisher.iterationComplete(departureTime)
	}
	w.publisher.searchComplete()
	return nil
}

func (w *worker) hasMoreRounds(round int) bool {
	if round >= w.maxRounds {
		return false
	}
	return round < w.minRounds || w.strategy.isNewRoundAvailable()
}

// useExactSearch limits the first boarding of every iteration but the first to
// trips the previous iteration could not reach. Opening hours shift access
// departures away from the iteration time, so the limit is not used with them.
func (w *worker) useExactSearch(iteration, round int) bool {
	return iteration > 0 && round == 1 && !w.timeDependentAccess
}

func (w *worker) relaxTransit(round int, exact bool) {
	w.routes.ClearAll()
	touched := w.strategy.touchedPreviousRound()
	for stop, ok := touched.NextSet(0); ok; stop, ok = touched.NextSet(stop + 1) {
		for _, r := range w.data.RoutesByStop(int(stop)) {
			w.routes.Set(uint(r))
		}
	}

	for r, ok := w.routes.NextSet(0); ok; r, ok = w.routes.NextSet(r + 1) {
		route := w.data.Route(int(r))
		search := w.calc.TripSearch(route)
		if exact {
			search = tripsearch.NewExactSearch(search, w.step, w.calc.Forward())
		}
		w.relaxRouteSafely(round, route, search)
	}
}

// relaxRouteSafely skips a route whose relaxation panics, so one malformed
// pattern does not abort the search.
func (w *worker) relaxRouteSafely(round int, route *transit.Route, search tripsearch.Search) {
	defer func() {
		if rec := recover(); rec != nil {
			w.stats.RouteFailures++
			w.logger.Warn().
				Int("route", route.Index).
				Str("route_name", route.Name).
				Int("round", round).
				Interface("panic", rec).
				Msg("skipping route after relaxation failure")
		}
	}()
	w.strategy.relaxRoute(round, route, search)
}

// safely runs one transfer stage of a round. A panic drops what the stage had
// not yet committed; arrivals already in the stop sets are kept.
func (w *worker) safely(stage string, round int, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			w.stats.StageFailures++
			w.logger.Warn().
				Str("stage", stage).
				Int("round", round).
				Interface("panic", rec).
				Msg("skipping round stage after failure")
		}
	}()
	fn()
}
