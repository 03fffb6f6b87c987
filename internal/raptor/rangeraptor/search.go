package rangeraptor

import (
	"context"
	"fmt"

	"github.com/breatheroute/raptor/internal/raptor/passthrough"
	"github.com/breatheroute/raptor/internal/raptor/path"
	"github.com/breatheroute/raptor/internal/raptor/transit"
)

// Result is the outcome of a multi-criteria search.
type Result struct {
	Paths []*path.Path
	Stats Stats
}

// RouteMultiCriteria runs a forward multi-criteria range-raptor search and
// returns the Pareto-optimal paths, sorted by arrival time.
func RouteMultiCriteria(ctx context.Context, data transit.Data, req Request, opts Options) (*Result, error) {
	if err := req.Validate(data); err != nil {
		return nil, err
	}

	stats := &Stats{}
	destination := path.NewDestinationArrivals(req.Timetable, passthrough.NewCalculator(req.Via).Validator())
	subs := &Subscriptions{}
	strategy := newMultiCriteria(data, req, opts, destination, subs, stats)
	if opts.Subscribe != nil {
		opts.Subscribe(subs)
	}

	w := newWorker(workerConfig{
		data:                data,
		calc:                NewCalculator(true),
		strategy:            strategy,
		publisher:           subs.Publisher(),
		departureTime:       req.EarliestDepartureTime,
		window:              req.SearchWindow,
		step:                req.iterationStep(),
		maxRounds:           req.maxRounds(),
		minRounds:           maxRides(req.Access),
		timeDependentAccess: hasOpeningHours(req.Access),
		logger:              opts.Logger,
		stats:               stats,
	})
	err := w.route(ctx)
	stats.PathsInvalid = destination.Invalid()
	if err != nil {
		return nil, err
	}

	paths := destination.Paths()
	path.Sort(paths)
	return &Result{Paths: paths, Stats: *stats}, nil
}

// RouteHeuristics runs a best-time search without slack. The forward search
// covers the departure window; the reverse search runs once from the latest
// arrival time toward the origin, with access and egress swapped. Without slack
// every stop a slack-aware search can reach is reached here too.
func RouteHeuristics(ctx context.Context, data transit.Data, req Request, forward bool, opts Options) (*Heuristics, error) {
	if err := req.Validate(data); err != nil {
		return nil, err
	}
	lat, hasLAT := req.latestArrival()

	cfg := bestTimesConfig{
		data:      data,
		calc:      NewCalculator(forward),
		access:    req.Access,
		egress:    req.Egress,
		bound:     lat,
		hasBound:  hasLAT,
		maxRounds: req.maxRounds(),
	}
	departureTime, window := req.EarliestDepartureTime, req.SearchWindow
	if !forward {
		if !hasLAT {
			return nil, fmt.Errorf("%w: reverse search needs a latest arrival time", ErrInvalidRequest)
		}
		cfg.access, cfg.egress = req.Egress, req.Access
		cfg.bound, cfg.hasBound = req.EarliestDepartureTime, true
		departureTime, window = lat, 0
	}

	stats := &Stats{}
	subs := &Subscriptions{}
	strategy := newBestTimes(cfg, subs)
	if opts.Subscribe != nil {
		opts.Subscribe(subs)
	}

	w := newWorker(workerConfig{
		data:                data,
		calc:                cfg.calc,
		strategy:            strategy,
		publisher:           subs.Publisher(),
		departureTime:       departureTime,
		window:              window,
		step:                req.iterationStep(),
		maxRounds:           req.maxRounds(),
		minRounds:           maxRides(cfg.access),
		timeDependentAccess: hasOpeningHours(cfg.access),
		logger:              opts.Logger,
		stats:               stats,
	})
	if err := w.route(ctx); err != nil {
		return nil, err
	}

	h := strategy.result
	h.Stats = *stats
	return h, nil
}
