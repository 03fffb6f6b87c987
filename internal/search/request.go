package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/breatheroute/raptor/internal/raptor/passthrough"
	"github.com/breatheroute/raptor/internal/raptor/rangeraptor"
	"github.com/breatheroute/raptor/internal/raptor/transit"
	"github.com/breatheroute/raptor/internal/timetable"
)

// Defaults fill the parts of a request a caller leaves out.
type Defaults struct {
	SearchWindow         int
	IterationStep        int
	MaxTransfers         int
	Slack                transit.Slack
	Cost                 transit.CostFactors
	OptimizeTransfers    bool
	ConstrainedTransfers bool
}

// DefaultDefaults returns the defaults used when none are configured.
func DefaultDefaults() Defaults {
	return Defaults{
		SearchWindow:         40 * 60,
		IterationStep:        rangeraptor.DefaultIterationStep,
		MaxTransfers:         5,
		Cost:                 transit.DefaultCostFactors(),
		OptimizeTransfers:    true,
		ConstrainedTransfers: true,
	}
}

// build validates req and resolves it against tt.
func (s *Service) build(tt *timetable.Timetable, req Request) (rangeraptor.Request, error) {
	if err := s.validate.Struct(req); err != nil {
		return rangeraptor.Request{}, fmt.Errorf("%w: %s", ErrInvalidRequest, describe(err))
	}

	access, err := resolvePaths(tt, req.Access)
	if err != nil {
		return rangeraptor.Request{}, fmt.Errorf("%w: access: %w", ErrInvalidRequest, err)
	}
	egress, err := resolvePaths(tt, req.Egress)
	if err != nil {
		return rangeraptor.Request{}, fmt.Errorf("%w: egress: %w", ErrInvalidRequest, err)
	}
	via, err := resolveVia(tt, req.Via)
	if err != nil {
		return rangeraptor.Request{}, fmt.Errorf("%w: via: %w", ErrInvalidRequest, err)
	}

	out := rangeraptor.Request{
		EarliestDepartureTime: req.EarliestDepartureTime,
		LatestArrivalTime:     req.LatestArrivalTime,
		SearchWindow:          s.defaults.SearchWindow,
		IterationStep:         s.defaults.IterationStep,
		MaxTransfers:          s.defaults.MaxTransfers,
		Access:                access,
		Egress:                egress,
		Slack:                 s.defaults.Slack,
		Cost:                  s.defaults.Cost,
		Via:                   via,
		Timetable:             req.Timetable,
		ConstrainedTransfers:  s.defaults.ConstrainedTransfers,
	}
	if req.SearchWindow != nil {
		out.SearchWindow = *req.SearchWindow
	}
	if req.MaxTransfers != nil {
		out.MaxTransfers = *req.MaxTransfers
	}
	if err := out.Validate(tt); err != nil {
		return rangeraptor.Request{}, err
	}
	return out, nil
}

func resolvePaths(tt *timetable.Timetable, paths []AccessPath) ([]transit.AccessEgress, error) {
	out := make([]transit.AccessEgress, 0, len(paths))
	for _, p := range paths {
		stop, ok := tt.StopIndex(p.StopID)
		if !ok {
			return nil, fmt.Errorf("unknown stop %q", p.StopID)
		}
		c1 := transit.ToCost(p.Duration)
		if p.Cost != nil {
			c1 = transit.ToCost(*p.Cost)
		}

		ae := transit.Flex(stop, p.Duration, c1, p.Rides)
		if p.OpensAt != nil && p.ClosesAt != nil {
			if *p.OpensAt < 0 || *p.ClosesAt < 0 {
				return nil, fmt.Errorf("negative opening hours at stop %q", p.StopID)
			}
			ae = ae.WithOpeningHours(*p.OpensAt, *p.ClosesAt)
		}
		if p.TimePenalty > 0 {
			ae = ae.WithTimePenalty(p.TimePenalty)
		}
		out = append(out, ae)
	}
	return out, nil
}

func resolveVia(tt *timetable.Timetable, locations []ViaLocation) (passthrough.Points, error) {
	if len(locations) == 0 {
		return passthrough.Points{}, nil
	}
	out := make([]passthrough.Location, 0, len(locations))
	for i, loc := range locations {
		stops := make([]int, 0, len(loc.StopIDs))
		for _, id := range loc.StopIDs {
			stop, ok := tt.StopIndex(id)
			if !ok {
				return passthrough.Points{}, fmt.Errorf("location %d: unknown stop %q", i, id)
			}
			stops = append(stops, stop)
		}
		kind := passthrough.Visit
		if loc.PassThrough {
			kind = passthrough.PassThrough
		}
		out = append(out, passthrough.NewLocation(loc.Label, kind, stops...).WithMinWait(loc.MinWait))
	}
	return passthrough.NewPoints(out...), nil
}

// describe flattens validator errors into one line.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
