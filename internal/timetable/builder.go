package timetable

import (
	"errors"
	"fmt"
	"sort"

	"github.com/breatheroute/raptor/internal/raptor/transit"
)

// ConstrainedTransferSpec describes a constrained transfer by trip ids. An
// empty ToTrip applies the rule to every trip of ToRoute.
type ConstrainedTransferSpec struct {
	FromTrip    string
	FromStopPos int
	ToRoute     string
	ToTrip      string
	ToStopPos   int
	Constraint  transit.TransferConstraint
}

type routeSpec struct {
	name  string
	stops []int
	trips []*transit.Trip
}

type transferSpec struct {
	from, to string
	duration int
	c1       int
}

// Builder assembles a Timetable. Errors are collected and returned by Build.
type Builder struct {
	stops       []Stop
	stopIndex   map[string]int
	routes      []*routeSpec
	routeIndex  map[string]int
	tripIDs     map[string]struct{}
	transfers   []transferSpec
	constrained []ConstrainedTransferSpec
	errs        []error
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		stopIndex:  make(map[string]int),
		routeIndex: make(map[string]int),
		tripIDs:    make(map[string]struct{}),
	}
}

func (b *Builder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

// AddStop adds a stop and returns its index.
func (b *Builder) AddStop(id, name string) int {
	if i, ok := b.stopIndex[id]; ok {
		b.fail("duplicate stop %q", id)
		return i
	}
	i := len(b.stops)
	b.stops = append(b.stops, Stop{Index: i, ID: id, Name: name})
	b.stopIndex[id] = i
	return i
}

// AddStops adds stops named after their ids.
func (b *Builder) AddStops(ids ...string) *Builder {
	for _, id := range ids {
		b.AddStop(id, id)
	}
	return b
}

// AddRoute adds a route serving the given stops in order.
func (b *Builder) AddRoute(name string, stopIDs ...string) *Builder {
	if _, ok := b.routeIndex[name]; ok {
		b.fail("duplicate route %q", name)
		return b
	}
	if len(stopIDs) < 2 {
		b.fail("route %q: needs at least two stops", name)
		return b
	}
	stops := make([]int, 0, len(stopIDs))
	for _, id := range stopIDs {
		i, ok := b.stopIndex[id]
		if !ok {
			b.fail("route %q: unknown stop %q", name, id)
			return b
		}
		stops = append(stops, i)
	}
	b.routeIndex[name] = len(b.routes)
	b.routes = append(b.routes, &routeSpec{name: name, stops: stops})
	return b
}

// AddTrip adds a trip without dwell time: it arrives and departs at the same time.
func (b *Builder) AddTrip(route, tripID string, times ...int) *Builder {
	return b.AddTripTimes(route, tripID, times, times)
}

// AddTripTimes adds a trip with separate arrival and departure times.
func (b *Builder) AddTripTimes(route, tripID string, arrivals, departures []int) *Builder {
	i, ok := b.routeIndex[route]
	if !ok {
		b.fail("trip %q: unknown route %q", tripID, route)
		return b
	}
	if _, dup := b.tripIDs[tripID]; dup {
		b.fail("duplicate trip %q", tripID)
		return b
	}
	r := b.routes[i]
	if len(arrivals) != len(r.stops) || len(departures) != len(r.stops) {
		b.fail("trip %q: %d stops expected, got %d arrivals and %d departures",
			tripID, len(r.stops), len(arrivals), len(departures))
		return b
	}
	for pos := range arrivals {
		if departures[pos] < arrivals[pos] {
			b.fail("trip %q: departs before it arrives at position %d", tripID, pos)
			return b
		}
		if pos > 0 && arrivals[pos] < departures[pos-1] {
			b.fail("trip %q: time decreases at position %d", tripID, pos)
			return b
		}
	}
	b.tripIDs[tripID] = struct{}{}
	r.trips = append(r.trips, &transit.Trip{
		ID:         tripID,
		Arrivals:   append([]int(nil), arrivals...),
		Departures: append([]int(nil), departures...),
	})
	return b
}

// AddTransfer adds a one-way street transfer.
func (b *Builder) AddTransfer(from, to string, duration, c1 int) *Builder {
	b.transfers = append(b.transfers, transferSpec{from: from, to: to, duration: duration, c1: c1})
	return b
}

// AddWalk adds a transfer in both directions with a cost equal to its duration.
func (b *Builder) AddWalk(from, to string, duration int) *Builder {
	c1 := transit.ToCost(duration)
	return b.AddTransfer(from, to, duration, c1).AddTransfer(to, from, duration, c1)
}

// AddConstrainedTransfer adds a constrained transfer.
func (b *Builder) AddConstrainedTransfer(spec ConstrainedTransferSpec) *Builder {
	b.constrained = append(b.constrained, spec)
	return b
}

// Build validates the input and returns the timetable.
func (b *Builder) Build() (*Timetable, error) {
	t := &Timetable{
		stops:         append([]Stop(nil), b.stops...),
		stopIndex:     make(map[string]int, len(b.stopIndex)),
		routeIndex:    make(map[string]int, len(b.routeIndex)),
		routesByStop:  make([][]int, len(b.stops)),
		transfersFrom: make([][]transit.Transfer, len(b.stops)),
		transfersTo:   make([][]transit.Transfer, len(b.stops)),
	}
	for id, i := range b.stopIndex {
		t.stopIndex[id] = i
	}

	trips := make(map[string]*transit.Trip)
	tripRoute := make(map[string]*transit.Route)
	for _, spec := range b.routes {
		route, err := buildRoute(len(t.routes), spec)
		if err != nil {
			b.errs = append(b.errs, err)
			continue
		}
		t.routeIndex[spec.name] = route.Index
		t.routes = append(t.routes, route)
		for _, trip := range route.Trips {
			trips[trip.ID] = trip
			tripRoute[trip.ID] = route
		}
		seen := make(map[int]bool)
		for _, stop := range route.Pattern.Stops {
			if !seen[stop] {
				t.routesByStop[stop] = append(t.routesByStop[stop], route.Index)
				seen[stop] = true
			}
		}
	}

	for _, tx := range b.transfers {
		from, okFrom := t.stopIndex[tx.from]
		to, okTo := t.stopIndex[tx.to]
		if !okFrom || !okTo {
			b.fail("transfer %q -> %q: unknown stop", tx.from, tx.to)
			continue
		}
		if tx.duration < 0 || tx.c1 < 0 {
			b.fail("transfer %q -> %q: negative duration or cost", tx.from, tx.to)
			continue
		}
		t.transfersFrom[from] = append(t.transfersFrom[from], transit.Transfer{Stop: to, Duration: tx.duration, C1: tx.c1})
		t.transfersTo[to] = append(t.transfersTo[to], transit.Transfer{Stop: from, Duration: tx.duration, C1: tx.c1})
	}

	for _, spec := range b.constrained {
		if err := t.addConstrainedTransfer(spec, trips, tripRoute); err != nil {
			b.errs = append(b.errs, err)
		}
	}

	if len(b.errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTimetable, errors.Join(b.errs...))
	}
	return t, nil
}

func buildRoute(index int, spec *routeSpec) (*transit.Route, error) {
	if len(spec.trips) == 0 {
		return nil, fmt.Errorf("route %q: no trips", spec.name)
	}
	trips := append([]*transit.Trip(nil), spec.trips...)
	sort.SliceStable(trips, func(i, j int) bool {
		return trips[i].Departures[0] < trips[j].Departures[0]
	})
	for i, trip := range trips {
		trip.Index = i
		if i == 0 {
			continue
		}
		prev := trips[i-1]
		for pos := range trip.Arrivals {
			if trip.Arrivals[pos] < prev.Arrivals[pos] || trip.Departures[pos] < prev.Departures[pos] {
				return nil, fmt.Errorf("route %q: trip %q overtakes trip %q at position %d",
					spec.name, trip.ID, prev.ID, pos)
			}
		}
	}
	return &transit.Route{
		Index:   index,
		Name:    spec.name,
		Pattern: &transit.Pattern{ID: spec.name, Stops: spec.stops},
		Trips:   trips,
	}, nil
}

func (t *Timetable) addConstrainedTransfer(
	spec ConstrainedTransferSpec,
	trips map[string]*transit.Trip,
	tripRoute map[string]*transit.Route,
) error {
	from, ok := trips[spec.FromTrip]
	if !ok {
		return fmt.Errorf("constrained transfer: unknown source trip %q", spec.FromTrip)
	}
	if spec.FromStopPos < 0 || spec.FromStopPos >= len(from.Arrivals) {
		return fmt.Errorf("constrained transfer: source position %d out of range for trip %q", spec.FromStopPos, spec.FromTrip)
	}
	i, ok := t.routeIndex[spec.ToRoute]
	if !ok {
		return fmt.Errorf("constrained transfer: unknown target route %q", spec.ToRoute)
	}
	route := t.routes[i]
	if spec.ToStopPos < 0 || spec.ToStopPos >= route.Pattern.NumberOfStops() {
		return fmt.Errorf("constrained transfer: target position %d out of range for route %q", spec.ToStopPos, spec.ToRoute)
	}

	var to *transit.Trip
	if spec.ToTrip != "" {
		to, ok = trips[spec.ToTrip]
		if !ok || tripRoute[spec.ToTrip] != route {
			return fmt.Errorf("constrained transfer: trip %q is not on route %q", spec.ToTrip, spec.ToRoute)
		}
	}

	if route.Constraints == nil {
		route.Constraints = transit.NewRouteConstraints()
	}
	route.Constraints.Add(transit.ConstrainedTransfer{
		FromTrip:    from,
		FromStopPos: spec.FromStopPos,
		ToTrip:      to,
		ToStopPos:   spec.ToStopPos,
		Constraint:  spec.Constraint,
	})
	t.constrained++
	return nil
}
