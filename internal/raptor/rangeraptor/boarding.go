package rangeraptor

import (
	"github.com/breatheroute/raptor/internal/raptor/transit"
	"github.com/breatheroute/raptor/internal/raptor/tripsearch"
)

// board finds the trip to board at pos after the arrival prevIdx and adds it to
// the rides of the route.
func (m *multiCriteria) board(round int, route *transit.Route, search tripsearch.Search, prevIdx int32, pos int) {
	prev := m.arena.get(prevIdx)
	earliest := prev.time + m.slack.BoardSlack(round)
	if wait := m.viaWait(prevIdx); wait > 0 {
		earliest = max(earliest, prev.time+wait)
	}

	if m.req.ConstrainedTransfers && route.Constraints.ExistAt(pos) {
		if m.boardWithConstrainedTransfer(route, prevIdx, pos, earliest) {
			return
		}
	}

	r, ok := search.Search(earliest, pos, tripsearch.Unbounded)
	if !ok {
		return
	}
	m.addRide(prevIdx, pos, r.Time, r.Trip, r.TripIndex, nil)
}

// boardWithConstrainedTransfer applies a constrained transfer from the trip the
// traveller last rode. It returns false if no constraint applies, in which case a
// regular boarding is done.
func (m *multiCriteria) boardWithConstrainedTransfer(route *transit.Route, prevIdx int32, pos, earliest int) bool {
	src := m.arena.previousTransit(prevIdx)
	if src == nil {
		return false
	}
	b, ok := route.Constraints.Find(route.Trips, pos, src.trip, int(src.alightPos), src.time-m.slack.Alight, earliest)
	if !ok {
		return false
	}
	if b.NotAllowed() {
		return true
	}
	// A guaranteed transfer does not help a traveller who walked in too late.
	if b.BoardTime < m.arena.get(prevIdx).time {
		return false
	}
	c := b.Constraint
	m.addRide(prevIdx, pos, b.BoardTime, b.Trip, b.Trip.Index, &c)
	return true
}

func (m *multiCriteria) addRide(prevIdx int32, pos, boardTime int, trip *transit.Trip, tripIndex int, c *transit.TransferConstraint) {
	prev := m.arena.get(prevIdx)
	first := prev.kind == accessArrival && !prev.access.HasRides()
	facilitated := c != nil && c.Facilitated()
	c1 := prev.c1 + m.cost.Boarding(first, boardTime-prev.time, facilitated)

	m.addToRides(ride{
		prev:       prevIdx,
		boardPos:   pos,
		boardTime:  boardTime,
		trip:       trip,
		tripIndex:  tripIndex,
		c1:         c1,
		relativeC1: c1 - m.cost.Transit(boardTime),
		c2:         int(prev.c2),
		constraint: c,
	})
}

// addToRides keeps the rides of the current route Pareto optimal.
func (m *multiCriteria) addToRides(r ride) {
	for i := range m.rides {
		e := &m.rides[i]
		if !rideDominates(&r, e) {
			return
		}
	}
	kept := m.rides[:0]
	for _, e := range m.rides {
		if rideDominates(&r, &e) && !rideDominates(&e, &r) {
			continue
		}
		kept = append(kept, e)
	}
	m.rides = append(kept, r)
}
