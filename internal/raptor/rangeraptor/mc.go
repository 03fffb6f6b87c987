package rangeraptor

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/breatheroute/raptor/internal/raptor/passthrough"
	"github.com/breatheroute/raptor/internal/raptor/path"
	"github.com/breatheroute/raptor/internal/raptor/transit"
	"github.com/breatheroute/raptor/internal/raptor/tripsearch"
)

// ride is an ongoing trip while a route is relaxed.
type ride struct {
	prev       int32
	boardPos   int
	boardTime  int
	trip       *transit.Trip
	tripIndex  int
	c1         int
	relativeC1 int
	c2         int
	constraint *transit.TransferConstraint
}

// Rides on an earlier trip arrive earlier at every later stop; relativeC1 makes
// costs of rides boarded at different stops comparable.
func rideDominates(l, r *ride) bool {
	return l.tripIndex < r.tripIndex || l.relativeC1 < r.relativeC1 || l.c2 > r.c2
}

// multiCriteria is the multi-criteria strategy: arrivals are compared on arrival
// time, round, generalized cost, on-board arrival and pass-through progress.
type multiCriteria struct {
	data   transit.Data
	req    Request
	slack  transit.Slack
	cost   transit.CostCalculator
	via    passthrough.Points
	filter *bitset.BitSet

	latestArrival    int
	hasLatestArrival bool

	accessOnStreet map[int][]transit.AccessEgress
	accessOnBoard  map[int][]transit.AccessEgress
	egressByStop   map[int][]transit.AccessEgress
	egressStops    *bitset.BitSet

	destination *path.DestinationArrivals

	arena              *arena
	arrivals           *stopArrivals
	iterationDeparture int
	rides              []ride
	destinationMark    int

	stats *Stats
}

func newMultiCriteria(
	data transit.Data,
	req Request,
	opts Options,
	destination *path.DestinationArrivals,
	subs *Subscriptions,
	stats *Stats,
) *multiCriteria {
	m := &multiCriteria{
		data:           data,
		req:            req,
		slack:          req.Slack,
		cost:           transit.NewCostCalculator(req.Cost),
		via:            req.Via,
		filter:         opts.StopFilter,
		accessOnStreet: make(map[int][]transit.AccessEgress),
		accessOnBoard:  make(map[int][]transit.AccessEgress),
		egressByStop:   groupByStop(req.Egress),
		egressStops:    stopsOf(req.Egress, data.NumberOfStops()),
		destination:    destination,
		arena:          newArena(0),
		stats:          stats,
	}
	m.latestArrival, m.hasLatestArrival = req.latestArrival()

	for _, ae := range req.Access {
		if ae.HasRides() && ae.OnBoard {
			m.accessOnBoard[ae.Rides] = append(m.accessOnBoard[ae.Rides], ae)
		} else {
			m.accessOnStreet[ae.Rides] = append(m.accessOnStreet[ae.Rides], ae)
		}
	}

	subs.OnSetupIteration(m.setupIteration)
	subs.OnPrepareForNextRound(m.prepareForNextRound)
	subs.OnTransitsForRoundComplete(m.transitsForRoundComplete)
	subs.OnTransfersForRoundComplete(m.transfersForRoundComplete)
	subs.OnRoundComplete(m.roundComplete)
	subs.OnIterationComplete(m.iterationComplete)
	return m
}

func (m *multiCriteria) dominates(l, r int32) bool {
	a, b := m.arena.get(l), m.arena.get(r)
	return a.time < b.time ||
		a.round < b.round ||
		a.c1 < b.c1 ||
		(a.onBoard && !b.onBoard) ||
		a.c2 > b.c2
}

func (m *multiCriteria) setupIteration(departureTime int) {
	m.iterationDeparture = departureTime
	m.arena = newArena(m.arena.len())
	m.arrivals = newStopArrivals(m.data.NumberOfStops(), m.arena, m.dominates, m.egressStops, m.onEgressArrival)
	m.addAccess(m.accessOnStreet[0])
}

func (m *multiCriteria) prepareForNextRound(int) {
	m.arrivals.startRound()
	m.destinationMark = m.destination.Accepted()
}

func (m *multiCriteria) transitsForRoundComplete(round int) {
	m.arrivals.markPreviousRound()
	m.arrivals.commit()
	m.addAccess(m.accessOnBoard[round])
}

func (m *multiCriteria) transfersForRoundComplete(int) {
	m.arrivals.commit()
}

func (m *multiCriteria) roundComplete(round int, _ bool) {
	if round > 0 {
		m.addAccess(m.accessOnStreet[round])
	}
}

func (m *multiCriteria) iterationComplete(int) {
	m.stats.ArrivalsAccepted += m.arrivals.accepted
	m.stats.ArrivalsRejected += m.arrivals.rejected
}

func (m *multiCriteria) touchedPreviousRound() *bitset.BitSet {
	return m.arrivals.touchedPrevious
}

func (m *multiCriteria) isNewRoundAvailable() bool {
	return m.arrivals.newRoundAvailable()
}

func (m *multiCriteria) destinationReachedInRound() bool {
	return m.destination.Accepted() > m.destinationMark
}

// accepts applies the latest arrival time and the stop filter.
func (m *multiCriteria) accepts(stop, time int) bool {
	if m.hasLatestArrival && time > m.latestArrival {
		return false
	}
	return m.filter == nil || m.egressStops.Test(uint(stop)) || m.filter.Test(uint(stop))
}

func (m *multiCriteria) addAccess(paths []transit.AccessEgress) {
	for i := range paths {
		ae := paths[i]
		dep := ae.EarliestDepartureTime(m.iterationDeparture)
		if dep == transit.NotSet {
			continue
		}
		time := dep + ae.DurationInSearch()
		if !m.accepts(ae.Stop, time) {
			continue
		}
		idx := m.arena.add(arrival{
			kind:      accessArrival,
			onBoard:   ae.HasRides() && ae.OnBoard,
			stop:      int32(ae.Stop),
			round:     int32(ae.Rides),
			prev:      noArrival,
			c2:        int32(m.via.Next(0, ae.Stop)),
			time:      time,
			departure: dep,
			c1:        ae.C1,
			access:    &ae,
		})
		m.arrivals.add(idx)
	}
}

func (m *multiCriteria) relaxRoute(round int, route *transit.Route, search tripsearch.Search) {
	m.rides = m.rides[:0]
	stops := route.Pattern.Stops

	for pos, stop := range stops {
		for i := range m.rides {
			r := &m.rides[i]
			c2 := m.via.Next(r.c2, stop)
			m.alight(round, route, r, pos, stop, c2)
			if m.via.CountsOnBoard(r.c2) {
				r.c2 = c2
			}
		}

		if !m.arrivals.isTouchedPrevious(stop) {
			continue
		}
		recent := m.arrivals.recent(stop)
		for i := 0; i < recent.Len(); i++ {
			m.board(round, route, search, recent.At(i), pos)
		}
	}
}

func (m *multiCriteria) alight(round int, route *transit.Route, r *ride, pos, stop, c2 int) {
	alightTime := r.trip.Arrival(pos)
	time := alightTime + m.slack.Alight
	if !m.accepts(stop, time) {
		return
	}
	idx := m.arena.add(arrival{
		kind:       transitArrival,
		onBoard:    true,
		stop:       int32(stop),
		round:      int32(round),
		prev:       r.prev,
		c2:         int32(c2),
		time:       time,
		departure:  r.boardTime,
		c1:         r.c1 + m.cost.Transit(alightTime-r.boardTime),
		route:      route,
		trip:       r.trip,
		boardPos:   int32(r.boardPos),
		alightPos:  int32(pos),
		constraint: r.constraint,
	})
	m.arrivals.addLater(idx)
}

func (m *multiCriteria) relaxTransfers(round int) {
	touched := m.arrivals.touched
	for s, ok := touched.NextSet(0); ok; s, ok = touched.NextSet(s + 1) {
		stop := int(s)
		recent := m.arrivals.recent(stop)
		for i := 0; i < recent.Len(); i++ {
			idx := recent.At(i)
			from := m.arena.get(idx)
			if !from.onBoard {
				continue
			}
			for _, tx := range m.data.TransfersFrom(stop) {
				if tx.Stop == stop {
					continue
				}
				departure := from.time + m.viaWait(idx)
				time := departure + tx.Duration
				if !m.accepts(tx.Stop, time) {
					continue
				}
				m.arrivals.addLater(m.arena.add(arrival{
					kind:      transferArrival,
					stop:      int32(tx.Stop),
					round:     int32(round),
					prev:      idx,
					c2:        int32(m.via.Next(int(from.c2), tx.Stop)),
					time:      time,
					departure: departure,
					c1:        from.c1 + tx.C1,
					transfer:  tx,
				}))
			}
		}
	}
}

// onEgressArrival is called for every arrival accepted at an egress stop. It
// completes the journey with each egress path from the stop and offers the
// result to the destination.
func (m *multiCriteria) onEgressArrival(idx int32) {
	a := m.arena.get(idx)
	if !m.via.Satisfied(int(a.c2)) {
		return
	}
	for _, egress := range m.egressByStop[int(a.stop)] {
		// Walking after a walk is not a journey; the transfer already covers it.
		if !egress.HasRides() && !a.onBoard {
			continue
		}
		dep := m.slack.EgressDepartureTime(egress, a.time)
		if wait := m.viaWait(idx); dep != transit.NotSet && wait > 0 {
			dep = max(dep, a.time+wait)
		}
		if dep == transit.NotSet {
			continue
		}
		if m.hasLatestArrival && dep+egress.DurationInSearch() > m.latestArrival {
			continue
		}
		m.destination.Add(m.buildPath(idx, egress, dep))
	}
}

// viaWait is the minimum stay at the stop of arrival idx when the arrival
// completed a visit with a minimum wait.
func (m *multiCriteria) viaWait(idx int32) int {
	a := m.arena.get(idx)
	prev := 0
	if a.prev != noArrival {
		prev = int(m.arena.get(a.prev).c2)
	}
	return m.via.MinWaitAt(prev, int(a.c2), int(a.stop))
}
