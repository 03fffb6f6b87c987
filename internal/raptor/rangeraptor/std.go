package rangeraptor

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/breatheroute/raptor/internal/raptor/transit"
	"github.com/breatheroute/raptor/internal/raptor/tripsearch"
)

// Heuristics is the outcome of a best-time search. Durations are measured from
// the iteration time in the search direction.
type Heuristics struct {
	Forward bool

	// DestinationReached is set if any egress (or, in reverse, access) path was reached.
	DestinationReached  bool
	MinTravelDuration   int
	MinDestinationRides int

	Stats Stats

	reached     *bitset.BitSet
	minDuration []int
	minRides    []int
}

func newHeuristics(forward bool, numberOfStops int) *Heuristics {
	h := &Heuristics{
		Forward:     forward,
		reached:     bitset.New(uint(numberOfStops)),
		minDuration: make([]int, numberOfStops),
		minRides:    make([]int, numberOfStops),
	}
	for i := range h.minDuration {
		h.minDuration[i] = unreachedDuration
		h.minRides[i] = unreachedDuration
	}
	return h
}

const unreachedDuration = int(^uint32(0) >> 1)

// Reached reports whether a stop was reached.
func (h *Heuristics) Reached(stop int) bool {
	return h.reached.Test(uint(stop))
}

// ReachedStops returns the set of reached stops. The set must not be modified.
func (h *Heuristics) ReachedStops() *bitset.BitSet {
	return h.reached
}

// MinDuration returns the shortest travel time to a stop.
func (h *Heuristics) MinDuration(stop int) (int, bool) {
	d := h.minDuration[stop]
	return d, d != unreachedDuration
}

// MinRides returns the fewest rides needed to reach a stop.
func (h *Heuristics) MinRides(stop int) (int, bool) {
	r := h.minRides[stop]
	return r, r != unreachedDuration
}

// bestTimes is the single-criterion strategy. It keeps the best time per stop
// and round across iterations, which is what makes range-raptor cheap. An
// arrival is kept if no arrival in the same or an earlier round is as good, so
// the result stays exact for every round limit.
type bestTimes struct {
	data  transit.Data
	calc  Calculator
	slack transit.Slack

	accessOnStreet map[int][]transit.AccessEgress
	accessOnBoard  map[int][]transit.AccessEgress
	egressByStop   map[int][]transit.AccessEgress
	egressStops    *bitset.BitSet

	bound    int
	hasBound bool

	rounds        [][]int
	transitRounds [][]int

	touched         *bitset.BitSet
	touchedPrevious *bitset.BitSet
	touchedTransit  *bitset.BitSet

	iterationTime      int
	destinationInRound bool
	result             *Heuristics
}

type bestTimesConfig struct {
	data      transit.Data
	calc      Calculator
	slack     transit.Slack
	access    []transit.AccessEgress
	egress    []transit.AccessEgress
	bound     int
	hasBound  bool
	maxRounds int
}

func newBestTimes(cfg bestTimesConfig, subs *Subscriptions) *bestTimes {
	n := cfg.data.NumberOfStops()
	s := &bestTimes{
		data:            cfg.data,
		calc:            cfg.calc,
		slack:           cfg.slack,
		accessOnStreet:  make(map[int][]transit.AccessEgress),
		accessOnBoard:   make(map[int][]transit.AccessEgress),
		egressByStop:    groupByStop(cfg.egress),
		egressStops:     stopsOf(cfg.egress, n),
		bound:           cfg.bound,
		hasBound:        cfg.hasBound,
		rounds:          make([][]int, cfg.maxRounds+1),
		transitRounds:   make([][]int, cfg.maxRounds+1),
		touched:         bitset.New(uint(n)),
		touchedPrevious: bitset.New(uint(n)),
		touchedTransit:  bitset.New(uint(n)),
		result:          newHeuristics(cfg.calc.Forward(), n),
	}
	for k := range s.rounds {
		s.rounds[k] = unreachedTimes(n, cfg.calc)
		s.transitRounds[k] = unreachedTimes(n, cfg.calc)
	}
	s.result.MinTravelDuration = unreachedDuration
	s.result.MinDestinationRides = unreachedDuration

	for _, ae := range cfg.access {
		if ae.HasRides() && ae.OnBoard {
			s.accessOnBoard[ae.Rides] = append(s.accessOnBoard[ae.Rides], ae)
		} else {
			s.accessOnStreet[ae.Rides] = append(s.accessOnStreet[ae.Rides], ae)
		}
	}

	subs.OnSetupIteration(s.setupIteration)
	subs.OnPrepareForNextRound(s.prepareForNextRound)
	subs.OnTransitsForRoundComplete(func(round int) { s.addAccess(round, s.accessOnBoard[round], true) })
	subs.OnRoundComplete(func(round int, _ bool) {
		if round > 0 {
			s.addAccess(round, s.accessOnStreet[round], false)
		}
	})
	return s
}

func unreachedTimes(n int, calc Calculator) []int {
	times := make([]int, n)
	for i := range times {
		times[i] = calc.Unreached()
	}
	return times
}

func (s *bestTimes) setupIteration(t int) {
	s.iterationTime = t
	s.touched.ClearAll()
	s.touchedPrevious.ClearAll()
	s.addAccess(0, s.accessOnStreet[0], false)
}

func (s *bestTimes) prepareForNextRound(int) {
	s.touched, s.touchedPrevious = s.touchedPrevious, s.touched
	s.touched.ClearAll()
	s.touchedTransit.ClearAll()
	s.destinationInRound = false
}

func (s *bestTimes) touchedPreviousRound() *bitset.BitSet { return s.touchedPrevious }
func (s *bestTimes) isNewRoundAvailable() bool { return s.touched.Any() }
func (s *bestTimes) destinationReachedInRound() bool { return s.destinationInRound }

func (s *bestTimes) accepts(t int) bool {
	return !s.hasBound || !s.calc.Better(s.bound, t)
}

func (s *bestTimes) addAccess(round int, paths []transit.AccessEgress, onBoard bool) {
	for _, ae := range paths {
		dep := s.calc.AccessDeparture(ae, s.iterationTime)
		if dep == transit.NotSet {
			continue
		}
		t := s.calc.Plus(dep, ae.DurationInSearch())
		if onBoard {
			s.transitArrival(round, ae.Stop, t)
		} else {
			s.arrival(round, ae.Stop, t)
		}
	}
}

func (s *bestTimes) relaxRoute(round int, route *transit.Route, search tripsearch.Search) {
	previous := s.rounds[round-1]
	stops := route.Pattern.Stops
	first, end, step := s.calc.StopPositions(len(stops))

	var trip *transit.Trip
	tripIndex := tripsearch.Unbounded
	for pos := first; pos != end; pos += step {
		stop := stops[pos]
		if trip != nil {
			t := s.calc.Plus(s.calc.AlightTime(trip, pos), s.calc.AlightSlack(s.slack))
			s.transitArrival(round, stop, t)
		}
		if !s.touchedPrevious.Test(uint(stop)) {
			continue
		}
		earliest := s.calc.Plus(previous[stop], s.calc.BoardSlack(s.slack, round))
		if r, ok := search.Search(earliest, pos, tripIndex); ok {
			trip, tripIndex = r.Trip, r.TripIndex
		}
	}
}

// improves reports whether t is better than every time at stop in rounds up to
// and including round.
func (s *bestTimes) improves(times [][]int, round, stop, t int) bool {
	for k := 0; k <= round; k++ {
		if !s.calc.Better(t, times[k][stop]) {
			return false
		}
	}
	return true
}

func (s *bestTimes) transitArrival(round, stop, t int) {
	if !s.accepts(t) || !s.improves(s.transitRounds, round, stop, t) {
		return
	}
	s.transitRounds[round][stop] = t
	s.touchedTransit.Set(uint(stop))
	s.arrival(round, stop, t)
}

func (s *bestTimes) relaxTransfers(round int) {
	for i, ok := s.touchedTransit.NextSet(0); ok; i, ok = s.touchedTransit.NextSet(i + 1) {
		from := s.transitRounds[round][i]
		for _, tx := range s.calc.Transfers(s.data, int(i)) {
			s.arrival(round, tx.Stop, s.calc.Plus(from, tx.Duration))
		}
	}
}

func (s *bestTimes) arrival(round, stop, t int) {
	if !s.accepts(t) || !s.improves(s.rounds, round, stop, t) {
		return
	}
	s.rounds[round][stop] = t
	s.touched.Set(uint(stop))
	s.record(round, stop, t)
}

func (s *bestTimes) record(round, stop, t int) {
	h := s.result
	h.reached.Set(uint(stop))
	h.minDuration[stop] = min(h.minDuration[stop], s.duration(t))
	h.minRides[stop] = min(h.minRides[stop], round)

	if !s.egressStops.Test(uint(stop)) {
		return
	}
	for _, eg := range s.egressByStop[stop] {
		h.DestinationReached = true
		s.destinationInRound = true
		h.MinTravelDuration = min(h.MinTravelDuration, s.duration(s.calc.Plus(t, eg.DurationInSearch())))
		h.MinDestinationRides = min(h.MinDestinationRides, round+eg.Rides)
	}
}

func (s *bestTimes) duration(t int) int {
	if s.calc.Forward() {
		return t - s.iterationTime
	}
	return s.iterationTime - t
}
