package rangeraptor

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/breatheroute/raptor/internal/raptor/paretoset"
)

// stopArrivals holds one Pareto set of arrivals per stop for one search
// iteration. Sets are created on first write. Sets of egress stops call onEgress
// for every accepted arrival.
type stopArrivals struct {
	arena     *arena
	sets      []*paretoset.Set[int32]
	dominance paretoset.Dominance[int32]

	touched         *bitset.BitSet
	touchedPrevious *bitset.BitSet
	pending         []int32

	egressStops *bitset.BitSet
	onEgress    func(idx int32)

	accepted int
	rejected int
}

func newStopArrivals(
	numberOfStops int,
	a *arena,
	dominance paretoset.Dominance[int32],
	egressStops *bitset.BitSet,
	onEgress func(idx int32),
) *stopArrivals {
	return &stopArrivals{
		arena:           a,
		sets:            make([]*paretoset.Set[int32], numberOfStops),
		dominance:       dominance,
		touched:         bitset.New(uint(numberOfStops)),
		touchedPrevious: bitset.New(uint(numberOfStops)),
		egressStops:     egressStops,
		onEgress:        onEgress,
	}
}

// add inserts an arrival and marks its stop touched if it is accepted.
func (s *stopArrivals) add(idx int32) bool {
	stop := int(s.arena.get(idx).stop)
	set := s.sets[stop]
	if set == nil {
		set = s.newSet(stop)
		s.sets[stop] = set
	}
	if !set.Add(idx) {
		s.rejected++
		return false
	}
	s.accepted++
	s.touched.Set(uint(stop))
	return true
}

func (s *stopArrivals) newSet(stop int) *paretoset.Set[int32] {
	if s.egressStops != nil && s.egressStops.Test(uint(stop)) && s.onEgress != nil {
		return paretoset.New(s.dominance, paretoset.WithAcceptFunc(s.onEgress))
	}
	return paretoset.New(s.dominance)
}

// addLater caches an arrival until commit. Arrivals found while relaxing a round
// must not be visible to the same relaxation.
func (s *stopArrivals) addLater(idx int32) {
	s.pending = append(s.pending, idx)
}

// commit adds the cached arrivals. The cache is emptied even if an accept
// callback panics.
func (s *stopArrivals) commit() {
	defer func() { s.pending = s.pending[:0] }()
	for _, idx := range s.pending {
		s.add(idx)
	}
}

// recent lists the arrivals at a stop added since its marker was last set.
func (s *stopArrivals) recent(stop int) paretoset.Recent[int32] {
	set := s.sets[stop]
	if set == nil {
		set = s.newSet(stop)
		s.sets[stop] = set
	}
	return set.Recent()
}

// startRound makes the stops touched so far the previous round's stops and
// clears the touched set.
func (s *stopArrivals) startRound() {
	s.touched, s.touchedPrevious = s.touchedPrevious, s.touched
	s.touched.ClearAll()
}

// markPreviousRound moves the marker of every stop touched in the previous round
// to the end of its set, so recent only lists arrivals of the current round.
func (s *stopArrivals) markPreviousRound() {
	for i, ok := s.touchedPrevious.NextSet(0); ok; i, ok = s.touchedPrevious.NextSet(i + 1) {
		if set := s.sets[i]; set != nil {
			set.MarkAtEndOfSet()
		}
	}
}

func (s *stopArrivals) isTouchedPrevious(stop int) bool {
	return s.touchedPrevious.Test(uint(stop))
}

func (s *stopArrivals) newRoundAvailable() bool {
	return s.touched.Any()
}
