// Package tripsearch finds the trip to board at a stop position of a route.
package tripsearch

import (
	"sort"

	"github.com/breatheroute/raptor/internal/raptor/transit"
)

// Unbounded is passed as trip index limit when no cursor is held.
const Unbounded = -1

// binarySearchThreshold is the number of trips above which an unbounded search
// switches from a linear scan to a binary search.
const binarySearchThreshold = 50

// Result is a boarding found by a search.
type Result struct {
	Trip         *transit.Trip
	TripIndex    int
	StopPos      int
	Time         int
	EarliestTime int
}

// Search finds a trip at a stop position. The trip index limit is a cursor from a
// previous stop position in the same pass; the search only looks at trips the
// cursor has not yet passed.
type Search interface {
	Search(earliestTime, stopPos, tripIndexLimit int) (Result, bool)
}

// BoardSearch finds the first trip departing at or after a time. A limit restricts
// the search to trips with a lower index, which are the only trips that can improve
// on a trip already boarded at an earlier stop position.
type BoardSearch struct {
	trips []*transit.Trip
}

// NewBoardSearch creates a forward search over the trips of a route.
func NewBoardSearch(route *transit.Route) *BoardSearch {
	return &BoardSearch{trips: route.Trips}
}

// Search implements Search.
func (s *BoardSearch) Search(earliestTime, stopPos, tripIndexLimit int) (Result, bool) {
	upper := len(s.trips)
	if tripIndexLimit >= 0 && tripIndexLimit < upper {
		upper = tripIndexLimit
	}

	index := -1
	if upper == len(s.trips) && upper > binarySearchThreshold {
		i := sort.Search(upper, func(i int) bool {
			return s.trips[i].Departure(stopPos) >= earliestTime
		})
		if i < upper {
			index = i
		}
	} else {
		for i := upper - 1; i >= 0; i-- {
			if s.trips[i].Departure(stopPos) < earliestTime {
				break
			}
			index = i
		}
	}

	if index < 0 {
		return Result{}, false
	}
	trip := s.trips[index]
	return Result{
		Trip:         trip,
		TripIndex:    index,
		StopPos:      stopPos,
		Time:         trip.Departure(stopPos),
		EarliestTime: earliestTime,
	}, true
}

// AlightSearch finds the last trip arriving at or before a time, for searches
// running backward in time. A limit restricts the search to trips with a higher
// index.
type AlightSearch struct {
	trips []*transit.Trip
}

// NewAlightSearch creates a reverse search over the trips of a route.
func NewAlightSearch(route *transit.Route) *AlightSearch {
	return &AlightSearch{trips: route.Trips}
}

// Search implements Search. earliestTime is the latest acceptable arrival.
func (s *AlightSearch) Search(earliestTime, stopPos, tripIndexLimit int) (Result, bool) {
	n := len(s.trips)
	lower := 0
	if tripIndexLimit >= 0 {
		lower = tripIndexLimit + 1
	}

	index := -1
	if lower == 0 && n > binarySearchThreshold {
		i := sort.Search(n, func(i int) bool {
			return s.trips[i].Arrival(stopPos) > earliestTime
		})
		index = i - 1
	} else {
		for i := lower; i < n; i++ {
			if s.trips[i].Arrival(stopPos) > earliestTime {
				break
			}
			index = i
		}
	}

	if index < 0 {
		return Result{}, false
	}
	trip := s.trips[index]
	return Result{
		Trip:         trip,
		TripIndex:    index,
		StopPos:      stopPos,
		Time:         trip.Arrival(stopPos),
		EarliestTime: earliestTime,
	}, true
}

// ExactSearch only accepts boardings found within one iteration step of the
// earliest time. Trips further away were already found by the previous
// iteration of a range-raptor sweep.
type ExactSearch struct {
	inner   Search
	step    int
	forward bool
}

// NewExactSearch wraps a search so it only returns boardings within step seconds.
func NewExactSearch(inner Search, step int, forward bool) *ExactSearch {
	return &ExactSearch{inner: inner, step: step, forward: forward}
}

// Search implements Search.
func (s *ExactSearch) Search(earliestTime, stopPos, tripIndexLimit int) (Result, bool) {
	r, ok := s.inner.Search(earliestTime, stopPos, tripIndexLimit)
	if !ok {
		return r, false
	}
	wait := r.Time - earliestTime
	if !s.forward {
		wait = -wait
	}
	if wait >= s.step {
		return Result{}, false
	}
	return r, true
}
