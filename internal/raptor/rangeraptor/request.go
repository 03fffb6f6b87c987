package rangeraptor

import (
	"errors"
	"fmt"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/rs/zerolog"

	"github.com/breatheroute/raptor/internal/raptor/passthrough"
	"github.com/breatheroute/raptor/internal/raptor/transit"
)

// Errors returned by the search.
var (
	ErrInvalidRequest = errors.New("invalid search request")
	ErrNoTransitData  = errors.New("no transit data")
	ErrSearchTimeout  = errors.New("search timed out")
)

// DefaultIterationStep is the time between two range-raptor iterations.
const DefaultIterationStep = 60

// Request describes one range-raptor search. Times are seconds since the start
// of the service day.
type Request struct {
	EarliestDepartureTime int
	// LatestArrivalTime prunes arrivals after it. Zero or less means unbounded.
	LatestArrivalTime int
	// SearchWindow is the length of the departure window; zero runs one iteration.
	SearchWindow  int
	IterationStep int
	MaxTransfers  int

	Access []transit.AccessEgress
	Egress []transit.AccessEgress

	Slack transit.Slack
	Cost  transit.CostFactors
	Via   passthrough.Points

	// Timetable keeps one path per departure time in the destination set.
	Timetable bool
	// ConstrainedTransfers enables constrained transfer lookups when boarding.
	ConstrainedTransfers bool
}

// Validate checks the request against the transit data.
func (r Request) Validate(data transit.Data) error {
	if data == nil || data.NumberOfStops() == 0 || data.NumberOfRoutes() == 0 {
		return ErrNoTransitData
	}
	n := data.NumberOfStops()

	if len(r.Access) == 0 {
		return fmt.Errorf("%w: no access paths", ErrInvalidRequest)
	}
	if len(r.Egress) == 0 {
		return fmt.Errorf("%w: no egress paths", ErrInvalidRequest)
	}
	for _, paths := range [][]transit.AccessEgress{r.Access, r.Egress} {
		for _, ae := range paths {
			if ae.Stop < 0 || ae.Stop >= n {
				return fmt.Errorf("%w: stop %d out of range [0, %d)", ErrInvalidRequest, ae.Stop, n)
			}
			if ae.Duration < 0 || ae.TimePenalty < 0 || ae.Rides < 0 {
				return fmt.Errorf("%w: negative duration, penalty or rides for stop %d", ErrInvalidRequest, ae.Stop)
			}
		}
	}
	if r.SearchWindow < 0 || r.IterationStep < 0 || r.MaxTransfers < 0 {
		return fmt.Errorf("%w: negative search window, iteration step or max transfers", ErrInvalidRequest)
	}
	if err := r.Via.Validate(n); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

func (r Request) latestArrival() (int, bool) {
	if r.LatestArrivalTime <= 0 || r.LatestArrivalTime == transit.NotSet {
		return 0, false
	}
	return r.LatestArrivalTime, true
}

func (r Request) iterationStep() int {
	if r.IterationStep <= 0 {
		return DefaultIterationStep
	}
	return r.IterationStep
}

func (r Request) maxRounds() int {
	return r.MaxTransfers + 1
}

// Options carry collaborators that are not part of the request itself.
type Options struct {
	Logger zerolog.Logger
	// Subscribe registers additional lifecycle callbacks before the search starts.
	Subscribe func(*Subscriptions)
	// StopFilter restricts arrivals to the stops in the set when not nil.
	StopFilter *bitset.BitSet
}

// Stats describes the work done by one search.
type Stats struct {
	Iterations       int
	Rounds           int
	ArrivalsAccepted int
	ArrivalsRejected int
	RouteFailures    int
	StageFailures    int
	PathsInvalid     int
	Duration         time.Duration
}

func stopsOf(paths []transit.AccessEgress, n int) *bitset.BitSet {
	set := bitset.New(uint(n))
	for _, ae := range paths {
		set.Set(uint(ae.Stop))
	}
	return set
}

func groupByStop(paths []transit.AccessEgress) map[int][]transit.AccessEgress {
	out := make(map[int][]transit.AccessEgress)
	for _, ae := range paths {
		out[ae.Stop] = append(out[ae.Stop], ae)
	}
	return out
}

func hasOpeningHours(paths []transit.AccessEgress) bool {
	for _, ae := range paths {
		if ae.HasOpeningHours() {
			return true
		}
	}
	return false
}

func maxRides(paths []transit.AccessEgress) int {
	m := 0
	for _, ae := range paths {
		m = max(m, ae.Rides)
	}
	return m
}
