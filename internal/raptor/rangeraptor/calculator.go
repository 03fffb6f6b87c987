package rangeraptor

import (
	"math"

	"github.com/breatheroute/raptor/internal/raptor/transit"
	"github.com/breatheroute/raptor/internal/raptor/tripsearch"
)

// Calculator hides the search direction. A forward search departs after a time
// and moves forward along patterns; a reverse search arrives before a time and
// moves backward, with boarding and alighting swapped.
type Calculator interface {
	Forward() bool
	Plus(t, d int) int
	// Better reports whether a is strictly better than b in the search direction.
	Better(a, b int) bool
	Unreached() int
	IterationTimes(t, window, step int) []int
	// AccessDeparture shifts an iteration time into the opening hours of an access path.
	AccessDeparture(ae transit.AccessEgress, t int) int
	StopPositions(n int) (first, end, step int)
	BoardTime(trip *transit.Trip, pos int) int
	AlightTime(trip *transit.Trip, pos int) int
	BoardSlack(slack transit.Slack, round int) int
	AlightSlack(slack transit.Slack) int
	TripSearch(route *transit.Route) tripsearch.Search
	Transfers(data transit.Data, stop int) []transit.Transfer
}

// NewCalculator returns the calculator for a direction.
func NewCalculator(forward bool) Calculator {
	if forward {
		return forwardCalculator{}
	}
	return reverseCalculator{}
}

type forwardCalculator struct{}

func (forwardCalculator) Forward() bool { return true }
func (forwardCalculator) Plus(t, d int) int { return t + d }
func (forwardCalculator) Better(a, b int) bool { return a < b }
func (forwardCalculator) Unreached() int { return math.MaxInt32 }

// IterationTimes runs from the end of the window down to its start. The last
// iteration always departs at t, also when the window is not a multiple of step.
func (forwardCalculator) IterationTimes(t, window, step int) []int {
	n := iterationCount(window, step)
	times := make([]int, 0, n)
	for i := n - 1; i >= 0; i-- {
		times = append(times, t+i*step)
	}
	return times
}

func (forwardCalculator) AccessDeparture(ae transit.AccessEgress, t int) int {
	return ae.EarliestDepartureTime(t)
}

func (forwardCalculator) StopPositions(n int) (int, int, int) { return 0, n, 1 }

func (forwardCalculator) BoardTime(trip *transit.Trip, pos int) int { return trip.Departure(pos) }
func (forwardCalculator) AlightTime(trip *transit.Trip, pos int) int { return trip.Arrival(pos) }

func (forwardCalculator) BoardSlack(slack transit.Slack, round int) int {
	return slack.BoardSlack(round)
}

func (forwardCalculator) AlightSlack(slack transit.Slack) int { return slack.Alight }

func (forwardCalculator) TripSearch(route *transit.Route) tripsearch.Search {
	return tripsearch.NewBoardSearch(route)
}

func (forwardCalculator) Transfers(data transit.Data, stop int) []transit.Transfer {
	return data.TransfersFrom(stop)
}

type reverseCalculator struct{}

func (reverseCalculator) Forward() bool { return false }
func (reverseCalculator) Plus(t, d int) int { return t - d }
func (reverseCalculator) Better(a, b int) bool { return a > b }
func (reverseCalculator) Unreached() int { return math.MinInt32 }

// IterationTimes runs from the start of the window up to its end, t being the
// latest arrival time. The last iteration always arrives at t.
func (reverseCalculator) IterationTimes(t, window, step int) []int {
	n := iterationCount(window, step)
	times := make([]int, 0, n)
	for i := n - 1; i >= 0; i-- {
		times = append(times, t-i*step)
	}
	return times
}

func (reverseCalculator) AccessDeparture(ae transit.AccessEgress, t int) int {
	return ae.LatestArrivalTime(t)
}

func (reverseCalculator) StopPositions(n int) (int, int, int) { return n - 1, -1, -1 }

func (reverseCalculator) BoardTime(trip *transit.Trip, pos int) int { return trip.Arrival(pos) }
func (reverseCalculator) AlightTime(trip *transit.Trip, pos int) int { return trip.Departure(pos) }

func (reverseCalculator) BoardSlack(slack transit.Slack, round int) int {
	if round < 2 {
		return slack.Alight
	}
	return slack.Alight + slack.Transfer
}

func (reverseCalculator) AlightSlack(slack transit.Slack) int { return slack.Board }

func (reverseCalculator) TripSearch(route *transit.Route) tripsearch.Search {
	return tripsearch.NewAlightSearch(route)
}

func (reverseCalculator) Transfers(data transit.Data, stop int) []transit.Transfer {
	return data.TransfersTo(stop)
}

// iterationCount is the number of steps needed to cover the window, rounded up.
func iterationCount(window, step int) int {
	if window <= 0 || step <= 0 {
		return 1
	}
	return (window + step - 1) / step
}
