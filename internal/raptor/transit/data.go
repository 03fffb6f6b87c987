// Package transit defines the read-only transit model consumed by the search core:
// patterns, trips, transfers, access/egress paths, slack and the cost model.
package transit

import "fmt"

// NotSet marks a time that is not available, e.g. an access path outside its opening hours.
const NotSet = -999_999_999

// SecondsPerDay is the length of a service day used by opening-hours arithmetic.
const SecondsPerDay = 24 * 60 * 60

// Data is the transit data provider. Implementations must be safe for concurrent
// reads; the search core never mutates them.
type Data interface {
	// NumberOfStops returns the number of stops. Stop indices are in [0, NumberOfStops).
	NumberOfStops() int

	// NumberOfRoutes returns the number of routes.
	NumberOfRoutes() int

	// Route returns the route with the given index.
	Route(index int) *Route

	// RoutesByStop returns the indices of the routes serving a stop.
	RoutesByStop(stop int) []int

	// TransfersFrom returns the transfers leaving a stop. Transfer.Stop is the target.
	TransfersFrom(stop int) []Transfer

	// TransfersTo returns the transfers arriving at a stop. Transfer.Stop is the source.
	TransfersTo(stop int) []Transfer
}

// Transfer is a street transfer between two stops. Stop is the stop at the other
// end of the transfer, relative to the stop it was looked up from.
type Transfer struct {
	Stop     int
	Duration int
	C1       int
}

func (t Transfer) String() string {
	return fmt.Sprintf("Transfer{stop: %d, duration: %ds}", t.Stop, t.Duration)
}
