// Package search handles plan requests: it validates them against the loaded
// timetable, runs the heuristic pre-passes and the multi-criteria search, and
// optimises the transfer points of the resulting paths.
package search

import (
	"errors"
	"time"

	"github.com/breatheroute/raptor/internal/raptor/path"
	"github.com/breatheroute/raptor/internal/raptor/rangeraptor"
	"github.com/breatheroute/raptor/internal/timetable"
)

// Sentinel errors for search operations.
var (
	// ErrInvalidRequest indicates a request that cannot be searched.
	ErrInvalidRequest = rangeraptor.ErrInvalidRequest
	// ErrHeuristicFailed indicates that a heuristic pre-pass failed and the request was aborted.
	ErrHeuristicFailed = errors.New("heuristic search failed")
	// ErrSearchTimeout indicates that the search did not finish before its deadline.
	ErrSearchTimeout = rangeraptor.ErrSearchTimeout
	// ErrNoTransitData indicates a loaded timetable without stops or routes.
	ErrNoTransitData = rangeraptor.ErrNoTransitData
)

// AccessPath is a street path between the origin (or destination) and a stop.
// Times are seconds; opening hours are seconds since the start of the service day.
type AccessPath struct {
	StopID      string `json:"stop_id" validate:"required"`
	Duration    int    `json:"duration" validate:"gte=0"`
	Cost        *int   `json:"cost,omitempty" validate:"omitempty,gte=0"` // defaults to Duration
	Rides       int    `json:"rides,omitempty" validate:"gte=0"`
	TimePenalty int    `json:"time_penalty,omitempty" validate:"gte=0"`
	OpensAt     *int   `json:"opens_at,omitempty" validate:"required_with=ClosesAt"`
	ClosesAt    *int   `json:"closes_at,omitempty" validate:"required_with=OpensAt"`
}

// ViaLocation is a set of stops the journey must visit, or pass through when
// PassThrough is set. A visit may ask for a minimum stay in seconds.
type ViaLocation struct {
	Label       string   `json:"label"`
	PassThrough bool     `json:"pass_through"`
	MinWait     int      `json:"min_wait,omitempty" validate:"gte=0"`
	StopIDs     []string `json:"stop_ids" validate:"required,min=1,dive,required"`
}

// Request is a plan request. Times are seconds since the start of the service day.
type Request struct {
	RequestID             string        `json:"request_id,omitempty"`
	EarliestDepartureTime int           `json:"earliest_departure_time" validate:"gte=0"`
	LatestArrivalTime     int           `json:"latest_arrival_time,omitempty" validate:"omitempty,gtfield=EarliestDepartureTime"`
	SearchWindow          *int          `json:"search_window,omitempty" validate:"omitempty,gte=0"`
	MaxTransfers          *int          `json:"max_transfers,omitempty" validate:"omitempty,gte=0,lte=20"`
	Access                []AccessPath  `json:"access" validate:"required,min=1,dive"`
	Egress                []AccessPath  `json:"egress" validate:"required,min=1,dive"`
	Via                   []ViaLocation `json:"via,omitempty" validate:"dive"`
	Timetable             bool          `json:"timetable,omitempty"`
}

// Response holds the Pareto-optimal paths of a request. Stop indices in the
// paths refer to Timetable.
type Response struct {
	RequestID string
	Paths     []*path.Path
	Stats     Stats
	Timetable *timetable.Timetable
}

// Stats describes the work done for one request.
type Stats struct {
	Iterations       int           `json:"iterations"`
	Rounds           int           `json:"rounds"`
	ArrivalsAccepted int           `json:"arrivals_accepted"`
	ArrivalsRejected int           `json:"arrivals_rejected"`
	RouteFailures    int           `json:"route_failures"`
	StageFailures    int           `json:"stage_failures"`
	PathsInvalid     int           `json:"paths_invalid"`
	PathsOptimized   int           `json:"paths_optimized"`
	MinTravelTime    int           `json:"min_travel_time"` // from the forward heuristic, -1 if unreachable
	ReachableStops   int           `json:"reachable_stops"` // stops left by the reverse heuristic, 0 if not run
	Duration         time.Duration `json:"duration"`
}

// Totals are the cumulative counters of a service.
type Totals struct {
	Requests  int64 `json:"requests"`
	Failed    int64 `json:"failed"`
	Empty     int64 `json:"empty"`
	Paths     int64 `json:"paths"`
	Optimized int64 `json:"optimized"`
}

// Error describes a failed request.
type Error struct {
	Op        string // stage that failed: load, validate, heuristics, route
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	return "search " + e.Op + " " + e.RequestID + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsClientError reports whether the request itself was at fault.
func (e *Error) IsClientError() bool {
	return errors.Is(e.Err, ErrInvalidRequest)
}
