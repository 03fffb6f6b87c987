package transit

import "fmt"

// OpeningHours restricts the departure time of an access or egress path to a daily
// window [Open, Close], in seconds since midnight. Close may exceed SecondsPerDay
// for windows running past midnight. A Closed window never opens.
type OpeningHours struct {
	Open   int
	Close  int
	Closed bool
}

// EarliestDeparture returns the first departure at or after t inside the window,
// or NotSet if the window is closed.
func (o OpeningHours) EarliestDeparture(t int) int {
	if o.Closed {
		return NotSet
	}
	day := floorDiv(t, SecondsPerDay) * SecondsPerDay
	s := t - day

	// Still inside yesterday's window running past midnight.
	if s+SecondsPerDay <= o.Close {
		return t
	}
	if s < o.Open {
		return day + o.Open
	}
	if s <= o.Close {
		return t
	}
	return day + SecondsPerDay + o.Open
}

// LatestDeparture returns the last departure at or before t inside the window,
// or NotSet if the window is closed.
func (o OpeningHours) LatestDeparture(t int) int {
	if o.Closed {
		return NotSet
	}
	day := floorDiv(t, SecondsPerDay) * SecondsPerDay
	s := t - day

	if s > o.Close {
		return day + o.Close
	}
	if s >= o.Open {
		return t
	}
	if s+SecondsPerDay <= o.Close {
		return t
	}
	return day - SecondsPerDay + o.Close
}

func (o OpeningHours) String() string {
	if o.Closed {
		return "closed"
	}
	return fmt.Sprintf("%s-%s", FormatTime(o.Open), FormatTime(o.Close))
}

// AccessEgress is a street (or flexible) path between the origin or destination
// and a stop. Rides counts the transit-like rides inside the path; 0 means walking.
// OnBoard is set when the stop is reached on board a vehicle, which allows a walk
// transfer to follow the access directly.
type AccessEgress struct {
	Stop         int
	Duration     int
	C1           int
	Rides        int
	OnBoard      bool
	TimePenalty  int
	OpeningHours *OpeningHours
}

// Walk returns a walking access or egress path.
func Walk(stop, duration, c1 int) AccessEgress {
	return AccessEgress{Stop: stop, Duration: duration, C1: c1}
}

// Flex returns an access or egress path with rides that reaches the stop on board.
func Flex(stop, duration, c1, rides int) AccessEgress {
	return AccessEgress{Stop: stop, Duration: duration, C1: c1, Rides: rides, OnBoard: true}
}

// WithOpeningHours returns a copy of a restricted to the given daily window.
func (a AccessEgress) WithOpeningHours(open, close int) AccessEgress {
	a.OpeningHours = &OpeningHours{Open: open, Close: close}
	return a
}

// WithTimePenalty returns a copy of a with a time penalty.
func (a AccessEgress) WithTimePenalty(penalty int) AccessEgress {
	a.TimePenalty = penalty
	return a
}

// HasRides reports whether the path contains at least one ride.
func (a AccessEgress) HasRides() bool {
	return a.Rides > 0
}

// HasOpeningHours reports whether the path is time dependent.
func (a AccessEgress) HasOpeningHours() bool {
	return a.OpeningHours != nil
}

// DurationInSearch is the duration used while searching; it includes the time penalty.
func (a AccessEgress) DurationInSearch() int {
	return a.Duration + a.TimePenalty
}

// EarliestDepartureTime shifts a requested departure time into the opening hours.
// NotSet is returned if the path is never open.
func (a AccessEgress) EarliestDepartureTime(t int) int {
	if a.OpeningHours == nil {
		return t
	}
	return a.OpeningHours.EarliestDeparture(t)
}

// LatestArrivalTime shifts a requested arrival time so the departure falls inside
// the opening hours. NotSet is returned if the path is never open.
func (a AccessEgress) LatestArrivalTime(t int) int {
	if a.OpeningHours == nil {
		return t
	}
	dep := a.OpeningHours.LatestDeparture(t - a.DurationInSearch())
	if dep == NotSet {
		return NotSet
	}
	return dep + a.DurationInSearch()
}

func (a AccessEgress) String() string {
	kind := "Walk"
	if a.HasRides() {
		kind = fmt.Sprintf("Flex %dx", a.Rides)
	}
	s := fmt.Sprintf("%s %ds ~ %d", kind, a.Duration, a.Stop)
	if a.OpeningHours != nil {
		s += " Open(" + a.OpeningHours.String() + ")"
	}
	return s
}
