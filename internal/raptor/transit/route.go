package transit

// Pattern is an ordered list of stops served by a set of trips.
type Pattern struct {
	ID    string
	Stops []int
}

// NumberOfStops returns the number of stop positions in the pattern.
func (p *Pattern) NumberOfStops() int {
	return len(p.Stops)
}

// StopAt returns the stop at a stop position.
func (p *Pattern) StopAt(pos int) int {
	return p.Stops[pos]
}

// Trip is one vehicle run along a pattern. Times are seconds since the start
// of the service day.
type Trip struct {
	ID         string
	Index      int
	Arrivals   []int
	Departures []int
}

// Arrival returns the arrival time at a stop position.
func (t *Trip) Arrival(pos int) int {
	return t.Arrivals[pos]
}

// Departure returns the departure time at a stop position.
func (t *Trip) Departure(pos int) int {
	return t.Departures[pos]
}

// Route groups the trips of one pattern. Trips are sorted by departure time and
// do not overtake each other, so the order holds at every stop position.
type Route struct {
	Index       int
	Name        string
	Pattern     *Pattern
	Trips       []*Trip
	Constraints *RouteConstraints
}

// NumberOfTrips returns the number of trips in the route's timetable.
func (r *Route) NumberOfTrips() int {
	return len(r.Trips)
}

// Trip returns the trip with the given sort index.
func (r *Route) Trip(index int) *Trip {
	return r.Trips[index]
}

// HasConstraints reports whether any constrained transfer targets this route.
func (r *Route) HasConstraints() bool {
	return r.Constraints != nil && !r.Constraints.Empty()
}
