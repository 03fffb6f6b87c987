package passthrough

// Leg is one leg of a path tail, linked toward the egress. It records the stops
// visited in travel order and caches its C2 once computed. Legs are shared
// between candidate tails, so a cached value is reused by every tail ending
// with the same suffix.
type Leg struct {
	stops   []int
	transit bool
	next    *Leg
	c2      int
	cached  bool
}

// AccessLeg is an access arriving at stop.
func AccessLeg(stop int) *Leg {
	return &Leg{stops: []int{stop}}
}

// EgressLeg is an egress leaving from stop.
func EgressLeg(stop int) *Leg {
	return &Leg{stops: []int{stop}}
}

// TransferLeg is a street transfer from one stop to another.
func TransferLeg(from, to int) *Leg {
	return &Leg{stops: []int{from, to}}
}

// TransitLeg is a ride along pattern stops from boardPos to alightPos. Stops
// strictly between the two are passed on board.
func TransitLeg(patternStops []int, boardPos, alightPos int) *Leg {
	return &Leg{stops: patternStops[boardPos : alightPos+1], transit: true}
}

// Then links next after l and returns l.
func (l *Leg) Then(next *Leg) *Leg {
	l.next = next
	return l
}

// Next returns the following leg, or nil for the last leg.
func (l *Leg) Next() *Leg {
	return l.next
}

// Chain links the legs in order and returns the first.
func Chain(legs ...*Leg) *Leg {
	for i := 0; i+1 < len(legs); i++ {
		legs[i].next = legs[i+1]
	}
	if len(legs) == 0 {
		return nil
	}
	return legs[0]
}

// Cached returns the cached C2 of the leg, if any.
func (l *Leg) Cached() (int, bool) {
	return l.c2, l.cached
}

// Calculator computes C2: the number of via-locations not yet satisfied between a
// point of a path and the destination. It walks the tail backward from the egress,
// targeting the last unsatisfied location, and steps to the previous location
// each time a visited stop belongs to the targeted one.
type Calculator struct {
	points      Points
	legsScanned int
}

// NewCalculator creates a calculator for the given via-locations.
func NewCalculator(points Points) *Calculator {
	return &Calculator{points: points}
}

// Points returns the via-locations of the calculator.
func (c *Calculator) Points() Points {
	return c.points
}

// LegsScanned returns the number of legs resolved without a cached value.
func (c *Calculator) LegsScanned() int {
	return c.legsScanned
}

// C2 returns the C2 value at the start of leg. Only legs between leg and the
// nearest cached leg toward the egress are scanned; each scanned leg caches
// its result.
func (c *Calculator) C2(leg *Leg) int {
	if !c.points.Enabled() {
		return 0
	}
	if leg.cached {
		return leg.c2
	}

	var pending []*Leg
	cursor, last := c.points.Size(), -1
	for l := leg; l != nil; l = l.next {
		if l.cached {
			cursor, last = l.c2, l.stops[0]
			break
		}
		pending = append(pending, l)
	}

	for i := len(pending) - 1; i >= 0; i-- {
		l := pending[i]
		cursor, last = c.scan(l, cursor, last)
		l.c2, l.cached = cursor, true
		c.legsScanned++
	}
	return leg.c2
}

// Valid reports whether a path starting with leg passes every via-location.
func (c *Calculator) Valid(leg *Leg) bool {
	return c.C2(leg) == 0
}

func (c *Calculator) scan(l *Leg, cursor, last int) (int, int) {
	for j := len(l.stops) - 1; j >= 0; j-- {
		stop := l.stops[j]
		if stop == last {
			continue
		}
		last = stop
		if cursor == 0 {
			continue
		}
		loc := c.points.locations[cursor-1]
		onBoard := l.transit && j > 0 && j < len(l.stops)-1
		if onBoard && loc.Kind != PassThrough {
			continue
		}
		if loc.Contains(stop) {
			cursor--
		}
	}
	return cursor, last
}

// GroupByC2 partitions candidate tails by the C2 value at their first leg and
// applies filter to each group separately. Tails in different groups have
// different remaining obligations and are never compared. Groups are returned in
// ascending C2 order.
func GroupByC2[T any](c *Calculator, tails []T, head func(T) *Leg, filter func([]T) []T) []T {
	if !c.points.Enabled() {
		return filter(tails)
	}

	groups := make([][]T, c.points.Size()+1)
	for _, t := range tails {
		v := c.C2(head(t))
		groups[v] = append(groups[v], t)
	}

	var out []T
	for _, g := range groups {
		if len(g) > 0 {
			out = append(out, filter(g)...)
		}
	}
	return out
}
