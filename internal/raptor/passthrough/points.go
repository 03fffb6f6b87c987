// Package passthrough implements via-locations a journey must visit or pass
// through, in order, and the C2 criterion that tracks them.
package passthrough

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// ErrInvalidViaLocation is returned when a via-location cannot be used for search.
var ErrInvalidViaLocation = errors.New("invalid via location")

// Kind selects when a via-location counts as visited.
type Kind int

const (
	// Visit requires boarding, alighting, or arriving at one of the stops.
	Visit Kind = iota
	// PassThrough also accepts staying on board while the vehicle calls at the stop.
	PassThrough
)

func (k Kind) String() string {
	if k == PassThrough {
		return "pass-through"
	}
	return "visit"
}

// Location is one via-location: a set of acceptable stops. MinWait is the time
// in seconds a visit must stay at the stop before the journey continues.
type Location struct {
	Label   string
	Kind    Kind
	Stops   *bitset.BitSet
	MinWait int
}

// NewLocation creates a via-location accepting any of the given stops.
func NewLocation(label string, kind Kind, stops ...int) Location {
	set := bitset.New(0)
	for _, s := range stops {
		if s >= 0 {
			set.Set(uint(s))
		}
	}
	return Location{Label: label, Kind: kind, Stops: set}
}

// WithMinWait returns a copy of l with a minimum stay at the stop.
func (l Location) WithMinWait(seconds int) Location {
	l.MinWait = seconds
	return l
}

// Contains reports whether stop is one of the location's stops.
func (l Location) Contains(stop int) bool {
	return stop >= 0 && l.Stops != nil && l.Stops.Test(uint(stop))
}

// Points is the ordered list of via-locations of a request. The zero value has no
// via-locations and disables the C2 criterion.
type Points struct {
	locations []Location
}

// NewPoints creates an ordered list of via-locations.
func NewPoints(locations ...Location) Points {
	return Points{locations: locations}
}

// Size returns the number of via-locations.
func (p Points) Size() int {
	return len(p.locations)
}

// Enabled reports whether any via-location is configured.
func (p Points) Enabled() bool {
	return len(p.locations) > 0
}

// Validate checks that every location has at least one stop, that all stops
// exist in a network of numberOfStops stops and that only visits have a wait.
func (p Points) Validate(numberOfStops int) error {
	for i, loc := range p.locations {
		if loc.Stops == nil || loc.Stops.None() {
			return fmt.Errorf("%w: location %d (%q) has no stops", ErrInvalidViaLocation, i, loc.Label)
		}
		if last, ok := lastSet(loc.Stops); ok && int(last) >= numberOfStops {
			return fmt.Errorf("%w: location %d (%q) references stop %d, network has %d stops",
				ErrInvalidViaLocation, i, loc.Label, last, numberOfStops)
		}
		if loc.MinWait < 0 || (loc.MinWait > 0 && loc.Kind == PassThrough) {
			return fmt.Errorf("%w: location %d (%q) has minimum wait %ds, only visits may wait",
				ErrInvalidViaLocation, i, loc.Label, loc.MinWait)
		}
	}
	return nil
}

// Next returns the forward counter after visiting stop: c2 is the number of
// via-locations satisfied so far, and it advances by one if the next location
// contains the stop.
func (p Points) Next(c2, stop int) int {
	if c2 < len(p.locations) && p.locations[c2].Contains(stop) {
		return c2 + 1
	}
	return c2
}

// MinWaitAt returns the minimum wait at stop for an arrival whose counter moved
// from prev to c2 when reaching it. It is zero unless the arrival completed a
// visit at that stop.
func (p Points) MinWaitAt(prev, c2, stop int) int {
	if c2 <= prev || c2 > len(p.locations) {
		return 0
	}
	loc := p.locations[c2-1]
	if loc.Kind != Visit || !loc.Contains(stop) {
		return 0
	}
	return loc.MinWait
}

// CountsOnBoard reports whether the location targeted by the forward counter is
// satisfied by passing its stop on board.
func (p Points) CountsOnBoard(c2 int) bool {
	return c2 < len(p.locations) && p.locations[c2].Kind == PassThrough
}

// Satisfied reports whether a forward counter has passed every via-location.
func (p Points) Satisfied(c2 int) bool {
	return c2 == len(p.locations)
}

func lastSet(b *bitset.BitSet) (uint, bool) {
	var last uint
	found := false
	for i, ok := b.NextSet(0); ok; i, ok = b.NextSet(i + 1) {
		last, found = i, true
	}
	return last, found
}
