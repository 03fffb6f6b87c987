package path

import (
	"sort"

	"github.com/breatheroute/raptor/internal/raptor/paretoset"
)

// Dominance returns the comparator for completed paths: earlier arrival, fewer
// transfers and lower cost are better. With timetable set, a later departure is
// also better, so one path per departure survives across the search window.
func Dominance(timetable bool) paretoset.Dominance[*Path] {
	if timetable {
		return func(l, r *Path) bool {
			return l.PenalizedEndTime < r.PenalizedEndTime ||
				l.PenalizedStartTime > r.PenalizedStartTime ||
				l.Transfers < r.Transfers ||
				l.C1 < r.C1
		}
	}
	return func(l, r *Path) bool {
		return l.PenalizedEndTime < r.PenalizedEndTime ||
			l.Transfers < r.Transfers ||
			l.C1 < r.C1
	}
}

// DestinationArrivals collects completed paths in a Pareto set shared by every
// iteration of a search, so paths found at different departure times compete.
type DestinationArrivals struct {
	set      *paretoset.Set[*Path]
	validate func(*Path) bool
	accepted int
	invalid  int
}

// NewDestinationArrivals creates a collector. validate, if not nil, is applied to
// every path before it is offered to the set.
func NewDestinationArrivals(timetable bool, validate func(*Path) bool) *DestinationArrivals {
	return &DestinationArrivals{
		set:      paretoset.New(Dominance(timetable)),
		validate: validate,
	}
}

// Add offers a path to the collector. It returns true if the path was accepted.
func (d *DestinationArrivals) Add(p *Path) bool {
	if d.validate != nil && !d.validate(p) {
		d.invalid++
		return false
	}
	if !d.set.Add(p) {
		return false
	}
	d.accepted++
	return true
}

// Qualify reports whether a path with the same criteria would be accepted.
func (d *DestinationArrivals) Qualify(p *Path) bool {
	return d.set.Qualify(p)
}

// IsEmpty reports whether no path has been collected.
func (d *DestinationArrivals) IsEmpty() bool {
	return d.set.IsEmpty()
}

// Accepted returns the number of paths accepted so far, including paths later
// evicted by better ones. It only grows, which lets callers detect new arrivals.
func (d *DestinationArrivals) Accepted() int {
	return d.accepted
}

// Invalid returns the number of paths rejected by validation.
func (d *DestinationArrivals) Invalid() int {
	return d.invalid
}

// Paths returns the collected paths.
func (d *DestinationArrivals) Paths() []*Path {
	return d.set.Stream().ToSlice()
}

// Sort orders paths by arrival time, then departure time (latest first), number
// of transfers and cost.
func Sort(paths []*Path) {
	sort.SliceStable(paths, func(i, j int) bool {
		a, b := paths[i], paths[j]
		if a.EndTime != b.EndTime {
			return a.EndTime < b.EndTime
		}
		if a.StartTime != b.StartTime {
			return a.StartTime > b.StartTime
		}
		if a.Transfers != b.Transfers {
			return a.Transfers < b.Transfers
		}
		return a.C1 < b.C1
	})
}
