// Package optimize moves the transfer points of completed paths. Paths keep
// their trips, departure and arrival; only where the traveller changes between
// two trips may move. Among alternatives the cheapest is chosen, then the one
// with the longest shortest transfer wait.
package optimize

import (
	"math"

	"github.com/breatheroute/raptor/internal/raptor/passthrough"
	"github.com/breatheroute/raptor/internal/raptor/path"
	"github.com/breatheroute/raptor/internal/raptor/transit"
)

// Optimizer rewrites transfer points of paths found on one transit data set.
type Optimizer struct {
	data     transit.Data
	slack    transit.Slack
	cost     transit.CostCalculator
	via      passthrough.Points
	calc     *passthrough.Calculator
	validate func(*path.Path) bool
}

// New creates an optimizer. via must be the via-locations of the search that
// produced the paths.
func New(data transit.Data, slack transit.Slack, costs transit.CostFactors, via passthrough.Points) *Optimizer {
	calc := passthrough.NewCalculator(via)
	return &Optimizer{
		data:     data,
		slack:    slack,
		cost:     transit.NewCostCalculator(costs),
		via:      via,
		calc:     calc,
		validate: calc.Validator(),
	}
}

// tail is a way to ride from a boarding position of one trip to the end of the
// last trip of a path. cost excludes everything before the boarding.
type tail struct {
	boardPos  int
	alightPos int
	cost      int
	minWait   int
	walk      int
	walkC1    int
	wait      int
	next      *tail
	head      *passthrough.Leg
}

// OptimizeAll optimizes every path and returns the number of paths changed.
func (o *Optimizer) OptimizeAll(paths []*path.Path) ([]*path.Path, int) {
	out := make([]*path.Path, len(paths))
	changed := 0
	for i, p := range paths {
		out[i] = o.Optimize(p)
		if out[i] != p {
			changed++
		}
	}
	return out, changed
}

// Optimize returns a path with better transfer points, or p itself.
func (o *Optimizer) Optimize(p *path.Path) *path.Path {
	idx := transitIndices(p)
	if len(idx) < 2 {
		return p
	}
	first, last := idx[0], idx[len(idx)-1]

	suffix := passthrough.FromPath(&path.Path{Legs: p.Legs[last+1:]})
	tails := o.lastTails(p.Legs[last], suffix)
	for k := len(idx) - 2; k >= 0; k-- {
		tails = o.extend(p.Legs[idx[k]], p.Legs[idx[k+1]], tails)
	}

	var best *path.Path
	bestWait := -1
	for i := range tails {
		t := &tails[i]
		if t.boardPos != p.Legs[first].BoardPos {
			continue
		}
		candidate := o.assemble(p, idx, t)
		if !o.validate(candidate) || !o.waitsMet(candidate) {
			continue
		}
		if best == nil || candidate.C1 < best.C1 || (candidate.C1 == best.C1 && t.minWait > bestWait) {
			best, bestWait = candidate, t.minWait
		}
	}

	if best == nil {
		return p
	}
	if best.C1 < p.C1 || (best.C1 == p.C1 && bestWait > o.minWait(p, idx)) {
		return best
	}
	return p
}

func transitIndices(p *path.Path) []int {
	var idx []int
	for i, l := range p.Legs {
		if l.Kind == path.TransitLeg {
			idx = append(idx, i)
		}
	}
	return idx
}

func (o *Optimizer) lastTails(leg path.Leg, suffix *passthrough.Leg) []tail {
	stops := leg.Route.Pattern.Stops
	arrival := leg.Trip.Arrival(leg.AlightPos)
	tails := make([]tail, 0, leg.AlightPos)
	for q := 0; q < leg.AlightPos; q++ {
		tails = append(tails, tail{
			boardPos:  q,
			alightPos: leg.AlightPos,
			cost:      o.cost.Transit(arrival - leg.Trip.Departure(q)),
			minWait:   math.MaxInt32,
			head:      passthrough.TransitLeg(stops, q, leg.AlightPos).Then(suffix),
		})
	}
	return tails
}

// extend builds the tails starting on the trip of prev from the tails starting
// on the trip of next. For every boarding position one tail per C2 value is kept.
func (o *Optimizer) extend(prev, next path.Leg, tails []tail) []tail {
	stops := prev.Route.Pattern.Stops
	nextStops := next.Route.Pattern.Stops
	trip := prev.Trip
	facilitated := next.Constraint != nil && next.Constraint.Facilitated()

	byBoardPos := make([][]tail, len(stops))
	for p := 1; p < len(stops); p++ {
		ready := trip.Arrival(p) + o.slack.Alight
		for i := range tails {
			t := tails[i]
			if next.Constraint != nil && (p != prev.AlightPos || t.boardPos != next.BoardPos) {
				continue
			}
			from, to := stops[p], nextStops[t.boardPos]
			walk, walkC1, ok := o.transfer(from, to)
			if !ok {
				continue
			}
			arrive := ready + walk
			dep := next.Trip.Departure(t.boardPos)
			if next.Constraint == nil && dep < arrive+o.slack.BoardSlack(2) {
				continue
			}
			if o.forbidden(prev.Trip, p, next, t.boardPos) {
				continue
			}

			wait := dep - arrive
			rel := o.cost.Transit(trip.Arrival(p)) + walkC1 + o.cost.Boarding(false, wait, facilitated) + t.cost

			link := t.head
			if from != to {
				link = passthrough.TransferLeg(from, to).Then(t.head)
			}
			for b := 0; b < p; b++ {
				byBoardPos[b] = append(byBoardPos[b], tail{
					boardPos:  b,
					alightPos: p,
					cost:      rel - o.cost.Transit(trip.Departure(b)),
					minWait:   min(t.minWait, wait),
					walk:      walk,
					walkC1:    walkC1,
					wait:      wait,
					next:      &tails[i],
					head:      passthrough.TransitLeg(stops, b, p).Then(link),
				})
			}
		}
	}

	var out []tail
	for _, candidates := range byBoardPos {
		if len(candidates) == 0 {
			continue
		}
		out = append(out, passthrough.GroupByC2(o.calc, candidates, headOf, cheapest)...)
	}
	return out
}

func headOf(t tail) *passthrough.Leg { return t.head }

func cheapest(ts []tail) []tail {
	best := 0
	for i := 1; i < len(ts); i++ {
		if ts[i].cost < ts[best].cost || (ts[i].cost == ts[best].cost && ts[i].minWait > ts[best].minWait) {
			best = i
		}
	}
	return ts[best : best+1]
}

func (o *Optimizer) transfer(from, to int) (int, int, bool) {
	if from == to {
		return 0, 0, true
	}
	for _, tx := range o.data.TransfersFrom(from) {
		if tx.Stop == to {
			return tx.Duration, tx.C1, true
		}
	}
	return 0, 0, false
}

// forbidden reports whether a not-allowed constrained transfer blocks the move.
func (o *Optimizer) forbidden(from *transit.Trip, fromPos int, next path.Leg, toPos int) bool {
	c := next.Route.Constraints
	if !c.ExistAt(toPos) {
		return false
	}
	b, ok := c.Find(next.Route.Trips, toPos, from, fromPos, from.Arrival(fromPos), next.Trip.Departure(toPos))
	return ok && b.NotAllowed()
}

// assemble replaces the legs between the first and last transit leg of p with
// the legs of t.
func (o *Optimizer) assemble(p *path.Path, idx []int, t *tail) *path.Path {
	first, last := idx[0], idx[len(idx)-1]
	legs := make([]path.Leg, 0, len(p.Legs))
	legs = append(legs, p.Legs[:first]...)

	k := 0
	var prevTail *tail
	for cur := t; cur != nil; cur = cur.next {
		orig := p.Legs[idx[k]]
		leg := orig
		leg.BoardPos, leg.AlightPos = cur.boardPos, cur.alightPos
		leg.FromStop = orig.Route.Pattern.StopAt(cur.boardPos)
		leg.ToStop = orig.Route.Pattern.StopAt(cur.alightPos)
		leg.FromTime = orig.Trip.Departure(cur.boardPos)
		leg.ToTime = orig.Trip.Arrival(cur.alightPos)
		ride := o.cost.Transit(leg.ToTime - leg.FromTime)

		if prevTail == nil {
			leg.C1 = orig.C1 - o.cost.Transit(orig.ToTime-orig.FromTime) + ride
		} else {
			facilitated := orig.Constraint != nil && orig.Constraint.Facilitated()
			leg.C1 = o.cost.Boarding(false, prevTail.wait, facilitated) + ride
			prevLeg := legs[len(legs)-1]
			if prevTail.walk > 0 || prevLeg.ToStop != leg.FromStop {
				start := prevLeg.ToTime + o.slack.Alight
				legs = append(legs, path.Leg{
					Kind:     path.TransferLeg,
					FromStop: prevLeg.ToStop,
					ToStop:   leg.FromStop,
					FromTime: start,
					ToTime:   start + prevTail.walk,
					C1:       prevTail.walkC1,
					Transfer: &transit.Transfer{Stop: leg.FromStop, Duration: prevTail.walk, C1: prevTail.walkC1},
				})
			}
		}
		legs = append(legs, leg)
		prevTail = cur
		k++
	}

	legs = append(legs, p.Legs[last+1:]...)
	return path.New(legs, p.IterationDeparture)
}

// waitsMet reports whether p stays at every via stop for its minimum wait.
func (o *Optimizer) waitsMet(p *path.Path) bool {
	for i, wait := range o.via.Waits(p.Legs) {
		if wait == 0 || i+1 == len(p.Legs) {
			continue
		}
		ready := p.Legs[i].ToTime
		if p.Legs[i].Kind == path.TransitLeg {
			ready += o.slack.Alight
		}
		if p.Legs[i+1].FromTime < ready+wait {
			return false
		}
	}
	return true
}

// minWait returns the shortest transfer wait of p, measured like tail waits.
func (o *Optimizer) minWait(p *path.Path, idx []int) int {
	m := math.MaxInt32
	for k := 1; k < len(idx); k++ {
		prev, next := p.Legs[idx[k-1]], p.Legs[idx[k]]
		walk := 0
		if idx[k]-idx[k-1] == 2 {
			walk = p.Legs[idx[k]-1].Duration()
		}
		m = min(m, next.FromTime-(prev.ToTime+o.slack.Alight+walk))
	}
	return m
}
