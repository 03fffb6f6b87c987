package passthrough

import "github.com/breatheroute/raptor/internal/raptor/path"

// FromPath converts the legs of a completed path into a linked tail and returns
// its first leg.
func FromPath(p *path.Path) *Leg {
	legs := make([]*Leg, 0, len(p.Legs))
	for _, l := range p.Legs {
		switch l.Kind {
		case path.AccessLeg:
			legs = append(legs, AccessLeg(l.ToStop))
		case path.EgressLeg:
			legs = append(legs, EgressLeg(l.FromStop))
		case path.TransferLeg:
			legs = append(legs, TransferLeg(l.FromStop, l.ToStop))
		case path.TransitLeg:
			legs = append(legs, TransitLeg(l.Route.Pattern.Stops, l.BoardPos, l.AlightPos))
		}
	}
	return Chain(legs...)
}

// Validator returns a function that computes C2 for a path, stores it on the path
// and reports whether every via-location is passed.
func (c *Calculator) Validator() func(*path.Path) bool {
	return func(p *path.Path) bool {
		if !c.points.Enabled() {
			p.ViaSatisfied = true
			return true
		}
		p.C2 = c.C2(FromPath(p))
		p.ViaSatisfied = p.C2 == 0
		return p.ViaSatisfied
	}
}

// Waits returns, per leg of p, the minimum stay at the leg's last stop before
// the next leg may start. Stops are counted the way a forward search counts
// them, so only the leg completing a visit with a minimum wait gets one.
func (p Points) Waits(legs []path.Leg) []int {
	waits := make([]int, len(legs))
	c2 := 0
	for i, l := range legs {
		before := c2
		switch l.Kind {
		case path.AccessLeg, path.TransferLeg:
			c2 = p.Next(c2, l.ToStop)
		case path.TransitLeg:
			stops := l.Route.Pattern.Stops
			for q := l.BoardPos + 1; q < l.AlightPos; q++ {
				if next := p.Next(c2, stops[q]); p.CountsOnBoard(c2) {
					c2 = next
				}
			}
			c2 = p.Next(c2, l.ToStop)
		default:
			continue
		}
		waits[i] = p.MinWaitAt(before, c2, l.ToStop)
	}
	return waits
}
