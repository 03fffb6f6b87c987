// Package path holds completed journeys and the destination arrival collector.
package path

import (
	"fmt"
	"strings"

	"github.com/breatheroute/raptor/internal/raptor/transit"
)

// LegKind tags the variant of a Leg.
type LegKind int

const (
	AccessLeg LegKind = iota
	TransitLeg
	TransferLeg
	EgressLeg
)

func (k LegKind) String() string {
	switch k {
	case AccessLeg:
		return "access"
	case TransitLeg:
		return "transit"
	case TransferLeg:
		return "transfer"
	case EgressLeg:
		return "egress"
	default:
		return "unknown"
	}
}

// Leg is one leg of a path. FromStop of an access leg and ToStop of an egress
// leg are -1. Route, Trip and the positions are set for transit legs only.
type Leg struct {
	Kind     LegKind
	FromStop int
	ToStop   int
	FromTime int
	ToTime   int
	C1       int

	Route      *transit.Route
	Trip       *transit.Trip
	BoardPos   int
	AlightPos  int
	Constraint *transit.TransferConstraint

	AccessEgress *transit.AccessEgress
	Transfer     *transit.Transfer
}

// Duration returns the leg duration in seconds.
func (l Leg) Duration() int {
	return l.ToTime - l.FromTime
}

func (l Leg) String() string {
	switch l.Kind {
	case AccessLeg:
		return fmt.Sprintf("%s ~ %d", accessEgressLabel(l.AccessEgress, l.Duration()), l.ToStop)
	case EgressLeg:
		return accessEgressLabel(l.AccessEgress, l.Duration())
	case TransferLeg:
		return fmt.Sprintf("Walk %s ~ %d", FormatDuration(l.Duration()), l.ToStop)
	case TransitLeg:
		name := "?"
		if l.Route != nil {
			name = l.Route.Name
		}
		return fmt.Sprintf("%s %s %s ~ %d", name, transit.FormatTime(l.FromTime), transit.FormatTime(l.ToTime), l.ToStop)
	default:
		return "?"
	}
}

func accessEgressLabel(ae *transit.AccessEgress, duration int) string {
	if ae != nil && ae.HasRides() {
		return fmt.Sprintf("Flex %s %dx", FormatDuration(duration), ae.Rides)
	}
	return "Walk " + FormatDuration(duration)
}

// Path is a completed journey: access, transit and transfer legs, egress.
type Path struct {
	Legs               []Leg
	IterationDeparture int
	StartTime          int
	EndTime            int
	PenalizedStartTime int
	PenalizedEndTime   int
	Transfers          int
	C1                 int
	C2                 int
	ViaSatisfied       bool
}

// New creates a path from its legs and computes the aggregates.
func New(legs []Leg, iterationDeparture int) *Path {
	p := &Path{Legs: legs, IterationDeparture: iterationDeparture}
	if len(legs) == 0 {
		return p
	}

	first, last := legs[0], legs[len(legs)-1]
	p.StartTime, p.EndTime = first.FromTime, last.ToTime
	p.PenalizedStartTime, p.PenalizedEndTime = p.StartTime, p.EndTime
	if first.AccessEgress != nil {
		p.PenalizedStartTime -= first.AccessEgress.TimePenalty
	}
	if last.AccessEgress != nil {
		p.PenalizedEndTime += last.AccessEgress.TimePenalty
	}

	rides := 0
	for _, l := range legs {
		p.C1 += l.C1
		switch l.Kind {
		case TransitLeg:
			rides++
		case AccessLeg, EgressLeg:
			if l.AccessEgress != nil {
				rides += l.AccessEgress.Rides
			}
		}
	}
	p.Transfers = max(rides-1, 0)
	return p
}

// Duration returns the journey duration in seconds.
func (p *Path) Duration() int {
	return p.EndTime - p.StartTime
}

// TransitLegs returns the number of transit legs.
func (p *Path) TransitLegs() int {
	n := 0
	for _, l := range p.Legs {
		if l.Kind == TransitLeg {
			n++
		}
	}
	return n
}

func (p *Path) String() string {
	parts := make([]string, 0, len(p.Legs))
	for _, l := range p.Legs {
		parts = append(parts, l.String())
	}
	return fmt.Sprintf("%s [%s %s %s Tx%d C1 %d]",
		strings.Join(parts, " ~ "),
		transit.FormatTime(p.StartTime),
		transit.FormatTime(p.EndTime),
		FormatDuration(p.Duration()),
		p.Transfers,
		transit.FromCost(p.C1),
	)
}

// FormatDuration renders seconds as e.g. 45s, 2m, 1h5m or 3m15s.
func FormatDuration(d int) string {
	if d == 0 {
		return "0s"
	}
	sign := ""
	if d < 0 {
		sign, d = "-", -d
	}
	h, m, s := d/3600, (d/60)%60, d%60
	var b strings.Builder
	b.WriteString(sign)
	if h > 0 {
		fmt.Fprintf(&b, "%dh", h)
	}
	if m > 0 {
		fmt.Fprintf(&b, "%dm", m)
	}
	if s > 0 {
		fmt.Fprintf(&b, "%ds", s)
	}
	return b.String()
}
