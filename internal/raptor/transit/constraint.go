package transit

import "fmt"

// TransferConstraint is the rule attached to a constrained transfer.
type TransferConstraint struct {
	NotAllowed      bool
	Guaranteed      bool
	StaySeated      bool
	MinTransferTime int
}

// Facilitated reports whether the transfer is guaranteed or stay-seated.
func (c TransferConstraint) Facilitated() bool {
	return c.Guaranteed || c.StaySeated
}

func (c TransferConstraint) String() string {
	switch {
	case c.NotAllowed:
		return "not-allowed"
	case c.StaySeated:
		return "stay-seated"
	case c.Guaranteed:
		return "guaranteed"
	case c.MinTransferTime > 0:
		return fmt.Sprintf("min-transfer-time %ds", c.MinTransferTime)
	default:
		return "allowed"
	}
}

// ConstrainedTransfer links a source trip alighted at a stop position to a target
// route boarded at a stop position. A nil ToTrip applies to every trip of the route.
type ConstrainedTransfer struct {
	FromTrip    *Trip
	FromStopPos int
	ToTrip      *Trip
	ToStopPos   int
	Constraint  TransferConstraint
}

// ConstrainedBoarding is the outcome of a constrained transfer lookup.
type ConstrainedBoarding struct {
	Trip              *Trip
	StopPos           int
	BoardTime         int
	EarliestBoardTime int
	Constraint        TransferConstraint
}

// NotAllowed reports whether boarding is blocked by the constraint.
func (b ConstrainedBoarding) NotAllowed() bool {
	return b.Constraint.NotAllowed
}

// RouteConstraints indexes the constrained transfers targeting one route by
// target stop position.
type RouteConstraints struct {
	byStopPos map[int][]ConstrainedTransfer
}

// NewRouteConstraints creates an empty index.
func NewRouteConstraints() *RouteConstraints {
	return &RouteConstraints{byStopPos: make(map[int][]ConstrainedTransfer)}
}

// Add registers a constrained transfer.
func (c *RouteConstraints) Add(tx ConstrainedTransfer) {
	c.byStopPos[tx.ToStopPos] = append(c.byStopPos[tx.ToStopPos], tx)
}

// Empty reports whether the index holds no transfers.
func (c *RouteConstraints) Empty() bool {
	return len(c.byStopPos) == 0
}

// ExistAt reports whether any constrained transfer targets the stop position.
func (c *RouteConstraints) ExistAt(stopPos int) bool {
	if c == nil {
		return false
	}
	return len(c.byStopPos[stopPos]) > 0
}

// Find resolves the rule for boarding one of trips at stopPos after alighting
// sourceTrip at sourceStopPos. sourceArrival is the alight time of the source trip
// without slack; earliestBoardTime is the regular earliest board time at the
// target stop. The second return value is false when no rule applies or the
// rule cannot be honoured, in which case the caller falls back to a regular search.
func (c *RouteConstraints) Find(
	trips []*Trip,
	stopPos int,
	sourceTrip *Trip,
	sourceStopPos int,
	sourceArrival int,
	earliestBoardTime int,
) (ConstrainedBoarding, bool) {
	if c == nil {
		return ConstrainedBoarding{}, false
	}
	for _, tx := range c.byStopPos[stopPos] {
		if tx.FromTrip != sourceTrip || tx.FromStopPos != sourceStopPos {
			continue
		}
		if tx.Constraint.NotAllowed {
			return ConstrainedBoarding{StopPos: stopPos, Constraint: tx.Constraint}, true
		}

		earliest := sourceArrival
		if tx.Constraint.MinTransferTime > 0 {
			earliest = max(sourceArrival+tx.Constraint.MinTransferTime, earliestBoardTime)
		} else if !tx.Constraint.Facilitated() {
			earliest = earliestBoardTime
		}

		for _, trip := range trips {
			if tx.ToTrip != nil && trip != tx.ToTrip {
				continue
			}
			if dep := trip.Departure(stopPos); dep >= earliest {
				return ConstrainedBoarding{
					Trip:              trip,
					StopPos:           stopPos,
					BoardTime:         dep,
					EarliestBoardTime: earliest,
					Constraint:        tx.Constraint,
				}, true
			}
		}
	}
	return ConstrainedBoarding{}, false
}
