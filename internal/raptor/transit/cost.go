package transit

import "math"

// CostFactors configure the generalized cost. Costs are in seconds; reluctances
// are multipliers applied to a duration.
type CostFactors struct {
	BoardCost         int     `yaml:"board_cost" validate:"gte=0"`
	TransferCost      int     `yaml:"transfer_cost" validate:"gte=0"`
	WaitReluctance    float64 `yaml:"wait_reluctance" validate:"gte=0"`
	TransitReluctance float64 `yaml:"transit_reluctance" validate:"gte=0"`
}

// DefaultCostFactors returns the cost factors used when none are configured.
func DefaultCostFactors() CostFactors {
	return CostFactors{
		BoardCost:         60,
		TransferCost:      120,
		WaitReluctance:    1.0,
		TransitReluctance: 1.0,
	}
}

// CostCalculator computes the generalized cost C1 in centi-seconds.
type CostCalculator struct {
	boardCost     int
	transferCost  int
	waitFactor    int
	transitFactor int
}

// NewCostCalculator creates a calculator from cost factors.
func NewCostCalculator(f CostFactors) CostCalculator {
	return CostCalculator{
		boardCost:     ToCost(f.BoardCost),
		transferCost:  ToCost(f.TransferCost),
		waitFactor:    toFactor(f.WaitReluctance),
		transitFactor: toFactor(f.TransitReluctance),
	}
}

// ToCost converts seconds to centi-seconds.
func ToCost(seconds int) int {
	return seconds * 100
}

// FromCost converts centi-seconds to whole seconds, rounding to nearest.
func FromCost(c1 int) int {
	return int(math.Round(float64(c1) / 100))
}

func toFactor(f float64) int {
	return int(math.Round(f * 100))
}

// Boarding returns the cost of boarding after waiting waitTime seconds. The first
// boarding after a walking access has no wait cost, since the access is shifted
// towards the departure. Facilitated constrained transfers waive the transfer cost.
func (c CostCalculator) Boarding(firstBoarding bool, waitTime int, facilitated bool) int {
	if firstBoarding {
		return c.boardCost
	}
	cost := c.boardCost + c.waitFactor*waitTime
	if !facilitated {
		cost += c.transferCost
	}
	return cost
}

// Transit returns the cost of riding for the given duration.
func (c CostCalculator) Transit(duration int) int {
	return c.transitFactor * duration
}

// Wait returns the cost of waiting for the given duration.
func (c CostCalculator) Wait(duration int) int {
	return c.waitFactor * duration
}

// Egress returns the cost of an egress path started after waiting waitTime seconds.
func (c CostCalculator) Egress(egress AccessEgress, waitTime int) int {
	cost := egress.C1 + c.waitFactor*waitTime
	if egress.HasRides() {
		cost += c.transferCost
	}
	return cost
}
