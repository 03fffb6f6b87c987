package transit

// Slack holds the minimum buffer times, in seconds, applied around boarding.
// Transfer slack is required between two rides; it is added to the board slack
// for every boarding except the first ride after a walking access.
type Slack struct {
	Board    int `yaml:"board" validate:"gte=0"`
	Alight   int `yaml:"alight" validate:"gte=0"`
	Transfer int `yaml:"transfer" validate:"gte=0"`
}

// BoardSlack returns the slack required before boarding in the given round.
func (s Slack) BoardSlack(round int) int {
	if round < 2 {
		return s.Board
	}
	return s.Board + s.Transfer
}

// EgressDepartureTime returns the earliest departure of an egress path from a stop
// reached at arrivalTime. Egress paths with rides need transfer slack; the result
// is then shifted into the egress opening hours.
func (s Slack) EgressDepartureTime(egress AccessEgress, arrivalTime int) int {
	t := arrivalTime
	if egress.HasRides() {
		t += s.Transfer
	}
	return egress.EarliestDepartureTime(t)
}
