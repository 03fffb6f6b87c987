package rangeraptor

import (
	"github.com/breatheroute/raptor/internal/raptor/path"
	"github.com/breatheroute/raptor/internal/raptor/transit"
)

// buildPath turns the arrival chain ending at idx plus an egress path into a
// completed path. The access leg is moved as close to the first boarding as its
// opening hours allow, so the traveller does not wait at the first stop.
func (m *multiCriteria) buildPath(idx int32, egress transit.AccessEgress, egressDeparture int) *path.Path {
	chain := m.arena.chain(idx)
	legs := make([]path.Leg, 0, len(chain)+1)

	access := chain[0].(AccessArrival)
	accessLeg := m.accessLeg(access, chain[1:])
	legs = append(legs, accessLeg)

	prevStop, prevTime, prevC1 := access.Stop(), accessLeg.ToTime, access.C1()
	for i, a := range chain[1:] {
		switch v := a.(type) {
		case TransitArrival:
			trip := v.Trip()
			legs = append(legs, path.Leg{
				Kind:       path.TransitLeg,
				FromStop:   v.Route().Pattern.StopAt(v.BoardPos()),
				ToStop:     v.Stop(),
				FromTime:   v.DepartureTime(),
				ToTime:     trip.Arrival(v.AlightPos()),
				C1:         v.C1() - prevC1,
				Route:      v.Route(),
				Trip:       trip,
				BoardPos:   v.BoardPos(),
				AlightPos:  v.AlightPos(),
				Constraint: v.Constraint(),
			})
			prevTime = v.Time()
		case TransferArrival:
			tx := v.Transfer()
			// A via wait delays the walk past the previous arrival.
			start := prevTime + v.DepartureTime() - chain[i].Time()
			legs = append(legs, path.Leg{
				Kind:     path.TransferLeg,
				FromStop: prevStop,
				ToStop:   tx.Stop,
				FromTime: start,
				ToTime:   start + tx.Duration,
				C1:       v.C1() - prevC1,
				Transfer: &tx,
			})
			prevTime = start + tx.Duration
		}
		prevStop, prevC1 = a.Stop(), a.C1()
	}

	last := chain[len(chain)-1]
	ready := last.Time()
	if egress.HasRides() {
		ready += m.slack.Transfer
	}
	legs = append(legs, path.Leg{
		Kind:         path.EgressLeg,
		FromStop:     last.Stop(),
		ToStop:       -1,
		FromTime:     egressDeparture,
		ToTime:       egressDeparture + egress.Duration,
		C1:           m.cost.Egress(egress, egressDeparture-ready),
		AccessEgress: &egress,
	})
	return path.New(legs, m.iterationDeparture)
}

// accessLeg returns the access leg, departing as late as possible while still
// reaching the first boarding in rest. Without a boarding the search times are kept.
func (m *multiCriteria) accessLeg(a AccessArrival, rest []Arrival) path.Leg {
	ae := a.Access()
	dep := a.DepartureTime()

	if target, ok := m.firstBoardingTarget(rest); ok {
		latest := target - ae.Duration
		if ae.OpeningHours != nil {
			latest = ae.OpeningHours.LatestDeparture(latest)
		}
		if latest != transit.NotSet && latest > dep {
			dep = latest
		}
	}
	return path.Leg{
		Kind:         path.AccessLeg,
		FromStop:     -1,
		ToStop:       ae.Stop,
		FromTime:     dep,
		ToTime:       dep + ae.Duration,
		C1:           ae.C1,
		AccessEgress: &ae,
	}
}

// firstBoardingTarget returns the latest time the access may end: the first
// board time minus board slack or a via wait, and the transfers walked before it.
func (m *multiCriteria) firstBoardingTarget(rest []Arrival) (int, bool) {
	walked := 0
	for _, a := range rest {
		prev, _ := a.Previous()
		switch v := a.(type) {
		case TransferArrival:
			walked += v.Time() - prev.Time()
		case TransitArrival:
			gap := max(m.slack.BoardSlack(v.Round()), m.waitAfter(prev))
			return v.DepartureTime() - gap - walked, true
		}
	}
	return 0, false
}

// waitAfter is the via minimum wait the journey must spend at a's stop.
func (m *multiCriteria) waitAfter(a Arrival) int {
	before := 0
	if p, ok := a.Previous(); ok {
		before = p.C2()
	}
	return m.via.MinWaitAt(before, a.C2(), a.Stop())
}
