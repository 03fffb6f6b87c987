package path_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/breatheroute/raptor/internal/raptor/path"
	"github.com/breatheroute/raptor/internal/raptor/transit"
)

func samplePath(start, end, c1 int) *path.Path {
	access := transit.Walk(1, 30, 0)
	egress := transit.Flex(2, 300, 0, 1)
	route := &transit.Route{Name: "R1", Pattern: &transit.Pattern{Stops: []int{1, 2}}}
	return path.New([]path.Leg{
		{Kind: path.AccessLeg, FromStop: -1, ToStop: 1, FromTime: start, ToTime: start + 30, C1: c1 / 2, AccessEgress: &access},
		{Kind: path.TransitLeg, FromStop: 1, ToStop: 2, FromTime: start + 30, ToTime: end - 300, Route: route, BoardPos: 0, AlightPos: 1},
		{Kind: path.EgressLeg, FromStop: 2, ToStop: -1, FromTime: end - 300, ToTime: end, C1: c1 - c1/2, AccessEgress: &egress},
	}, start)
}

func TestNew_Aggregates(t *testing.T) {
	p := samplePath(transit.HMS(8, 0, 0), transit.HMS(8, 30, 0), 4000)

	assert.Equal(t, transit.HMS(8, 0, 0), p.StartTime)
	assert.Equal(t, transit.HMS(8, 30, 0), p.EndTime)
	assert.Equal(t, 1800, p.Duration())
	assert.Equal(t, 4000, p.C1)
	assert.Equal(t, 1, p.Transfers, "the flex egress counts as a ride")
	assert.Equal(t, 1, p.TransitLegs())
}

func TestNew_TimePenalty(t *testing.T) {
	access := transit.Walk(1, 60, 0).WithTimePenalty(120)
	p := path.New([]path.Leg{
		{Kind: path.AccessLeg, ToStop: 1, FromTime: 100, ToTime: 160, AccessEgress: &access},
		{Kind: path.EgressLeg, FromStop: 1, FromTime: 160, ToTime: 200},
	}, 100)

	assert.Equal(t, 100, p.StartTime)
	assert.Equal(t, -20, p.PenalizedStartTime)
	assert.Equal(t, 200, p.PenalizedEndTime)
	assert.Equal(t, 0, p.Transfers)
}

func TestPath_String(t *testing.T) {
	p := samplePath(transit.HMS(8, 0, 0), transit.HMS(8, 30, 0), 4000)

	assert.Equal(t, "Walk 30s ~ 1 ~ R1 8:00:30 8:25 ~ 2 ~ Flex 5m 1x [8:00 8:30 30m Tx1 C1 40]", p.String())
}

func TestFormatDuration(t *testing.T) {
	tests := map[int]string{
		0:    "0s",
		45:   "45s",
		120:  "2m",
		195:  "3m15s",
		3900: "1h5m",
		-60:  "-1m",
	}
	for in, want := range tests {
		assert.Equal(t, want, path.FormatDuration(in))
	}
}
