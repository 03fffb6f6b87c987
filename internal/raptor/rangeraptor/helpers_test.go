package rangeraptor_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/raptor/internal/raptor/path"
	"github.com/breatheroute/raptor/internal/raptor/rangeraptor"
	"github.com/breatheroute/raptor/internal/raptor/transit"
	"github.com/breatheroute/raptor/internal/timetable"
)

func hm(h, m int) int { return transit.HMS(h, m, 0) }

func build(t *testing.T, b *timetable.Builder) *timetable.Timetable {
	t.Helper()
	tt, err := b.Build()
	require.NoError(t, err)
	return tt
}

func stopOf(t *testing.T, tt *timetable.Timetable, id string) int {
	t.Helper()
	i, ok := tt.StopIndex(id)
	require.True(t, ok, "stop %s", id)
	return i
}

func walk(stop, seconds int) transit.AccessEgress {
	return transit.Walk(stop, seconds, transit.ToCost(seconds))
}

// lineNetwork is A -> B -> C on R1 with trips at 8:05 and 8:35.
func lineNetwork(t *testing.T) *timetable.Timetable {
	return build(t, timetable.NewBuilder().
		AddStops("A", "B", "C").
		AddRoute("R1", "A", "B", "C").
		AddTrip("R1", "t1", hm(8, 5), hm(8, 10), hm(8, 25)).
		AddTrip("R1", "t2", hm(8, 35), hm(8, 40), hm(8, 55)))
}

// transferNetwork is R1 A -> B, a two minute walk B - C and R2 C -> D, plus a
// slower direct route R3 A -> D.
func transferNetwork(t *testing.T) *timetable.Timetable {
	return build(t, timetable.NewBuilder().
		AddStops("A", "B", "C", "D", "E").
		AddRoute("R1", "A", "B").
		AddTrip("R1", "t1", hm(8, 5), hm(8, 15)).
		AddRoute("R2", "C", "D").
		AddTrip("R2", "u1", hm(8, 16), hm(8, 36)).
		AddTrip("R2", "u2", hm(8, 20), hm(8, 40)).
		AddRoute("R3", "A", "D").
		AddTrip("R3", "d1", hm(8, 10), hm(8, 50)).
		AddWalk("B", "C", 120))
}

func request(access, egress transit.AccessEgress) rangeraptor.Request {
	return rangeraptor.Request{
		EarliestDepartureTime: hm(8, 0),
		MaxTransfers:          3,
		Access:                []transit.AccessEgress{access},
		Egress:                []transit.AccessEgress{egress},
		Cost:                  transit.DefaultCostFactors(),
		Timetable:             true,
	}
}

func options() rangeraptor.Options {
	return rangeraptor.Options{Logger: zerolog.Nop()}
}

func route(t *testing.T, data transit.Data, req rangeraptor.Request) []*path.Path {
	t.Helper()
	res, err := rangeraptor.RouteMultiCriteria(context.Background(), data, req, options())
	require.NoError(t, err)
	return res.Paths
}
