package rangeraptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/raptor/internal/raptor/transit"
)

func TestPublisher_IgnoresLaterSubscriptions(t *testing.T) {
	var calls []string
	subs := &Subscriptions{}
	subs.OnSearchComplete(func() { calls = append(calls, "first") })

	publisher := subs.Publisher()
	subs.OnSearchComplete(func() { calls = append(calls, "late") })
	publisher.searchComplete()

	assert.Equal(t, []string{"first"}, calls)
}

func TestArena_Chain(t *testing.T) {
	a := newArena(4)
	trip := &transit.Trip{ID: "t1", Arrivals: []int{100, 400}, Departures: []int{100, 400}}
	route := &transit.Route{Name: "R1", Pattern: &transit.Pattern{Stops: []int{0, 1}}, Trips: []*transit.Trip{trip}}
	access := transit.Walk(0, 30, 3000)

	acc := a.add(arrival{kind: accessArrival, stop: 0, prev: noArrival, time: 30, access: &access})
	ride := a.add(arrival{kind: transitArrival, onBoard: true, stop: 1, round: 1, prev: acc, time: 400, departure: 100, route: route, trip: trip, alightPos: 1})
	walk := a.add(arrival{kind: transferArrival, stop: 2, round: 1, prev: ride, time: 460, departure: 400, transfer: transit.Transfer{Stop: 2, Duration: 60}})

	chain := a.chain(walk)
	require.Len(t, chain, 3)

	_, isAccess := chain[0].(AccessArrival)
	assert.True(t, isAccess)
	tr, isTransit := chain[1].(TransitArrival)
	require.True(t, isTransit)
	assert.Equal(t, "t1", tr.Trip().ID)
	tx, isTransfer := chain[2].(TransferArrival)
	require.True(t, isTransfer)
	assert.Equal(t, 60, tx.Transfer().Duration)

	for i := 1; i < len(chain); i++ {
		prev, ok := chain[i].Previous()
		require.True(t, ok)
		assert.Equal(t, chain[i-1].Stop(), prev.Stop())
	}
	_, ok := chain[0].Previous()
	assert.False(t, ok)

	assert.Equal(t, chain[1].Time()+60, chain[2].Time(), "a transfer arrives its duration after the previous arrival")

	src := a.previousTransit(walk)
	require.NotNil(t, src)
	assert.Equal(t, int32(1), src.stop)
	assert.Nil(t, a.previousTransit(acc))
}

func TestStopArrivals_SameRoundArrivalsAreCached(t *testing.T) {
	a := newArena(0)
	earlier := func(l, r int32) bool { return a.get(l).time < a.get(r).time }
	s := newStopArrivals(2, a, earlier, nil, nil)

	first := a.add(arrival{kind: accessArrival, stop: 0, prev: noArrival, time: 100})
	require.True(t, s.add(first))

	s.startRound()
	s.addLater(a.add(arrival{kind: transitArrival, stop: 0, prev: first, time: 50}))
	assert.Equal(t, 1, s.recent(0).Len(), "cached arrivals are not visible before commit")

	s.markPreviousRound()
	s.commit()
	recent := s.recent(0)
	require.Equal(t, 1, recent.Len())
	assert.Equal(t, 50, a.get(recent.At(0)).time)
	assert.True(t, s.touched.Test(0))
}
