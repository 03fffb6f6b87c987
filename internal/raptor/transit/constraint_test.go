package transit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/raptor/internal/raptor/transit"
)

func newTrip(id string, index int, times ...int) *transit.Trip {
	return &transit.Trip{ID: id, Index: index, Arrivals: times, Departures: times}
}

func TestRouteConstraints_Find(t *testing.T) {
	source := newTrip("S1", 0, 100, 200, 300)
	other := newTrip("S2", 0, 400, 500, 600)
	early := newTrip("T1", 0, 250, 310, 400)
	late := newTrip("T2", 1, 350, 410, 500)
	trips := []*transit.Trip{early, late}

	t.Run("no rule", func(t *testing.T) {
		c := transit.NewRouteConstraints()
		_, ok := c.Find(trips, 1, source, 2, 300, 330)
		assert.False(t, ok)
		assert.False(t, c.ExistAt(1))
	})

	t.Run("not allowed blocks boarding", func(t *testing.T) {
		c := transit.NewRouteConstraints()
		c.Add(transit.ConstrainedTransfer{
			FromTrip: source, FromStopPos: 2, ToStopPos: 1,
			Constraint: transit.TransferConstraint{NotAllowed: true},
		})
		b, ok := c.Find(trips, 1, source, 2, 300, 330)
		require.True(t, ok)
		assert.True(t, b.NotAllowed())
		assert.Nil(t, b.Trip)
	})

	t.Run("guaranteed ignores slack", func(t *testing.T) {
		c := transit.NewRouteConstraints()
		c.Add(transit.ConstrainedTransfer{
			FromTrip: source, FromStopPos: 2, ToTrip: early, ToStopPos: 1,
			Constraint: transit.TransferConstraint{Guaranteed: true},
		})
		require.True(t, c.ExistAt(1))

		b, ok := c.Find(trips, 1, source, 2, 300, 330)
		require.True(t, ok)
		assert.Same(t, early, b.Trip)
		assert.Equal(t, 310, b.BoardTime)
		assert.True(t, b.Constraint.Facilitated())
	})

	t.Run("guaranteed trip already gone", func(t *testing.T) {
		c := transit.NewRouteConstraints()
		c.Add(transit.ConstrainedTransfer{
			FromTrip: source, FromStopPos: 2, ToTrip: early, ToStopPos: 1,
			Constraint: transit.TransferConstraint{Guaranteed: true},
		})
		_, ok := c.Find(trips, 1, source, 2, 320, 350)
		assert.False(t, ok)
	})

	t.Run("min transfer time", func(t *testing.T) {
		c := transit.NewRouteConstraints()
		c.Add(transit.ConstrainedTransfer{
			FromTrip: source, FromStopPos: 2, ToStopPos: 1,
			Constraint: transit.TransferConstraint{MinTransferTime: 60},
		})
		b, ok := c.Find(trips, 1, source, 2, 300, 305)
		require.True(t, ok)
		assert.Same(t, late, b.Trip)
		assert.Equal(t, 360, b.EarliestBoardTime)
	})

	t.Run("rule for another source trip", func(t *testing.T) {
		c := transit.NewRouteConstraints()
		c.Add(transit.ConstrainedTransfer{
			FromTrip: other, FromStopPos: 2, ToStopPos: 1,
			Constraint: transit.TransferConstraint{NotAllowed: true},
		})
		_, ok := c.Find(trips, 1, source, 2, 300, 330)
		assert.False(t, ok)
	})
}

func TestCostCalculator(t *testing.T) {
	calc := transit.NewCostCalculator(transit.CostFactors{
		BoardCost:         60,
		TransferCost:      120,
		WaitReluctance:    0.5,
		TransitReluctance: 1.0,
	})

	assert.Equal(t, 6000, calc.Boarding(true, 300, false))
	assert.Equal(t, 6000+12000+15000, calc.Boarding(false, 300, false))
	assert.Equal(t, 6000+15000, calc.Boarding(false, 300, true))
	assert.Equal(t, 60000, calc.Transit(600))
	assert.Equal(t, 500, calc.Wait(10))
	assert.Equal(t, 100+12000, calc.Egress(transit.Flex(1, 60, 100, 1), 0))
	assert.Equal(t, 42, transit.FromCost(4200))
}
