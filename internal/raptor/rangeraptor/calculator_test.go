package rangeraptor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/breatheroute/raptor/internal/raptor/rangeraptor"
)

func TestCalculator_IterationTimes(t *testing.T) {
	const at = 1000

	tests := []struct {
		name    string
		window  int
		step    int
		forward []int
		reverse []int
	}{
		{name: "no window", window: 0, step: 60, forward: []int{at}, reverse: []int{at}},
		{name: "window shorter than step", window: 30, step: 60, forward: []int{at}, reverse: []int{at}},
		{name: "partial last step", window: 90, step: 60, forward: []int{at + 60, at}, reverse: []int{at - 60, at}},
		{name: "whole steps", window: 180, step: 60, forward: []int{at + 120, at + 60, at}, reverse: []int{at - 120, at - 60, at}},
		{name: "no step", window: 600, step: 0, forward: []int{at}, reverse: []int{at}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.forward, rangeraptor.NewCalculator(true).IterationTimes(at, tc.window, tc.step))
			assert.Equal(t, tc.reverse, rangeraptor.NewCalculator(false).IterationTimes(at, tc.window, tc.step))
		})
	}
}
