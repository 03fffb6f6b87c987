package path_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/raptor/internal/raptor/path"
)

func TestDestinationArrivals_Timetable(t *testing.T) {
	d := path.NewDestinationArrivals(true, nil)

	early := samplePath(1000, 3000, 5000)
	later := samplePath(1600, 3300, 5000)
	same := samplePath(1000, 3000, 5000)

	require.True(t, d.Add(early))
	assert.True(t, d.Add(later), "later departure keeps the path")
	assert.False(t, d.Add(same))
	assert.Len(t, d.Paths(), 2)
	assert.Equal(t, 2, d.Accepted())
}

func TestDestinationArrivals_ArrivalOnly(t *testing.T) {
	d := path.NewDestinationArrivals(false, nil)

	require.True(t, d.Add(samplePath(1000, 3000, 5000)))
	assert.False(t, d.Add(samplePath(1600, 3300, 5000)), "later arrival at same cost is dominated")
	assert.True(t, d.Add(samplePath(1600, 3300, 4000)), "cheaper path is kept")
	assert.Len(t, d.Paths(), 2)
}

func TestDestinationArrivals_EvictsDominated(t *testing.T) {
	d := path.NewDestinationArrivals(true, nil)

	d.Add(samplePath(1000, 3000, 5000))
	better := samplePath(1000, 2900, 4000)
	require.True(t, d.Qualify(better))
	require.True(t, d.Add(better))

	paths := d.Paths()
	require.Len(t, paths, 1)
	assert.Same(t, better, paths[0])
	assert.Equal(t, 2, d.Accepted())
}

func TestDestinationArrivals_Validation(t *testing.T) {
	d := path.NewDestinationArrivals(true, func(p *path.Path) bool { return p.C1 < 10000 })

	assert.False(t, d.Add(samplePath(1000, 3000, 20000)))
	assert.True(t, d.IsEmpty())
	assert.Equal(t, 1, d.Invalid())
	assert.True(t, d.Add(samplePath(1000, 3000, 5000)))
}

func TestSort(t *testing.T) {
	a := samplePath(1000, 3000, 5000)
	b := samplePath(1600, 3000, 5000)
	c := samplePath(500, 2500, 9000)
	paths := []*path.Path{a, b, c}

	path.Sort(paths)

	assert.Equal(t, []*path.Path{c, b, a}, paths)
}
