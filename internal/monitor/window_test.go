package monitor_test

import (
	"testing"

	"codeberg.org/helvik/tapowatt/internal/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func observe(w *monitor.Window, watts float64) {
	w.Advance()
	w.Append(watts)
}

func TestWindowNeverExceedsCapacity(t *testing.T) {
	w := monitor.NewWindow(5)

	for i := 0; i < 12; i++ {
		observe(w, float64(i))
		assert.LessOrEqual(t, w.Len(), 5, "Window must never exceed capacity, even transiently")
	}

	assert.Equal(t, 5, w.Len(), "Window must be exactly full after >= capacity iterations")
}

func TestWindowAgingAndOrdering(t *testing.T) {
	w := monitor.NewWindow(10)

	observe(w, 1)
	observe(w, 2)

	before := w.Points()
	observe(w, 3)
	after := w.Points()

	require.Len(t, after, 3)
	assert.Equal(t, monitor.Point{Offset: 0, Watts: 3}, after[2], "Newest point sits at offset 0")

	// Every surviving point aged by exactly one interval
	for i, p := range before {
		assert.Equal(t, p.Offset-1, after[i].Offset)
		assert.Equal(t, p.Watts, after[i].Watts)
	}

	// Sorted by offset ascending
	for i := 1; i < len(after); i++ {
		assert.Equal(t, after[i-1].Offset+1, after[i].Offset)
	}
}

func TestWindowEvictsOldestFirst(t *testing.T) {
	w := monitor.NewWindow(3)

	for _, v := range []float64{1, 2, 3} {
		observe(w, v)
	}
	require.Equal(t, 3, w.Len())

	observe(w, 4)

	points := w.Points()
	require.Len(t, points, 3)
	assert.Equal(t, 2.0, points[0].Watts, "The oldest (smallest offset) point is evicted")
	assert.Equal(t, []monitor.Point{{-2, 2}, {-1, 3}, {0, 4}}, points)
}

func TestWindowPointsIsACopy(t *testing.T) {
	w := monitor.NewWindow(3)
	observe(w, 7)

	points := w.Points()
	points[0].Watts = 99

	assert.Equal(t, 7.0, w.Points()[0].Watts, "Window contents are owned by the loop, not aliased out")
}
