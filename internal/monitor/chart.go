package monitor

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/guptarohit/asciigraph"
)

// Terminal control sequences: clear once at startup, then reposition to a
// fixed origin before every frame and erase whatever the previous, possibly
// taller frame left behind.
const (
	termClear      = "\x1b[2J"
	termHome       = "\x1b[H"
	termEraseBelow = "\x1b[J"
)

// ChartRenderer draws the window as a line chart with fixed dimensions.
// The y axis carries raw watt values; the x axis spans the fixed domain
// from -capacity intervals up to "now".
type ChartRenderer struct {
	out      io.Writer
	width    int
	height   int
	capacity int
	interval time.Duration
	cleared  bool
}

func NewChartRenderer(out io.Writer, width, height, capacity int, interval time.Duration) *ChartRenderer {
	return &ChartRenderer{
		out:      out,
		width:    width,
		height:   height,
		capacity: capacity,
		interval: interval,
	}
}

func (r *ChartRenderer) Render(points []Point, latest float64) error {
	series := make([]float64, len(points))
	for i, p := range points {
		series[i] = p.Watts
	}

	if !r.cleared {
		if _, err := fmt.Fprint(r.out, termClear); err != nil {
			return err
		}
		r.cleared = true
	}

	plot := asciigraph.Plot(series,
		asciigraph.Width(r.width),
		asciigraph.Height(r.height),
		asciigraph.Precision(1),
	)

	_, err := fmt.Fprintf(r.out, "%s%s\n%s\n\ncurrent power: %.1f W\n%s",
		termHome, plot, r.xAxisLabels(), latest, termEraseBelow)

	return err
}

// xAxisLabels prints the chart's time domain: the oldest representable
// offset on the left, the midpoint, and "now" on the right.
func (r *ChartRenderer) xAxisLabels() string {
	left := r.offsetLabel(-r.capacity)
	mid := r.offsetLabel(-r.capacity / 2)
	right := "now"

	gap := r.width - len(left) - len(mid) - len(right)
	if gap < 2 {
		return left + " " + right
	}

	return left + strings.Repeat(" ", gap/2) + mid + strings.Repeat(" ", gap-gap/2) + right
}

func (r *ChartRenderer) offsetLabel(offset int) string {
	return fmt.Sprintf("%.0f seconds", float64(offset)*r.interval.Seconds())
}
