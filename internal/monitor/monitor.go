// Package monitor runs the live-monitoring loop: poll the plug at a fixed
// cadence, maintain a bounded sliding window of readings, and re-render a
// terminal chart on every iteration.
package monitor

import (
	"context"
	"time"

	"codeberg.org/helvik/tapowatt/internal/errors"
	"codeberg.org/helvik/tapowatt/internal/logger"
	"codeberg.org/helvik/tapowatt/internal/recorder"
	"codeberg.org/helvik/tapowatt/internal/tapo"
)

const ErrRenderFailed = errors.ErrorCode("monitor_render_failed")

// Renderer draws the full window contents. The monitor consumes no return
// value beyond the error; output is a side effect on the terminal.
type Renderer interface {
	Render(points []Point, latest float64) error
}

// Monitor owns the sliding window and drives the poll/render loop until
// the context is cancelled or a poll fails.
type Monitor struct {
	source   tapo.PowerReader
	renderer Renderer
	sink     recorder.Collector
	interval time.Duration
	window   *Window
}

func New(source tapo.PowerReader, renderer Renderer, sink recorder.Collector, capacity int, interval time.Duration) *Monitor {
	return &Monitor{
		source:   source,
		renderer: renderer,
		sink:     sink,
		interval: interval,
		window:   NewWindow(capacity),
	}
}

// Run loops until ctx is cancelled (returns nil) or an iteration fails
// (returns the propagated error). The first poll happens immediately; the
// fixed interval is waited between iterations, regardless of poll latency.
func (m *Monitor) Run(ctx context.Context) error {
	logger.Info().
		Int("window", m.window.Capacity()).
		Dur("interval", m.interval).
		Msg("Monitoring power consumption")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			if err := m.step(ctx); err != nil {
				return err
			}
			timer.Reset(m.interval)
		}
	}
}

// step runs one iteration: age the window, evict if full, poll once,
// append at offset 0, render, record.
func (m *Monitor) step(ctx context.Context) error {
	m.window.Advance()

	watts, err := m.source.CurrentPower(ctx)
	if err != nil {
		return err
	}
	m.window.Append(watts)

	if err := m.renderer.Render(m.window.Points(), watts); err != nil {
		return errors.Wrap(ErrRenderFailed, err)
	}

	return m.sink.Record(ctx, &recorder.Reading{
		Timestamp: time.Now(),
		Watts:     watts,
		Mode:      recorder.ModeMonitor,
	})
}
