package monitor

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"codeberg.org/helvik/tapowatt/internal/logger"
	"codeberg.org/helvik/tapowatt/internal/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPollFailed = errors.New("poll failed")

type fakeReader struct {
	readings []float64
	failAt   int
	calls    int
	onRead   func(call int)
}

func (f *fakeReader) CurrentPower(_ context.Context) (float64, error) {
	f.calls++
	if f.onRead != nil {
		f.onRead(f.calls)
	}
	if f.failAt > 0 && f.calls == f.failAt {
		return 0, errPollFailed
	}

	return f.readings[f.calls-1], nil
}

type fakeRenderer struct {
	frames  [][]Point
	latests []float64
	err     error
}

func (f *fakeRenderer) Render(points []Point, latest float64) error {
	f.frames = append(f.frames, points)
	f.latests = append(f.latests, latest)

	return f.err
}

type capturingSink struct {
	readings []recorder.Reading
}

func (c *capturingSink) Record(_ context.Context, r *recorder.Reading) error {
	c.readings = append(c.readings, *r)
	return nil
}

func (c *capturingSink) Close() error { return nil }

func init() {
	logger.Init(false, false)
}

func TestMonitorWindowContents(t *testing.T) {
	src := &fakeReader{readings: []float64{5, 6, 7, 8}}
	renderer := &fakeRenderer{}
	m := New(src, renderer, &capturingSink{}, 3, time.Second)

	for i := 0; i < 4; i++ {
		require.NoError(t, m.step(context.Background()))
	}

	require.Len(t, renderer.frames, 4, "One frame per iteration")
	assert.Equal(t, []Point{{-2, 6}, {-1, 7}, {0, 8}}, renderer.frames[3])
	assert.Equal(t, 8.0, renderer.latests[3])

	// Earlier frames carried the full window as of that iteration
	assert.Equal(t, []Point{{0, 5}}, renderer.frames[0])
	assert.Equal(t, []Point{{-1, 5}, {0, 6}}, renderer.frames[1])
	assert.Equal(t, []Point{{-2, 5}, {-1, 6}, {0, 7}}, renderer.frames[2])
}

func TestMonitorPollErrorStopsLoop(t *testing.T) {
	src := &fakeReader{readings: []float64{5, 6}, failAt: 2}
	renderer := &fakeRenderer{}
	m := New(src, renderer, &capturingSink{}, 3, time.Second)

	require.NoError(t, m.step(context.Background()))
	err := m.step(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errPollFailed)
	assert.Len(t, renderer.frames, 1, "No render after a failed poll")
}

func TestMonitorRenderErrorPropagates(t *testing.T) {
	src := &fakeReader{readings: []float64{5}}
	renderer := &fakeRenderer{err: errors.New("terminal gone")}
	m := New(src, renderer, &capturingSink{}, 3, time.Second)

	err := m.step(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal gone")
}

func TestMonitorRecordsReadings(t *testing.T) {
	src := &fakeReader{readings: []float64{5, 6, 7}}
	sink := &capturingSink{}
	m := New(src, &fakeRenderer{}, sink, 3, time.Second)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.step(context.Background()))
	}

	require.Len(t, sink.readings, 3)
	for i, watts := range []float64{5, 6, 7} {
		assert.Equal(t, watts, sink.readings[i].Watts)
		assert.Equal(t, recorder.ModeMonitor, sink.readings[i].Mode)
		assert.False(t, sink.readings[i].Timestamp.IsZero())
	}
}

func TestMonitorRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	src := &fakeReader{
		readings: []float64{5, 6, 7, 8},
		onRead: func(call int) {
			if call == 4 {
				cancel()
			}
		},
	}
	m := New(src, &fakeRenderer{}, &capturingSink{}, 3, 50*time.Millisecond)

	err := m.Run(ctx)
	require.NoError(t, err, "External cancellation is a clean exit")
	assert.Equal(t, 4, src.calls)
}

func TestMonitorRunPropagatesPollError(t *testing.T) {
	src := &fakeReader{readings: []float64{5}, failAt: 1}
	m := New(src, &fakeRenderer{}, &capturingSink{}, 3, time.Millisecond)

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errPollFailed)
}

func TestChartRendererOutput(t *testing.T) {
	var buf bytes.Buffer
	r := NewChartRenderer(&buf, 60, 10, 100, time.Second)

	points := []Point{{-2, 6}, {-1, 7}, {0, 8}}
	require.NoError(t, r.Render(points, 8))

	out := buf.String()
	assert.Contains(t, out, termClear, "First frame clears the screen")
	assert.Contains(t, out, termHome)
	assert.Contains(t, out, "current power: 8.0 W")
	assert.Contains(t, out, "now")
	assert.Contains(t, out, "-100 seconds")

	// Subsequent frames reposition instead of clearing
	buf.Reset()
	require.NoError(t, r.Render(points, 9))
	assert.NotContains(t, buf.String(), termClear)
	assert.Contains(t, buf.String(), "current power: 9.0 W")
}
