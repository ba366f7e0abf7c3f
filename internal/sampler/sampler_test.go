package sampler_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"codeberg.org/helvik/tapowatt/internal/logger"
	"codeberg.org/helvik/tapowatt/internal/sampler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPlugUnreachable = errors.New("device unreachable")

// fakeSource yields a fixed sequence of readings, optionally failing on a
// specific poll (1-based).
type fakeSource struct {
	readings []float64
	failAt   int
	calls    int
}

func (f *fakeSource) CurrentPower(_ context.Context) (float64, error) {
	f.calls++
	if f.failAt > 0 && f.calls == f.failAt {
		return 0, errPlugUnreachable
	}

	return f.readings[f.calls-1], nil
}

func init() {
	logger.Init(false, false)
}

func TestSummarize(t *testing.T) {
	s := sampler.Summarize([]float64{10, 20, 30})

	assert.Equal(t, 10.0, s.Min, "Expected min 10")
	assert.Equal(t, 30.0, s.Max, "Expected max 30")
	assert.InDelta(t, 20.0, s.Mean, 1e-9, "Expected mean 20")
	// Population variance: ((10-20)^2 + 0 + (30-20)^2) / 3
	assert.InDelta(t, math.Sqrt(200.0/3.0), s.StdDev, 1e-9)
}

func TestSummarizeSingleSample(t *testing.T) {
	s := sampler.Summarize([]float64{42})

	assert.Equal(t, 42.0, s.Min)
	assert.Equal(t, 42.0, s.Max)
	assert.Equal(t, 42.0, s.Mean)
	assert.Equal(t, 0.0, s.StdDev, "A single sample has no spread")
}

func TestSummarizeConstantSamples(t *testing.T) {
	s := sampler.Summarize([]float64{100, 100, 100, 100})

	assert.Equal(t, 100.0, s.Mean)
	assert.Equal(t, 0.0, s.StdDev)
}

func TestCollectMeasurement(t *testing.T) {
	readings := []float64{100, 110, 90, 105, 95, 100, 100, 110, 90, 100}
	src := &fakeSource{readings: readings}

	samples, err := sampler.Collect(context.Background(), src, len(readings), 0, nil)
	require.NoError(t, err)
	require.Equal(t, readings, samples)

	s := sampler.Summarize(samples)
	assert.Equal(t, 90.0, s.Min)
	assert.Equal(t, 110.0, s.Max)
	assert.InDelta(t, 100.0, s.Mean, 1e-9)
	// Squared deviations sum to 450 over 10 samples
	assert.InDelta(t, math.Sqrt(45.0), s.StdDev, 1e-9)
}

func TestCollectFailFast(t *testing.T) {
	src := &fakeSource{readings: []float64{100, 110, 90, 105, 95}, failAt: 3}

	samples, err := sampler.Collect(context.Background(), src, 5, 0, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errPlugUnreachable)
	assert.Nil(t, samples, "Partial samples must not be observable")
	assert.Equal(t, 3, src.calls, "Polling must stop at the failed poll")
}

func TestCollectProgress(t *testing.T) {
	src := &fakeSource{readings: []float64{5, 6, 7}}

	var dones []int
	var seen []float64
	samples, err := sampler.Collect(context.Background(), src, 3, 0, func(done, total int, watts float64) {
		assert.Equal(t, 3, total)
		dones = append(dones, done)
		seen = append(seen, watts)
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, dones)
	assert.Equal(t, samples, seen)
}

func TestCollectCancelled(t *testing.T) {
	src := &fakeSource{readings: []float64{5, 6, 7}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	samples, err := sampler.Collect(ctx, src, 3, time.Second, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, samples)
	assert.Equal(t, 1, src.calls, "Cancellation takes effect at the inter-sample wait")
}
