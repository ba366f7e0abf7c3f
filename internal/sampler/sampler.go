// Package sampler drives fixed-count polling against a power reading
// source and derives descriptive statistics over the collected set.
package sampler

import (
	"context"
	"math"
	"time"

	"codeberg.org/helvik/tapowatt/internal/errors"
	"codeberg.org/helvik/tapowatt/internal/logger"
	"codeberg.org/helvik/tapowatt/internal/tapo"
)

const ErrCollectFailed = errors.ErrorCode("sampler_collect_failed")

// Summary holds descriptive statistics over a complete sample set.
// StdDev is the population standard deviation (divisor is the sample
// count, not count-1).
type Summary struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Collect performs exactly count sequential polls against src, sleeping
// interval after each poll. The cadence is deliberately not adjusted for
// poll latency. The first poll error aborts the collection and discards
// any partial samples. progress receives each reading as it arrives; it is
// optional feedback, not part of the collection contract, and may be nil.
func Collect(ctx context.Context, src tapo.PowerReader, count int, interval time.Duration, progress func(done, total int, watts float64)) ([]float64, error) {
	samples := make([]float64, 0, count)

	for i := 0; i < count; i++ {
		watts, err := src.CurrentPower(ctx)
		if err != nil {
			return nil, errors.Wrap(ErrCollectFailed, err)
		}

		samples = append(samples, watts)
		logger.Debug().Float64("watts", watts).Int("sample", i+1).Int("of", count).Msg("Sample collected")

		if progress != nil {
			progress(i+1, count, watts)
		}

		if i < count-1 {
			if err := wait(ctx, interval); err != nil {
				return nil, errors.Wrap(ErrCollectFailed, err)
			}
		}
	}

	return samples, nil
}

// Summarize computes statistics over a non-empty sample set. Emptiness is
// a programmer error: Collect always returns either count samples or an
// error, and count is at least 1 by construction.
func Summarize(samples []float64) Summary {
	s := Summary{Min: samples[0], Max: samples[0]}

	var sum float64
	for _, v := range samples {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		sum += v
	}
	s.Mean = sum / float64(len(samples))

	var sos float64
	for _, v := range samples {
		d := v - s.Mean
		sos += d * d
	}
	s.StdDev = math.Sqrt(sos / float64(len(samples)))

	return s
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
