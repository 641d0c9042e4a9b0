package buffer

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/hems/core/model"
)

const (
	accuracyWeight = 0.6
	weatherWeight  = 0.4
)

// Confidence blends the trailing PV forecast accuracy with the current
// cloud cover into a 0-100 value. Without usable samples only the weather
// signal counts. A missing signal contributes zero confidence.
func Confidence(samples []model.AccuracySample, cloudCover *float64, now time.Time, days int) float64 {
	var weather float64
	if cloudCover != nil {
		weather = clamp(100-*cloudCover, 0, 100)
	}
	since := now.Add(-time.Duration(days) * 24 * time.Hour)
	var errs []float64
	for _, s := range samples {
		if s.Day.Before(since) || s.Day.After(now) || s.ActualKWh <= 0 {
			continue
		}
		errs = append(errs, math.Abs(s.ForecastKWh-s.ActualKWh)/s.ActualKWh*100)
	}
	if len(errs) == 0 {
		return weather
	}
	accuracy := clamp(100-stat.Mean(errs, nil), 0, 100)
	return accuracyWeight*accuracy + weatherWeight*weather
}

// PriceSpread is the difference between the highest and lowest price of
// the next n slots.
func PriceSpread(prices []float64, n int) float64 {
	if n > len(prices) {
		n = len(prices)
	}
	if n == 0 {
		return 0
	}
	return floats.Max(prices[:n]) - floats.Min(prices[:n])
}

// Bucket maps a clock time onto the time-of-day modifier buckets.
func Bucket(t time.Time) model.TimeOfDay {
	switch h := t.Hour(); {
	case h < 6:
		return model.TimeNight
	case h < 12:
		return model.TimeMorning
	case h < 17:
		return model.TimeDay
	default:
		return model.TimeEvening
	}
}

// Floor maps the inputs to a protected SoC floor. The result is
// non-increasing in both confidence and spread and never below the hard
// floor.
func (c Config) Floor(confidence, spread float64, tod model.TimeOfDay) float64 {
	r := clamp(confidence, 0, 100) / 100
	s := clamp(spread/c.ReferenceSpread, 0, 1)
	relief := r * (0.7 + 0.3*s)
	floor := c.MaxFloor - (c.MaxFloor-c.PracticalMin)*relief + c.bias(tod)
	floor = clamp(floor, c.PracticalMin, c.MaxFloor)
	return math.Max(floor, math.Max(c.HardFloor, MinHardFloor))
}

func (c Config) bias(tod model.TimeOfDay) float64 {
	switch tod {
	case model.TimeNight:
		return c.NightBias
	case model.TimeEvening:
		return c.EveningBias
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
