package model

import "time"

// SlotDuration is the length of one planning slot.
const SlotDuration = 15 * time.Minute

// SlotsPerDay is the number of slots covering 24 hours.
const SlotsPerDay = 96

// ForecastSeries holds one value per slot. Consumption and PV are expressed
// in kWh per slot, prices in currency per kWh.
type ForecastSeries struct {
	Values []float64 `json:"values"`
	// Maturity is a 0-100 indicator of how settled the series is.
	Maturity float64 `json:"maturity"`
	// Percentiles holds slot-relative ranks (0-100). Only set for prices.
	Percentiles []float64 `json:"percentiles,omitempty"`
}

// Len returns the number of slots in the series.
func (s ForecastSeries) Len() int { return len(s.Values) }

// At returns the value for slot i or 0 when the series is shorter.
func (s ForecastSeries) At(i int) float64 {
	if i < 0 || i >= len(s.Values) {
		return 0
	}
	return s.Values[i]
}

// Sum returns the total of the first n values.
func (s ForecastSeries) Sum(n int) float64 {
	var total float64
	for i := 0; i < n && i < len(s.Values); i++ {
		total += s.Values[i]
	}
	return total
}

// AccuracySample compares one day of forecast PV production with the
// measured production.
type AccuracySample struct {
	Day         time.Time `json:"day" yaml:"day"`
	ForecastKWh float64   `json:"forecast_kwh" yaml:"forecast_kwh"`
	ActualKWh   float64   `json:"actual_kwh" yaml:"actual_kwh"`
}

// Forecast bundles the per-slot series used by one decision cycle.
type Forecast struct {
	Start       time.Time        `json:"start"`
	Consumption ForecastSeries   `json:"consumption"`
	PV          ForecastSeries   `json:"pv"`
	Price       ForecastSeries   `json:"price"`
	PVAccuracy  []AccuracySample `json:"pv_accuracy,omitempty"`
	// CloudCover is the current cloud coverage in percent (0-100), nil when
	// no weather data is available.
	CloudCover *float64 `json:"cloud_cover,omitempty"`
	// Degraded is set when the series were replaced by a baseline.
	Degraded bool `json:"degraded"`
}

// Slots returns the usable horizon length, the shortest of the three series.
func (f Forecast) Slots() int {
	n := f.Price.Len()
	if c := f.Consumption.Len(); c < n {
		n = c
	}
	if p := f.PV.Len(); p < n {
		n = p
	}
	return n
}

// SlotStart returns the absolute start time of slot i.
func (f Forecast) SlotStart(i int) time.Time {
	return f.Start.Add(time.Duration(i) * SlotDuration)
}

// SlotIndex returns the slot containing t, clamped to zero.
func (f Forecast) SlotIndex(t time.Time) int {
	if t.Before(f.Start) {
		return 0
	}
	return int(t.Sub(f.Start) / SlotDuration)
}
