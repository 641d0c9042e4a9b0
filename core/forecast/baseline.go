package forecast

import (
	"context"
	"math"
	"time"

	"github.com/kilianp07/hems/core/model"
)

// Baseline is the configured default profile used when no forecast is
// available. Values are powers; they are converted to kWh per slot.
type Baseline struct {
	ConsumptionKW float64 `json:"consumption_kw"`
	// PVPeakKW is the noon peak of a half-sine day between SunriseHour and
	// SunsetHour.
	PVPeakKW    float64 `json:"pv_peak_kw"`
	SunriseHour float64 `json:"sunrise_hour"`
	SunsetHour  float64 `json:"sunset_hour"`
	Price       float64 `json:"price"`
}

func (b *Baseline) SetDefaults() {
	if b.ConsumptionKW == 0 {
		b.ConsumptionKW = 0.5
	}
	if b.SunriseHour == 0 {
		b.SunriseHour = 7
	}
	if b.SunsetHour == 0 {
		b.SunsetHour = 19
	}
	if b.Price == 0 {
		b.Price = 0.25
	}
}

// Forecast builds a degraded forecast of n slots from start.
func (b Baseline) Forecast(start time.Time, n int) model.Forecast {
	if n <= 0 {
		n = model.SlotsPerDay
	}
	f := model.Forecast{
		Start:       start,
		Consumption: model.ForecastSeries{Values: make([]float64, n)},
		PV:          model.ForecastSeries{Values: make([]float64, n)},
		Price:       model.ForecastSeries{Values: make([]float64, n)},
		Degraded:    true,
	}
	slotHours := model.SlotDuration.Hours()
	for i := 0; i < n; i++ {
		t := start.Add(time.Duration(i) * model.SlotDuration)
		f.Consumption.Values[i] = b.ConsumptionKW * slotHours
		f.PV.Values[i] = b.pvKW(t) * slotHours
		f.Price.Values[i] = b.Price
	}
	return f
}

func (b Baseline) pvKW(t time.Time) float64 {
	if b.PVPeakKW <= 0 || b.SunsetHour <= b.SunriseHour {
		return 0
	}
	h := float64(t.Hour()) + float64(t.Minute())/60 + model.SlotDuration.Hours()/2
	if h <= b.SunriseHour || h >= b.SunsetHour {
		return 0
	}
	return b.PVPeakKW * math.Sin(math.Pi*(h-b.SunriseHour)/(b.SunsetHour-b.SunriseHour))
}

// Profile serves the baseline as a regular provider for installations that
// only configure a price source.
type Profile struct{ Baseline Baseline }

func (p Profile) Fetch(_ context.Context, start time.Time, slots int) (model.Forecast, error) {
	f := p.Baseline.Forecast(start, slots)
	f.Degraded = false
	return f, nil
}
