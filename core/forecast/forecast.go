// Package forecast resolves the per-slot forecast consumed by a decision
// cycle. Providers live in infra/forecast; this package adds the bounded
// fetch, slot alignment and the degraded baseline.
package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/hems/core/model"
)

// Provider returns consumption, PV and price series starting at start.
type Provider interface {
	Fetch(ctx context.Context, start time.Time, slots int) (model.Forecast, error)
}

// PriceSource returns only prices, in currency per kWh.
type PriceSource interface {
	Prices(ctx context.Context, start time.Time, slots int) ([]float64, error)
}

// Composite takes consumption and PV from Base and overrides prices with
// Price when it answers. A failing price source keeps the base prices.
type Composite struct {
	Base  Provider
	Price PriceSource
	// OnPriceError is called when the price source fails.
	OnPriceError func(error)
}

func (c Composite) Fetch(ctx context.Context, start time.Time, slots int) (model.Forecast, error) {
	f, err := c.Base.Fetch(ctx, start, slots)
	if err != nil {
		return model.Forecast{}, err
	}
	if c.Price == nil {
		return f, nil
	}
	prices, err := c.Price.Prices(ctx, f.Start, slots)
	if err != nil {
		if c.OnPriceError != nil {
			c.OnPriceError(err)
		}
		return f, nil
	}
	f.Price = model.ForecastSeries{Values: prices, Maturity: 100}
	return f, nil
}

// SlotStart truncates t to the start of its 15 minute slot.
func SlotStart(t time.Time) time.Time { return t.Truncate(model.SlotDuration) }

// Align drops the slots that ended before now so slot 0 is the current
// slot.
func Align(f model.Forecast, now time.Time) model.Forecast {
	skip := f.SlotIndex(now)
	if skip == 0 {
		return f
	}
	f.Start = f.SlotStart(skip)
	f.Consumption = dropSeries(f.Consumption, skip)
	f.PV = dropSeries(f.PV, skip)
	f.Price = dropSeries(f.Price, skip)
	return f
}

func dropSeries(s model.ForecastSeries, n int) model.ForecastSeries {
	if n >= len(s.Values) {
		s.Values = nil
	} else {
		s.Values = s.Values[n:]
	}
	if n >= len(s.Percentiles) {
		s.Percentiles = nil
	} else {
		s.Percentiles = s.Percentiles[n:]
	}
	return s
}

// Resolver fetches with a bounded timeout and falls back to a baseline.
type Resolver struct {
	Provider Provider
	Baseline Baseline
	Timeout  time.Duration
	Slots    int
}

// Resolve always returns a usable forecast with price ranks filled in. The
// error reports why the baseline was used and is informational.
func (r Resolver) Resolve(ctx context.Context, now time.Time) (model.Forecast, error) {
	f, err := r.resolve(ctx, now)
	return withRanks(f), err
}

func (r Resolver) resolve(ctx context.Context, now time.Time) (model.Forecast, error) {
	start := SlotStart(now)
	if r.Provider == nil {
		return r.Baseline.Forecast(start, r.Slots), fmt.Errorf("no forecast provider configured")
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	f, err := r.Provider.Fetch(fctx, start, r.Slots)
	if err != nil {
		return r.Baseline.Forecast(start, r.Slots), fmt.Errorf("fetch forecast: %w", err)
	}
	f = Align(f, now)
	if f.Slots() == 0 {
		return r.Baseline.Forecast(start, r.Slots), fmt.Errorf("forecast does not cover %s", start.Format(time.RFC3339))
	}
	return f, nil
}
