package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/hems/core/model"
)

var midnight = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

type staticProvider struct {
	f   model.Forecast
	err error
}

func (s staticProvider) Fetch(context.Context, time.Time, int) (model.Forecast, error) {
	return s.f, s.err
}

type blockingProvider struct{}

func (blockingProvider) Fetch(ctx context.Context, _ time.Time, _ int) (model.Forecast, error) {
	<-ctx.Done()
	return model.Forecast{}, ctx.Err()
}

type prices struct {
	v   []float64
	err error
}

func (p prices) Prices(context.Context, time.Time, int) ([]float64, error) { return p.v, p.err }

func series(v ...float64) model.ForecastSeries { return model.ForecastSeries{Values: v} }

func TestBaselineForecast(t *testing.T) {
	b := Baseline{PVPeakKW: 4}
	b.SetDefaults()
	f := b.Forecast(midnight, 96)
	require.Equal(t, 96, f.Slots())
	assert.True(t, f.Degraded)
	assert.InDelta(t, 0.125, f.Consumption.At(0), 1e-9)
	assert.Zero(t, f.PV.At(0))
	assert.Greater(t, f.PV.At(48), 0.9)
	assert.Equal(t, 0.25, f.Price.At(10))
}

func TestAlignDropsPastSlots(t *testing.T) {
	f := model.Forecast{Start: midnight, Consumption: series(1, 2, 3, 4), PV: series(0, 0, 1, 1), Price: series(5, 6, 7, 8)}
	got := Align(f, midnight.Add(31*time.Minute))
	assert.Equal(t, midnight.Add(30*time.Minute), got.Start)
	assert.Equal(t, []float64{3, 4}, got.Consumption.Values)
	assert.Equal(t, []float64{7, 8}, got.Price.Values)
}

func TestResolveFallsBackToBaseline(t *testing.T) {
	var b Baseline
	b.SetDefaults()
	r := Resolver{Provider: staticProvider{err: errors.New("offline")}, Baseline: b, Slots: 8}
	f, err := r.Resolve(context.Background(), midnight.Add(7*time.Minute))
	assert.Error(t, err)
	assert.True(t, f.Degraded)
	assert.Equal(t, midnight, f.Start)
	assert.Equal(t, 8, f.Slots())
}

func TestResolveTimesOut(t *testing.T) {
	r := Resolver{Provider: blockingProvider{}, Timeout: 20 * time.Millisecond, Slots: 4}
	start := time.Now()
	f, err := r.Resolve(context.Background(), midnight)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, f.Degraded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestResolveUsesProvider(t *testing.T) {
	f := model.Forecast{Start: midnight, Consumption: series(1, 1), PV: series(0, 0), Price: series(0.1, 0.2)}
	got, err := Resolver{Provider: staticProvider{f: f}, Slots: 2}.Resolve(context.Background(), midnight)
	require.NoError(t, err)
	assert.False(t, got.Degraded)
	assert.Equal(t, 2, got.Slots())
	assert.Equal(t, []float64{25, 75}, got.Price.Percentiles)
}

func TestRanks(t *testing.T) {
	assert.Equal(t, []float64{87.5, 12.5, 62.5, 37.5}, Ranks([]float64{4, 1, 3, 2}))
	assert.Equal(t, []float64{50, 50, 50}, Ranks([]float64{0.2, 0.2, 0.2}))
	assert.Nil(t, Ranks(nil))
}

func TestBaselineRanksAreFlat(t *testing.T) {
	var b Baseline
	b.SetDefaults()
	f, _ := Resolver{Baseline: b, Slots: 4}.Resolve(context.Background(), midnight)
	assert.Equal(t, []float64{50, 50, 50, 50}, f.Price.Percentiles)
}

func TestCompositeOverridesPrices(t *testing.T) {
	base := staticProvider{f: model.Forecast{Start: midnight, Consumption: series(1, 1), PV: series(0, 0), Price: series(0.3, 0.3)}}
	f, err := Composite{Base: base, Price: prices{v: []float64{0.1, 0.2}}}.Fetch(context.Background(), midnight, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, f.Price.Values)

	var called bool
	c := Composite{Base: base, Price: prices{err: errors.New("down")}, OnPriceError: func(error) { called = true }}
	f, err = c.Fetch(context.Background(), midnight, 2)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, []float64{0.3, 0.3}, f.Price.Values)
}

func TestProfileIsNotDegraded(t *testing.T) {
	b := Baseline{PVPeakKW: 4}
	b.SetDefaults()
	f, err := Profile{Baseline: b}.Fetch(context.Background(), midnight, 8)
	require.NoError(t, err)
	assert.False(t, f.Degraded)
	assert.Equal(t, 8, f.Slots())
}
