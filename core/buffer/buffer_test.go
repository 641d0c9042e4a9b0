package buffer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/hems/core/buffer/logging"
	"github.com/kilianp07/hems/core/model"
)

var start = time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)

func defaults() Config {
	var c Config
	c.SetDefaults()
	return c
}

func flatPrices(n int, lo, hi float64) model.ForecastSeries {
	v := make([]float64, n)
	for i := range v {
		v[i] = lo
	}
	if n > 0 {
		v[n-1] = hi
	}
	return model.ForecastSeries{Values: v}
}

func TestConfidence(t *testing.T) {
	samples := []model.AccuracySample{
		{Day: start.Add(-24 * time.Hour), ForecastKWh: 9, ActualKWh: 10},
		{Day: start.Add(-48 * time.Hour), ForecastKWh: 11, ActualKWh: 10},
		{Day: start.Add(-30 * 24 * time.Hour), ForecastKWh: 0, ActualKWh: 10},
	}
	// MAPE 10% => accuracy 90; weather 80.
	assert.InDelta(t, 0.6*90+0.4*80, Confidence(samples, cover(20), start, 7), 1e-9)
	assert.InDelta(t, 80, Confidence(nil, cover(20), start, 7), 1e-9)
	assert.InDelta(t, 0, Confidence(nil, cover(150), start, 7), 1e-9)
}

func cover(v float64) *float64 { return &v }

func TestConfidenceWithoutSignals(t *testing.T) {
	assert.Zero(t, Confidence(nil, nil, start, 7))
	samples := []model.AccuracySample{{Day: start.Add(-24 * time.Hour), ForecastKWh: 10, ActualKWh: 10}}
	assert.InDelta(t, 60, Confidence(samples, nil, start, 7), 1e-9)

	// Without any confidence data a steep spread keeps the maximum floor.
	c := defaults()
	assert.Equal(t, c.MaxFloor, c.Floor(Confidence(nil, nil, start.Add(14*time.Hour), 7), 1, model.TimeDay))
}

func TestFloorBounds(t *testing.T) {
	c := defaults()
	for _, conf := range []float64{0, 25, 50, 75, 100} {
		for _, spread := range []float64{0, 0.1, 0.2, 1} {
			for _, tod := range []model.TimeOfDay{model.TimeNight, model.TimeMorning, model.TimeDay, model.TimeEvening} {
				f := c.Floor(conf, spread, tod)
				if f < 20 || f > 60 {
					t.Fatalf("floor %.2f out of [20,60] for conf=%v spread=%v tod=%s", f, conf, spread, tod)
				}
			}
		}
	}
	assert.Equal(t, 20.0, c.Floor(100, 1, model.TimeDay))
	assert.Equal(t, 60.0, c.Floor(0, 0, model.TimeNight))
}

func TestFloorMonotonic(t *testing.T) {
	c := defaults()
	prev := c.Floor(0, 0.1, model.TimeDay)
	for conf := 5.0; conf <= 100; conf += 5 {
		f := c.Floor(conf, 0.1, model.TimeDay)
		if f > prev+1e-9 {
			t.Fatalf("floor increased with confidence: %.2f > %.2f", f, prev)
		}
		prev = f
	}
	prev = c.Floor(60, 0, model.TimeDay)
	for spread := 0.02; spread <= 0.4; spread += 0.02 {
		f := c.Floor(60, spread, model.TimeDay)
		if f > prev+1e-9 {
			t.Fatalf("floor increased with spread: %.2f > %.2f", f, prev)
		}
		prev = f
	}
}

func TestHardFloorAlwaysEnforced(t *testing.T) {
	c := Config{PracticalMin: 5, HardFloor: 10, MaxFloor: 40}
	c.SetDefaults()
	assert.Equal(t, 10.0, c.Floor(100, 1, model.TimeDay))

	// Even an unvalidated config never goes below the minimum hard floor.
	c = Config{PracticalMin: 2, HardFloor: 1, MaxFloor: 40}
	c.SetDefaults()
	assert.Equal(t, MinHardFloor, c.Floor(100, 1, model.TimeDay))
}

func TestConfigRejectsLowFloors(t *testing.T) {
	c := defaults()
	require.NoError(t, c.Validate())

	c.HardFloor = 5
	assert.Error(t, c.Validate())

	c = defaults()
	c.PracticalMin = 15
	assert.Error(t, c.Validate())

	c = defaults()
	c.DefaultFloor = 8
	assert.Error(t, c.Validate())
}

func TestBucket(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, model.TimeNight, Bucket(day.Add(3*time.Hour)))
	assert.Equal(t, model.TimeMorning, Bucket(day.Add(8*time.Hour)))
	assert.Equal(t, model.TimeDay, Bucket(day.Add(13*time.Hour)))
	assert.Equal(t, model.TimeEvening, Bucket(day.Add(19*time.Hour)))
}

func newCalc(t *testing.T, store *logging.MemoryStore) *Calculator {
	t.Helper()
	c, err := NewCalculator(context.Background(), Config{}, store, store, nil, start)
	require.NoError(t, err)
	return c
}

func TestObservationKeepsActiveFloor(t *testing.T) {
	store := logging.NewMemoryStore()
	c := newCalc(t, store)
	ctx := context.Background()

	f := model.Forecast{Price: flatPrices(96, 0.1, 0.4), CloudCover: cover(0)}
	for i := 0; i < 3; i++ {
		ev, err := c.Recalculate(ctx, Inputs{Now: start.Add(time.Duration(i) * 15 * time.Minute), Forecast: f})
		require.NoError(t, err)
		assert.False(t, ev.Applied)
		assert.Equal(t, 30.0, ev.PreviousFloor)
		assert.Equal(t, 20.0, ev.NewFloor)
		assert.Contains(t, ev.Reason, "simulated")
	}
	assert.Equal(t, 30.0, c.ActiveFloor())

	evs, err := c.Events(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, evs, 3)
}

func TestLiveAppliesFloor(t *testing.T) {
	c := newCalc(t, logging.NewMemoryStore())
	ctx := context.Background()
	require.NoError(t, c.GoLive(ctx))

	ev, err := c.Recalculate(ctx, Inputs{Now: start, Forecast: model.Forecast{Degraded: true}})
	require.NoError(t, err)
	assert.True(t, ev.Applied)
	assert.Zero(t, ev.PVConfidence)
	assert.Equal(t, 60.0, ev.NewFloor)
	assert.Equal(t, 60.0, c.ActiveFloor())
	assert.Contains(t, ev.Reason, "forecast degraded")
}

func TestAutoGoLiveAfterObservationWindow(t *testing.T) {
	c := newCalc(t, logging.NewMemoryStore())
	ctx := context.Background()

	st := c.Status(start.Add(24 * time.Hour))
	assert.Equal(t, model.BufferObservation, st.Mode)
	assert.Equal(t, 13*24*time.Hour, st.Remaining)

	ev, err := c.Recalculate(ctx, Inputs{Now: start.Add(14 * 24 * time.Hour), Forecast: model.Forecast{}})
	require.NoError(t, err)
	assert.True(t, ev.Applied)
	assert.Equal(t, model.BufferLive, c.Status(start.Add(15*24*time.Hour)).Mode)
	assert.Zero(t, c.Status(start.Add(15*24*time.Hour)).Remaining)
}

func TestExtendPreventsAutoGoLive(t *testing.T) {
	c := newCalc(t, logging.NewMemoryStore())
	ctx := context.Background()
	require.NoError(t, c.Extend(ctx))

	ev, err := c.Recalculate(ctx, Inputs{Now: start.Add(30 * 24 * time.Hour)})
	require.NoError(t, err)
	assert.False(t, ev.Applied)
	st := c.Status(start.Add(30 * 24 * time.Hour))
	assert.True(t, st.Extended)
	assert.Zero(t, st.Remaining)

	require.NoError(t, c.GoLive(ctx))
	assert.ErrorIs(t, c.Extend(ctx), ErrAlreadyLive)
}

func TestResetReturnsToObservation(t *testing.T) {
	store := logging.NewMemoryStore()
	c := newCalc(t, store)
	ctx := context.Background()
	require.NoError(t, c.GoLive(ctx))
	_, err := c.Recalculate(ctx, Inputs{Now: start, Forecast: model.Forecast{Degraded: true}})
	require.NoError(t, err)

	later := start.Add(time.Hour)
	require.NoError(t, c.Reset(ctx, later))
	st := c.Status(later)
	assert.Equal(t, model.BufferObservation, st.Mode)
	assert.Equal(t, 30.0, st.ActiveFloor)
	assert.True(t, st.ActivatedAt.Equal(later))
}

func TestModeSurvivesRestart(t *testing.T) {
	store := logging.NewMemoryStore()
	c := newCalc(t, store)
	ctx := context.Background()
	require.NoError(t, c.GoLive(ctx))
	_, err := c.Recalculate(ctx, Inputs{Now: start, Forecast: model.Forecast{Degraded: true}})
	require.NoError(t, err)

	restarted, err := NewCalculator(ctx, Config{}, store, store, nil, start.Add(time.Hour))
	require.NoError(t, err)
	st := restarted.Status(start.Add(time.Hour))
	assert.Equal(t, model.BufferLive, st.Mode)
	assert.Equal(t, 60.0, st.ActiveFloor)
	assert.True(t, st.ActivatedAt.Equal(start))
}

func TestPriceSpread(t *testing.T) {
	assert.InDelta(t, 0.3, PriceSpread([]float64{0.1, 0.4, 0.2}, 10), 1e-9)
	assert.Zero(t, PriceSpread(nil, 96))
	assert.InDelta(t, 0.1, PriceSpread([]float64{0.1, 0.2, 0.9}, 2), 1e-9)
}

type failingStates struct {
	*logging.MemoryStore
	fail bool
}

func (f *failingStates) Save(ctx context.Context, st model.BufferModeState) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.MemoryStore.Save(ctx, st)
}

func TestAutoGoLivePersistFailureIsReported(t *testing.T) {
	store := logging.NewMemoryStore()
	states := &failingStates{MemoryStore: store}
	c, err := NewCalculator(context.Background(), Config{}, store, states, nil, start)
	require.NoError(t, err)
	states.fail = true

	ev, err := c.Recalculate(context.Background(), Inputs{Now: start.Add(15 * 24 * time.Hour)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auto go-live")
	assert.True(t, ev.Applied)

	evs, qerr := c.Events(context.Background(), 0)
	require.NoError(t, qerr)
	assert.Len(t, evs, 1)
}
