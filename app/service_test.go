package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/hems/config"
	"github.com/kilianp07/hems/core/factory"
	coreforecast "github.com/kilianp07/hems/core/forecast"
	"github.com/kilianp07/hems/infra/logger"
)

func TestForecastUnsetUsesResolverBaseline(t *testing.T) {
	p, err := Forecast(config.ForecastConfig{}, logger.NopLogger{})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestForecastPriceOnlyWrapsProfile(t *testing.T) {
	cfg := config.ForecastConfig{
		Price: factory.ModuleConfig{Type: "tariff", Conf: map[string]any{"default": 0.3}},
	}
	cfg.Baseline.SetDefaults()
	p, err := Forecast(cfg, logger.NopLogger{})
	require.NoError(t, err)
	c, ok := p.(coreforecast.Composite)
	require.True(t, ok, "got %T", p)
	assert.IsType(t, coreforecast.Profile{}, c.Base)

	f, err := p.Fetch(context.Background(), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 4)
	require.NoError(t, err)
	assert.False(t, f.Degraded)
	assert.Equal(t, []float64{0.3, 0.3, 0.3, 0.3}, f.Price.Values)
}

func TestForecastFileWithTariff(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.yaml")
	data := "start: 2024-06-01T00:00:00Z\n" +
		"consumption: [0.1, 0.1, 0.1, 0.1]\n" +
		"pv: [0, 0, 0, 0]\n" +
		"price: [0.5, 0.5, 0.5, 0.5]\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg := config.ForecastConfig{
		Provider: factory.ModuleConfig{Type: "file", Conf: map[string]any{"path": path}},
		Price:    factory.ModuleConfig{Type: "tariff", Conf: map[string]any{"default": 0.2}},
	}
	p, err := Forecast(cfg, logger.NopLogger{})
	require.NoError(t, err)
	f, err := p.Fetch(context.Background(), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.2, 0.2, 0.2}, f.Price.Values)
	assert.Equal(t, 0.1, f.Consumption.At(0))
}

func TestForecastUnknownType(t *testing.T) {
	_, err := Forecast(config.ForecastConfig{Provider: factory.ModuleConfig{Type: "crystal-ball"}}, logger.NopLogger{})
	assert.Error(t, err)
	_, err = Forecast(config.ForecastConfig{Price: factory.ModuleConfig{Type: "tariff"}}, logger.NopLogger{})
	assert.Error(t, err, "tariff without default price")
}
