package config

import (
	"fmt"

	"github.com/kilianp07/hems/core/factory"
	"github.com/kilianp07/hems/core/forecast"
)

// ForecastConfig selects the forecast provider, the optional price source
// overriding its prices and the baseline used when both fail.
type ForecastConfig struct {
	Provider factory.ModuleConfig `json:"provider"`
	Price    factory.ModuleConfig `json:"price"`
	Baseline forecast.Baseline    `json:"baseline"`
}

func (c ForecastConfig) Validate() error {
	b := c.Baseline
	if b.ConsumptionKW < 0 || b.PVPeakKW < 0 || b.Price < 0 {
		return fmt.Errorf("baseline values must not be negative")
	}
	if b.SunsetHour <= b.SunriseHour {
		return fmt.Errorf("baseline sunset_hour must be after sunrise_hour")
	}
	return nil
}
