package buffer

import (
	"fmt"
	"time"
)

const (
	// MinHardFloor is the lowest floor the calculator ever returns.
	MinHardFloor = 10.0
	// MinPracticalMin is the lowest configurable practical minimum.
	MinPracticalMin = 20.0
)

// Config holds the floor policy of the buffer calculator. Floors are SoC
// percentages.
type Config struct {
	Interval     time.Duration `json:"interval"`
	DefaultFloor float64       `json:"default_floor"`
	PracticalMin float64       `json:"practical_min"`
	HardFloor    float64       `json:"hard_floor"`
	MaxFloor     float64       `json:"max_floor"`
	// ReferenceSpread is the price spread (currency/kWh) that counts as a
	// fully steep day.
	ReferenceSpread float64 `json:"reference_spread"`
	NightBias       float64 `json:"night_bias"`
	EveningBias     float64 `json:"evening_bias"`
	ObservationDays int     `json:"observation_days"`
	// AccuracyDays is the trailing window used for PV forecast accuracy.
	AccuracyDays int `json:"accuracy_days"`
}

func (c *Config) SetDefaults() {
	if c.Interval <= 0 {
		c.Interval = 15 * time.Minute
	}
	if c.DefaultFloor == 0 {
		c.DefaultFloor = 30
	}
	if c.PracticalMin == 0 {
		c.PracticalMin = 20
	}
	if c.HardFloor == 0 {
		c.HardFloor = 10
	}
	if c.MaxFloor == 0 {
		c.MaxFloor = 60
	}
	if c.ReferenceSpread == 0 {
		c.ReferenceSpread = 0.20
	}
	if c.NightBias == 0 {
		c.NightBias = 10
	}
	if c.EveningBias == 0 {
		c.EveningBias = 5
	}
	if c.ObservationDays == 0 {
		c.ObservationDays = 14
	}
	if c.AccuracyDays == 0 {
		c.AccuracyDays = 7
	}
}

func (c Config) Validate() error {
	if c.HardFloor < MinHardFloor || c.HardFloor > c.PracticalMin {
		return fmt.Errorf("hard_floor must be in [%g, practical_min]", MinHardFloor)
	}
	if c.PracticalMin < MinPracticalMin {
		return fmt.Errorf("practical_min must be at least %g", MinPracticalMin)
	}
	if c.DefaultFloor < c.HardFloor || c.DefaultFloor > 100 {
		return fmt.Errorf("default_floor must be in [hard_floor, 100]")
	}
	if c.PracticalMin > c.MaxFloor || c.MaxFloor > 100 {
		return fmt.Errorf("practical_min must not exceed max_floor, max_floor must not exceed 100")
	}
	if c.ReferenceSpread <= 0 {
		return fmt.Errorf("reference_spread must be positive")
	}
	if c.ObservationDays < 0 {
		return fmt.Errorf("observation_days must not be negative")
	}
	return nil
}

// ObservationWindow is the time spent in observation before going live.
func (c Config) ObservationWindow() time.Duration {
	return time.Duration(c.ObservationDays) * 24 * time.Hour
}
