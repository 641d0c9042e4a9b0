package modecontrol

import (
	"fmt"
	"time"
)

// Config sets the target selection thresholds and the timeouts of the
// controller.
type Config struct {
	CheapPercentile    float64       `json:"cheap_percentile"`
	ModeratePercentile float64       `json:"moderate_percentile"`
	UnreachableAfter   time.Duration `json:"unreachable_after"`
	OverrideTimeout    time.Duration `json:"override_timeout"`
	// SettleWindow is how long the charger may keep reporting the previous
	// mode after a command before the mismatch counts as an override.
	SettleWindow time.Duration `json:"settle_window"`
	// UrgentWithin marks a request urgent when departure is that close.
	UrgentWithin time.Duration `json:"urgent_within"`
}

func (c *Config) SetDefaults() {
	if c.CheapPercentile == 0 {
		c.CheapPercentile = 30
	}
	if c.ModeratePercentile == 0 {
		c.ModeratePercentile = 60
	}
	if c.UnreachableAfter <= 0 {
		c.UnreachableAfter = 30 * time.Minute
	}
	if c.OverrideTimeout <= 0 {
		c.OverrideTimeout = 8 * time.Hour
	}
	if c.SettleWindow <= 0 {
		c.SettleWindow = time.Minute
	}
	if c.UrgentWithin <= 0 {
		c.UrgentWithin = 2 * time.Hour
	}
}

func (c Config) Validate() error {
	if c.CheapPercentile < 0 || c.CheapPercentile > c.ModeratePercentile || c.ModeratePercentile > 100 {
		return fmt.Errorf("mode_control percentiles must satisfy 0 <= cheap <= moderate <= 100")
	}
	return nil
}
