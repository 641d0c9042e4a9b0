package sequencer

import (
	"fmt"
	"time"
)

// Config tunes the urgency score.
type Config struct {
	DefaultWindow  time.Duration `json:"default_window"`
	ConnectedBonus float64       `json:"connected_bonus"`
	QuietBonus     float64       `json:"quiet_bonus"`
	// QuietStart and QuietEnd are HH:MM local times. The window may wrap
	// midnight.
	QuietStart string `json:"quiet_start"`
	QuietEnd   string `json:"quiet_end"`
}

// SetDefaults applies the default sequencing policy.
func (c *Config) SetDefaults() {
	if c.DefaultWindow <= 0 {
		c.DefaultWindow = 12 * time.Hour
	}
	if c.ConnectedBonus == 0 {
		c.ConnectedBonus = 5
	}
	if c.QuietBonus == 0 {
		c.QuietBonus = 1000
	}
	if c.QuietStart == "" {
		c.QuietStart = "22:00"
	}
	if c.QuietEnd == "" {
		c.QuietEnd = "06:00"
	}
}

// Validate checks the quiet hours window.
func (c Config) Validate() error {
	if _, err := ParseQuietHours(c.QuietStart, c.QuietEnd); err != nil {
		return err
	}
	if c.ConnectedBonus < 0 || c.QuietBonus < 0 {
		return fmt.Errorf("sequencer bonuses must not be negative")
	}
	return nil
}
