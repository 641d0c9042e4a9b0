package engine

import (
	"fmt"
	"time"
)

// Config paces the decision cycle.
type Config struct {
	Interval     time.Duration `json:"interval"`
	FetchTimeout time.Duration `json:"fetch_timeout"`
}

func (c *Config) SetDefaults() {
	if c.Interval <= 0 {
		c.Interval = 15 * time.Minute
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
}

func (c Config) Validate() error {
	if c.Interval < time.Minute {
		return fmt.Errorf("cycle interval must be at least 1m, got %s", c.Interval)
	}
	if c.FetchTimeout >= c.Interval {
		return fmt.Errorf("fetch_timeout %s must be shorter than the interval %s", c.FetchTimeout, c.Interval)
	}
	return nil
}
