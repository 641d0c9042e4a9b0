package config

import (
	"fmt"
	"time"
)

// APIConfig configures the HTTP query and command surface.
type APIConfig struct {
	Addr         string        `json:"addr"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	// BufferEvents is the number of recent buffer events returned by
	// GET /api/buffer.
	BufferEvents int `json:"buffer_events"`
	// Token, when set, is required as a bearer token on command endpoints.
	Token string `json:"token"`
}

func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.BufferEvents <= 0 {
		c.BufferEvents = 20
	}
}

func (c APIConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	return nil
}
