package config

import "fmt"

// SentryConfig defines settings for Sentry error monitoring. An empty DSN
// disables reporting.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	Release          string  `json:"release"`
	// ServerName tags every event, useful with several homes on one project.
	ServerName string `json:"server_name"`
}

func (c *SentryConfig) SetDefaults() {
	if c.DSN == "" {
		return
	}
	if c.Environment == "" {
		c.Environment = "production"
	}
	if c.ServerName == "" {
		c.ServerName = "hems"
	}
}

func (c SentryConfig) Validate() error {
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("traces_sample_rate must be in [0,1]")
	}
	return nil
}
