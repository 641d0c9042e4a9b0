package main

import (
	"fmt"
	"time"
)

// Config holds parameters for the simulator.
type Config struct {
	Broker      string
	TopicPrefix string
	Loadpoint   int
	Vehicle     string
	Interval    time.Duration
	// Speed multiplies simulated time against wall clock time.
	Speed float64

	VehicleCapacityKWh float64
	VehicleChargeKW    float64
	VehicleSoC         float64
	HomeCapacityKWh    float64
	HomeRateKW         float64
	HomeSoC            float64
	PVPeakKW           float64
	LoadKW             float64
	PlugAt             string
	UnplugAt           string
	InitialMode        string
	Verbose            bool
}

func (c *Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.Speed <= 0 {
		return fmt.Errorf("speed must be positive")
	}
	if c.Loadpoint < 1 {
		return fmt.Errorf("loadpoint starts at 1")
	}
	if _, err := minuteOfDay(c.PlugAt); err != nil {
		return fmt.Errorf("plug-at: %w", err)
	}
	if _, err := minuteOfDay(c.UnplugAt); err != nil {
		return fmt.Errorf("unplug-at: %w", err)
	}
	return nil
}

func minuteOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
