package planner

import "fmt"

// Config holds the physical limits and tariff parameters used by the planner.
type Config struct {
	// HorizonSlots caps the number of 15 minute slots planned (96 or 192).
	HorizonSlots int `json:"horizon_slots"`
	// NearSlots is the number of leading slots planned one decision each.
	NearSlots int `json:"near_slots"`
	// BlockSlots is the number of slots merged into one LP decision block
	// after the near term.
	BlockSlots int `json:"block_slots"`
	// MaxBlocks bounds the LP size; BlockSlots is widened to respect it.
	MaxBlocks int `json:"max_blocks"`

	BatteryKWh          float64 `json:"battery_kwh"`
	MaxChargeKW         float64 `json:"max_charge_kw"`
	MaxDischargeKW      float64 `json:"max_discharge_kw"`
	RoundTripEfficiency float64 `json:"round_trip_efficiency"`
	EVEfficiency        float64 `json:"ev_efficiency"`

	// FeedInPrice is the export credit per kWh. It never exceeds the import
	// price of a slot.
	FeedInPrice float64 `json:"feed_in_price"`
	// ShortfallPenalty is the cost per kWh of missing an EV target.
	ShortfallPenalty float64 `json:"shortfall_penalty"`
}

// SetDefaults applies the defaults for a typical home installation.
func (c *Config) SetDefaults() {
	if c.HorizonSlots <= 0 {
		c.HorizonSlots = 96
	}
	if c.NearSlots <= 0 {
		c.NearSlots = 16
	}
	if c.BlockSlots <= 0 {
		c.BlockSlots = 4
	}
	if c.MaxBlocks <= 0 {
		c.MaxBlocks = 32
	}
	if c.BatteryKWh == 0 {
		c.BatteryKWh = 10
	}
	if c.MaxChargeKW == 0 {
		c.MaxChargeKW = 5
	}
	if c.MaxDischargeKW == 0 {
		c.MaxDischargeKW = 5
	}
	if c.RoundTripEfficiency == 0 {
		c.RoundTripEfficiency = 0.9
	}
	if c.EVEfficiency == 0 {
		c.EVEfficiency = 0.92
	}
	if c.FeedInPrice == 0 {
		c.FeedInPrice = 0.08
	}
	if c.ShortfallPenalty == 0 {
		c.ShortfallPenalty = 1000
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.HorizonSlots > 192 {
		return fmt.Errorf("horizon_slots must be at most 192")
	}
	if c.BatteryKWh < 0 || c.MaxChargeKW < 0 || c.MaxDischargeKW < 0 {
		return fmt.Errorf("battery limits must not be negative")
	}
	if c.RoundTripEfficiency <= 0 || c.RoundTripEfficiency > 1 {
		return fmt.Errorf("round_trip_efficiency must be in (0,1]")
	}
	if c.EVEfficiency <= 0 || c.EVEfficiency > 1 {
		return fmt.Errorf("ev_efficiency must be in (0,1]")
	}
	return nil
}
