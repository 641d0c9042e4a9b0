package model

import (
	"fmt"
	"time"
)

// Vehicle describes a configured electric vehicle.
type Vehicle struct {
	ID          string  `json:"id"`
	CapacityKWh float64 `json:"capacity_kwh"`
	MaxKW       float64 `json:"max_kw"`
	TargetSoC   float64 `json:"target_soc"`
}

// Validate checks that the vehicle configuration is sound.
func (v Vehicle) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vehicle id is required")
	}
	if v.CapacityKWh <= 0 {
		return fmt.Errorf("vehicle %s: capacity must be positive", v.ID)
	}
	if v.MaxKW <= 0 {
		return fmt.Errorf("vehicle %s: max_kw must be positive", v.ID)
	}
	if v.TargetSoC <= 0 || v.TargetSoC > 100 {
		return fmt.Errorf("vehicle %s: target_soc must be in (0,100]", v.ID)
	}
	return nil
}

// VehicleState is the telemetry snapshot of one vehicle at cycle start.
type VehicleState struct {
	ID        string    `json:"id"`
	SoC       float64   `json:"soc"`
	Connected bool      `json:"connected"`
	Charging  bool      `json:"charging"`
	UpdatedAt time.Time `json:"updated_at"`
}

