package model

import "time"

// ChargeMode is the tri-state mode of the external charging system.
type ChargeMode string

const (
	ModeNone  ChargeMode = ""
	ModeNow   ChargeMode = "now"
	ModeMinPV ChargeMode = "minpv"
	ModePV    ChargeMode = "pv"
)

// Valid reports whether m is one of the three charger modes.
func (m ChargeMode) Valid() bool {
	return m == ModeNow || m == ModeMinPV || m == ModePV
}

// ParseChargeMode converts the charger payload into a ChargeMode.
func ParseChargeMode(s string) (ChargeMode, bool) {
	m := ChargeMode(s)
	return m, m.Valid()
}

// ControllerPhase is the state of the mode controller state machine.
type ControllerPhase string

const (
	PhaseStartup  ControllerPhase = "startup"
	PhaseActive   ControllerPhase = "active"
	PhaseOverride ControllerPhase = "override"
)

// ModeControllerState is owned by the mode controller, one per charging point.
type ModeControllerState struct {
	Phase            ControllerPhase `json:"phase"`
	LastSetMode      ChargeMode      `json:"last_set_mode"`
	OverrideActive   bool            `json:"override_active"`
	BaselineAdopted  bool            `json:"baseline_adopted"`
	OverrideSince    time.Time       `json:"override_since,omitempty"`
	UnreachableSince time.Time       `json:"unreachable_since,omitempty"`
	// CommandedAt and PreviousMode describe the last command until the
	// charger reports the new mode.
	CommandedAt  time.Time  `json:"commanded_at,omitempty"`
	PreviousMode ChargeMode `json:"previous_mode,omitempty"`
}

// ModeStatus answers the mode-control status query.
type ModeStatus struct {
	State        ModeControllerState `json:"state"`
	ObservedMode ChargeMode          `json:"observed_mode"`
	TargetMode   ChargeMode          `json:"target_mode,omitempty"`
	Banner       string              `json:"banner,omitempty"`
}
