package model

import "time"

// TimeOfDay buckets the hour used by the buffer calculator.
type TimeOfDay string

const (
	TimeNight   TimeOfDay = "night"
	TimeMorning TimeOfDay = "morning"
	TimeDay     TimeOfDay = "day"
	TimeEvening TimeOfDay = "evening"
)

// BufferEvent records one buffer recalculation. Events are append-only.
type BufferEvent struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	PVConfidence  float64   `json:"pv_confidence"`
	PriceSpread   float64   `json:"price_spread"`
	TimeOfDay     TimeOfDay `json:"time_of_day"`
	ExpectedPVKWh float64   `json:"expected_pv_kwh"`
	PreviousFloor float64   `json:"previous_floor"`
	NewFloor      float64   `json:"new_floor"`
	Reason        string    `json:"reason"`
	// Applied is false for simulated events recorded in observation mode.
	Applied bool `json:"applied"`
}

// BufferMode is the operating mode of the buffer calculator.
type BufferMode string

const (
	BufferObservation BufferMode = "observation"
	BufferLive        BufferMode = "live"
)

// BufferStatus answers the buffer-mode query.
type BufferStatus struct {
	Mode        BufferMode    `json:"mode"`
	ActivatedAt time.Time     `json:"activated_at"`
	Extended    bool          `json:"extended"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	Remaining   time.Duration `json:"remaining_ns"`
	ActiveFloor float64       `json:"active_floor"`
	LastEvent   *BufferEvent  `json:"last_event,omitempty"`
}

// BufferModeState is the persisted part of the buffer mode. It survives
// restarts so the observation period is not reset by a reboot.
type BufferModeState struct {
	Mode        BufferMode `json:"mode"`
	ActivatedAt time.Time  `json:"activated_at"`
	Extended    bool       `json:"extended"`
}
