package model

import "time"

// ChargeRequest is an active charging wish of one vehicle.
type ChargeRequest struct {
	VehicleID  string     `json:"vehicle_id"`
	CurrentSoC float64    `json:"current_soc"`
	TargetSoC  float64    `json:"target_soc"`
	Departure  *time.Time `json:"departure,omitempty"`
	Connected  bool       `json:"connected"`
	CreatedAt  time.Time  `json:"created_at"`
	// Seq breaks ties between requests created at the same instant.
	Seq uint64 `json:"seq"`
}

// Deficit returns the missing SoC in percent, never negative.
func (r ChargeRequest) Deficit() float64 {
	if d := r.TargetSoC - r.CurrentSoC; d > 0 {
		return d
	}
	return 0
}

// RequestSummary is one entry of the requests-summary query. The query
// always returns a slice of these sorted by Score descending.
type RequestSummary struct {
	VehicleID string     `json:"vehicle_id"`
	Score     float64    `json:"urgency_score"`
	Reason    string     `json:"urgency_reason"`
	Departure *time.Time `json:"departure,omitempty"`
	Connected bool       `json:"connected"`
}

// RequestsSummary is the ordered requests-summary payload.
type RequestsSummary []RequestSummary

// Boost is a driver requested immediate charge with an explicit expiry.
type Boost struct {
	VehicleID string    `json:"vehicle_id"`
	StartedAt time.Time `json:"started_at"`
	Until     time.Time `json:"until"`
}
