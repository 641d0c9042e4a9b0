package events

import (
	"time"

	"github.com/kilianp07/hems/core/model"
)

// Event is any value published on the decision event bus.
type Event interface {
	EventTime() time.Time
}

// CycleEvent is published at the end of every decision cycle.
type CycleEvent struct {
	Time     time.Time
	Duration time.Duration
	// Skipped is set when the cycle could not run, Reason says why.
	Skipped  bool
	Reason   string
	Plan     model.PlanHorizon
	Floor    float64
	Vehicle  string
	Urgency  float64
	Degraded bool
}

func (e CycleEvent) EventTime() time.Time { return e.Time }

// ModeAction is what the mode controller did.
type ModeAction string

const (
	ModeCommand       ModeAction = "command"
	ModeCommandFailed ModeAction = "command_failed"
	OverrideStarted   ModeAction = "override_started"
	OverrideEnded     ModeAction = "override_ended"
)

// ModeEvent records a mode controller transition or command.
type ModeEvent struct {
	Time   time.Time
	Action ModeAction
	Mode   model.ChargeMode
	Reason string
	Err    error
}

func (e ModeEvent) EventTime() time.Time { return e.Time }

// BufferEvent wraps a recalculation record.
type BufferEvent struct {
	Event model.BufferEvent
}

func (e BufferEvent) EventTime() time.Time { return e.Event.Timestamp }

// BoostAction is a boost lifecycle step.
type BoostAction string

const (
	BoostStarted   BoostAction = "started"
	BoostCancelled BoostAction = "cancelled"
	BoostExpired   BoostAction = "expired"
)

// BoostEvent is emitted when a boost changes state.
type BoostEvent struct {
	Time      time.Time
	VehicleID string
	Action    BoostAction
	Until     time.Time
}

func (e BoostEvent) EventTime() time.Time { return e.Time }
