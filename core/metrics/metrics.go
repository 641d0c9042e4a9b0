package metrics

import (
	"time"

	"github.com/kilianp07/hems/core/model"
)

// CycleRecord summarises one decision cycle.
type CycleRecord struct {
	Time            time.Time
	Duration        time.Duration
	Skipped         bool
	Reason          string
	Solver          string
	ProjectedCost   float64
	ImportKWh       float64
	ExportKWh       float64
	DeadlineRelaxed bool
	Floor           float64
	VehicleID       string
	Urgency         float64
	Degraded        bool
}

// MetricsSink records decision cycles for observability purposes.
type MetricsSink interface {
	RecordCycle(rec CycleRecord) error
}

// PlanRecorder records the slots of a published plan.
type PlanRecorder interface {
	RecordPlan(plan model.PlanHorizon) error
}

// BufferRecorder records buffer recalculations.
type BufferRecorder interface {
	RecordBuffer(ev model.BufferEvent) error
}

// ModeRecord is a charger command or an override transition.
type ModeRecord struct {
	Time    time.Time
	Action  string
	Mode    model.ChargeMode
	Success bool
}

// ModeRecorder records mode controller activity.
type ModeRecorder interface {
	RecordMode(rec ModeRecord) error
}

// BoostRecord is a boost lifecycle step.
type BoostRecord struct {
	Time      time.Time
	VehicleID string
	Action    string
}

// BoostRecorder records boost activity.
type BoostRecorder interface {
	RecordBoost(rec BoostRecord) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordCycle(CycleRecord) error        { return nil }
func (NopSink) RecordPlan(model.PlanHorizon) error   { return nil }
func (NopSink) RecordBuffer(model.BufferEvent) error { return nil }
func (NopSink) RecordMode(ModeRecord) error          { return nil }
func (NopSink) RecordBoost(BoostRecord) error        { return nil }
