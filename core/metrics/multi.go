package metrics

import (
	"errors"

	"github.com/kilianp07/hems/core/model"
)

// MultiSink fans records out to multiple sinks. Optional recorders are only
// called on sinks implementing them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCycle forwards the record to all sinks and joins their errors.
func (m *MultiSink) RecordCycle(rec CycleRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordCycle(rec))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordPlan(plan model.PlanHorizon) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(PlanRecorder); ok {
			errs = append(errs, r.RecordPlan(plan))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordBuffer(ev model.BufferEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(BufferRecorder); ok {
			errs = append(errs, r.RecordBuffer(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordMode(rec ModeRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(ModeRecorder); ok {
			errs = append(errs, r.RecordMode(rec))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordBoost(rec BoostRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(BoostRecorder); ok {
			errs = append(errs, r.RecordBoost(rec))
		}
	}
	return errors.Join(errs...)
}

// Close releases every sink holding resources.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
