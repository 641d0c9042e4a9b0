package metrics

import (
	"context"

	"github.com/kilianp07/hems/core/events"
	coremetrics "github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/infra/logger"
	"github.com/kilianp07/hems/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and forwards events to the
// sink's recorders. It stops when the context is canceled or the bus closes.
// The returned channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.Event], sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.SubscribeBuffered(64)
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := Record(sink, ev); err != nil {
					log.Warnf("metrics: record %T: %v", ev, err)
				}
			}
		}
	}()
	return done
}

// Record maps a single event onto the matching recorder of sink. Events the
// sink has no recorder for are ignored.
func Record(sink coremetrics.MetricsSink, ev events.Event) error {
	switch e := ev.(type) {
	case events.CycleEvent:
		rec := coremetrics.CycleRecord{
			Time:      e.Time,
			Duration:  e.Duration,
			Skipped:   e.Skipped,
			Reason:    e.Reason,
			Floor:     e.Floor,
			VehicleID: e.Vehicle,
			Urgency:   e.Urgency,
			Degraded:  e.Degraded,
		}
		if !e.Skipped {
			sum := e.Plan.Summary
			rec.Solver = sum.Solver
			rec.ProjectedCost = sum.ProjectedCost
			rec.ImportKWh = sum.ImportKWh
			rec.ExportKWh = sum.ExportKWh
			rec.DeadlineRelaxed = sum.DeadlineRelaxed
		}
		if err := sink.RecordCycle(rec); err != nil {
			return err
		}
		if r, ok := sink.(coremetrics.PlanRecorder); ok && !e.Skipped {
			return r.RecordPlan(e.Plan)
		}
	case events.BufferEvent:
		if r, ok := sink.(coremetrics.BufferRecorder); ok {
			return r.RecordBuffer(e.Event)
		}
	case events.ModeEvent:
		if r, ok := sink.(coremetrics.ModeRecorder); ok {
			return r.RecordMode(coremetrics.ModeRecord{
				Time:    e.Time,
				Action:  string(e.Action),
				Mode:    e.Mode,
				Success: e.Err == nil && e.Action != events.ModeCommandFailed,
			})
		}
	case events.BoostEvent:
		if r, ok := sink.(coremetrics.BoostRecorder); ok {
			return r.RecordBoost(coremetrics.BoostRecord{
				Time:      e.Time,
				VehicleID: e.VehicleID,
				Action:    string(e.Action),
			})
		}
	}
	return nil
}
