package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/hems/core/boost"
	"github.com/kilianp07/hems/core/buffer/logging"
	"github.com/kilianp07/hems/core/events"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/state"
)

// Snapshot returns the last published snapshot.
func (e *Engine) Snapshot() *state.Snapshot { return e.d.Store.Load() }

// Store exposes the snapshot store for subscribers.
func (e *Engine) Store() *state.Store { return e.d.Store }

func (e *Engine) Subscribe() <-chan *state.Snapshot { return e.d.Store.Subscribe() }

func (e *Engine) Unsubscribe(ch <-chan *state.Snapshot) { e.d.Store.Unsubscribe(ch) }

// QuietHours reports whether now falls into the sequencer quiet hours.
func (e *Engine) QuietHours() bool { return e.d.Sequencer.InQuietHours(e.now()) }

// StartBoost starts a boost and triggers an early cycle.
func (e *Engine) StartBoost(vehicleID string, d time.Duration) (model.Boost, error) {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()
	now := e.now()
	b, err := e.d.Boost.Start(vehicleID, d, now)
	if err != nil {
		return model.Boost{}, err
	}
	e.log.Infof("boost started for %s until %s", b.VehicleID, b.Until.Format(time.RFC3339))
	e.publishEvent(events.BoostEvent{Time: now, VehicleID: b.VehicleID, Action: events.BoostStarted, Until: b.Until})
	e.Trigger()
	return b, nil
}

// CancelBoost clears the active boost. It is a no-op without one.
func (e *Engine) CancelBoost() {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()
	now := e.now()
	b, ok, _ := e.d.Boost.Current(now)
	if !e.d.Boost.Cancel() {
		return
	}
	e.log.Infof("boost cancelled")
	ev := events.BoostEvent{Time: now, Action: events.BoostCancelled}
	if ok {
		ev.VehicleID, ev.Until = b.VehicleID, b.Until
	}
	e.publishEvent(ev)
	e.Trigger()
}

// SetDeparture applies a driver departure answer. value is a duration or a
// time of day; on a parse error the prompt stays open.
func (e *Engine) SetDeparture(vehicleID, value string) (time.Time, error) {
	id, err := e.resolveVehicle(vehicleID)
	if err != nil {
		return time.Time{}, err
	}
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()
	dep, err := e.d.Departure.Answer(id, value, e.now())
	if err != nil {
		return time.Time{}, err
	}
	e.log.Infof("departure of %s set to %s", id, dep.Format(time.RFC3339))
	e.Trigger()
	return dep, nil
}

// BufferGoLive ends the buffer observation period.
func (e *Engine) BufferGoLive(ctx context.Context) error {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()
	if err := e.d.Buffer.GoLive(ctx); err != nil {
		return err
	}
	e.Trigger()
	return nil
}

// BufferExtend keeps the buffer in observation mode indefinitely.
func (e *Engine) BufferExtend(ctx context.Context) error {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()
	if err := e.d.Buffer.Extend(ctx); err != nil {
		return err
	}
	e.Trigger()
	return nil
}

// BufferReset restarts the observation period and restores the default
// floor.
func (e *Engine) BufferReset(ctx context.Context) error {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()
	if err := e.d.Buffer.Reset(ctx, e.now()); err != nil {
		return err
	}
	e.Trigger()
	return nil
}

func (e *Engine) BufferStatus() model.BufferStatus { return e.d.Buffer.Status(e.now()) }

// BufferEvents returns the buffer events matching q, oldest first.
func (e *Engine) BufferEvents(ctx context.Context, q logging.LogQuery) ([]model.BufferEvent, error) {
	return e.d.Buffer.Query(ctx, q)
}

func (e *Engine) resolveVehicle(vehicleID string) (string, error) {
	if vehicleID == "" {
		if len(e.ids) != 1 {
			return "", boost.ErrAmbiguousVehicle
		}
		return e.ids[0], nil
	}
	if _, ok := e.vehicles[vehicleID]; !ok {
		return "", fmt.Errorf("%w: %s", boost.ErrUnknownVehicle, vehicleID)
	}
	return vehicleID, nil
}
