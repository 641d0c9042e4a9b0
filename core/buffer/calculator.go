// Package buffer computes the protected minimum battery SoC from PV forecast
// confidence, the price spread and the time of day.
package buffer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/hems/core/buffer/logging"
	"github.com/kilianp07/hems/core/logger"
	"github.com/kilianp07/hems/core/model"
)

// ErrAlreadyLive is returned when extending observation after going live.
var ErrAlreadyLive = errors.New("buffer already live")

// Inputs are the already resolved values of one recalculation.
type Inputs struct {
	Now      time.Time
	Forecast model.Forecast
}

// Calculator owns the BufferEvent log and the active floor.
type Calculator struct {
	cfg    Config
	events logging.LogStore
	states logging.StateStore
	log    logger.Logger
	newID  func() string

	mu     sync.Mutex
	mode   model.BufferModeState
	active float64
	last   *model.BufferEvent
}

// NewCalculator restores the persisted mode or starts a new observation
// period at now.
func NewCalculator(ctx context.Context, cfg Config, events logging.LogStore, states logging.StateStore, log logger.Logger, now time.Time) (*Calculator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if events == nil || states == nil {
		mem := logging.NewMemoryStore()
		if events == nil {
			events = mem
		}
		if states == nil {
			states = mem
		}
	}
	c := &Calculator{
		cfg:    cfg,
		events: events,
		states: states,
		log:    logger.OrNop(log),
		newID:  uuid.NewString,
		active: cfg.DefaultFloor,
	}
	st, ok, err := states.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load buffer state: %w", err)
	}
	if !ok {
		st = model.BufferModeState{Mode: model.BufferObservation, ActivatedAt: now}
		if err := states.Save(ctx, st); err != nil {
			return nil, fmt.Errorf("save buffer state: %w", err)
		}
	}
	c.mode = st
	if last, err := events.Query(ctx, logging.LogQuery{Limit: 1, AppliedOnly: true}); err == nil && len(last) == 1 && st.Mode == model.BufferLive {
		c.active = last[0].NewFloor
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Calculator) Config() Config { return c.cfg }

// ActiveFloor returns the floor currently in force.
func (c *Calculator) ActiveFloor() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Recalculate computes a new floor and appends exactly one BufferEvent. In
// observation mode the event is simulated and the active floor is kept.
func (c *Calculator) Recalculate(ctx context.Context, in Inputs) (model.BufferEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	liveErr := c.autoGoLive(ctx, in.Now)

	f := in.Forecast
	confidence := 0.0
	if !f.Degraded {
		confidence = Confidence(f.PVAccuracy, f.CloudCover, in.Now, c.cfg.AccuracyDays)
	}
	spread := PriceSpread(f.Price.Values, model.SlotsPerDay)
	tod := Bucket(in.Now)
	floor := c.cfg.Floor(confidence, spread, tod)
	applied := c.mode.Mode == model.BufferLive

	ev := model.BufferEvent{
		ID:            c.newID(),
		Timestamp:     in.Now,
		PVConfidence:  confidence,
		PriceSpread:   spread,
		TimeOfDay:     tod,
		ExpectedPVKWh: f.PV.Sum(model.SlotsPerDay),
		PreviousFloor: c.active,
		NewFloor:      floor,
		Applied:       applied,
	}
	ev.Reason = reason(ev, f.Degraded)
	if applied {
		c.active = floor
	}
	c.last = &ev

	if err := c.events.Append(ctx, ev); err != nil {
		return ev, errors.Join(fmt.Errorf("append buffer event: %w", err), liveErr)
	}
	c.log.Debugw("buffer recalculated", map[string]any{
		"confidence": confidence,
		"spread":     spread,
		"floor":      floor,
		"applied":    applied,
	})
	return ev, liveErr
}

func (c *Calculator) autoGoLive(ctx context.Context, now time.Time) error {
	if c.mode.Mode != model.BufferObservation || c.mode.Extended {
		return nil
	}
	if now.Sub(c.mode.ActivatedAt) < c.cfg.ObservationWindow() {
		return nil
	}
	c.log.Infof("buffer observation window elapsed, going live")
	if err := c.setMode(ctx, model.BufferModeState{Mode: model.BufferLive, ActivatedAt: c.mode.ActivatedAt}); err != nil {
		return fmt.Errorf("auto go-live: %w", err)
	}
	return nil
}

// GoLive ends observation early. It is a no-op when already live.
func (c *Calculator) GoLive(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode.Mode == model.BufferLive {
		return nil
	}
	return c.setMode(ctx, model.BufferModeState{Mode: model.BufferLive, ActivatedAt: c.mode.ActivatedAt})
}

// Extend keeps the calculator in observation until GoLive is called.
func (c *Calculator) Extend(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode.Mode == model.BufferLive {
		return ErrAlreadyLive
	}
	st := c.mode
	st.Extended = true
	return c.setMode(ctx, st)
}

// Reset starts a new observation period at now and restores the default
// floor.
func (c *Calculator) Reset(ctx context.Context, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = c.cfg.DefaultFloor
	return c.setMode(ctx, model.BufferModeState{Mode: model.BufferObservation, ActivatedAt: now})
}

func (c *Calculator) setMode(ctx context.Context, st model.BufferModeState) error {
	c.mode = st
	if err := c.states.Save(ctx, st); err != nil {
		c.log.Errorf("persist buffer mode: %v", err)
		return fmt.Errorf("save buffer state: %w", err)
	}
	return nil
}

// Status answers the buffer-mode query.
func (c *Calculator) Status(now time.Time) model.BufferStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := model.BufferStatus{
		Mode:        c.mode.Mode,
		ActivatedAt: c.mode.ActivatedAt,
		Extended:    c.mode.Extended,
		Elapsed:     now.Sub(c.mode.ActivatedAt),
		ActiveFloor: c.active,
	}
	if st.Elapsed < 0 {
		st.Elapsed = 0
	}
	if c.mode.Mode == model.BufferObservation && !c.mode.Extended {
		if rem := c.cfg.ObservationWindow() - st.Elapsed; rem > 0 {
			st.Remaining = rem
		}
	}
	if c.last != nil {
		ev := *c.last
		st.LastEvent = &ev
	}
	return st
}

// Events returns the most recent events, oldest first.
func (c *Calculator) Events(ctx context.Context, limit int) ([]model.BufferEvent, error) {
	return c.Query(ctx, logging.LogQuery{Limit: limit})
}

// Query filters the event log.
func (c *Calculator) Query(ctx context.Context, q logging.LogQuery) ([]model.BufferEvent, error) {
	return c.events.Query(ctx, q)
}

func reason(ev model.BufferEvent, degraded bool) string {
	src := fmt.Sprintf("PV confidence %.0f%%", ev.PVConfidence)
	if degraded {
		src = "forecast degraded"
	}
	out := fmt.Sprintf("%s, price spread %.3f, %s: floor %.1f%% -> %.1f%%",
		src, ev.PriceSpread, ev.TimeOfDay, ev.PreviousFloor, ev.NewFloor)
	if !ev.Applied {
		out += " (simulated)"
	}
	return out
}
