package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/hems/core/buffer"
	"github.com/kilianp07/hems/core/events"
	"github.com/kilianp07/hems/core/forecast"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/modecontrol"
	"github.com/kilianp07/hems/core/planner"
	"github.com/kilianp07/hems/core/sequencer"
	"github.com/kilianp07/hems/core/state"
)

// inputs are the values read at the start of a cycle.
type inputs struct {
	batterySoC float64
	vehicles   map[string]model.VehicleState
	mode       model.ChargeMode
	modeErr    error
	forecast   model.Forecast
	fcErr      error
}

func (e *Engine) cycle(ctx context.Context) *state.Snapshot {
	now := e.now()
	in, err := e.read(ctx, now)
	if err != nil {
		return e.skip(now, err)
	}

	var banners []string
	if in.fcErr != nil {
		e.log.Warnf("forecast degraded: %v", in.fcErr)
		banners = append(banners, "forecast unavailable, planning on baseline profile")
	}

	e.cmdMu.Lock()
	e.applyPlugChanges(in.vehicles, now)
	for _, id := range e.d.Departure.Resolve(now) {
		e.log.Infof("no departure answer for %s, default applied", id)
	}
	e.recalculateBuffer(ctx, in.forecast, now)
	reqs := e.updateRequests(in.vehicles, now)
	ranked := e.d.Sequencer.Rank(reqs, now)
	boostVehicle, active := e.currentBoost(in.vehicles, now)
	for _, id := range e.ids {
		if e.d.Departure.Pending(id) {
			banners = append(banners, fmt.Sprintf("departure of %s not set yet", id))
		}
	}
	e.cmdMu.Unlock()

	plan := e.d.Planner.Plan(planner.Input{
		Forecast:   in.forecast,
		Now:        now,
		BatterySoC: in.batterySoC,
		Floor:      e.d.Buffer.ActiveFloor(),
		EV:         e.demand(ranked, boostVehicle, now),
	})

	slot, _ := plan.Current()
	decision := sequencer.Select(ranked, slot.EVCharge, boostVehicle)
	if decision.SwapRequired {
		banners = append(banners, fmt.Sprintf("plug in %s to charge", decision.VehicleID))
	}

	res := e.d.Mode.Step(ctx, e.modeInput(in, plan, boostVehicle, now))
	e.emitMode(res, in.mode, now)
	if res.Banner != "" {
		banners = append(banners, res.Banner)
	}

	snap := &state.Snapshot{
		CreatedAt: now,
		Plan:      plan,
		Requests:  sequencer.Summary(ranked),
		Selection: state.Selection{
			VehicleID:    decision.VehicleID,
			SwapRequired: decision.SwapRequired,
			Reason:       decision.Reason,
		},
		Mode:     e.d.Mode.Status(),
		Buffer:   e.d.Buffer.Status(now),
		Boost:    active,
		Banners:  banners,
		Degraded: in.forecast.Degraded || in.fcErr != nil,
	}
	e.d.Store.Publish(snap)

	ev := events.CycleEvent{
		Time:     now,
		Duration: e.now().Sub(now),
		Plan:     plan,
		Floor:    plan.Summary.Floor,
		Vehicle:  decision.VehicleID,
		Degraded: snap.Degraded,
	}
	if top, ok := sequencer.Top(ranked); ok {
		ev.Urgency = top.Score
	}
	e.publishEvent(ev)
	e.log.Infow("decision cycle done", map[string]any{
		"solver":  plan.Summary.Solver,
		"cost":    plan.Summary.ProjectedCost,
		"vehicle": decision.VehicleID,
		"target":  string(res.Target),
		"command": string(res.Command),
	})
	return snap
}

// read fetches every input with its own timeout. Battery and vehicle SoC
// are required; a failed charger read or forecast only degrades the cycle.
func (e *Engine) read(ctx context.Context, now time.Time) (inputs, error) {
	var in inputs
	var err error

	rctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	in.batterySoC, err = e.d.Battery.BatterySoC(rctx)
	cancel()
	if err != nil {
		return in, fmt.Errorf("%w: battery: %v", ErrSoCUnavailable, err)
	}

	rctx, cancel = context.WithTimeout(ctx, e.cfg.FetchTimeout)
	states, err := e.d.Telemetry.Vehicles(rctx, e.ids)
	cancel()
	if err != nil {
		return in, fmt.Errorf("%w: vehicles: %v", ErrSoCUnavailable, err)
	}
	in.vehicles = make(map[string]model.VehicleState, len(states))
	for _, st := range states {
		in.vehicles[st.ID] = st
	}

	rctx, cancel = context.WithTimeout(ctx, e.cfg.FetchTimeout)
	in.mode, in.modeErr = e.d.Charger.Mode(rctx)
	cancel()

	rctx, cancel = context.WithTimeout(ctx, e.cfg.FetchTimeout)
	in.forecast, in.fcErr = e.d.Forecast.Resolve(rctx, now)
	cancel()
	return in, nil
}

// skip republishes the previous decisions with a banner explaining why the
// cycle did not run.
func (e *Engine) skip(now time.Time, err error) *state.Snapshot {
	e.log.Warnf("decision cycle skipped: %v", err)
	next := *e.d.Store.Load()
	next.Banners = []string{"cycle skipped: " + err.Error()}
	next.Degraded = true
	e.d.Store.Publish(&next)
	e.publishEvent(events.CycleEvent{
		Time:     now,
		Duration: e.now().Sub(now),
		Skipped:  true,
		Reason:   err.Error(),
		Degraded: true,
	})
	return &next
}

func (e *Engine) applyPlugChanges(states map[string]model.VehicleState, now time.Time) {
	in, out := e.plugChanges(states)
	for _, id := range in {
		e.log.Infof("vehicle %s plugged in", id)
		e.d.Departure.Prompt(id, now)
	}
	for _, id := range out {
		e.log.Infof("vehicle %s unplugged", id)
		e.d.Departure.Clear(id)
		if b, ok, _ := e.d.Boost.Current(now); ok && b.VehicleID == id {
			e.d.Boost.Cancel()
			e.publishEvent(events.BoostEvent{Time: now, VehicleID: id, Action: events.BoostCancelled, Until: b.Until})
		}
	}
}

func (e *Engine) recalculateBuffer(ctx context.Context, f model.Forecast, now time.Time) {
	if !e.lastBuffer.IsZero() && now.Sub(e.lastBuffer) < e.d.Buffer.Config().Interval {
		return
	}
	ev, err := e.d.Buffer.Recalculate(ctx, buffer.Inputs{Now: now, Forecast: f})
	if err != nil {
		e.log.Errorf("buffer recalculation: %v", err)
	}
	e.lastBuffer = now
	e.publishEvent(events.BufferEvent{Event: ev})
}

// currentBoost returns the active boost vehicle. Expired boosts and boosts
// of vehicles already at target are cleared.
func (e *Engine) currentBoost(states map[string]model.VehicleState, now time.Time) (string, *model.Boost) {
	b, ok, expired := e.d.Boost.Current(now)
	if expired {
		e.log.Infof("boost expired")
		e.publishEvent(events.BoostEvent{Time: now, Action: events.BoostExpired})
	}
	if !ok {
		return "", nil
	}
	if st, seen := states[b.VehicleID]; seen && !st.UpdatedAt.IsZero() && st.SoC >= e.vehicles[b.VehicleID].TargetSoC {
		e.log.Infof("boost of %s ended, target reached", b.VehicleID)
		e.d.Boost.Cancel()
		e.publishEvent(events.BoostEvent{Time: now, VehicleID: b.VehicleID, Action: events.BoostCancelled, Until: b.Until})
		return "", nil
	}
	return b.VehicleID, &b
}

// demand builds the EV demand of the boost vehicle, or of the most urgent
// request otherwise.
func (e *Engine) demand(ranked []sequencer.Ranked, boostVehicle string, now time.Time) *planner.EVDemand {
	var req model.ChargeRequest
	switch {
	case boostVehicle != "":
		r, ok := e.request(boostVehicle)
		if !ok {
			return nil
		}
		req = r
	default:
		top, ok := sequencer.Top(ranked)
		if !ok {
			return nil
		}
		req = top.Request
	}
	v := e.vehicles[req.VehicleID]
	return &planner.EVDemand{
		VehicleID:   v.ID,
		SoC:         req.CurrentSoC,
		TargetSoC:   req.TargetSoC,
		CapacityKWh: v.CapacityKWh,
		MaxKW:       v.MaxKW,
		Deadline:    e.d.Sequencer.Deadline(req.Departure, now),
	}
}

// modeInput resolves the mode controller input for the vehicle on the
// charging point.
func (e *Engine) modeInput(in inputs, plan model.PlanHorizon, boostVehicle string, now time.Time) modecontrol.Input {
	mi := modecontrol.Input{
		Now:      now,
		Observed: in.mode,
		ReadErr:  in.modeErr,
		Boost:    boostVehicle != "",
	}
	ranks := in.forecast.Price.Percentiles
	if len(ranks) == 0 && len(plan.Slots) > 0 {
		prices := make([]float64, len(plan.Slots))
		for i, s := range plan.Slots {
			prices[i] = s.Price
		}
		ranks = forecast.Ranks(prices)
	}
	if len(ranks) > 0 {
		mi.PricePercentile = ranks[0]
	}
	for _, id := range e.ids {
		st, ok := in.vehicles[id]
		if !ok || !st.Connected {
			continue
		}
		mi.Connected = true
		req, pending := e.request(id)
		mi.AtTarget = !pending && !st.UpdatedAt.IsZero()
		if pending {
			mi.Urgent = e.d.Mode.Urgent(req.Departure, req.Deficit(), now)
		}
		break
	}
	return mi
}

func (e *Engine) emitMode(res modecontrol.Result, observed model.ChargeMode, now time.Time) {
	switch {
	case res.OverrideStarted:
		e.publishEvent(events.ModeEvent{Time: now, Action: events.OverrideStarted, Mode: observed})
	case res.OverrideEnded != "":
		e.publishEvent(events.ModeEvent{Time: now, Action: events.OverrideEnded, Reason: res.OverrideEnded})
	}
	switch {
	case res.CommandErr != nil:
		e.publishEvent(events.ModeEvent{Time: now, Action: events.ModeCommandFailed, Mode: res.Target, Err: res.CommandErr})
	case res.Command != model.ModeNone:
		e.publishEvent(events.ModeEvent{Time: now, Action: events.ModeCommand, Mode: res.Command})
	}
}
