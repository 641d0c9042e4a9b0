package engine

import (
	"sort"
	"time"

	"github.com/kilianp07/hems/core/model"
)

// updateRequests refreshes the charge request registry from the vehicle
// telemetry. A request is created when a vehicle misses energy and removed
// once it reaches its target. Vehicles never seen by telemetry are ignored.
func (e *Engine) updateRequests(states map[string]model.VehicleState, now time.Time) []model.ChargeRequest {
	for _, id := range e.ids {
		st, ok := states[id]
		if !ok || st.UpdatedAt.IsZero() {
			continue
		}
		v := e.vehicles[id]
		if st.SoC >= v.TargetSoC {
			delete(e.requests, id)
			continue
		}
		req, ok := e.requests[id]
		if !ok {
			e.seq++
			req = &model.ChargeRequest{VehicleID: id, CreatedAt: now, Seq: e.seq}
			e.requests[id] = req
		}
		req.CurrentSoC = st.SoC
		req.TargetSoC = v.TargetSoC
		req.Connected = st.Connected
		req.Departure = e.d.Departure.Departure(id)
	}

	out := make([]model.ChargeRequest, 0, len(e.requests))
	for _, r := range e.requests {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// request returns the registered request of vehicleID.
func (e *Engine) request(vehicleID string) (model.ChargeRequest, bool) {
	r, ok := e.requests[vehicleID]
	if !ok {
		return model.ChargeRequest{}, false
	}
	return *r, true
}

// plugChanges compares the connection states with the previous cycle and
// returns the vehicles that were plugged in and unplugged since.
func (e *Engine) plugChanges(states map[string]model.VehicleState) (in, out []string) {
	for _, id := range e.ids {
		st, ok := states[id]
		if !ok {
			continue
		}
		was := e.plugged[id]
		switch {
		case st.Connected && !was:
			in = append(in, id)
		case !st.Connected && was:
			out = append(out, id)
		}
		e.plugged[id] = st.Connected
	}
	return in, out
}
