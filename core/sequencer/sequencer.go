// Package sequencer ranks the active charge requests competing for the
// single charging point and selects which vehicle should be connected.
package sequencer

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kilianp07/hems/core/model"
)

const minHours = 0.5

// Ranked is a request with its final urgency score.
type Ranked struct {
	Request model.ChargeRequest
	Score   float64
	Deficit float64
	Hours   float64
	Reason  string
}

// Decision is the sequencing outcome for one cycle.
type Decision struct {
	// VehicleID is empty when no vehicle should charge.
	VehicleID    string
	SwapRequired bool
	Reason       string
}

// Sequencer computes urgency scores.
type Sequencer struct {
	cfg   Config
	quiet QuietHours
}

// New returns a sequencer. cfg must be valid once defaults are applied.
func New(cfg Config) (*Sequencer, error) {
	cfg.SetDefaults()
	q, err := ParseQuietHours(cfg.QuietStart, cfg.QuietEnd)
	if err != nil {
		return nil, err
	}
	return &Sequencer{cfg: cfg, quiet: q}, nil
}

// InQuietHours reports whether now falls in the configured quiet window.
func (s *Sequencer) InQuietHours(now time.Time) bool { return s.quiet.Contains(now) }

// Score returns the final urgency score of a single request.
func (s *Sequencer) Score(req model.ChargeRequest, now time.Time) Ranked {
	r := Ranked{Request: req, Deficit: req.Deficit()}
	window := "default window"
	hours := s.cfg.DefaultWindow.Hours()
	if req.Departure != nil && req.Departure.After(now) {
		hours = req.Departure.Sub(now).Hours()
		window = "departure"
	}
	r.Hours = math.Max(minHours, hours)

	if r.Deficit <= 0 {
		r.Reason = "at target"
		return r
	}
	r.Score = r.Deficit / r.Hours
	r.Reason = fmt.Sprintf("%.0f%% to go, %.1fh until %s", r.Deficit, r.Hours, window)
	if req.Connected {
		r.Score += s.cfg.ConnectedBonus
		r.Reason += ", connected"
		if s.quiet.Contains(now) {
			r.Score += s.cfg.QuietBonus
			r.Reason += ", quiet hours"
		}
	}
	return r
}

// Rank scores every request and sorts them by score, highest first. Equal
// scores keep request creation order.
func (s *Sequencer) Rank(reqs []model.ChargeRequest, now time.Time) []Ranked {
	out := make([]Ranked, len(reqs))
	for i, req := range reqs {
		out[i] = s.Score(req, now)
	}
	if s.quiet.Contains(now) {
		s.liftConnected(out)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		a, b := out[i].Request, out[j].Request
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Seq < b.Seq
	})
	return out
}

// liftConnected keeps the connected vehicle at least QuietBonus above every
// other score, whatever the deficits.
func (s *Sequencer) liftConnected(out []Ranked) {
	conn := -1
	var best float64
	for i, r := range out {
		if r.Request.Connected && r.Deficit > 0 && conn < 0 {
			conn = i
			continue
		}
		best = math.Max(best, r.Score)
	}
	if conn < 0 {
		return
	}
	if min := best + s.cfg.QuietBonus; out[conn].Score < min {
		out[conn].Score = min
	}
}

// Top returns the best ranked request that still needs energy.
func Top(ranked []Ranked) (Ranked, bool) {
	for _, r := range ranked {
		if r.Deficit > 0 {
			return r, true
		}
	}
	return Ranked{}, false
}

// Select picks the vehicle that should occupy the charging point. evIntent
// is the planner's EV charge decision for the current slot; boostVehicle,
// when set, takes precedence.
func Select(ranked []Ranked, evIntent bool, boostVehicle string) Decision {
	connected := ""
	for _, r := range ranked {
		if r.Request.Connected {
			connected = r.Request.VehicleID
			break
		}
	}
	if boostVehicle != "" {
		return Decision{
			VehicleID:    boostVehicle,
			SwapRequired: boostVehicle != connected,
			Reason:       "boost requested",
		}
	}
	if !evIntent {
		return Decision{Reason: "no EV charging planned for this slot"}
	}
	top, ok := Top(ranked)
	if !ok {
		return Decision{Reason: "all vehicles at target"}
	}
	return Decision{
		VehicleID:    top.Request.VehicleID,
		SwapRequired: top.Request.VehicleID != connected,
		Reason:       top.Reason,
	}
}

// Summary converts a ranking into the ordered query representation.
func Summary(ranked []Ranked) model.RequestsSummary {
	out := make(model.RequestsSummary, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, model.RequestSummary{
			VehicleID: r.Request.VehicleID,
			Score:     r.Score,
			Reason:    r.Reason,
			Departure: r.Request.Departure,
			Connected: r.Request.Connected,
		})
	}
	return out
}

// Deadline is the effective departure of a request: its departure when
// still ahead, otherwise now plus the default window.
func (s *Sequencer) Deadline(departure *time.Time, now time.Time) time.Time {
	if departure != nil && departure.After(now) {
		return *departure
	}
	return now.Add(s.cfg.DefaultWindow)
}
