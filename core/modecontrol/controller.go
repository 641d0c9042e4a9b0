// Package modecontrol drives the charger mode towards the plan while
// yielding to manual changes made on the charger itself.
package modecontrol

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/hems/core/logger"
	"github.com/kilianp07/hems/core/model"
)

// Commander sets the charger mode.
type Commander interface {
	SetMode(ctx context.Context, mode model.ChargeMode) error
}

// Input is the resolved state of one cycle.
type Input struct {
	Now      time.Time
	Observed model.ChargeMode
	// ReadErr is set when the observed mode could not be read.
	ReadErr   error
	Connected bool
	AtTarget  bool
	// PricePercentile is the current slot price rank within the horizon.
	PricePercentile float64
	Urgent          bool
	Boost           bool
}

// Result reports what the controller did during a step.
type Result struct {
	Target          model.ChargeMode
	Command         model.ChargeMode
	CommandErr      error
	OverrideStarted bool
	OverrideEnded   string
	State           model.ModeControllerState
	Banner          string
}

// Controller is the override detection state machine for one charging
// point.
type Controller struct {
	cfg Config
	cmd Commander
	log logger.Logger

	mu       sync.Mutex
	state    model.ModeControllerState
	observed model.ChargeMode
	target   model.ChargeMode
	banner   string
}

func New(cfg Config, cmd Commander, log logger.Logger) *Controller {
	cfg.SetDefaults()
	return &Controller{
		cfg:   cfg,
		cmd:   cmd,
		log:   logger.OrNop(log),
		state: model.ModeControllerState{Phase: model.PhaseStartup},
	}
}

// Target selects the desired mode from the price rank and the urgency.
func (c *Controller) Target(in Input) model.ChargeMode {
	switch {
	case in.Boost, in.Urgent, in.PricePercentile <= c.cfg.CheapPercentile:
		return model.ModeNow
	case in.PricePercentile <= c.cfg.ModeratePercentile:
		return model.ModeMinPV
	default:
		return model.ModePV
	}
}

// Step runs one cycle of the state machine. At most one command is issued.
func (c *Controller) Step(ctx context.Context, in Input) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := Result{Target: c.Target(in)}
	c.target = res.Target

	if in.ReadErr != nil || !in.Observed.Valid() {
		c.unreachable(in)
		res.State, res.Banner = c.state, c.banner
		return res
	}
	c.state.UnreachableSince = time.Time{}
	c.banner = ""
	c.observed = in.Observed

	switch c.state.Phase {
	case model.PhaseStartup:
		c.state.Phase = model.PhaseActive
		c.state.LastSetMode = in.Observed
		c.state.BaselineAdopted = true
		c.log.Infof("mode control started, adopting observed mode %q", in.Observed)

	case model.PhaseOverride:
		if why := c.overrideEnd(in); why != "" {
			c.state.Phase = model.PhaseActive
			c.state.OverrideActive = false
			c.state.OverrideSince = time.Time{}
			c.state.LastSetMode = model.ModeNone
			res.OverrideEnded = why
			c.log.Infof("manual override ended: %s", why)
		}

	case model.PhaseActive:
		if in.Observed == c.state.LastSetMode {
			c.settled()
		}
		if c.awaitingEcho(in) {
			break
		}
		if c.state.LastSetMode != model.ModeNone && in.Observed != c.state.LastSetMode {
			c.settled()
			c.state.Phase = model.PhaseOverride
			c.state.OverrideActive = true
			c.state.OverrideSince = in.Now
			res.OverrideStarted = true
			c.log.Infof("manual override detected: observed %q, last set %q", in.Observed, c.state.LastSetMode)
			break
		}
		if in.Observed == res.Target {
			c.state.LastSetMode = res.Target
			break
		}
		if err := c.cmd.SetMode(ctx, res.Target); err != nil {
			res.CommandErr = err
			c.log.Errorf("set charger mode %q: %v", res.Target, err)
			break
		}
		res.Command = res.Target
		c.state.PreviousMode = in.Observed
		c.state.CommandedAt = in.Now
		c.state.LastSetMode = res.Target
	}

	res.State = c.state
	return res
}

// awaitingEcho reports whether the charger still shows the mode it had
// before the last command and the settle window has not elapsed.
func (c *Controller) awaitingEcho(in Input) bool {
	if c.state.CommandedAt.IsZero() || in.Observed != c.state.PreviousMode {
		return false
	}
	return in.Now.Sub(c.state.CommandedAt) < c.cfg.SettleWindow
}

func (c *Controller) settled() {
	c.state.CommandedAt = time.Time{}
	c.state.PreviousMode = model.ModeNone
}

func (c *Controller) overrideEnd(in Input) string {
	switch {
	case !in.Connected:
		return "vehicle disconnected"
	case in.AtTarget:
		return "target SoC reached"
	case in.Now.Sub(c.state.OverrideSince) >= c.cfg.OverrideTimeout:
		return "override timed out"
	default:
		return ""
	}
}

func (c *Controller) unreachable(in Input) {
	if c.state.UnreachableSince.IsZero() {
		c.state.UnreachableSince = in.Now
		reason := "invalid mode " + string(in.Observed)
		if in.ReadErr != nil {
			reason = in.ReadErr.Error()
		}
		c.log.Warnf("charger mode unavailable: %s", reason)
	}
	if in.Now.Sub(c.state.UnreachableSince) >= c.cfg.UnreachableAfter {
		c.banner = fmt.Sprintf("charger unreachable since %s", c.state.UnreachableSince.Format("15:04"))
	}
}

// Status answers the mode-control query.
func (c *Controller) Status() model.ModeStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.ModeStatus{
		State:        c.state,
		ObservedMode: c.observed,
		TargetMode:   c.target,
		Banner:       c.banner,
	}
}

// Urgent reports whether a vehicle still missing energy leaves within the
// urgency window.
func (c *Controller) Urgent(departure *time.Time, deficit float64, now time.Time) bool {
	if departure == nil || deficit <= 0 || !departure.After(now) {
		return false
	}
	return departure.Sub(now) <= c.cfg.UrgentWithin
}
