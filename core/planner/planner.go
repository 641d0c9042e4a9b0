// Package planner builds the rolling dispatch plan for the home battery and
// the selected EV. The plan minimises the grid cost over the horizon with a
// linear program and falls back to a greedy heuristic when the solver fails.
package planner

import (
	"math"
	"time"

	"github.com/kilianp07/hems/core/logger"
	"github.com/kilianp07/hems/core/model"
)

const (
	slotHours = 0.25
	// actionEps is the energy below which a slot is reported as idle.
	actionEps = 1e-4
	// shortfallEps is the unmet EV energy above which a deadline is relaxed.
	shortfallEps = 1e-6
)

const (
	SolverLP        = "lp"
	SolverHeuristic = "heuristic"
	SolverNone      = "none"
)

// EVDemand describes the vehicle the plan should charge.
type EVDemand struct {
	VehicleID   string
	SoC         float64
	TargetSoC   float64
	CapacityKWh float64
	MaxKW       float64
	// Deadline ends EV availability. Zero means the whole horizon.
	Deadline time.Time
}

// NeedKWh is the energy the vehicle battery must receive to reach its target.
func (d EVDemand) NeedKWh() float64 {
	target := math.Min(d.TargetSoC, 100)
	if target <= d.SoC || d.CapacityKWh <= 0 {
		return 0
	}
	return (target - d.SoC) / 100 * d.CapacityKWh
}

// Input is the state a planning cycle starts from.
type Input struct {
	Forecast   model.Forecast
	Now        time.Time
	BatterySoC float64
	// Floor is the minimum battery SoC in percent, set by the buffer
	// calculator.
	Floor float64
	EV    *EVDemand
}

// Planner produces PlanHorizons. It holds no per-cycle state.
type Planner struct {
	cfg Config
	log logger.Logger
}

// New returns a planner using cfg. Zero fields take their defaults.
func New(cfg Config, log logger.Logger) *Planner {
	cfg.SetDefaults()
	return &Planner{cfg: cfg, log: logger.OrNop(log)}
}

// Config returns the effective configuration.
func (p *Planner) Config() Config { return p.cfg }

// Plan computes the dispatch plan for in. It always returns a plan; solver
// failures switch to the heuristic and are recorded in the summary.
func (p *Planner) Plan(in Input) model.PlanHorizon {
	pr := newProblem(p.cfg, in)
	if pr.n == 0 {
		return model.PlanHorizon{
			CreatedAt: in.Now,
			Summary:   model.PlanSummary{Solver: SolverNone, Floor: in.Floor},
		}
	}

	solver := SolverLP
	sched, err := lpSolve(pr)
	if err != nil {
		p.log.Warnf("LP planning failed, using heuristic: %v", err)
		sched = heuristic(pr)
		solver = SolverHeuristic
	}

	plan := pr.build(sched, solver, in.Now)
	p.log.Debugw("plan computed", map[string]any{
		"solver":           plan.Summary.Solver,
		"slots":            len(plan.Slots),
		"projected_cost":   plan.Summary.ProjectedCost,
		"deadline_relaxed": plan.Summary.DeadlineRelaxed,
	})
	return plan
}

// problem is the normalised view of one planning cycle shared by the LP and
// the heuristic.
type problem struct {
	cfg   Config
	n     int
	start time.Time

	load, pv, price []float64
	zones           []model.PriceZone
	p30, p60        float64

	// Battery energy in kWh.
	e0, emin, emax float64
	etaC, etaD     float64
	floor          float64

	ev        *EVDemand
	evNeed    float64
	evAvail   []bool
	evSlotMax float64
}

func newProblem(cfg Config, in Input) problem {
	f := in.Forecast
	n := f.Slots()
	if n > cfg.HorizonSlots {
		n = cfg.HorizonSlots
	}
	pr := problem{cfg: cfg, n: n, start: f.Start, floor: in.Floor}
	pr.load = make([]float64, n)
	pr.pv = make([]float64, n)
	pr.price = make([]float64, n)
	for i := 0; i < n; i++ {
		pr.load[i] = math.Max(0, f.Consumption.At(i))
		pr.pv[i] = math.Max(0, f.PV.At(i))
		pr.price[i] = f.Price.At(i)
	}
	pr.p30, pr.p60 = Quantiles(pr.price)
	pr.zones = make([]model.PriceZone, n)
	for i, price := range pr.price {
		pr.zones[i] = Zone(price, pr.p30, pr.p60)
	}

	soc := clamp(in.BatterySoC, 0, 100)
	floor := clamp(in.Floor, 0, 100)
	pr.emax = math.Max(0, cfg.BatteryKWh)
	pr.e0 = soc / 100 * pr.emax
	// A battery already below the floor is held where it is.
	pr.emin = math.Min(floor, soc) / 100 * pr.emax
	pr.etaC = math.Sqrt(cfg.RoundTripEfficiency)
	pr.etaD = pr.etaC

	pr.evAvail = make([]bool, n)
	if in.EV != nil {
		ev := *in.EV
		pr.ev = &ev
		pr.evNeed = ev.NeedKWh()
		pr.evSlotMax = math.Max(0, ev.MaxKW) * slotHours
		if pr.evNeed > 0 && pr.evSlotMax > 0 {
			for i := 0; i < n; i++ {
				end := f.SlotStart(i + 1)
				pr.evAvail[i] = ev.Deadline.IsZero() || !end.After(ev.Deadline)
			}
		}
	}
	return pr
}

func (pr problem) surplus(i int) float64 { return pr.pv[i] - pr.load[i] }

// schedule holds AC-side energy decisions per slot in kWh.
type schedule struct {
	charge, discharge, ev []float64
	shortfall             float64
}

func newSchedule(n int) schedule {
	return schedule{
		charge:    make([]float64, n),
		discharge: make([]float64, n),
		ev:        make([]float64, n),
	}
}

// build turns a schedule into the published plan and derives SoC
// trajectories, grid exchange and cost per slot.
func (pr problem) build(sched schedule, solver string, now time.Time) model.PlanHorizon {
	relaxed := pr.evNeed > 0 && sched.shortfall > shortfallEps
	plan := model.PlanHorizon{CreatedAt: now, Slots: make([]model.DispatchSlot, pr.n)}
	plan.Summary = model.PlanSummary{
		Solver:          solver,
		DeadlineRelaxed: relaxed,
		P30:             pr.p30,
		P60:             pr.p60,
		Floor:           pr.floor,
	}
	if pr.ev != nil {
		plan.Summary.EVVehicleID = pr.ev.VehicleID
	}

	energy := pr.e0
	var evSoC float64
	if pr.ev != nil {
		evSoC = pr.ev.SoC
	}
	for i := 0; i < pr.n; i++ {
		ch, dis, ev := sched.charge[i], sched.discharge[i], sched.ev[i]
		energy = clamp(energy+pr.etaC*ch-dis/pr.etaD, 0, pr.emax)
		if pr.ev != nil && pr.ev.CapacityKWh > 0 {
			evSoC = math.Min(100, evSoC+ev*pr.cfg.EVEfficiency/pr.ev.CapacityKWh*100)
		}

		grid := pr.load[i] - pr.pv[i] + ch - dis + ev
		slot := model.DispatchSlot{
			Index:       i,
			Start:       pr.start.Add(time.Duration(i) * model.SlotDuration),
			Price:       pr.price[i],
			PriceZone:   pr.zones[i],
			PV:          pr.pv[i],
			Consumption: pr.load[i],
			Battery:     model.BatteryHold,
			BatteryKW:   (ch - dis) / slotHours,
			EVCharge:    ev > actionEps,
			EVKW:        ev / slotHours,
			EVSoC:       evSoC,
			GridKWh:     grid,
			BestEffort:  relaxed && pr.evAvail[i],
		}
		if pr.emax > 0 {
			slot.BatterySoC = energy / pr.emax * 100
		}
		switch net := ch - dis; {
		case net > actionEps:
			slot.Battery = model.BatteryCharge
		case net < -actionEps:
			slot.Battery = model.BatteryDischarge
		default:
			slot.BatteryKW = 0
		}
		if !slot.EVCharge {
			slot.EVKW = 0
		}
		if grid >= 0 {
			slot.Cost = grid * pr.price[i]
			plan.Summary.ImportKWh += grid
		} else {
			slot.Cost = grid * math.Min(pr.cfg.FeedInPrice, pr.price[i])
			plan.Summary.ExportKWh -= grid
		}
		slot.Explanation = explain(slot)
		plan.Summary.ProjectedCost += slot.Cost
		plan.Slots[i] = slot
	}
	return plan
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
