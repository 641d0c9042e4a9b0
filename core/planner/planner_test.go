package planner

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/hems/core/model"
)

var t0 = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func series(n int, v float64) model.ForecastSeries {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = v
	}
	return model.ForecastSeries{Values: vals}
}

func forecast(prices []float64, load, pv float64) model.Forecast {
	n := len(prices)
	return model.Forecast{
		Start:       t0,
		Consumption: series(n, load),
		PV:          series(n, pv),
		Price:       model.ForecastSeries{Values: prices},
	}
}

func priceSteps(steps ...[2]float64) []float64 {
	var out []float64
	for _, s := range steps {
		for i := 0; i < int(s[0]); i++ {
			out = append(out, s[1])
		}
	}
	return out
}

func testPlanner() *Planner {
	return New(Config{BatteryKWh: 10, MaxChargeKW: 5, MaxDischargeKW: 5}, nil)
}

func TestPlanDeterministic(t *testing.T) {
	p := testPlanner()
	in := Input{
		Forecast:   forecast(priceSteps([2]float64{8, 0.3}, [2]float64{8, 0.1}, [2]float64{16, 0.25}), 0.4, 0),
		Now:        t0,
		BatterySoC: 50,
		Floor:      30,
	}
	a := p.Plan(in)
	b := p.Plan(in)
	require.Equal(t, a, b)
	assert.Equal(t, SolverLP, a.Summary.Solver)
}

func TestPlanHonoursSoCBounds(t *testing.T) {
	prices := make([]float64, 32)
	for i := range prices {
		prices[i] = 0.1
		if (i/4)%2 == 1 {
			prices[i] = 0.4
		}
	}
	plan := testPlanner().Plan(Input{Forecast: forecast(prices, 0.3, 0), Now: t0, BatterySoC: 50, Floor: 30})
	require.Len(t, plan.Slots, 32)
	for _, s := range plan.Slots {
		if s.BatterySoC < 30-1e-6 || s.BatterySoC > 100+1e-6 {
			t.Fatalf("slot %d soc %.4f out of bounds", s.Index, s.BatterySoC)
		}
		if s.BatteryKW > 5+1e-6 || s.BatteryKW < -5-1e-6 {
			t.Fatalf("slot %d power %.3f exceeds rate", s.Index, s.BatteryKW)
		}
	}
}

func TestPlanShiftsLoadToCheapSlots(t *testing.T) {
	prices := priceSteps([2]float64{8, 0.10}, [2]float64{8, 0.40})
	f := forecast(prices, 0, 0)
	for i := 8; i < 16; i++ {
		f.Consumption.Values[i] = 0.5
	}
	plan := testPlanner().Plan(Input{Forecast: f, Now: t0, BatterySoC: 20, Floor: 20})
	require.Equal(t, SolverLP, plan.Summary.Solver)

	var charged, discharged bool
	for _, s := range plan.Slots {
		if s.Index < 8 && s.Battery == model.BatteryCharge {
			charged = true
		}
		if s.Index >= 8 && s.Battery == model.BatteryDischarge {
			discharged = true
		}
		if s.Index >= 8 && s.Battery == model.BatteryCharge {
			t.Fatalf("slot %d charges in expensive zone", s.Index)
		}
	}
	assert.True(t, charged)
	assert.True(t, discharged)
	// Without the battery the load costs 8 * 0.5 * 0.40.
	assert.Less(t, plan.Summary.ProjectedCost, 1.0)
	assert.Equal(t, model.ZoneCheap, plan.Slots[0].PriceZone)
}

func TestPlanMeetsEVDeadline(t *testing.T) {
	prices := priceSteps([2]float64{8, 0.30}, [2]float64{4, 0.10}, [2]float64{4, 0.30}, [2]float64{16, 0.05})
	ev := &EVDemand{
		VehicleID:   "car",
		SoC:         50,
		TargetSoC:   60,
		CapacityKWh: 50,
		MaxKW:       7.4,
		Deadline:    t0.Add(16 * model.SlotDuration),
	}
	plan := testPlanner().Plan(Input{Forecast: forecast(prices, 0.2, 0), Now: t0, BatterySoC: 50, Floor: 30, EV: ev})
	require.Equal(t, SolverLP, plan.Summary.Solver)
	assert.False(t, plan.Summary.DeadlineRelaxed)
	assert.Equal(t, "car", plan.Summary.EVVehicleID)

	for _, s := range plan.Slots {
		if s.Index >= 16 && s.EVCharge {
			t.Fatalf("slot %d charges EV after deadline", s.Index)
		}
		if s.EVCharge && (s.Index < 8 || s.Index >= 12) {
			t.Fatalf("slot %d charges EV outside the cheap window", s.Index)
		}
		if s.EVKW > 7.4+1e-6 {
			t.Fatalf("slot %d EV power %.3f exceeds max", s.Index, s.EVKW)
		}
		assert.False(t, s.BestEffort)
	}
	assert.InDelta(t, 60, plan.Slots[15].EVSoC, 1e-4)
}

func TestPlanRelaxesInfeasibleDeadline(t *testing.T) {
	ev := &EVDemand{
		VehicleID:   "car",
		SoC:         10,
		TargetSoC:   90,
		CapacityKWh: 50,
		MaxKW:       7.4,
		Deadline:    t0.Add(4 * model.SlotDuration),
	}
	prices := priceSteps([2]float64{16, 0.2})
	plan := testPlanner().Plan(Input{Forecast: forecast(prices, 0.2, 0), Now: t0, BatterySoC: 50, Floor: 30, EV: ev})
	require.True(t, plan.Summary.DeadlineRelaxed)
	for _, s := range plan.Slots {
		if s.Index < 4 {
			assert.True(t, s.BestEffort, "slot %d", s.Index)
			assert.InDelta(t, 7.4, s.EVKW, 1e-4)
			assert.Contains(t, s.Explanation, "best effort")
		} else {
			assert.False(t, s.BestEffort, "slot %d", s.Index)
			assert.False(t, s.EVCharge, "slot %d", s.Index)
		}
	}
}

func TestPlanFallsBackToHeuristic(t *testing.T) {
	old := lpSolve
	lpSolve = func(problem) (schedule, error) { return schedule{}, errors.New("fail") }
	defer func() { lpSolve = old }()

	prices := priceSteps([2]float64{8, 0.10}, [2]float64{8, 0.40})
	ev := &EVDemand{VehicleID: "car", SoC: 50, TargetSoC: 55, CapacityKWh: 40, MaxKW: 7.4}
	plan := testPlanner().Plan(Input{Forecast: forecast(prices, 0.5, 0), Now: t0, BatterySoC: 40, Floor: 30, EV: ev})
	require.Equal(t, SolverHeuristic, plan.Summary.Solver)
	require.Len(t, plan.Slots, 16)
	for _, s := range plan.Slots {
		if s.BatterySoC < 30-1e-6 {
			t.Fatalf("slot %d below floor: %.3f", s.Index, s.BatterySoC)
		}
		if s.Index >= 8 && s.EVCharge {
			t.Fatalf("heuristic charged EV in expensive slot %d", s.Index)
		}
	}
	assert.False(t, plan.Summary.DeadlineRelaxed)
	assert.InDelta(t, 55, plan.Slots[15].EVSoC, 1e-6)
}

func TestPlanKeepsBatteryBelowFloorUntouched(t *testing.T) {
	prices := priceSteps([2]float64{16, 0.4})
	plan := testPlanner().Plan(Input{Forecast: forecast(prices, 0.5, 0), Now: t0, BatterySoC: 15, Floor: 30})
	for _, s := range plan.Slots {
		if s.Battery == model.BatteryDischarge {
			t.Fatalf("slot %d discharges below floor", s.Index)
		}
		assert.GreaterOrEqual(t, s.BatterySoC, 15-1e-6)
	}
}

func TestPlanExportsSurplusAtFeedInPrice(t *testing.T) {
	p := New(Config{BatteryKWh: 10, MaxChargeKW: 5, MaxDischargeKW: 5, FeedInPrice: 0.05}, nil)
	prices := priceSteps([2]float64{4, 0.3})
	plan := p.Plan(Input{Forecast: forecast(prices, 0, 1), Now: t0, BatterySoC: 100, Floor: 100})
	require.Len(t, plan.Slots, 4)
	for _, s := range plan.Slots {
		assert.InDelta(t, -1, s.GridKWh, 1e-6)
		assert.InDelta(t, -0.05, s.Cost, 1e-6)
	}
	assert.InDelta(t, 4, plan.Summary.ExportKWh, 1e-6)
}

func TestPlanEmptyForecast(t *testing.T) {
	plan := testPlanner().Plan(Input{Now: t0, BatterySoC: 50, Floor: 30})
	assert.Empty(t, plan.Slots)
	assert.Equal(t, SolverNone, plan.Summary.Solver)
}

func TestPlanHorizonIsCapped(t *testing.T) {
	p := New(Config{HorizonSlots: 8}, nil)
	plan := p.Plan(Input{Forecast: forecast(priceSteps([2]float64{20, 0.2}), 0.1, 0), Now: t0, BatterySoC: 50})
	assert.Len(t, plan.Slots, 8)
}

func TestBlocksRespectMaxBlocks(t *testing.T) {
	cfg := Config{BlockSlots: 2, MaxBlocks: 4}
	cfg.SetDefaults()
	pr := newProblem(cfg, Input{Forecast: forecast(priceSteps([2]float64{20, 0.2}), 0.1, 0)})
	blocks := pr.blocks()
	require.Len(t, blocks, 4)
	assert.Equal(t, 0, blocks[0].from)
	assert.Equal(t, 20, blocks[3].to)
}

func TestBlocksKeepNearTermAtSlotResolution(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	pr := newProblem(cfg, Input{Forecast: forecast(priceSteps([2]float64{96, 0.2}), 0.1, 0)})
	blocks := pr.blocks()
	require.LessOrEqual(t, len(blocks), cfg.MaxBlocks)
	for i := 0; i < cfg.NearSlots; i++ {
		assert.Equal(t, i, blocks[i].from)
		assert.Equal(t, i+1, blocks[i].to)
	}
	assert.Greater(t, blocks[cfg.NearSlots].to-blocks[cfg.NearSlots].from, 1)
	assert.Equal(t, 96, blocks[len(blocks)-1].to)
}

// fixedBattery pins the home battery so only the EV moves.
const fixedBattery = 100

func TestPlanUsesCheapQuarterInsideExpensiveHour(t *testing.T) {
	prices := make([]float64, 96)
	for i := range prices {
		prices[i] = 0.40
		if i%4 == 0 {
			prices[i] = 0.05
		}
	}
	ev := &EVDemand{
		VehicleID:   "car",
		SoC:         50,
		TargetSoC:   55,
		CapacityKWh: 50,
		MaxKW:       11,
		Deadline:    t0.Add(4 * model.SlotDuration),
	}
	plan := testPlanner().Plan(Input{
		Forecast:   forecast(prices, 0, 0),
		Now:        t0,
		BatterySoC: fixedBattery,
		Floor:      fixedBattery,
		EV:         ev,
	})
	require.Equal(t, SolverLP, plan.Summary.Solver)
	require.False(t, plan.Summary.DeadlineRelaxed)

	// 2.5 kWh at the battery is 2.717 kWh AC, all of it in the first quarter.
	assert.InDelta(t, 2.5/0.92/0.25, plan.Slots[0].EVKW, 1e-4)
	for i := 1; i < 4; i++ {
		assert.False(t, plan.Slots[i].EVCharge, "slot %d", i)
	}
	assert.InDelta(t, 55, plan.Slots[3].EVSoC, 1e-4)
	var evCost float64
	for i := 0; i < 4; i++ {
		evCost += plan.Slots[i].Cost
	}
	assert.Less(t, evCost, 0.14)
}

func TestPlanPrefersLaterDischargeOnEqualPrices(t *testing.T) {
	prices := priceSteps([2]float64{32, 0.3})
	plan := testPlanner().Plan(Input{Forecast: forecast(prices, 0.5, 0), Now: t0, BatterySoC: 40, Floor: 30})
	require.Equal(t, SolverLP, plan.Summary.Solver)

	last := plan.Slots[len(plan.Slots)-1]
	assert.Equal(t, model.BatteryDischarge, last.Battery)
	for _, s := range plan.Slots[:28] {
		if s.Battery == model.BatteryDischarge {
			t.Fatalf("slot %d discharges before the last block", s.Index)
		}
	}
	assert.InDelta(t, 30, last.BatterySoC, 1e-4)
}

func TestPlanPrefersEVChargingInSurplusSlot(t *testing.T) {
	// The feed-in credit equals the price, so using surplus or importing
	// costs the same.
	p := New(Config{BatteryKWh: 10, MaxChargeKW: 5, MaxDischargeKW: 5, FeedInPrice: 0.3}, nil)
	f := forecast(priceSteps([2]float64{8, 0.3}), 0, 0)
	f.PV.Values[5] = 1
	ev := &EVDemand{VehicleID: "car", SoC: 50, TargetSoC: 52, CapacityKWh: 46, MaxKW: 4}
	plan := p.Plan(Input{Forecast: f, Now: t0, BatterySoC: fixedBattery, Floor: fixedBattery, EV: ev})
	require.Equal(t, SolverLP, plan.Summary.Solver)

	for _, s := range plan.Slots {
		if s.Index == 5 {
			assert.InDelta(t, 4, s.EVKW, 1e-4)
			continue
		}
		assert.False(t, s.EVCharge, "slot %d", s.Index)
	}
}

func TestEVDemandNeed(t *testing.T) {
	d := EVDemand{SoC: 40, TargetSoC: 80, CapacityKWh: 50}
	assert.InDelta(t, 20, d.NeedKWh(), 1e-9)
	d.SoC = 90
	assert.Zero(t, d.NeedKWh())
	d = EVDemand{SoC: 50, TargetSoC: 120, CapacityKWh: 10}
	assert.InDelta(t, 5, d.NeedKWh(), 1e-9)
}

func TestHeuristicPrefersCheapestEVSlots(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	prices := []float64{0.3, 0.1, 0.2, 0.1, 0.4}
	ev := &EVDemand{SoC: 0, TargetSoC: 10, CapacityKWh: 18.4, MaxKW: 4}
	pr := newProblem(cfg, Input{Forecast: forecast(prices, 0, 0), EV: ev, BatterySoC: 50})
	sched := heuristic(pr)
	// 1.84 kWh at the battery is 2 kWh from the grid, 1 kWh per slot.
	assert.InDelta(t, 1, sched.ev[1], 1e-9)
	assert.InDelta(t, 1, sched.ev[3], 1e-9)
	assert.InDelta(t, 0, sched.ev[0], 1e-9)
	assert.InDelta(t, 0, sched.ev[2], 1e-9)
	assert.InDelta(t, 0, sched.shortfall, 1e-9)
}
