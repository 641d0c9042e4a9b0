package scenarios

import (
	"fmt"

	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/planner"
	"github.com/kilianp07/hems/infra/logger"
)

const socTolerance = 0.5

// Result is the plan of a scenario with every unmet expectation.
type Result struct {
	Plan     model.PlanHorizon
	Failures []string
}

func (r Result) Passed() bool { return len(r.Failures) == 0 }

// Run plans the scenario and checks its expectations.
func Run(sc *Scenario) Result {
	in := planner.Input{
		Forecast:   sc.Forecast(),
		Now:        sc.Start,
		BatterySoC: sc.BatterySoC,
		Floor:      sc.Floor,
	}
	if v := sc.Vehicle; v != nil {
		in.EV = &planner.EVDemand{
			VehicleID:   v.ID,
			SoC:         v.SoC,
			TargetSoC:   v.TargetSoC,
			CapacityKWh: v.CapacityKWh,
			MaxKW:       v.MaxKW,
		}
		if v.DepartureIn > 0 {
			in.EV.Deadline = sc.Start.Add(v.DepartureIn)
		}
	}
	plan := planner.New(planner.Config{BatteryKWh: sc.BatteryKWh}, logger.NopLogger{}).Plan(in)
	return Result{Plan: plan, Failures: check(sc, plan)}
}

func check(sc *Scenario, plan model.PlanHorizon) []string {
	var fails []string
	failf := func(format string, args ...any) { fails = append(fails, fmt.Sprintf(format, args...)) }
	exp := sc.Expected
	sum := plan.Summary

	if exp.Solver != "" && sum.Solver != exp.Solver {
		failf("solver %s, want %s", sum.Solver, exp.Solver)
	}
	if exp.DeadlineRelaxed != nil && sum.DeadlineRelaxed != *exp.DeadlineRelaxed {
		failf("deadline relaxed %t, want %t", sum.DeadlineRelaxed, *exp.DeadlineRelaxed)
	}
	if exp.MaxCost != nil && sum.ProjectedCost > *exp.MaxCost {
		failf("projected cost %.2f above %.2f", sum.ProjectedCost, *exp.MaxCost)
	}
	if exp.FloorRespected && sc.BatterySoC >= sc.Floor {
		for _, s := range plan.Slots {
			if s.BatterySoC < sc.Floor-socTolerance {
				failf("slot %d battery at %.1f%% below floor %.1f%%", s.Index, s.BatterySoC, sc.Floor)
				break
			}
		}
	}
	if v := sc.Vehicle; v != nil && exp.EVTargetReached != nil {
		reached := evSoCAt(plan, sc, v) >= v.TargetSoC-socTolerance
		if reached != *exp.EVTargetReached {
			failf("ev target reached %t, want %t", reached, *exp.EVTargetReached)
		}
	}
	if exp.EVMaxPrice != nil {
		for _, s := range plan.Slots {
			if s.EVCharge && s.Price > *exp.EVMaxPrice {
				failf("ev charges in slot %d at %.3f", s.Index, s.Price)
				break
			}
		}
	}
	return fails
}

// evSoCAt is the vehicle SoC at departure, or at the end of the horizon.
func evSoCAt(plan model.PlanHorizon, sc *Scenario, v *VehicleDef) float64 {
	soc := v.SoC
	for _, s := range plan.Slots {
		if v.DepartureIn > 0 && !s.Start.Before(sc.Start.Add(v.DepartureIn)) {
			break
		}
		soc = s.EVSoC
	}
	return soc
}
