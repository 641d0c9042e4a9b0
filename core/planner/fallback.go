package planner

import (
	"math"
	"sort"

	"github.com/kilianp07/hems/core/model"
)

// heuristic is the greedy fallback used when the LP cannot be solved. The
// EV is charged in its cheapest available slots first, then the battery
// absorbs PV surplus, charges in cheap slots and covers load in expensive
// ones while respecting the floor.
func heuristic(pr problem) schedule {
	sched := newSchedule(pr.n)

	if pr.evNeed > 0 && pr.evSlotMax > 0 {
		idx := make([]int, 0, pr.n)
		for i := 0; i < pr.n; i++ {
			if pr.evAvail[i] {
				idx = append(idx, i)
			}
		}
		sort.SliceStable(idx, func(a, b int) bool {
			ia, ib := idx[a], idx[b]
			if pr.price[ia] != pr.price[ib] {
				return pr.price[ia] < pr.price[ib]
			}
			sa, sb := pr.surplus(ia) > 0, pr.surplus(ib) > 0
			if sa != sb {
				return sa
			}
			return ia < ib
		})
		remaining := pr.evNeed / pr.cfg.EVEfficiency
		for _, i := range idx {
			if remaining <= 0 {
				break
			}
			e := math.Min(pr.evSlotMax, remaining)
			sched.ev[i] = e
			remaining -= e
		}
		sched.shortfall = math.Max(0, remaining*pr.cfg.EVEfficiency)
	} else if pr.evNeed > 0 {
		sched.shortfall = pr.evNeed
	}

	if pr.emax <= 0 {
		return sched
	}
	maxC := pr.cfg.MaxChargeKW * slotHours
	maxD := pr.cfg.MaxDischargeKW * slotHours
	energy := pr.e0
	for i := 0; i < pr.n; i++ {
		net := pr.load[i] + sched.ev[i] - pr.pv[i]
		room := math.Max(0, (pr.emax-energy)/pr.etaC)
		avail := math.Max(0, (energy-pr.emin)*pr.etaD)
		var ch, dis float64
		switch {
		case pr.zones[i] == model.ZoneCheap:
			ch = math.Min(maxC, room)
		case net < 0:
			ch = math.Min(math.Min(-net, maxC), room)
		case pr.zones[i] == model.ZoneExpensive:
			dis = math.Min(math.Min(net, maxD), avail)
		}
		sched.charge[i] = ch
		sched.discharge[i] = dis
		energy += pr.etaC*ch - dis/pr.etaD
	}
	return sched
}
