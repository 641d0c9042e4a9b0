package planner

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	lpTolerance = 1e-8
	// tieEps orders otherwise equal-cost solutions without influencing
	// price driven decisions.
	tieEps = 1e-4
)

// lpSolve points to the function used to solve the plan. It can be
// overridden in tests to simulate solver failures.
var lpSolve = solveLP

// block groups consecutive slots sharing one set of LP decisions.
type block struct {
	from, to int
	evSlots  int
	load, pv float64
	price    float64
	hours    float64
}

// blocks keeps the first NearSlots slots at full resolution and merges the
// rest into BlockSlots wide blocks, widened so the total stays within
// MaxBlocks.
func (pr problem) blocks() []block {
	near := pr.cfg.NearSlots
	if near > pr.n {
		near = pr.n
	}
	if max := pr.cfg.MaxBlocks; max > 0 && pr.n > max && near >= max {
		near = max - 1
	}
	if near < 0 {
		near = 0
	}
	size := pr.cfg.BlockSlots
	if size < 1 {
		size = 1
	}
	rest := pr.n - near
	if max := pr.cfg.MaxBlocks - near; pr.cfg.MaxBlocks > 0 && rest > 0 && (rest+size-1)/size > max {
		size = (rest + max - 1) / max
	}

	out := make([]block, 0, near+(rest+size-1)/size)
	for from := 0; from < pr.n; {
		to := from + 1
		if from >= near {
			to = from + size
		}
		if to > pr.n {
			to = pr.n
		}
		out = append(out, pr.block(from, to))
		from = to
	}
	return out
}

func (pr problem) block(from, to int) block {
	b := block{from: from, to: to, hours: float64(to-from) * slotHours}
	for i := from; i < to; i++ {
		b.load += pr.load[i]
		b.pv += pr.pv[i]
		b.price += pr.price[i]
		if pr.evAvail[i] {
			b.evSlots++
		}
	}
	b.price /= float64(to - from)
	return b
}

// blockVars holds column indexes for one block, -1 when absent.
type blockVars struct {
	c, d, e int
	gi, ge  int
}

type lpEntry struct {
	col int
	val float64
}

// lpRow is one constraint. Rows with slack are inequalities (<=).
type lpRow struct {
	entries []lpEntry
	rhs     float64
	slack   bool
	basis   int
}

func (r *lpRow) add(col int, val float64) {
	if col >= 0 {
		r.entries = append(r.entries, lpEntry{col: col, val: val})
	}
}

// solveLP builds the problem directly in standard form:
//
//	minimize cᵀx  s.t.  Ax = b, x >= 0
//
// Each inequality gets its own slack column. The initial basis made of grid
// exchange, shortfall and slack columns is the identity, so the all-zero
// battery and EV schedule is a known feasible start.
func solveLP(pr problem) (sched schedule, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("simplex panic: %v", r)
		}
	}()

	blocks := pr.blocks()
	nb := len(blocks)
	battery := pr.emax > 0
	vars := make([]blockVars, nb)
	cols := 0
	for b, bl := range blocks {
		v := blockVars{c: -1, d: -1, e: -1}
		if battery {
			v.c, v.d = cols, cols+1
			cols += 2
		}
		if bl.evSlots > 0 {
			v.e = cols
			cols++
		}
		v.gi, v.ge = cols, cols+1
		cols += 2
		vars[b] = v
	}
	short := -1
	if pr.evNeed > 0 {
		short = cols
		cols++
	}

	var rows []lpRow
	for b, bl := range blocks {
		v := vars[b]
		r := lpRow{rhs: bl.load - bl.pv, basis: v.gi}
		if r.rhs < 0 {
			r.basis = v.ge
		}
		r.add(v.gi, 1)
		r.add(v.ge, -1)
		r.add(v.c, -1)
		r.add(v.d, 1)
		r.add(v.e, -1)
		rows = append(rows, r)
	}
	if short >= 0 {
		r := lpRow{rhs: pr.evNeed, basis: short}
		for _, v := range vars {
			r.add(v.e, pr.cfg.EVEfficiency)
		}
		r.add(short, 1)
		rows = append(rows, r)
	}
	for b, bl := range blocks {
		v := vars[b]
		if battery {
			rows = append(rows,
				boundRow(v.c, pr.cfg.MaxChargeKW*bl.hours),
				boundRow(v.d, pr.cfg.MaxDischargeKW*bl.hours))
		}
		if v.e >= 0 {
			rows = append(rows, boundRow(v.e, pr.evSlotMax*float64(bl.evSlots)))
		}
	}
	if battery {
		for k := 0; k < nb; k++ {
			up := lpRow{rhs: pr.emax - pr.e0, slack: true}
			down := lpRow{rhs: pr.e0 - pr.emin, slack: true}
			for b := 0; b <= k; b++ {
				up.add(vars[b].c, pr.etaC)
				up.add(vars[b].d, -1/pr.etaD)
				down.add(vars[b].c, -pr.etaC)
				down.add(vars[b].d, 1/pr.etaD)
			}
			rows = append(rows, up, down)
		}
	}

	total := cols
	for i := range rows {
		if rows[i].slack {
			rows[i].basis = total
			total++
		}
	}
	A := mat.NewDense(len(rows), total, nil)
	rhs := make([]float64, len(rows))
	basis := make([]int, len(rows))
	for i, r := range rows {
		sign := 1.0
		if r.rhs < 0 && !r.slack {
			sign = -1
		}
		for _, e := range r.entries {
			A.Set(i, e.col, A.At(i, e.col)+sign*e.val)
		}
		if r.slack {
			A.Set(i, r.basis, 1)
			r.rhs = math.Max(r.rhs, 0)
		}
		rhs[i] = sign * r.rhs
		basis[i] = r.basis
	}

	cost := make([]float64, total)
	for b, bl := range blocks {
		v := vars[b]
		cost[v.gi] = bl.price
		cost[v.ge] = -math.Min(pr.cfg.FeedInPrice, bl.price)
		if battery {
			cost[v.c] = tieEps / 10
			// Later discharge is preferred when prices tie.
			cost[v.d] = tieEps * float64(nb-b) / float64(nb)
		}
		if v.e >= 0 && bl.pv <= bl.load {
			cost[v.e] = tieEps
		}
	}
	if short >= 0 {
		cost[short] = pr.cfg.ShortfallPenalty
	}

	_, x, err := lp.Simplex(cost, A, rhs, lpTolerance, basis)
	if err != nil {
		return schedule{}, err
	}

	sched = newSchedule(pr.n)
	for b, bl := range blocks {
		v := vars[b]
		width := float64(bl.to - bl.from)
		for i := bl.from; i < bl.to; i++ {
			if battery {
				sched.charge[i] = nonNeg(x[v.c]) / width
				sched.discharge[i] = nonNeg(x[v.d]) / width
			}
			if v.e >= 0 && pr.evAvail[i] {
				sched.ev[i] = nonNeg(x[v.e]) / float64(bl.evSlots)
			}
		}
	}
	if short >= 0 {
		sched.shortfall = nonNeg(x[short])
	}
	return sched, nil
}

func boundRow(col int, limit float64) lpRow {
	r := lpRow{rhs: math.Max(limit, 0), slack: true}
	r.add(col, 1)
	return r
}

func nonNeg(v float64) float64 {
	if v < 1e-9 {
		return 0
	}
	return v
}
