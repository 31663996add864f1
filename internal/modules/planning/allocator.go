package planning

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// capacityTol absorbs float drift when comparing hour totals.
const capacityTol = 1e-6

// itemBounds is the case-count box for one item in the LP.
type itemBounds struct {
	Lower float64
	Upper float64
}

// Fixed reports whether the variable is pinned to its lower bound (which may
// be zero).
func (b itemBounds) Fixed() bool {
	return b.Upper <= b.Lower
}

// priorityOf weights an item in the objective as the inverse of its initial
// coverage, so emptier items attract hours first. Zero coverage gets a large
// constant in place of the undefined division.
func priorityOf(p Projection) float64 {
	if p.InitialCoverage <= 0 {
		return zeroCoveragePriority
	}
	return 1 / p.InitialCoverage
}

// boundsFor computes the case-count box for one item.
//
// The lower bound is the minimum economical batch; the upper bound is the
// lesser of what the full hour budget could produce and what the coverage
// ceiling allows on top of current stock. An inverted box (ceiling below the
// minimum batch) is resolved by raising the upper bound to the lower, or by
// zeroing the item entirely under the strict minimum-batch policy. Items
// already holding MaxInitialCoverage days of stock get no production at all.
func boundsFor(p Projection, hours float64, strict bool) itemBounds {
	if !p.CoverageDefined() || p.InitialCoverage >= MaxInitialCoverage {
		return itemBounds{}
	}

	rate := p.Item.EffectiveRate()
	lower := MinBatchHours * rate
	upper := hours * rate

	if ceiling := CoverageCeiling(p.Item.DailySales15); !math.IsInf(ceiling, 1) {
		if roof := p.DemandRate*ceiling - p.InitialStock; roof < upper {
			upper = roof
		}
	}

	if upper < lower {
		if strict {
			return itemBounds{}
		}
		upper = lower
	}

	return itemBounds{Lower: lower, Upper: upper}
}

// solveLP solves the continuous allocation as a linear program:
//
//	minimize   -Σ priority_i · x_i
//	subject to  Σ x_i / rate_i = hours
//	            x_i ≥ need_i          (optional minimum-coverage rows)
//	            lower_i ≤ x_i ≤ upper_i
//
// The solver wants standard form (A·z = b, z ≥ 0), so each free variable is
// shifted by its lower bound and boxed with a slack row; minimum-coverage
// rows get a surplus variable. Fixed variables stay out of the program and
// contribute their pinned hours to the capacity balance.
//
// minCoverage <= 0 disables the coverage rows. Returns the case count per
// projection, aligned with projs.
func solveLP(projs []Projection, bnds []itemBounds, hours, minCoverage float64, log zerolog.Logger) ([]float64, error) {
	cases := make([]float64, len(projs))

	// Capacity left for the shifted variables once every lower bound is
	// committed.
	rhs := hours
	var free []int
	for i, b := range bnds {
		cases[i] = b.Lower
		rhs -= b.Lower / projs[i].Item.EffectiveRate()
		if !b.Fixed() {
			free = append(free, i)
		}
	}

	if len(free) == 0 {
		if math.Abs(rhs) <= capacityTol {
			return cases, nil
		}
		return nil, fmt.Errorf("%w: all variables pinned, %.2f hours unbalanced", ErrInfeasible, rhs)
	}
	if rhs < -capacityTol {
		return nil, fmt.Errorf("%w: minimum batches need %.2f hours more than available", ErrInfeasible, -rhs)
	}

	// Minimum-coverage rows, one per free item whose requirement exceeds its
	// lower bound. Requirements above the upper bound cannot be met within
	// the box and are dropped with a warning rather than poisoning the whole
	// program.
	type covRow struct {
		item int     // index into free
		need float64 // shifted requirement
	}
	var covRows []covRow
	if minCoverage > 0 {
		for fi, i := range free {
			p := projs[i]
			need := p.DemandRate*minCoverage + p.PeriodDemand - p.InitialStock
			if need <= bnds[i].Lower {
				continue
			}
			if need > bnds[i].Upper {
				log.Warn().
					Str("code", p.Item.Code).
					Float64("need", need).
					Float64("upper", bnds[i].Upper).
					Msg("Minimum-coverage target unreachable within bounds, dropping constraint")
				continue
			}
			covRows = append(covRows, covRow{item: fi, need: need - bnds[i].Lower})
		}
	}

	// Layout: [y_0..y_f-1 | slack_0..slack_f-1 | surplus_0..surplus_c-1]
	nFree := len(free)
	nVars := 2*nFree + len(covRows)
	nRows := 1 + nFree + len(covRows)

	c := make([]float64, nVars)
	b := make([]float64, nRows)
	a := mat.NewDense(nRows, nVars, nil)

	for fi, i := range free {
		c[fi] = -priorityOf(projs[i])
		a.Set(0, fi, 1/projs[i].Item.EffectiveRate())
	}
	b[0] = rhs

	for fi, i := range free {
		row := 1 + fi
		a.Set(row, fi, 1)
		a.Set(row, nFree+fi, 1)
		b[row] = bnds[i].Upper - bnds[i].Lower
	}

	for ci, cr := range covRows {
		row := 1 + nFree + ci
		a.Set(row, cr.item, 1)
		a.Set(row, 2*nFree+ci, -1)
		b[row] = cr.need
	}

	_, x, err := lp.Simplex(c, a, b, 0, nil)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return nil, fmt.Errorf("%w: %v", ErrInfeasible, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrSolver, err)
	}

	for fi, i := range free {
		cases[i] = bnds[i].Lower + x[fi]
	}
	return cases, nil
}

// allocate runs the LP for the given projections and converts the solution
// into repaired lines. withCoverage controls whether the minimum-coverage
// rows are included.
func allocate(projs []Projection, params Parameters, hours float64, withCoverage bool, log zerolog.Logger) ([]Line, error) {
	bnds := make([]itemBounds, len(projs))
	for i, p := range projs {
		bnds[i] = boundsFor(p, hours, params.StrictMinimumBatch)
	}

	minCov := 0.0
	if withCoverage {
		minCov = params.MinCoverageDays
	}

	cases, err := solveLP(projs, bnds, hours, minCov, log)
	if err != nil {
		return nil, err
	}

	lines := make([]Line, len(projs))
	for i, p := range projs {
		lines[i] = Line{Proj: p, Cases: cases[i]}
	}
	return Repair(lines, hours, log), nil
}
