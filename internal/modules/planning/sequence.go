package planning

import (
	"math"
	"sort"
)

// ChangeoverCosts models the minutes lost between consecutive runs.
type ChangeoverCosts struct {
	// BaseMinutes is the setup cost paid before every run.
	BaseMinutes float64
	// FamilySwitchMinutes is added when the family changes between runs.
	FamilySwitchMinutes float64
	// AllergenMinutes is the deep-clean cost after an allergen item.
	AllergenMinutes float64
	// FamilyInMinutes is the cost of switching a line into a family; cheaper
	// families are scheduled earlier within a placement band. Families not
	// listed sort after the listed ones.
	FamilyInMinutes map[string]float64
}

// DefaultChangeoverCosts returns the floor-measured figures.
func DefaultChangeoverCosts() ChangeoverCosts {
	return ChangeoverCosts{
		BaseMinutes:         10,
		FamilySwitchMinutes: 15,
		AllergenMinutes:     30,
		FamilyInMinutes: map[string]float64{
			"VIME": 8,
			"MEC":  10,
		},
	}
}

func (c ChangeoverCosts) familyRank(family string) float64 {
	if m, ok := c.FamilyInMinutes[family]; ok {
		return m
	}
	return math.Inf(1)
}

// Sequence orders the allocation lines for the production week and assigns
// each a dense planning order starting at 1. It returns the sequenced lines
// and the total changeover minutes of the resulting order.
//
// The sort is layered: placement band first (early, unconstrained, late),
// then family grouped by ascending changeover-in cost, then the items that
// would stock out without production, then ascending initial coverage with
// undefined coverage last, and finally the item code so identical inputs
// always yield identical plans.
func Sequence(lines []Line, costs ChangeoverCosts) ([]Line, float64) {
	out := make([]Line, len(lines))
	copy(out, lines)

	sort.Slice(out, func(a, b int) bool {
		la, lb := out[a], out[b]

		if pa, pb := la.Proj.Directive.Placement, lb.Proj.Directive.Placement; pa != pb {
			return pa < pb
		}

		ra, rb := costs.familyRank(la.Proj.Item.Family), costs.familyRank(lb.Proj.Item.Family)
		if ra != rb {
			return ra < rb
		}
		if fa, fb := la.Proj.Item.Family, lb.Proj.Item.Family; fa != fb {
			return fa < fb
		}

		if ca, cb := la.Proj.Critical(), lb.Proj.Critical(); ca != cb {
			return ca
		}

		if va, vb := coverageKey(la.Proj), coverageKey(lb.Proj); va != vb {
			return va < vb
		}

		return la.Proj.Item.Code < lb.Proj.Item.Code
	})

	for i := range out {
		out[i].Order = i + 1
	}

	return out, totalChangeover(out, costs)
}

// coverageKey sorts undefined coverage after every defined value.
func coverageKey(p Projection) float64 {
	if !p.CoverageDefined() {
		return math.Inf(1)
	}
	return p.InitialCoverage
}

// totalChangeover sums the transition minutes along the sequence, counting
// only lines that actually run.
func totalChangeover(lines []Line, costs ChangeoverCosts) float64 {
	var total float64
	prev := -1

	for i := range lines {
		if lines[i].Hours <= 0 {
			continue
		}

		total += costs.BaseMinutes
		if prev >= 0 {
			if lines[prev].Proj.Item.Family != lines[i].Proj.Item.Family {
				total += costs.FamilySwitchMinutes
			}
			if lines[prev].Proj.Directive.Allergen {
				total += costs.AllergenMinutes
			}
		}

		prev = i
	}

	return total
}
