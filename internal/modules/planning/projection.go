package planning

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/planline/internal/modules/catalog"
)

// Projector turns catalog items into stock projections at horizon start.
type Projector struct {
	params Parameters
	log    zerolog.Logger
}

// NewProjector creates a projector for one run's parameters.
func NewProjector(params Parameters, log zerolog.Logger) *Projector {
	return &Projector{
		params: params,
		log:    log.With().Str("component", "projector").Logger(),
	}
}

// Project computes the derived stock figures for one item.
//
// The dataset is a snapshot taken before the horizon starts, so demand
// consumed in between (provisional demand) is subtracted up front, and a
// pending production order landing in that gap is credited at its effective
// yield. Negative projected stock is clamped to zero under the permissive
// policy, or aborts the run under the strict one.
func (pr *Projector) Project(item catalog.Item, directive catalog.Directive) (Projection, error) {
	p := Projection{Item: item, Directive: directive}

	p.DemandRate = EstimateDemand(item)

	leadDays := float64(pr.params.StartDate.Sub(pr.params.DatasetDate) / (24 * time.Hour))
	p.ProvisionalDemand = p.DemandRate * leadDays

	available := item.Available
	if item.HasOrder() &&
		!item.OrderDate.Before(pr.params.DatasetDate) &&
		item.OrderDate.Before(pr.params.StartDate) {
		available += item.EffectiveOrderQty()
	}

	p.InitialStock = available + item.QualityHold + item.ExternalStock - p.ProvisionalDemand
	if p.InitialStock < 0 {
		if !pr.params.AllowNegativeStock {
			return Projection{}, fmt.Errorf("%w: item %s projects %.1f units at horizon start",
				ErrNegativeStock, item.Code, p.InitialStock)
		}
		pr.log.Warn().
			Str("code", item.Code).
			Float64("stock", p.InitialStock).
			Msg("Negative projected stock clamped to zero")
		p.InitialStock = 0
	}

	p.PeriodDemand = p.DemandRate * float64(pr.params.HorizonDays)
	p.SafetyStock = p.DemandRate * SafetyStockDays

	if p.CoverageDefined() {
		p.InitialCoverage = p.InitialStock / p.DemandRate
		p.FinalCoverageEst = (p.InitialStock - p.PeriodDemand) / p.DemandRate
	}

	return p, nil
}

// ProjectAll projects every item, returning the full set plus the eligible
// subset in deterministic code order. Excluded items are dropped before any
// computation.
func (pr *Projector) ProjectAll(items []catalog.Item, directives catalog.DirectiveSet) (all, eligible []Projection, err error) {
	for _, item := range items {
		d := directives.Get(item.Code)
		if d.Excluded {
			pr.log.Debug().
				Str("code", item.Code).
				Str("reason", d.ExclusionReason).
				Msg("Item excluded by directive")
			continue
		}

		p, err := pr.Project(item, d)
		if err != nil {
			return nil, nil, err
		}
		all = append(all, p)

		if Eligible(p) {
			eligible = append(eligible, p)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].Item.Code < eligible[j].Item.Code
	})

	return all, eligible, nil
}

// Eligible reports whether an item can receive production hours: it must
// have moved in the last 60 days, have a usable line rate, and a defined
// demand rate.
func Eligible(p Projection) bool {
	return p.Item.Sales60 > 0 && p.Item.CasesPerHour > 0 && p.CoverageDefined()
}
