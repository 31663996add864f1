// Package planning implements the production-hour allocation pipeline:
// demand estimation, stock projection, the LP allocator with its feasibility
// repair, sequencing, and warehouse occupancy accounting.
package planning

import (
	"fmt"
	"time"

	"github.com/aristath/planline/internal/modules/catalog"
)

const (
	// SafetyStockDays is the fixed buffer every item must keep.
	SafetyStockDays = 3

	// MinBatchHours is the smallest economical production run. Anything
	// shorter is either raised to this or dropped to zero.
	MinBatchHours = 2

	// MaxInitialCoverage excludes items that already hold this many days of
	// stock from receiving any production.
	MaxInitialCoverage = 60

	// zeroCoveragePriority replaces the 1/coverage priority when an item has
	// no stock at all, where the division is undefined.
	zeroCoveragePriority = 1e6

	// Year-over-year variation band: deviations at or below the lower bound
	// are noise, deviations at or above the upper bound are data artifacts.
	trendLowerBand = 0.20
	trendUpperBand = 1.0
)

// Parameters describes one planning run.
type Parameters struct {
	DatasetDate      time.Time `json:"dataset_date"`
	StartDate        time.Time `json:"start_date"`
	HorizonDays      int       `json:"horizon_days"`
	NonWorkingDays   float64   `json:"non_working_days"`
	MaintenanceHours float64   `json:"maintenance_hours"`

	// MinCoverageDays is the minimum post-horizon coverage target; <= 0
	// disables the constraint.
	MinCoverageDays float64 `json:"min_coverage_days"`

	Strategy           string `json:"strategy"`
	AllowNegativeStock bool   `json:"allow_negative_stock"`
	StrictMinimumBatch bool   `json:"strict_minimum_batch"`
}

// AvailableHours is the producible hour budget for the horizon. A
// misconfigured horizon can drive the raw figure negative; that means zero
// producible hours, never an error.
func (p Parameters) AvailableHours() float64 {
	h := 24*(float64(p.HorizonDays)-p.NonWorkingDays) - p.MaintenanceHours
	if h < 0 {
		return 0
	}
	return h
}

// Validate checks the run parameters. Violations are data errors that abort
// the run.
func (p Parameters) Validate() error {
	if p.DatasetDate.IsZero() || p.StartDate.IsZero() {
		return fmt.Errorf("%w: dataset and start dates are required", ErrBadParameters)
	}
	if p.StartDate.Before(p.DatasetDate) {
		return fmt.Errorf("%w: start date %s precedes dataset date %s",
			ErrBadParameters, p.StartDate.Format("2006-01-02"), p.DatasetDate.Format("2006-01-02"))
	}
	if p.HorizonDays <= 0 {
		return fmt.Errorf("%w: horizon must be positive, got %d days", ErrBadParameters, p.HorizonDays)
	}
	if p.NonWorkingDays < 0 || p.MaintenanceHours < 0 {
		return fmt.Errorf("%w: non-working days and maintenance hours cannot be negative", ErrBadParameters)
	}
	switch p.Strategy {
	case "", StrategyDirect, StrategyTwoPhase:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrBadParameters, p.Strategy)
	}
	return nil
}

// Projection carries every derived figure for one item at horizon start.
// It layers on top of the immutable catalog.Item; later phases never write
// back into it.
type Projection struct {
	Item      catalog.Item
	Directive catalog.Directive

	DemandRate        float64 // units/day
	ProvisionalDemand float64 // demand between dataset date and horizon start
	InitialStock      float64
	InitialCoverage   float64 // days; meaningful only when DemandRate > 0
	PeriodDemand      float64
	SafetyStock       float64
	FinalCoverageEst  float64 // coverage at horizon end without any production

	// OrderRisk is set when confirmed customer orders breach the safety
	// stock somewhere inside the horizon.
	OrderRisk bool
}

// CoverageDefined reports whether coverage figures are meaningful.
func (p Projection) CoverageDefined() bool {
	return p.DemandRate > 0
}

// Critical reports whether the item runs out of stock inside the horizon
// even before confirmed orders are considered.
func (p Projection) Critical() bool {
	return p.CoverageDefined() && p.FinalCoverageEst < 0
}

// Urgent reports whether the item must be produced even under a structurally
// infeasible plan: it drops below safety coverage, or confirmed orders
// cannot be met.
func (p Projection) Urgent() bool {
	return p.OrderRisk || (p.CoverageDefined() && p.FinalCoverageEst < SafetyStockDays)
}

// Line is one item's allocation after the repair phase.
type Line struct {
	Proj  Projection
	Cases float64
	Hours float64
	Order int // planning order, assigned by Sequence
}

// FinalCoverage is the projected coverage at horizon start once the planned
// cases are produced.
func (l Line) FinalCoverage() float64 {
	if !l.Proj.CoverageDefined() {
		return 0
	}
	return (l.Proj.InitialStock + l.Cases) / l.Proj.DemandRate
}

// Status classifies an item in the exported plan.
type Status string

const (
	// StatusPlanned marks items that received production hours.
	StatusPlanned Status = "Planned"
	// StatusValidNoProduction marks eligible items the allocator left at zero.
	StatusValidNoProduction Status = "Valid-no-production"
	// StatusInvalid marks items that failed the eligibility filter.
	StatusInvalid Status = "Invalid"
)

// Allocation is one exported plan row.
type Allocation struct {
	Code             string  `json:"code"`
	Name             string  `json:"name"`
	Family           string  `json:"family"`
	Status           Status  `json:"status"`
	Order            int     `json:"order"`
	DemandRate       float64 `json:"demand_rate"`
	InitialStock     float64 `json:"initial_stock"`
	InitialCoverage  float64 `json:"initial_coverage"`
	Cases            float64 `json:"cases"`
	Hours            float64 `json:"hours"`
	FinalCoverage    float64 `json:"final_coverage"`
	FinalCoverageEst float64 `json:"final_coverage_est"`
	Pallets          float64 `json:"pallets"`
}

// Summary aggregates one run.
type Summary struct {
	RunID             string    `json:"run_id"`
	GeneratedAt       time.Time `json:"generated_at"`
	Strategy          string    `json:"strategy"`
	AvailableHours    float64   `json:"available_hours"`
	TotalHours        float64   `json:"total_hours"`
	TotalUnits        float64   `json:"total_units"`
	TotalPallets      float64   `json:"total_pallets"`
	SpacePenalty      int       `json:"space_penalty"`
	ChangeoverMinutes float64   `json:"changeover_minutes"`
	FallbackUsed      bool      `json:"fallback_used"`
	Diagnostic        string    `json:"diagnostic,omitempty"`
}

// Plan is the full output of one run.
type Plan struct {
	Params      Parameters   `json:"params"`
	Allocations []Allocation `json:"allocations"`
	Summary     Summary      `json:"summary"`
}
