// Package catalog holds the item master data and the loaders for the three
// external feeds: the inventory/sales dataset, the per-item directives file,
// and the optional confirmed-orders file.
package catalog

import "time"

const (
	// ProductionYield is the fraction of the nominal line rate actually
	// achieved on the floor. Scheduled hours are converted to cases with
	// the effective (reduced) rate.
	ProductionYield = 0.90

	// OrderYield is the fraction of a pending production order expected to
	// pass quality checks and reach sellable stock.
	OrderYield = 0.80

	// DefaultCasesPerPallet is used when the directives file has no
	// cases/pallet figure for an item.
	DefaultCasesPerPallet = 40
)

// Item is one SKU row from the inventory/sales feed. It is immutable for the
// duration of a planning run; every derived figure lives on planning
// structs, not here.
type Item struct {
	Code   string
	Name   string
	Family string // production family tag (e.g. VIME, MEC)

	CasesPerHour float64 // nominal line rate

	// Stock components
	Available     float64
	QualityHold   float64
	ExternalStock float64

	// Pending production order
	OrderQty  float64
	OrderDate time.Time // zero when no order is scheduled

	// Sales history
	Sales60                  float64 // trailing 60-day volume
	Sales15                  float64 // trailing 15-day volume
	DailySales15             float64 // trailing 15-day daily average
	Sales15LastYear          float64
	DailySales15LastYear     float64 // same window, prior year
	DailySales15NextLastYear float64 // following 15-day window, prior year (trend proxy)
}

// EffectiveRate is the nominal rate reduced by the production yield factor.
func (i Item) EffectiveRate() float64 {
	return i.CasesPerHour * ProductionYield
}

// EffectiveOrderQty is the pending order quantity reduced by the order yield
// factor.
func (i Item) EffectiveOrderQty() float64 {
	return i.OrderQty * OrderYield
}

// HasOrder reports whether the item has a scheduled production order.
func (i Item) HasOrder() bool {
	return !i.OrderDate.IsZero()
}

// Placement is the directive classification controlling where in the
// production week an item should land.
type Placement int

const (
	// PlaceEarly items run at the start of the week (contamination-sensitive
	// lines, organic products).
	PlaceEarly Placement = iota
	// PlaceAny items have no placement preference.
	PlaceAny
	// PlaceLate items run at the end of the week (allergens, seeds, lines
	// needing a deep clean afterwards).
	PlaceLate
)

// String returns the feed-file spelling of the placement.
func (p Placement) String() string {
	switch p {
	case PlaceEarly:
		return "EARLY"
	case PlaceLate:
		return "LATE"
	default:
		return ""
	}
}

// Directive is the per-item planning directive from the directives file.
type Directive struct {
	Code            string
	Placement       Placement
	Allergen        bool
	CasesPerPallet  float64
	Excluded        bool
	ExclusionReason string
}

// DirectiveSet maps item codes to their directives. Items without a row in
// the directives file get the zero-value directive via Get.
type DirectiveSet map[string]Directive

// Get returns the directive for code, falling back to a permissive default
// (no placement, not excluded, default pallet size).
func (s DirectiveSet) Get(code string) Directive {
	if d, ok := s[code]; ok {
		if d.CasesPerPallet <= 0 {
			d.CasesPerPallet = DefaultCasesPerPallet
		}
		return d
	}
	return Directive{
		Code:           code,
		Placement:      PlaceAny,
		CasesPerPallet: DefaultCasesPerPallet,
	}
}

// OrderBook maps item codes to confirmed customer orders by delivery day.
type OrderBook map[string]map[time.Time]float64

// For returns the per-day orders for an item, or nil when none exist.
func (b OrderBook) For(code string) map[time.Time]float64 {
	return b[code]
}
