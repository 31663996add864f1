package planning

import (
	"math"

	"github.com/aristath/planline/internal/modules/catalog"
)

// EstimateDemand derives the daily demand rate for one item from its trailing
// 15-day velocity, adjusted by the year-over-year trend when the prior-year
// windows show a usable signal.
//
// The adjustment multiplies the current velocity by the ratio between the two
// prior-year windows, but only when the ratio's deviation from 1 sits inside
// the trust band: at or below the lower bound the ratio is noise, at or above
// the upper bound it is a data artifact (promotions, stockouts), and in both
// cases the raw velocity wins. A non-positive prior-year average also means
// no adjustment.
func EstimateDemand(item catalog.Item) float64 {
	prev := item.DailySales15LastYear
	if prev <= 0 {
		return item.DailySales15
	}

	ratio := item.DailySales15NextLastYear / prev
	deviation := math.Abs(1 - ratio)
	if deviation <= trendLowerBand || deviation >= trendUpperBand {
		return item.DailySales15
	}

	return item.DailySales15 * ratio
}
