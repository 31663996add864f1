package planning

import (
	"github.com/rs/zerolog"

	"github.com/aristath/planline/internal/modules/catalog"
)

// FlagOrderRisk walks the horizon day by day for each projection, draining
// projected stock by the demand rate and the confirmed orders due that day,
// and crediting the pending production order once it lands. An item whose
// stock dips below its safety level anywhere in the walk is flagged, which
// makes it urgent for the allocator regardless of its coverage figures.
//
// Only orders landing on or after the start date are credited here; orders
// dated before the horizon are already part of the projected initial stock.
//
// The order book is optional; with a nil book only the pending production
// order and the demand drain are simulated.
func FlagOrderRisk(projs []Projection, book catalog.OrderBook, params Parameters, log zerolog.Logger) []Projection {
	out := make([]Projection, len(projs))

	for i, p := range projs {
		out[i] = p

		stock := p.InitialStock
		orderLanded := false

		for day := 0; day < params.HorizonDays; day++ {
			date := params.StartDate.AddDate(0, 0, day)

			stock -= p.DemandRate

			if !orderLanded && p.Item.HasOrder() &&
				!p.Item.OrderDate.Before(params.StartDate) && !p.Item.OrderDate.After(date) {
				stock += p.Item.EffectiveOrderQty()
				orderLanded = true
			}

			if due := book.For(p.Item.Code); due != nil {
				stock -= due[date]
			}

			if stock < p.SafetyStock {
				out[i].OrderRisk = true
				log.Debug().
					Str("code", p.Item.Code).
					Str("date", date.Format("2006-01-02")).
					Float64("stock", stock).
					Float64("safety", p.SafetyStock).
					Msg("Order risk: stock dips below safety level")
				break
			}
		}
	}

	return out
}
