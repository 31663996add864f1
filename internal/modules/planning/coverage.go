package planning

import "math"

// coverageTier caps post-production coverage by sales velocity: fast movers
// get short ceilings (stock turns fast, space is scarce), slow movers get
// long ones so a minimum batch is not immediately over-produced.
type coverageTier struct {
	minVelocity float64 // trailing 15-day daily sales, inclusive lower edge
	ceilingDays float64
}

var coverageTiers = []coverageTier{
	{150, 14},
	{100, 18},
	{50, 20},
	{25, 30},
	{10, 60},
	{0, 120},
}

// CoverageCeiling returns the maximum days of coverage an item may hold after
// production. NaN velocity means the figure is unknown and no ceiling applies.
func CoverageCeiling(velocity float64) float64 {
	if math.IsNaN(velocity) {
		return math.Inf(1)
	}
	for _, t := range coverageTiers {
		if velocity >= t.minVelocity {
			return t.ceilingDays
		}
	}
	return coverageTiers[len(coverageTiers)-1].ceilingDays
}
