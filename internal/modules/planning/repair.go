package planning

import (
	"math"

	"github.com/rs/zerolog"
)

// roundUpHalfHour rounds hours up to the next half-hour slot.
func roundUpHalfHour(h float64) float64 {
	return math.Ceil(h*2) / 2
}

// Repair converts the continuous LP solution into schedulable figures:
// half-hour production slots, case counts recomputed from the rounded hours,
// and a capacity correction for the overflow the rounding introduces.
//
// The correction first takes the whole overflow from the single largest
// allocation, critical or not, then falls back to a proportional reduction.
// The proportional pass spares critical items (negative projected coverage
// without production) while any other line can give hours back, shaving them
// only when nothing else remains; the hour budget always wins. No item is
// left between zero and its minimum batch: shrinking below the minimum
// zeroes the item entirely.
func Repair(lines []Line, available float64, log zerolog.Logger) []Line {
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = l
		if l.Cases <= 0 {
			out[i].Cases = 0
			out[i].Hours = 0
			continue
		}
		rate := l.Proj.Item.EffectiveRate()
		out[i].Hours = roundUpHalfHour(l.Cases / rate)
		out[i].Cases = out[i].Hours * rate
	}

	overflow := totalHours(out) - available
	if overflow <= capacityTol {
		return out
	}

	log.Warn().
		Float64("overflow", overflow).
		Float64("available", available).
		Msg("Half-hour rounding overflows capacity, correcting")

	// Largest allocation absorbs the overflow when it can.
	if i := largestLine(out); i >= 0 {
		cut := roundUpHalfHour(overflow)
		if out[i].Hours-cut >= MinBatchHours {
			reduceLine(&out[i], cut)
			return out
		}
	}

	// Proportional reduction, non-critical items first; critical items give
	// hours back only when nothing else is left. Each pass shaves at least
	// half an hour from someone, so the loop terminates.
	for totalHours(out)-available > capacityTol {
		reducible, reducibleHours := reducibleLines(out, false)
		if len(reducible) == 0 {
			reducible, reducibleHours = reducibleLines(out, true)
		}
		if len(reducible) == 0 {
			return out
		}

		for _, i := range reducible {
			overflow = totalHours(out) - available
			if overflow <= capacityTol {
				break
			}
			share := roundUpHalfHour(overflow * out[i].Hours / reducibleHours)
			if share <= 0 {
				share = 0.5
			}
			reduceLine(&out[i], share)
		}
	}

	return out
}

// reducibleLines lists the running lines the proportional pass may shave.
func reducibleLines(lines []Line, includeCritical bool) ([]int, float64) {
	var idx []int
	var hours float64
	for i, l := range lines {
		if l.Hours > 0 && (includeCritical || !l.Proj.Critical()) {
			idx = append(idx, i)
			hours += l.Hours
		}
	}
	return idx, hours
}

func totalHours(lines []Line) float64 {
	var t float64
	for _, l := range lines {
		t += l.Hours
	}
	return t
}

// largestLine returns the index of the running line with the most hours,
// breaking ties by item code to keep runs deterministic.
func largestLine(lines []Line) int {
	best := -1
	for i, l := range lines {
		if l.Hours <= 0 {
			continue
		}
		if best < 0 || l.Hours > lines[best].Hours ||
			(l.Hours == lines[best].Hours && l.Proj.Item.Code < lines[best].Proj.Item.Code) {
			best = i
		}
	}
	return best
}

// reduceLine shaves hours off a line, zeroing it when the result would fall
// below the minimum batch.
func reduceLine(l *Line, hours float64) {
	h := l.Hours - hours
	if h < MinBatchHours {
		h = 0
	}
	l.Hours = h
	l.Cases = h * l.Proj.Item.EffectiveRate()
}
