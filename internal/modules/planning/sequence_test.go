package planning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/planline/internal/modules/catalog"
)

func seqLine(code, family string, pl catalog.Placement, hours, coverage float64, critical, allergen bool) Line {
	p := Projection{
		Item:            catalog.Item{Code: code, Family: family},
		Directive:       catalog.Directive{Code: code, Placement: pl, Allergen: allergen},
		DemandRate:      10,
		InitialCoverage: coverage,
		FinalCoverageEst: func() float64 {
			if critical {
				return -1
			}
			return 10
		}(),
	}
	return Line{Proj: p, Hours: hours, Cases: hours * 90}
}

func TestSequenceOrdering(t *testing.T) {
	lines := []Line{
		seqLine("E", "VIME", catalog.PlaceLate, 2, 0.5, false, false),
		seqLine("C", "MEC", catalog.PlaceAny, 2, 2, false, false),
		seqLine("B", "VIME", catalog.PlaceAny, 3, 5, false, false),
		seqLine("D", "ZZZ", catalog.PlaceAny, 0, 1, false, false),
		seqLine("A", "VIME", catalog.PlaceEarly, 2, 9, false, true),
	}

	out, _ := Sequence(lines, DefaultChangeoverCosts())
	require.Len(t, out, 5)

	codes := make([]string, len(out))
	for i, l := range out {
		codes[i] = l.Proj.Item.Code
		assert.Equal(t, i+1, l.Order, "dense planning order")
	}

	// Early band first, late band last regardless of coverage; within the
	// unconstrained band families sort by changeover-in cost with unlisted
	// families after the listed ones.
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, codes)
}

func TestSequenceCriticalBeforeCoverage(t *testing.T) {
	lines := []Line{
		seqLine("LOW", "VIME", catalog.PlaceAny, 2, 0.5, false, false),
		seqLine("CRIT", "VIME", catalog.PlaceAny, 2, 4, true, false),
		seqLine("HIGH", "VIME", catalog.PlaceAny, 2, 30, false, false),
	}

	out, _ := Sequence(lines, DefaultChangeoverCosts())

	assert.Equal(t, "CRIT", out[0].Proj.Item.Code, "stockouts outrank low coverage")
	assert.Equal(t, "LOW", out[1].Proj.Item.Code)
	assert.Equal(t, "HIGH", out[2].Proj.Item.Code)
}

func TestSequenceUndefinedCoverageLast(t *testing.T) {
	nodemand := seqLine("NODEMAND", "VIME", catalog.PlaceAny, 2, 0, false, false)
	nodemand.Proj.DemandRate = 0

	lines := []Line{
		nodemand,
		seqLine("HIGH", "VIME", catalog.PlaceAny, 2, 55, false, false),
	}

	out, _ := Sequence(lines, DefaultChangeoverCosts())
	assert.Equal(t, "HIGH", out[0].Proj.Item.Code)
	assert.Equal(t, "NODEMAND", out[1].Proj.Item.Code)
}

func TestSequenceDeterministicTieBreak(t *testing.T) {
	mk := func(code string) Line {
		return seqLine(code, "VIME", catalog.PlaceAny, 2, 5, false, false)
	}

	out1, _ := Sequence([]Line{mk("B"), mk("A"), mk("C")}, DefaultChangeoverCosts())
	out2, _ := Sequence([]Line{mk("C"), mk("B"), mk("A")}, DefaultChangeoverCosts())

	for i := range out1 {
		assert.Equal(t, out1[i].Proj.Item.Code, out2[i].Proj.Item.Code)
	}
	assert.Equal(t, "A", out1[0].Proj.Item.Code)
}

func TestSequenceChangeoverMinutes(t *testing.T) {
	lines := []Line{
		seqLine("A", "VIME", catalog.PlaceEarly, 2, 1, false, true),
		seqLine("B", "VIME", catalog.PlaceAny, 3, 5, false, false),
		seqLine("C", "MEC", catalog.PlaceAny, 2, 2, false, false),
		seqLine("D", "ZZZ", catalog.PlaceAny, 0, 1, false, false), // idle, free
		seqLine("E", "VIME", catalog.PlaceLate, 2, 0.5, false, false),
	}

	_, minutes := Sequence(lines, DefaultChangeoverCosts())

	// A: 10 base. B: 10 + 30 allergen clean after A. C: 10 + 15 family
	// switch. E: 10 + 15 family switch, the idle D between them costs nothing.
	assert.Equal(t, 100.0, minutes)
}

func TestSequenceEmptyPlan(t *testing.T) {
	out, minutes := Sequence(nil, DefaultChangeoverCosts())
	assert.Empty(t, out)
	assert.Equal(t, 0.0, minutes)
}
