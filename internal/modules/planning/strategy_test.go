package planning

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/planline/internal/modules/catalog"
)

func TestNewStrategy(t *testing.T) {
	s, err := NewStrategy("", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, StrategyTwoPhase, s.Name())

	s, err = NewStrategy(StrategyDirect, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, StrategyDirect, s.Name())

	_, err = NewStrategy("annealing", zerolog.Nop())
	assert.ErrorIs(t, err, ErrBadParameters)
}

func byCode(lines []Line, code string) Line {
	for _, l := range lines {
		if l.Proj.Item.Code == code {
			return l
		}
	}
	return Line{}
}

func TestTwoPhaseFirstRungSucceeds(t *testing.T) {
	params := testParams()
	params.MaintenanceHours = 134 // 10 producible hours

	projs := []Projection{
		proj("EMPTY", 50, 0, 30),
		proj("FULL", 10, 100, 10),
	}

	s, _ := NewStrategy(StrategyTwoPhase, zerolog.Nop())
	lines, fallback, err := s.Allocate(context.Background(), projs, params)
	require.NoError(t, err)
	assert.False(t, fallback)

	assert.InDelta(t, 8, byCode(lines, "EMPTY").Hours, 1e-6)
	assert.InDelta(t, 2, byCode(lines, "FULL").Hours, 1e-6)
}

func TestTwoPhaseDropsCoverageRows(t *testing.T) {
	params := testParams()
	params.MaintenanceHours = 134
	params.MinCoverageDays = 10

	// Each coverage row demands 50*10 + 350 = 850 cases, together 18.9 hours
	// against a 10-hour budget. The relaxed program still fits.
	projs := []Projection{
		proj("A", 50, 0, 30),
		proj("B", 50, 0, 30),
	}

	s, _ := NewStrategy(StrategyTwoPhase, zerolog.Nop())
	lines, fallback, err := s.Allocate(context.Background(), projs, params)
	require.NoError(t, err)
	assert.True(t, fallback, "relaxed rung must report the degradation")
	assert.InDelta(t, 10, totalHours(lines), capacityTol)
}

func TestTwoPhaseSplitsUrgentAndNormal(t *testing.T) {
	params := testParams()
	params.MaintenanceHours = 141 // 3 producible hours

	// Two minimum batches need 4 hours, so both LP rungs are infeasible. The
	// urgent item gets its minimum batch; the normal item cannot fit another.
	urgent := proj("U", 50, 0, 30)   // stocks out inside the horizon
	normal := proj("N", 10, 100, 10) // 3 days of projected final coverage
	require.True(t, urgent.Urgent())
	require.False(t, normal.Urgent())

	s, _ := NewStrategy(StrategyTwoPhase, zerolog.Nop())
	lines, fallback, err := s.Allocate(context.Background(), []Projection{urgent, normal}, params)
	require.NoError(t, err)
	assert.True(t, fallback)

	assert.Equal(t, 2.0, byCode(lines, "U").Hours)
	assert.InDelta(t, 180, byCode(lines, "U").Cases, 1e-9)
	assert.Equal(t, 0.0, byCode(lines, "N").Hours)
}

func TestTwoPhaseUrgentOverflowFilledGreedily(t *testing.T) {
	params := testParams()
	params.MaintenanceHours = 140 // 4 producible hours

	// Three urgent minimum batches need 6 hours. Proportional scaling pushes
	// every batch below the minimum, so whole batches are packed by coverage
	// order instead and the third item is left out.
	projs := []Projection{
		proj("A", 20, 100, 30),
		proj("B", 20, 100, 30),
		proj("C", 20, 100, 30),
	}
	for _, p := range projs {
		require.True(t, p.Urgent())
	}

	s, _ := NewStrategy(StrategyTwoPhase, zerolog.Nop())
	lines, fallback, err := s.Allocate(context.Background(), projs, params)
	require.NoError(t, err)
	assert.True(t, fallback)

	assert.Equal(t, 2.0, byCode(lines, "A").Hours)
	assert.Equal(t, 2.0, byCode(lines, "B").Hours)
	assert.Equal(t, 0.0, byCode(lines, "C").Hours)
}

func TestTwoPhaseNoCapacityWithUrgentItems(t *testing.T) {
	params := testParams()
	params.NonWorkingDays = 7 // zero producible hours

	s, _ := NewStrategy(StrategyTwoPhase, zerolog.Nop())
	_, _, err := s.Allocate(context.Background(), []Projection{proj("U", 50, 0, 30)}, params)
	assert.ErrorIs(t, err, ErrNoCapacity)
}

func TestTwoPhaseZeroHoursWithoutUrgentItems(t *testing.T) {
	params := testParams()
	params.NonWorkingDays = 7

	s, _ := NewStrategy(StrategyTwoPhase, zerolog.Nop())
	lines, fallback, err := s.Allocate(context.Background(), []Projection{proj("N", 10, 100, 10)}, params)
	require.NoError(t, err)
	assert.True(t, fallback)
	require.Len(t, lines, 1)
	assert.Equal(t, 0.0, lines[0].Hours)
}

func TestTwoPhaseHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, _ := NewStrategy(StrategyTwoPhase, zerolog.Nop())
	_, _, err := s.Allocate(ctx, []Projection{proj("A", 50, 0, 30)}, testParams())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDirectStrategySurfacesInfeasibility(t *testing.T) {
	params := testParams()
	params.Strategy = StrategyDirect
	params.MaintenanceHours = 141 // 3 hours, two 2-hour minimums

	projs := []Projection{
		proj("A", 50, 0, 30),
		proj("B", 50, 0, 30),
	}

	s, _ := NewStrategy(StrategyDirect, zerolog.Nop())
	_, fallback, err := s.Allocate(context.Background(), projs, params)
	assert.ErrorIs(t, err, ErrInfeasible)
	assert.False(t, fallback)
}

func TestGreedyFillOrderAndSkipping(t *testing.T) {
	// B has zero coverage and sorts first; its refill takes 6 hours. A's
	// minimum batch no longer fits whole and is skipped, not truncated.
	projs := []Projection{
		proj("A", 10, 100, 10),
		proj("B", 50, 0, 30),
	}

	lines := greedyFill(projs, 6)

	assert.Equal(t, 0.0, byCode(lines, "A").Hours)
	assert.Equal(t, 6.0, byCode(lines, "B").Hours)
	assert.InDelta(t, 540, byCode(lines, "B").Cases, 1e-9)
}

func TestZeroLines(t *testing.T) {
	items := []Projection{{Item: catalog.Item{Code: "A"}}, {Item: catalog.Item{Code: "B"}}}
	lines := zeroLines(items)
	require.Len(t, lines, 2)
	for i, l := range lines {
		assert.Equal(t, items[i].Item.Code, l.Proj.Item.Code)
		assert.Zero(t, l.Hours)
		assert.Zero(t, l.Cases)
	}
}
