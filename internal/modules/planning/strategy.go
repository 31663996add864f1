package planning

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
)

// Strategy names accepted in configuration and run requests.
const (
	StrategyDirect   = "direct"
	StrategyTwoPhase = "two-phase"
)

// AllocationStrategy turns eligible projections into repaired allocation
// lines. fallback reports whether a degraded rung of the ladder produced the
// result.
type AllocationStrategy interface {
	Name() string
	Allocate(ctx context.Context, projs []Projection, params Parameters) (lines []Line, fallback bool, err error)
}

// NewStrategy builds the strategy named in the parameters; an empty name
// selects the two-phase ladder.
func NewStrategy(name string, log zerolog.Logger) (AllocationStrategy, error) {
	switch name {
	case StrategyDirect:
		return &directStrategy{log: log.With().Str("strategy", StrategyDirect).Logger()}, nil
	case "", StrategyTwoPhase:
		return &twoPhaseStrategy{log: log.With().Str("strategy", StrategyTwoPhase).Logger()}, nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrBadParameters, name)
	}
}

// directStrategy runs the LP once, minimum-coverage rows included, and
// surfaces infeasibility to the caller instead of degrading.
type directStrategy struct {
	log zerolog.Logger
}

func (s *directStrategy) Name() string { return StrategyDirect }

func (s *directStrategy) Allocate(ctx context.Context, projs []Projection, params Parameters) ([]Line, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	lines, err := allocate(projs, params, params.AvailableHours(), true, s.log)
	if err != nil {
		return nil, false, err
	}
	return lines, false, nil
}

// twoPhaseStrategy descends a ladder of progressively weaker formulations:
//
//  1. full LP with minimum-coverage rows
//  2. LP without the coverage rows
//  3. urgent/normal split: urgent items get their minimum batches (scaled
//     down proportionally if even those overflow), the remainder goes to the
//     normal items via LP, or greedily when that LP is infeasible too
//
// Every run produces a plan unless the urgent items cannot receive any
// capacity at all, which is ErrNoCapacity.
type twoPhaseStrategy struct {
	log zerolog.Logger
}

func (s *twoPhaseStrategy) Name() string { return StrategyTwoPhase }

func (s *twoPhaseStrategy) Allocate(ctx context.Context, projs []Projection, params Parameters) ([]Line, bool, error) {
	hours := params.AvailableHours()

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	lines, err := allocate(projs, params, hours, true, s.log)
	if err == nil {
		return lines, false, nil
	}
	if !errors.Is(err, ErrInfeasible) {
		return nil, false, err
	}
	s.log.Warn().Err(err).Msg("Full program infeasible, dropping minimum-coverage constraints")

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	lines, err = allocate(projs, params, hours, false, s.log)
	if err == nil {
		return lines, true, nil
	}
	if !errors.Is(err, ErrInfeasible) {
		return nil, false, err
	}
	s.log.Warn().Err(err).Msg("Relaxed program infeasible, splitting urgent and normal items")

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	lines, err = s.splitAllocate(projs, params, hours)
	if err != nil {
		return nil, true, err
	}
	return lines, true, nil
}

// splitAllocate is the last rung: urgent items first, leftovers to the rest.
func (s *twoPhaseStrategy) splitAllocate(projs []Projection, params Parameters, hours float64) ([]Line, error) {
	var urgent, normal []Projection
	for _, p := range projs {
		if p.Urgent() {
			urgent = append(urgent, p)
		} else {
			normal = append(normal, p)
		}
	}

	if hours <= 0 {
		if len(urgent) > 0 {
			return nil, fmt.Errorf("%w: %d urgent items and %.1f producible hours",
				ErrNoCapacity, len(urgent), hours)
		}
		return zeroLines(projs), nil
	}

	urgentLines := make([]Line, len(urgent))
	var urgentHours float64
	for i, p := range urgent {
		h := roundUpHalfHour(MinBatchHours)
		urgentLines[i] = Line{Proj: p, Hours: h, Cases: h * p.Item.EffectiveRate()}
		urgentHours += h
	}

	if urgentHours > hours {
		// Even the urgent minimums overflow. Scale them down proportionally;
		// items pushed below the minimum batch are zeroed, and if that zeroes
		// everything the run has effectively no capacity.
		scale := hours / urgentHours
		urgentHours = 0
		for i := range urgentLines {
			// Round down so the scaled total stays inside the budget.
			h := math.Floor(urgentLines[i].Hours*scale*2) / 2
			if h < MinBatchHours {
				h = 0
			}
			urgentLines[i].Hours = h
			urgentLines[i].Cases = h * urgentLines[i].Proj.Item.EffectiveRate()
			urgentHours += h
		}
		if urgentHours <= 0 {
			// Scaling zeroed everything; pack whole minimum batches by need
			// instead.
			urgentLines = greedyFill(urgent, hours)
			urgentHours = totalHours(urgentLines)
			if urgentHours <= 0 {
				return nil, fmt.Errorf("%w: %.1f hours cannot fit any urgent minimum batch",
					ErrNoCapacity, hours)
			}
		}
		s.log.Warn().
			Int("urgent", len(urgent)).
			Float64("hours", urgentHours).
			Msg("Urgent minimum batches scaled down to fit capacity")
	}

	remaining := hours - urgentHours

	var normalLines []Line
	if remaining > capacityTol && len(normal) > 0 {
		var err error
		normalLines, err = allocate(normal, params, remaining, false, s.log)
		if err != nil {
			if !errors.Is(err, ErrInfeasible) {
				return nil, err
			}
			s.log.Warn().Err(err).Msg("Normal-item program infeasible, filling greedily")
			normalLines = greedyFill(normal, remaining)
		}
	} else {
		normalLines = zeroLines(normal)
	}

	return append(urgentLines, normalLines...), nil
}

// greedyFill hands out minimum-viable batches in ascending coverage order
// until the hour budget runs out. Items that do not fit whole are skipped,
// never truncated below their minimum.
func greedyFill(projs []Projection, hours float64) []Line {
	order := make([]int, len(projs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		pa, pb := projs[order[a]], projs[order[b]]
		if pa.InitialCoverage != pb.InitialCoverage {
			return pa.InitialCoverage < pb.InitialCoverage
		}
		return pa.Item.Code < pb.Item.Code
	})

	lines := make([]Line, len(projs))
	used := 0.0
	for _, i := range order {
		p := projs[i]
		lines[i] = Line{Proj: p}

		rate := p.Item.EffectiveRate()
		need := p.SafetyStock + p.PeriodDemand - p.InitialStock
		if need < MinBatchHours*rate {
			need = MinBatchHours * rate
		}

		h := roundUpHalfHour(need / rate)
		if used+h > hours {
			continue
		}
		lines[i].Hours = h
		lines[i].Cases = h * rate
		used += h
	}
	return lines
}

func zeroLines(projs []Projection) []Line {
	lines := make([]Line, len(projs))
	for i, p := range projs {
		lines[i] = Line{Proj: p}
	}
	return lines
}
