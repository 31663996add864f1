package planning

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/planline/internal/modules/catalog"
)

// PlanWriter exports a finished plan and returns the path it was written to.
type PlanWriter interface {
	WritePlan(*Plan) (string, error)
}

// ServiceConfig locates the input feeds for a run.
type ServiceConfig struct {
	DatasetDir     string
	DirectivesPath string
	OrdersPath     string // optional; empty disables the order-risk feed
}

// Service runs the planning pipeline end to end: load feeds, project stock,
// allocate hours, sequence, account the warehouse, persist and export.
type Service struct {
	cfg        ServiceConfig
	feeds      *catalog.FeedLoader
	directives *catalog.DirectiveLoader
	orders     *catalog.OrderLoader
	repo       *Repository
	writer     PlanWriter
	log        zerolog.Logger
}

// NewService creates a planning service. repo and writer may be nil, which
// disables persistence and export respectively.
func NewService(cfg ServiceConfig, repo *Repository, writer PlanWriter, log zerolog.Logger) *Service {
	l := log.With().Str("module", "planning").Logger()
	return &Service{
		cfg:        cfg,
		feeds:      catalog.NewFeedLoader(l),
		directives: catalog.NewDirectiveLoader(l),
		orders:     catalog.NewOrderLoader(l),
		repo:       repo,
		writer:     writer,
		log:        l,
	}
}

// Run executes one planning run. Data errors abort it; an infeasible
// allocation that even the fallback ladder cannot place returns an empty
// plan whose summary carries the diagnostic.
func (s *Service) Run(ctx context.Context, params Parameters) (*Plan, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	strategy, err := NewStrategy(params.Strategy, s.log)
	if err != nil {
		return nil, err
	}

	items, directives, book, err := s.loadFeeds(params)
	if err != nil {
		return nil, err
	}

	projector := NewProjector(params, s.log)
	all, eligible, err := projector.ProjectAll(items, directives)
	if err != nil {
		return nil, err
	}
	eligible = FlagOrderRisk(eligible, book, params, s.log)

	hours := params.AvailableHours()
	s.log.Info().
		Int("items", len(all)).
		Int("eligible", len(eligible)).
		Float64("hours", hours).
		Str("strategy", strategy.Name()).
		Msg("Planning run started")

	lines, fallback, err := strategy.Allocate(ctx, eligible, params)
	diagnostic := ""
	if err != nil {
		if !errors.Is(err, ErrNoCapacity) {
			return nil, err
		}
		// The ladder bottomed out. Ship an empty plan so the planners see
		// what happened instead of nothing at all.
		s.log.Error().Err(err).Msg("Allocation produced no capacity for urgent items")
		lines = zeroLines(eligible)
		fallback = true
		diagnostic = err.Error()
	}

	seq, changeover := Sequence(lines, DefaultChangeoverCosts())
	occ := AccountWarehouse(seq)

	plan := &Plan{
		Params:      params,
		Allocations: assembleAllocations(seq, all),
		Summary: Summary{
			RunID:             uuid.New().String(),
			GeneratedAt:       time.Now().UTC(),
			Strategy:          strategy.Name(),
			AvailableHours:    hours,
			TotalHours:        totalHours(seq),
			TotalUnits:        occ.TotalUnits,
			TotalPallets:      occ.TotalPallets,
			SpacePenalty:      occ.SpacePenalty,
			ChangeoverMinutes: changeover,
			FallbackUsed:      fallback,
			Diagnostic:        diagnostic,
		},
	}

	if s.repo != nil {
		if err := s.repo.SaveRun(plan); err != nil {
			return nil, fmt.Errorf("failed to persist plan run: %w", err)
		}
	}
	if s.writer != nil {
		path, err := s.writer.WritePlan(plan)
		if err != nil {
			return nil, err
		}
		s.log.Info().Str("path", path).Msg("Plan export written")
	}

	s.log.Info().
		Str("run_id", plan.Summary.RunID).
		Float64("total_hours", plan.Summary.TotalHours).
		Float64("pallets", plan.Summary.TotalPallets).
		Bool("fallback", fallback).
		Msg("Planning run finished")
	return plan, nil
}

// History returns recent run summaries, newest first.
func (s *Service) History(limit int) ([]Summary, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListRuns(limit)
}

// GetRun loads a stored run by id.
func (s *Service) GetRun(id string) (*Plan, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("run history is disabled")
	}
	return s.repo.GetRun(id)
}

// loadFeeds reads the three input files. The orders feed is optional: a
// missing file only disables the order-risk walk.
func (s *Service) loadFeeds(params Parameters) ([]catalog.Item, catalog.DirectiveSet, catalog.OrderBook, error) {
	datasetPath, err := s.feeds.FindDataset(s.cfg.DatasetDir, params.DatasetDate)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrBadParameters, err)
	}

	items, err := s.feeds.Load(datasetPath)
	if err != nil {
		return nil, nil, nil, err
	}

	directives, err := s.directives.Load(s.cfg.DirectivesPath)
	if err != nil {
		return nil, nil, nil, err
	}

	var book catalog.OrderBook
	if s.cfg.OrdersPath != "" {
		book, err = s.orders.Load(s.cfg.OrdersPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, nil, nil, err
			}
			s.log.Warn().Str("path", s.cfg.OrdersPath).Msg("Orders file missing, skipping order-risk analysis")
			book = nil
		}
	}

	return items, directives, book, nil
}

// assembleAllocations builds the exported rows: planned items first in
// sequence order, then the eligible items left at zero, then the invalid
// remainder by code.
func assembleAllocations(seq []Line, all []Projection) []Allocation {
	eligible := make(map[string]bool, len(seq))
	var planned, idle []Allocation

	for _, l := range seq {
		eligible[l.Proj.Item.Code] = true
		a := lineAllocation(l)
		if l.Hours > 0 {
			a.Status = StatusPlanned
			planned = append(planned, a)
		} else {
			a.Status = StatusValidNoProduction
			idle = append(idle, a)
		}
	}

	var invalid []Allocation
	for _, p := range all {
		if eligible[p.Item.Code] {
			continue
		}
		invalid = append(invalid, Allocation{
			Code:             p.Item.Code,
			Name:             p.Item.Name,
			Family:           p.Item.Family,
			Status:           StatusInvalid,
			DemandRate:       p.DemandRate,
			InitialStock:     p.InitialStock,
			InitialCoverage:  p.InitialCoverage,
			FinalCoverage:    p.FinalCoverageEst,
			FinalCoverageEst: p.FinalCoverageEst,
		})
	}
	sort.Slice(invalid, func(i, j int) bool { return invalid[i].Code < invalid[j].Code })

	out := make([]Allocation, 0, len(planned)+len(idle)+len(invalid))
	out = append(out, planned...)
	out = append(out, idle...)
	return append(out, invalid...)
}

func lineAllocation(l Line) Allocation {
	p := l.Proj
	return Allocation{
		Code:             p.Item.Code,
		Name:             p.Item.Name,
		Family:           p.Item.Family,
		Order:            l.Order,
		DemandRate:       p.DemandRate,
		InitialStock:     p.InitialStock,
		InitialCoverage:  p.InitialCoverage,
		Cases:            l.Cases,
		Hours:            l.Hours,
		FinalCoverage:    l.FinalCoverage(),
		FinalCoverageEst: p.FinalCoverageEst,
		Pallets:          (p.InitialStock + l.Cases) / p.Directive.CasesPerPallet,
	}
}
