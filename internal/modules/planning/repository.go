package planning

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/planline/internal/database"
)

const dateLayout = "2006-01-02"

// Repository persists plan runs to the planning database.
type Repository struct {
	db *database.DB
}

// NewRepository creates a planning repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// SaveRun stores a run and all its allocation rows in one transaction.
func (r *Repository) SaveRun(plan *Plan) error {
	return database.WithTransaction(r.db.Conn(), func(tx *sql.Tx) error {
		s := plan.Summary
		_, err := tx.Exec(`
			INSERT INTO plan_runs (
				id, created_at, dataset_date, start_date, horizon_days,
				available_hours, total_hours, total_units, total_pallets,
				space_penalty, changeover_mins, strategy, fallback_used, diagnostic
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.RunID, s.GeneratedAt.Unix(),
			plan.Params.DatasetDate.Format(dateLayout),
			plan.Params.StartDate.Format(dateLayout),
			plan.Params.HorizonDays,
			s.AvailableHours, s.TotalHours, s.TotalUnits, s.TotalPallets,
			s.SpacePenalty, s.ChangeoverMinutes, s.Strategy,
			boolToInt(s.FallbackUsed), s.Diagnostic,
		)
		if err != nil {
			return fmt.Errorf("failed to insert plan run: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO plan_allocations (
				run_id, code, name, family, status, plan_order,
				demand_rate, initial_stock, initial_coverage,
				cases, hours, final_coverage, final_coverage_est, pallets
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare allocation insert: %w", err)
		}
		defer stmt.Close()

		for _, a := range plan.Allocations {
			if _, err := stmt.Exec(
				s.RunID, a.Code, a.Name, a.Family, string(a.Status), a.Order,
				a.DemandRate, a.InitialStock, a.InitialCoverage,
				a.Cases, a.Hours, a.FinalCoverage, a.FinalCoverageEst, a.Pallets,
			); err != nil {
				return fmt.Errorf("failed to insert allocation for %s: %w", a.Code, err)
			}
		}

		return nil
	})
}

// GetRun loads one run with its allocations, or sql.ErrNoRows when the id is
// unknown.
func (r *Repository) GetRun(id string) (*Plan, error) {
	plan := &Plan{}
	s := &plan.Summary

	var createdAt int64
	var datasetDate, startDate string
	var fallback int

	err := r.db.QueryRow(`
		SELECT id, created_at, dataset_date, start_date, horizon_days,
		       available_hours, total_hours, total_units, total_pallets,
		       space_penalty, changeover_mins, strategy, fallback_used, diagnostic
		FROM plan_runs WHERE id = ?`, id).Scan(
		&s.RunID, &createdAt, &datasetDate, &startDate, &plan.Params.HorizonDays,
		&s.AvailableHours, &s.TotalHours, &s.TotalUnits, &s.TotalPallets,
		&s.SpacePenalty, &s.ChangeoverMinutes, &s.Strategy, &fallback, &s.Diagnostic,
	)
	if err != nil {
		return nil, err
	}

	s.GeneratedAt = time.Unix(createdAt, 0).UTC()
	s.FallbackUsed = fallback != 0
	plan.Params.Strategy = s.Strategy
	if plan.Params.DatasetDate, err = time.Parse(dateLayout, datasetDate); err != nil {
		return nil, fmt.Errorf("corrupt dataset date for run %s: %w", id, err)
	}
	if plan.Params.StartDate, err = time.Parse(dateLayout, startDate); err != nil {
		return nil, fmt.Errorf("corrupt start date for run %s: %w", id, err)
	}

	rows, err := r.db.Query(`
		SELECT code, name, family, status, plan_order,
		       demand_rate, initial_stock, initial_coverage,
		       cases, hours, final_coverage, final_coverage_est, pallets
		FROM plan_allocations WHERE run_id = ?
		ORDER BY CASE status WHEN 'Planned' THEN 0 WHEN 'Valid-no-production' THEN 1 ELSE 2 END,
		         plan_order, code`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load allocations for run %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var a Allocation
		var status string
		if err := rows.Scan(
			&a.Code, &a.Name, &a.Family, &status, &a.Order,
			&a.DemandRate, &a.InitialStock, &a.InitialCoverage,
			&a.Cases, &a.Hours, &a.FinalCoverage, &a.FinalCoverageEst, &a.Pallets,
		); err != nil {
			return nil, fmt.Errorf("failed to scan allocation row: %w", err)
		}
		a.Status = Status(status)
		plan.Allocations = append(plan.Allocations, a)
	}

	return plan, rows.Err()
}

// ListRuns returns the most recent run summaries, newest first.
func (r *Repository) ListRuns(limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT id, created_at, available_hours, total_hours, total_units,
		       total_pallets, space_penalty, changeover_mins, strategy,
		       fallback_used, diagnostic
		FROM plan_runs
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list plan runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		var createdAt int64
		var fallback int
		if err := rows.Scan(
			&s.RunID, &createdAt, &s.AvailableHours, &s.TotalHours, &s.TotalUnits,
			&s.TotalPallets, &s.SpacePenalty, &s.ChangeoverMinutes, &s.Strategy,
			&fallback, &s.Diagnostic,
		); err != nil {
			return nil, fmt.Errorf("failed to scan plan run row: %w", err)
		}
		s.GeneratedAt = time.Unix(createdAt, 0).UTC()
		s.FallbackUsed = fallback != 0
		out = append(out, s)
	}

	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
