// Package export writes finished plans to CSV files for the planners.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aristath/planline/internal/modules/planning"
)

// planHeader is the exported column set, one row per item.
var planHeader = []string{
	"order", "code", "name", "family", "status",
	"demand_rate", "initial_stock", "initial_coverage",
	"cases", "hours", "final_coverage", "final_coverage_est", "pallets",
}

// Writer exports plans as semicolon-separated CSV files, the dialect the
// planners' spreadsheets expect.
type Writer struct {
	dir string
	log zerolog.Logger
}

// NewWriter creates a plan writer targeting dir.
func NewWriter(dir string, log zerolog.Logger) *Writer {
	return &Writer{
		dir: dir,
		log: log.With().Str("component", "plan_writer").Logger(),
	}
}

// WritePlan writes the plan to a file named after its run parameters and
// returns the full path. An existing file for the same parameters is
// overwritten; re-running a plan replaces its export.
func (w *Writer) WritePlan(plan *planning.Plan) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(w.dir, fileName(plan.Params))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	cw.Comma = ';'

	if err := cw.Write(planHeader); err != nil {
		return "", fmt.Errorf("failed to write export header: %w", err)
	}

	for _, a := range plan.Allocations {
		row := []string{
			strconv.Itoa(a.Order),
			a.Code,
			a.Name,
			a.Family,
			string(a.Status),
			num(a.DemandRate),
			num(a.InitialStock),
			num(a.InitialCoverage),
			num(a.Cases),
			num(a.Hours),
			num(a.FinalCoverage),
			num(a.FinalCoverageEst),
			num(a.Pallets),
		}
		if err := cw.Write(row); err != nil {
			return "", fmt.Errorf("failed to write export row for %s: %w", a.Code, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("failed to flush export file: %w", err)
	}

	w.log.Info().
		Str("path", path).
		Int("rows", len(plan.Allocations)).
		Msg("Plan exported")
	return path, nil
}

// fileName encodes the run parameters so planners can tell exports apart at
// a glance: dataset date, horizon start, horizon length, coverage target.
func fileName(p planning.Parameters) string {
	return fmt.Sprintf("plan_fd%s_fi%s_dp%d_cmin%s.csv",
		p.DatasetDate.Format("02-01-06"),
		p.StartDate.Format("02-01-06"),
		p.HorizonDays,
		strconv.FormatFloat(p.MinCoverageDays, 'f', -1, 64),
	)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
