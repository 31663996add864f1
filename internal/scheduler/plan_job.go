package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/planline/internal/config"
	"github.com/aristath/planline/internal/modules/planning"
)

// planRunTimeout bounds one scheduled run end to end.
const planRunTimeout = 10 * time.Minute

// PlanJob runs a planning cycle with the configured defaults. Scheduled runs
// plan from today's dataset for a horizon starting tomorrow.
type PlanJob struct {
	service  *planning.Service
	defaults *config.PlanningConfig
	log      zerolog.Logger
}

// NewPlanJob creates the scheduled planning job.
func NewPlanJob(service *planning.Service, defaults *config.PlanningConfig, log zerolog.Logger) *PlanJob {
	return &PlanJob{
		service:  service,
		defaults: defaults,
		log:      log.With().Str("job", "plan_run").Logger(),
	}
}

// Name returns the job name.
func (j *PlanJob) Name() string { return "plan_run" }

// Run executes one planning run.
func (j *PlanJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), planRunTimeout)
	defer cancel()

	today := time.Now().Truncate(24 * time.Hour)
	params := planning.Parameters{
		DatasetDate:        today,
		StartDate:          today.AddDate(0, 0, 1),
		HorizonDays:        j.defaults.HorizonDays,
		NonWorkingDays:     j.defaults.NonWorkingDays,
		MaintenanceHours:   j.defaults.MaintenanceHours,
		MinCoverageDays:    j.defaults.MinCoverageDays,
		Strategy:           j.defaults.Strategy,
		AllowNegativeStock: j.defaults.AllowNegativeStock,
		StrictMinimumBatch: j.defaults.StrictMinimumBatch,
	}

	plan, err := j.service.Run(ctx, params)
	if err != nil {
		return err
	}

	j.log.Info().
		Str("run_id", plan.Summary.RunID).
		Float64("total_hours", plan.Summary.TotalHours).
		Msg("Scheduled planning run completed")
	return nil
}
