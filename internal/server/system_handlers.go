package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/planline/internal/database"
	"github.com/aristath/planline/internal/scheduler"
)

// SystemHandlers serves system-wide monitoring endpoints.
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	planningDB  *database.DB
	sched       *scheduler.Scheduler
}

// NewSystemHandlers creates a new system handlers instance.
func NewSystemHandlers(log zerolog.Logger, dataDir string, planningDB *database.DB, sched *scheduler.Scheduler) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		planningDB:  planningDB,
		sched:       sched,
	}
}

// SystemStatusResponse represents the system status response.
type SystemStatusResponse struct {
	Status      string  `json:"status"` // "healthy" or "unhealthy"
	UptimeHours float64 `json:"uptime_hours"`
	CPUPercent  float64 `json:"cpu_percent"`
	RAMPercent  float64 `json:"ram_percent"`
	TotalRuns   int     `json:"total_runs"`
	LastRun     string  `json:"last_run,omitempty"`
}

// JobsStatusResponse represents scheduler job status.
type JobsStatusResponse struct {
	TotalJobs int       `json:"total_jobs"`
	Jobs      []JobInfo `json:"jobs"`
}

// JobInfo represents information about a single job.
type JobInfo struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	NextRun  string `json:"next_run,omitempty"`
	LastRun  string `json:"last_run,omitempty"`
}

// DatabaseStatsResponse represents database statistics.
type DatabaseStatsResponse struct {
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	SizeMB      float64 `json:"size_mb"`
	RunCount    int     `json:"run_count"`
	LastChecked string  `json:"last_checked"`
}

// DiskUsageResponse represents disk usage statistics.
type DiskUsageResponse struct {
	DataDirMB  float64 `json:"data_dir_mb"`
	DatasetsMB float64 `json:"datasets_mb"`
	ExportsMB  float64 `json:"exports_mb"`
	TotalMB    float64 `json:"total_mb"`
}

// HandleSystemStatus returns process health plus run-history headlines.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:      "healthy",
		UptimeHours: time.Since(h.startupTime).Hours(),
		CPUPercent:  cpuPercent,
		RAMPercent:  ramPercent,
	}

	var lastRun int64
	err := h.planningDB.QueryRow(`
		SELECT COUNT(*), COALESCE(MAX(created_at), 0) FROM plan_runs
	`).Scan(&response.TotalRuns, &lastRun)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query plan runs")
		response.Status = "unhealthy"
	}
	if lastRun > 0 {
		response.LastRun = time.Unix(lastRun, 0).UTC().Format(time.RFC3339)
	}

	h.writeJSON(w, response)
}

// HandleJobsStatus returns scheduled job status.
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	response := JobsStatusResponse{Jobs: []JobInfo{}}

	if h.sched != nil {
		for _, st := range h.sched.JobStatuses() {
			info := JobInfo{
				Name:     st.Name,
				Schedule: st.Schedule,
			}
			if !st.NextRun.IsZero() {
				info.NextRun = st.NextRun.Format(time.RFC3339)
			}
			if !st.LastRun.IsZero() {
				info.LastRun = st.LastRun.Format(time.RFC3339)
			}
			response.Jobs = append(response.Jobs, info)
		}
	}
	response.TotalJobs = len(response.Jobs)

	h.writeJSON(w, response)
}

// HandleDatabaseStats returns statistics for the planning database.
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	response := DatabaseStatsResponse{
		Name:        h.planningDB.Name(),
		Path:        h.planningDB.Path(),
		LastChecked: time.Now().Format(time.RFC3339),
	}

	if info, err := os.Stat(h.planningDB.Path()); err == nil {
		response.SizeMB = float64(info.Size()) / 1024 / 1024
	}

	if err := h.planningDB.QueryRow(`SELECT COUNT(*) FROM plan_runs`).Scan(&response.RunCount); err != nil {
		h.log.Warn().Err(err).Msg("Failed to count plan runs")
	}

	h.writeJSON(w, response)
}

// HandleDiskUsage returns disk usage statistics for the data directory.
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	dataDirSize := h.getDirSize(h.dataDir)
	datasetsSize := h.getDirSize(filepath.Join(h.dataDir, "datasets"))
	exportsSize := h.getDirSize(filepath.Join(h.dataDir, "exports"))

	h.writeJSON(w, DiskUsageResponse{
		DataDirMB:  dataDirSize,
		DatasetsMB: datasetsSize,
		ExportsMB:  exportsSize,
		TotalMB:    dataDirSize,
	})
}

// getDirSize calculates total size of a directory in MB.
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages. The short sample
// interval keeps the endpoint responsive for pollers.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
