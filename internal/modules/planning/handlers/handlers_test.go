package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/planline/internal/config"
	"github.com/aristath/planline/internal/database"
	"github.com/aristath/planline/internal/modules/planning"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()

	datasetDir := filepath.Join(dir, "datasets")
	require.NoError(t, os.MkdirAll(datasetDir, 0755))

	feed := strings.Repeat("preamble\n", 5) +
		"A100;GRANOLA;VIME;100;0;0;0;;;;3000;750;50;;;0;0;;0\n" +
		"B200;MUESLI;MEC;100;500;0;0;;;;1800;300;20;;;0;0;;0\n"
	require.NoError(t, os.WriteFile(
		filepath.Join(datasetDir, "Stock Datos 05-01-26.csv"), []byte(feed), 0644))

	directives := "COD_ART;Info extra;ORDEN PLANIFICACION;cj/palet\n" +
		"A100;;INICIO;40\n" +
		"B200;;;50\n"
	directivesPath := filepath.Join(dir, "directives.csv")
	require.NoError(t, os.WriteFile(directivesPath, []byte(directives), 0644))

	db, err := database.New(database.Config{
		Path:    filepath.Join(dir, "planning.db"),
		Profile: database.ProfileArchive,
		Name:    "planning",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	svc := planning.NewService(planning.ServiceConfig{
		DatasetDir:     datasetDir,
		DirectivesPath: directivesPath,
	}, planning.NewRepository(db), nil, zerolog.Nop())

	defaults := &config.PlanningConfig{
		HorizonDays:        7,
		NonWorkingDays:     1,
		MaintenanceHours:   134,
		AllowNegativeStock: true,
	}

	r := chi.NewRouter()
	New(svc, defaults, zerolog.Nop()).Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestRunEndpoint(t *testing.T) {
	srv := testServer(t)

	body := `{"dataset_date": "2026-01-05", "start_date": "2026-01-07"}`
	resp, err := http.Post(srv.URL+"/run", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var plan planning.Plan
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&plan))

	assert.NotEmpty(t, plan.Summary.RunID)
	assert.Equal(t, planning.StrategyTwoPhase, plan.Summary.Strategy)
	assert.InDelta(t, 10, plan.Summary.TotalHours, 1e-6)
	require.Len(t, plan.Allocations, 2)
	assert.Equal(t, "A100", plan.Allocations[0].Code)
	assert.Equal(t, planning.StatusPlanned, plan.Allocations[0].Status)
}

func TestRunEndpointDefaultsStartDate(t *testing.T) {
	srv := testServer(t)

	// dataset_date alone implies a next-day horizon start
	body := `{"dataset_date": "2026-01-05"}`
	resp, err := http.Post(srv.URL+"/run", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var plan planning.Plan
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&plan))
	assert.Equal(t, "2026-01-06", plan.Params.StartDate.Format("2006-01-02"))
}

func TestRunEndpointRejectsBadDate(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Post(srv.URL+"/run", "application/json",
		strings.NewReader(`{"dataset_date": "05/01/2026"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunEndpointRejectsBadParameters(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Post(srv.URL+"/run", "application/json",
		strings.NewReader(`{"dataset_date": "2026-01-05", "start_date": "2026-01-01"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunsRoundtrip(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Post(srv.URL+"/run", "application/json",
		strings.NewReader(`{"dataset_date": "2026-01-05", "start_date": "2026-01-07"}`))
	require.NoError(t, err)
	var plan planning.Plan
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&plan))
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var runs []planning.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, plan.Summary.RunID, runs[0].RunID)

	resp, err = http.Get(srv.URL + "/runs/" + plan.Summary.RunID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stored planning.Plan
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stored))
	assert.Equal(t, plan.Summary.RunID, stored.Summary.RunID)
}

func TestGetRunNotFound(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/runs/no-such-run")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
