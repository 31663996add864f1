// Package main is the entry point for the Planline production planning
// service. It loads the inventory/sales feeds, allocates the week's
// production hours across items with a linear program, and serves the
// resulting plans over HTTP.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/planline/internal/config"
	"github.com/aristath/planline/internal/database"
	"github.com/aristath/planline/internal/modules/export"
	"github.com/aristath/planline/internal/modules/planning"
	"github.com/aristath/planline/internal/scheduler"
	"github.com/aristath/planline/internal/server"
	"github.com/aristath/planline/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("dataset_dir", cfg.DatasetDir).
		Int("port", cfg.Port).
		Msg("Starting Planline")

	planningDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "planning.db"),
		Profile: database.ProfileArchive,
		Name:    "planning",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open planning database")
	}
	defer planningDB.Close()

	if err := planningDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate planning database")
	}

	repo := planning.NewRepository(planningDB)
	writer := export.NewWriter(filepath.Join(cfg.DataDir, "exports"), log)
	planningService := planning.NewService(planning.ServiceConfig{
		DatasetDir:     cfg.DatasetDir,
		DirectivesPath: cfg.DirectivesFile,
		OrdersPath:     cfg.OrdersFile,
	}, repo, writer, log)

	var sched *scheduler.Scheduler
	if cfg.Planning.CronSpec != "" {
		sched = scheduler.New(log)
		planJob := scheduler.NewPlanJob(planningService, cfg.Planning, log)
		if err := sched.AddJob(cfg.Planning.CronSpec, planJob); err != nil {
			log.Fatal().Err(err).Str("spec", cfg.Planning.CronSpec).Msg("Invalid plan cron schedule")
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := server.New(server.Config{
		Log:             log,
		Config:          cfg,
		PlanningDB:      planningDB,
		PlanningService: planningService,
		Scheduler:       sched,
		Port:            cfg.Port,
		DevMode:         cfg.DevMode,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	if err := planningDB.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("Final WAL checkpoint failed")
	}

	log.Info().Msg("Planline stopped")
}
