// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir        string // Base directory for databases and exported plans (always absolute)
	DatasetDir     string // Directory holding inventory/sales feed files
	DirectivesFile string // Per-item directives file (classification, cases/pallet)
	OrdersFile     string // Confirmed-orders feed (optional, empty disables the order-risk check)
	LogLevel       string
	Port           int
	DevMode        bool
	Planning       *PlanningConfig
}

// PlanningConfig holds the defaults used by scheduled runs and as
// fallbacks for interactive runs that omit parameters.
type PlanningConfig struct {
	HorizonDays        int
	NonWorkingDays     float64
	MaintenanceHours   float64
	MinCoverageDays    float64 // Minimum post-horizon coverage target; <= 0 disables the constraint
	Strategy           string  // "direct" or "two-phase"
	AllowNegativeStock bool    // Clamp negative projected stock instead of aborting the run
	StrictMinimumBatch bool    // Zero-or-minimum bounds policy: skip items whose ceiling is below the minimum batch
	CronSpec           string  // Cron schedule for automatic runs; empty disables
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PLANLINE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		DatasetDir:     getEnv("PLANLINE_DATASET_DIR", filepath.Join(absDataDir, "datasets")),
		DirectivesFile: getEnv("PLANLINE_DIRECTIVES_FILE", filepath.Join(absDataDir, "directives.csv")),
		OrdersFile:     getEnv("PLANLINE_ORDERS_FILE", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Port:           getEnvAsInt("PORT", 8002),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		Planning:       loadPlanningConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.Planning.Strategy {
	case "direct", "two-phase":
	default:
		return fmt.Errorf("unknown allocation strategy %q (want \"direct\" or \"two-phase\")", c.Planning.Strategy)
	}
	if c.Planning.HorizonDays <= 0 {
		return fmt.Errorf("planning horizon must be positive, got %d", c.Planning.HorizonDays)
	}
	return nil
}

// loadPlanningConfig loads planning defaults from environment variables
func loadPlanningConfig() *PlanningConfig {
	return &PlanningConfig{
		HorizonDays:        getEnvAsInt("PLAN_HORIZON_DAYS", 7),
		NonWorkingDays:     getEnvAsFloat("PLAN_NON_WORKING_DAYS", 1),
		MaintenanceHours:   getEnvAsFloat("PLAN_MAINTENANCE_HOURS", 0),
		MinCoverageDays:    getEnvAsFloat("PLAN_MIN_COVERAGE_DAYS", 0),
		Strategy:           getEnv("PLAN_STRATEGY", "two-phase"),
		AllowNegativeStock: getEnvAsBool("ALLOW_NEGATIVE_STOCK", true),
		StrictMinimumBatch: getEnvAsBool("PLAN_STRICT_MINIMUM_BATCH", false),
		CronSpec:           getEnv("PLAN_CRON", ""),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
