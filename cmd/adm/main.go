// Package main provides the entry point for the linguaread admin CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"linguaread/cmd/adm/commands"
	"linguaread/internal/config"
	"linguaread/internal/database"
	"linguaread/internal/observability"
	"linguaread/internal/services"

	"github.com/spf13/cobra"
)

var (
	cfg             *config.Config
	logger          *observability.Logger
	progressService *services.ProgressService
)

func main() {
	ctx := context.Background()

	// Set default config file if not already set
	if os.Getenv("LINGUAREAD_CONFIG_FILE") == "" {
		defaultPaths := []string{
			"../config.yaml",    // From cmd/adm/
			"../../config.yaml", // From cmd/adm/ when run inside the package dir
			"config.yaml",       // Current directory
		}

		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				if err := os.Setenv("LINGUAREAD_CONFIG_FILE", path); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to set LINGUAREAD_CONFIG_FILE environment variable: %v\n", err)
					os.Exit(1)
				}
				break
			}
		}
	}

	var err error
	cfg, err = config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Quiet logging and no telemetry for the admin tool
	cfg.Server.LogLevel = "error"
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	_, _, loggerInstance, err := observability.SetupObservability(&cfg.OpenTelemetry, "linguaread-admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	logger = loggerInstance

	dbManager := database.NewManager(logger)

	// No migrations for the admin tool
	db, err := dbManager.InitDBWithoutMigrations(cfg.Database)
	if err != nil {
		logger.Error(ctx, "Failed to connect to database", err, map[string]interface{}{"db_url": cfg.Database.URL})
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Warning: failed to close database connection", map[string]interface{}{"error": err.Error()})
		}
	}()

	progressService, err = services.NewProgressServiceWithLogger(db, cfg, logger)
	if err != nil {
		logger.Error(ctx, "Failed to create progress service", err, nil)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "Linguaread Administration Tool",
		Long: `Linguaread Administration Tool

A CLI tool for administering the linguaread backend.
Provides commands for database operations and user progress management.`,

		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(commands.DatabaseCommands(logger, db))
	rootCmd.AddCommand(commands.ProgressCommands(progressService, logger, db))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
