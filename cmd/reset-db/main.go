// Package main provides a small CLI utility to reset the application's
// database to a clean state. It is intended for local development and
// testing only and will permanently delete all data when run.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"linguaread/internal/config"
	"linguaread/internal/database"
	"linguaread/internal/observability"
)

// fatalIfErr logs the error with context and exits
func fatalIfErr(ctx context.Context, logger *observability.Logger, msg string, err error, fields map[string]interface{}) {
	logger.Error(ctx, msg, err, fields)
	os.Exit(1)
}

func main() {
	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// No telemetry for the reset utility
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false

	_, _, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "reset-db")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("DATABASE RESET UTILITY")
	fmt.Println("======================")
	fmt.Println("This will PERMANENTLY DELETE ALL DATA in the database!")
	fmt.Println("This includes:")
	fmt.Println("- All paragraphs, questions and words")
	fmt.Println("- All user progress records")
	fmt.Println("")

	if cfg.Database.URL == "" {
		fatalIfErr(ctx, logger, "Database URL is empty", nil, map[string]interface{}{"error": "Database URL is empty. Cannot proceed with reset."})
	}

	fmt.Printf("Database URL: %s\n\n", maskDatabaseURL(cfg.Database.URL))

	if !confirmReset() {
		fmt.Println("Reset cancelled.")
		return
	}

	dbManager := database.NewManager(logger)

	db, err := dbManager.InitDBWithoutMigrations(cfg.Database)
	if err != nil {
		fatalIfErr(ctx, logger, "Failed to connect to database", err, map[string]interface{}{"db_url": cfg.Database.URL})
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Warning: failed to close database connection", map[string]interface{}{"error": err.Error()})
		}
	}()

	fmt.Println("Dropping all tables...")
	logger.Info(ctx, "Dropping all tables", map[string]interface{}{"service": "reset-db"})

	dropStatements := []string{
		"DROP TABLE IF EXISTS user_progress CASCADE",
		"DROP TABLE IF EXISTS paragraph_questions CASCADE",
		"DROP TABLE IF EXISTS important_words CASCADE",
		"DROP TABLE IF EXISTS paragraphs CASCADE",
		"DROP TABLE IF EXISTS schema_migrations CASCADE",
	}
	for _, statement := range dropStatements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			fatalIfErr(ctx, logger, "Failed to drop table", err, map[string]interface{}{"statement": statement})
		}
	}

	fmt.Println("Recreating schema...")
	logger.Info(ctx, "Running database migrations", map[string]interface{}{"service": "reset-db"})

	if err := dbManager.RunMigrations(db); err != nil {
		fatalIfErr(ctx, logger, "Failed to run migrations", err, map[string]interface{}{"db_url": cfg.Database.URL})
	}

	logger.Info(ctx, "Database reset completed successfully", map[string]interface{}{"service": "reset-db"})
	fmt.Println("")
	fmt.Println("Database is now ready to use.")
}

func confirmReset() bool {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("Type 'RESET' to confirm, or anything else to cancel: ")
		answer, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		answer = strings.TrimSpace(answer)
		if answer == "RESET" {
			return true
		}
		if answer != "" {
			return false
		}
	}
}

// maskDatabaseURL masks credentials in the database URL for display
func maskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) == 2 {
			return "postgres://***:***@" + parts[1]
		}
	}
	return url
}
