// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"database/sql"
	"os"

	"linguaread/internal/observability"
	contextutils "linguaread/internal/utils"

	"github.com/spf13/cobra"
)

// DatabaseCommands returns the database management commands
func DatabaseCommands(logger *observability.Logger, db *sql.DB) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands for the linguaread backend.

Available commands:
  stats     - Show database statistics
  cleanup   - Remove orphaned progress rows`,
	}

	dbCmd.AddCommand(statsCmd(logger, db))
	dbCmd.AddCommand(cleanupCmd(logger, db))

	return dbCmd
}

func statsCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Long:  `Show row counts for paragraphs, learning items and progress records.`,
		RunE:  runStats(logger, db),
	}
}

func cleanupCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	var statsOnly bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Run database cleanup operations",
		Long: `Run database cleanup operations to remove stale data.

This command removes progress rows whose learning item no longer exists,
which can happen when paragraphs are regenerated by the content pipeline.

Use --stats flag to see what would be cleaned up without actually performing the cleanup.`,
		RunE: runCleanup(logger, &statsOnly, db),
	}

	cmd.Flags().BoolVar(&statsOnly, "stats", false, "Only show cleanup statistics, don't perform cleanup")

	return cmd
}

func runStats(logger *observability.Logger, db *sql.DB) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		logger.Info(ctx, "Diagnostic info", map[string]interface{}{"config_file": os.Getenv("LINGUAREAD_CONFIG_FILE"), "database": getDatabaseInfo(db)})

		stats := map[string]interface{}{"database": "PostgreSQL", "status": "Connected"}
		counts := []struct {
			key   string
			query string
		}{
			{"paragraphs", "SELECT COUNT(*) FROM paragraphs"},
			{"questions", "SELECT COUNT(*) FROM paragraph_questions"},
			{"words", "SELECT COUNT(*) FROM important_words"},
			{"progress_records", "SELECT COUNT(*) FROM user_progress"},
			{"distinct_users", "SELECT COUNT(DISTINCT user_id) FROM user_progress"},
		}
		for _, c := range counts {
			var n int64
			if err := db.QueryRowContext(ctx, c.query).Scan(&n); err != nil {
				logger.Error(ctx, "Failed to get database statistics", err, map[string]interface{}{"table": c.key})
				return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to get database statistics: %v", err)
			}
			stats[c.key] = n
		}

		logger.Info(ctx, "Database statistics", stats)
		return nil
	}
}

const orphanedProgressWhere = `
	(item_type = 'question' AND NOT EXISTS (SELECT 1 FROM paragraph_questions q WHERE q.id::text = user_progress.item_id))
	OR (item_type = 'word' AND NOT EXISTS (SELECT 1 FROM important_words w WHERE w.id::text = user_progress.item_id))`

func runCleanup(logger *observability.Logger, statsOnly *bool, db *sql.DB) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		logger.Info(ctx, "Diagnostic info", map[string]interface{}{"config_file": os.Getenv("LINGUAREAD_CONFIG_FILE"), "database": getDatabaseInfo(db)})

		if db == nil {
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "database connection not available")
		}

		if *statsOnly {
			var orphaned int64
			if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM user_progress WHERE "+orphanedProgressWhere).Scan(&orphaned); err != nil {
				logger.Error(ctx, "Failed to get cleanup stats", err, map[string]interface{}{"stats_only": true})
				return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to get cleanup stats: %v", err)
			}

			if orphaned == 0 {
				logger.Info(ctx, "No cleanup needed - database is clean", map[string]interface{}{"orphaned_progress": orphaned})
			} else {
				logger.Info(ctx, "Cleanup would remove items", map[string]interface{}{"orphaned_progress": orphaned})
			}
			return nil
		}

		logger.Info(ctx, "Starting database cleanup", map[string]interface{}{"operation": "orphaned_progress"})

		result, err := db.ExecContext(ctx, "DELETE FROM user_progress WHERE "+orphanedProgressWhere)
		if err != nil {
			logger.Error(ctx, "Cleanup failed", err, map[string]interface{}{"operation": "orphaned_progress"})
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "cleanup failed: %v", err)
		}

		removed, err := result.RowsAffected()
		if err != nil {
			return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read cleanup result: %v", err)
		}

		logger.Info(ctx, "Database cleanup completed successfully", map[string]interface{}{"removed": removed})
		return nil
	}
}
