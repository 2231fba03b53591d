package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"linguaread/internal/observability"
	"linguaread/internal/services"
	contextutils "linguaread/internal/utils"

	"github.com/spf13/cobra"
)

// ProgressCommands returns the user progress management commands
func ProgressCommands(progressService services.ProgressServiceInterface, logger *observability.Logger, db *sql.DB) *cobra.Command {
	progressCmd := &cobra.Command{
		Use:   "progress",
		Short: "User progress management commands",
		Long: `User progress management commands for the linguaread backend.

Available commands:
  show   - Show all progress records for a user
  reset  - Delete all progress records for a user`,
	}

	progressCmd.AddCommand(showProgressCmd(progressService, logger))
	progressCmd.AddCommand(resetProgressCmd(progressService, logger))

	return progressCmd
}

func showProgressCmd(progressService services.ProgressServiceInterface, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "show [user-id]",
		Short: "Show progress records for a user",
		Long:  `Show all progress records for a user, due items first.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runShowProgress(progressService, logger),
	}
}

func resetProgressCmd(progressService services.ProgressServiceInterface, logger *observability.Logger) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset [user-id]",
		Short: "Delete all progress records for a user",
		Long: `Delete all progress records for a user. The user starts over with
zeroed statistics on their next exercise.`,
		Args: cobra.ExactArgs(1),
		RunE: runResetProgress(progressService, logger, &force),
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")

	return cmd
}

func runShowProgress(progressService services.ProgressServiceInterface, logger *observability.Logger) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()
		userID := args[0]

		logger.Info(ctx, "Admin command diagnostics", map[string]interface{}{"config_file": os.Getenv("LINGUAREAD_CONFIG_FILE"), "user_id": userID})

		records, err := progressService.GetUserProgress(ctx, userID)
		if err != nil {
			logger.Error(ctx, "Failed to get user progress", err, map[string]interface{}{"user_id": userID})
			return contextutils.WrapError(err, "failed to get user progress")
		}

		if len(records) == 0 {
			logger.Info(ctx, "No progress records found for user", map[string]interface{}{"user_id": userID})
			return nil
		}

		// User-facing table on stdout
		fmt.Printf("%-10s %-38s %-8s %-8s %-8s %-8s %-22s %-22s\n", "Type", "Item", "Correct", "Wrong", "Streak", "Score", "Last Reviewed", "Next Review")
		fmt.Println(strings.Repeat("-", 130))

		for _, record := range records {
			fmt.Printf("%-10s %-38s %-8d %-8d %-8d %-8.2f %-22s %-22s\n",
				record.ItemType,
				record.ItemID,
				record.CorrectCount,
				record.WrongCount,
				record.SuccessStreak,
				record.KnowledgeScore,
				record.LastReviewed.Format("2006-01-02 15:04:05"),
				record.NextReview.Format("2006-01-02 15:04:05"),
			)
		}

		fmt.Printf("\nTotal: %d records\n", len(records))
		return nil
	}
}

func runResetProgress(progressService services.ProgressServiceInterface, logger *observability.Logger, force *bool) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()
		userID := args[0]

		if !*force {
			fmt.Printf("This will delete ALL progress records for user %s. Continue? [y/N]: ", userID)
			var answer string
			if _, err := fmt.Scanln(&answer); err != nil {
				answer = ""
			}
			if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
				fmt.Println("Aborted.")
				return nil
			}
		}

		deleted, err := progressService.ResetUserProgress(ctx, userID)
		if err != nil {
			logger.Error(ctx, "Failed to reset user progress", err, map[string]interface{}{"user_id": userID})
			return contextutils.WrapError(err, "failed to reset user progress")
		}

		logger.Info(ctx, "User progress reset", map[string]interface{}{"user_id": userID, "deleted": deleted})
		fmt.Printf("Deleted %d progress records for user %s\n", deleted, userID)
		return nil
	}
}
