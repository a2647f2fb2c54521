package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func maintainCmd() *cobra.Command {
	var userID string
	var schedule string

	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Run rule pruning on a cron schedule",
		Long: `Runs in the foreground and prunes unreliable and orphaned rules on a
standard 5-field cron schedule until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
			sched, err := parser.Parse(schedule)
			if err != nil {
				return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
			}

			eng, err := buildEngines()
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx := cmd.Context()
			slog.Info("Starting maintenance scheduler", "schedule", schedule, "user_id", userID)

			for {
				now := time.Now()
				next := sched.Next(now)
				slog.Info("Next pruning run scheduled", "at", next.Format(time.RFC3339))

				select {
				case <-ctx.Done():
					slog.Info("Maintenance scheduler stopped")
					return nil
				case <-time.After(next.Sub(now)):
				}

				stats := eng.feedback.PruneIneffectiveRules(ctx, userID)
				slog.Info("Pruning run complete",
					"user_id", userID,
					"pruned", stats.Total,
					"low_accuracy", stats.LowAccuracy,
					"orphaned", stats.DeletedProjects)
			}
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID to maintain")
	cmd.Flags().StringVar(&schedule, "schedule", "0 3 * * *", "cron schedule for pruning runs")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
