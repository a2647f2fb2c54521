package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oxleyb/timesage/internal/output"
)

func metricsCmd() *cobra.Command {
	var userID string
	var days int

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Report suggestion quality metrics",
		Long: `Summarizes suggestion acceptance, confidence, and event coverage over a
reporting window, and lists rules performing poorly enough to need
attention.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := buildEngines()
			if err != nil {
				return err
			}
			defer eng.Close()

			to := time.Now()
			from := to.AddDate(0, 0, -days)
			metrics := eng.reporter.GetSuggestionMetrics(cmd.Context(), userID, from, to)

			fmt.Printf("Suggestion metrics for the last %d days:\n\n", days)
			fmt.Printf("  Total suggestions:   %d\n", metrics.TotalSuggestions)
			fmt.Printf("  Acceptance rate:     %s\n", output.Percent(metrics.AcceptanceRate))
			fmt.Printf("  Average confidence:  %s\n", output.Percent(metrics.AverageConfidence))
			fmt.Printf("  Event coverage:      %s\n", output.Percent(metrics.CoverageRate))
			fmt.Printf("  New rules this week: %d\n", metrics.NewRulesThisWeek)

			problems := eng.reporter.GetProblematicPatterns(cmd.Context(), userID)
			if len(problems) == 0 {
				fmt.Println("\nNo problematic rules.")
				return nil
			}

			fmt.Printf("\n%d problematic rules:\n\n", len(problems))
			table := output.NewTable("Type", "Condition", "Accuracy", "Suggestions", "Recommendation")
			for _, problem := range problems {
				table.AddRow(
					string(problem.Rule.RuleType),
					problem.Rule.Condition,
					output.Percent(problem.Rule.Accuracy),
					fmt.Sprintf("%d", problem.Rule.TotalSuggestions),
					problem.Recommendation,
				)
			}
			table.Print()

			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	cmd.Flags().IntVar(&days, "days", 30, "reporting window in days")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
