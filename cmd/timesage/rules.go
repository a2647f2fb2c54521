package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oxleyb/timesage/internal/model"
	"github.com/oxleyb/timesage/internal/output"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and maintain learned categorization rules",
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesPruneCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show a user's learned rules and their health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := buildEngines()
			if err != nil {
				return err
			}
			defer eng.Close()

			info := eng.feedback.GetDebugInfo(cmd.Context(), userID)
			if info.TotalRules == 0 {
				fmt.Println("No rules learned yet.")
				return nil
			}

			table := output.NewTable("Type", "Condition", "Project", "Confidence", "Accuracy", "Matches", "Last Match")
			for _, debug := range info.Rules {
				rule := debug.Rule
				project := rule.ProjectID
				if rule.Project != nil {
					project = rule.Project.Name
				}
				if debug.ProjectArchived {
					project += " (archived)"
				}
				table.AddRow(
					string(rule.RuleType),
					rule.Condition,
					project,
					output.Percent(rule.ConfidenceScore),
					output.Percent(rule.Accuracy),
					fmt.Sprintf("%d/%d", rule.MatchCount, rule.TotalSuggestions),
					formatTimePtr(rule.LastMatchedAt),
				)
			}
			table.Print()

			fmt.Printf("\n%d rules, %d suggestions, %s overall accuracy\n",
				info.TotalRules, info.TotalSuggestions, output.Percent(info.OverallAccuracy))
			for _, ruleType := range model.RuleTypePriority {
				if count := info.RulesByType[ruleType]; count > 0 {
					fmt.Printf("  %-20s %d\n", ruleType, count)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func rulesPruneCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete unreliable and orphaned rules",
		Long: `Deletes rules that have proven unreliable (accuracy below 40% across at
least 10 suggestions) and rules whose project no longer exists.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := buildEngines()
			if err != nil {
				return err
			}
			defer eng.Close()

			stats := eng.feedback.PruneIneffectiveRules(cmd.Context(), userID)
			fmt.Printf("Pruned %d rules (%d low accuracy, %d orphaned projects).\n",
				stats.Total, stats.LowAccuracy, stats.DeletedProjects)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
