package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oxleyb/timesage/internal/model"
)

func feedbackCmd() *cobra.Command {
	var (
		userID      string
		eventID     string
		projectID   string
		suggestedID string
		confidence  float64
	)

	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record a categorization decision and learn from it",
		Long: `Records the project a user chose for an event. If a suggestion was shown,
pass it with --suggested so acceptance and rejection are tracked: matching
rules are strengthened toward the chosen project and, on rejection,
weakened for the suggested one.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := buildEngines()
			if err != nil {
				return err
			}
			defer eng.Close()

			chosen := projectID
			if err := eng.store.SetEventProject(cmd.Context(), userID, eventID, &chosen); err != nil {
				return fmt.Errorf("failed to set event project: %w", err)
			}

			var suggested *string
			if suggestedID != "" {
				suggested = &suggestedID
			}
			eng.feedback.HandleCategorizationFeedback(cmd.Context(), userID, eventID, projectID, suggested)

			if suggestedID != "" {
				outcome := model.OutcomeRejected
				if suggestedID == projectID {
					outcome = model.OutcomeAccepted
				}
				eng.reporter.LogSuggestion(cmd.Context(), userID, eventID, suggestedID, confidence, outcome)
				fmt.Printf("Recorded %s suggestion for event %s.\n", outcome, eventID)
			} else {
				fmt.Printf("Recorded manual categorization for event %s.\n", eventID)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	cmd.Flags().StringVar(&eventID, "event", "", "event ID")
	cmd.Flags().StringVar(&projectID, "project", "", "project ID the user chose")
	cmd.Flags().StringVar(&suggestedID, "suggested", "", "project ID that was suggested, if any")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "confidence of the shown suggestion")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}
