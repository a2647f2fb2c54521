package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oxleyb/timesage/internal/output"
)

func suggestCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "suggest <event-id> [event-id...]",
		Short: "Suggest a project for one or more events",
		Long: `Scores each event against the user's learned categorization rules and
prints the best project suggestion, if any clears the confidence
threshold. With multiple event IDs, all events are scored in a single
batch.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngines()
			if err != nil {
				return err
			}
			defer eng.Close()

			if len(args) == 1 {
				return suggestSingle(cmd, eng, userID, args[0])
			}
			return suggestBatch(cmd, eng, userID, args)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func suggestSingle(cmd *cobra.Command, eng *engines, userID, eventID string) error {
	event, err := eng.store.GetEventByID(cmd.Context(), userID, eventID)
	if err != nil {
		return fmt.Errorf("failed to load event: %w", err)
	}

	suggestion := eng.suggester.GenerateSuggestion(cmd.Context(), *event, userID)
	if suggestion == nil {
		fmt.Printf("No suggestion for %q.\n", event.Title)
		return nil
	}

	confidence := output.ConfidenceStyle(suggestion.Confidence).
		Render(output.Percent(suggestion.Confidence))
	fmt.Printf("%s -> %s (%s)\n", event.Title, suggestion.ProjectName, confidence)
	for _, reason := range suggestion.Reasoning {
		fmt.Printf("  - %s\n", reason)
	}

	return nil
}

func suggestBatch(cmd *cobra.Command, eng *engines, userID string, eventIDs []string) error {
	suggestions := eng.suggester.GenerateBatchSuggestions(cmd.Context(), eventIDs, userID)

	table := output.NewTable("Event", "Project", "Confidence")
	for _, eventID := range eventIDs {
		suggestion, ok := suggestions[eventID]
		if !ok {
			table.AddRow(eventID, "-", "-")
			continue
		}
		table.AddRow(eventID, suggestion.ProjectName, output.Percent(suggestion.Confidence))
	}
	table.Print()

	fmt.Printf("\n%d of %d events have suggestions.\n", len(suggestions), len(eventIDs))
	return nil
}
