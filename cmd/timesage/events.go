package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/oxleyb/timesage/internal/model"
)

// importedEvent is the JSON shape accepted by the import command.
type importedEvent struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	CalendarID       string    `json:"calendar_id"`
	RecurringEventID string    `json:"recurring_event_id"`
	Attendees        []string  `json:"attendees"`
	ProjectID        string    `json:"project_id"`
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Manage calendar events",
	}

	cmd.AddCommand(eventsImportCmd())
	cmd.AddCommand(eventsAssignCmd())

	return cmd
}

func eventsImportCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import calendar events from a JSON file",
		Long: `Imports events from a JSON array. Re-importing an event with the same
ID updates it in place without losing its project assignment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			var imported []importedEvent
			if err := json.Unmarshal(data, &imported); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}
			if len(imported) == 0 {
				fmt.Println("No events to import.")
				return nil
			}

			events := make([]model.Event, 0, len(imported))
			for _, in := range imported {
				event := model.Event{
					ID:               in.ID,
					UserID:           userID,
					Title:            in.Title,
					StartTime:        in.StartTime,
					EndTime:          in.EndTime,
					CalendarID:       in.CalendarID,
					RecurringEventID: in.RecurringEventID,
				}
				for _, email := range in.Attendees {
					event.Attendees = append(event.Attendees, model.Attendee{Email: email})
				}
				if in.ProjectID != "" {
					projectID := in.ProjectID
					event.ProjectID = &projectID
				}
				events = append(events, event)
			}

			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SaveEvents(cmd.Context(), events); err != nil {
				return fmt.Errorf("failed to save events: %w", err)
			}

			fmt.Printf("Imported %d events.\n", len(events))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID owning the events")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func eventsAssignCmd() *cobra.Command {
	var userID string
	var projectID string

	cmd := &cobra.Command{
		Use:   "assign <event-id>",
		Short: "Assign an event to a project and learn from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngines()
			if err != nil {
				return err
			}
			defer eng.Close()

			var assigned *string
			if projectID != "" {
				assigned = &projectID
			}
			if err := eng.store.SetEventProject(cmd.Context(), userID, args[0], assigned); err != nil {
				return fmt.Errorf("failed to assign event: %w", err)
			}

			if projectID != "" {
				eng.feedback.HandleCategorizationFeedback(cmd.Context(), userID, args[0], projectID, nil)
				fmt.Printf("Assigned event %s to project %s.\n", args[0], projectID)
			} else {
				fmt.Printf("Cleared project assignment for event %s.\n", args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID owning the event")
	cmd.Flags().StringVar(&projectID, "project", "", "project ID to assign (empty clears)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
