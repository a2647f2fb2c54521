package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oxleyb/timesage/internal/common"
	"github.com/oxleyb/timesage/internal/model"
)

const eventColumns = `id, user_id, title, attendees, calendar_id, recurring_event_id,
	project_id, start_time, end_time, deleted_at, created_at, updated_at`

// SaveEvents inserts or replaces a batch of events.
func (s *SQLiteStorage) SaveEvents(ctx context.Context, events []model.Event) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEvents(events); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO events (
			id, user_id, title, attendees, calendar_id, recurring_event_id,
			project_id, start_time, end_time, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			attendees = excluded.attendees,
			calendar_id = excluded.calendar_id,
			recurring_event_id = excluded.recurring_event_id,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			deleted_at = excluded.deleted_at,
			updated_at = CURRENT_TIMESTAMP
	`

	for _, event := range events {
		attendees, marshalErr := json.Marshal(event.Attendees)
		if marshalErr != nil {
			return fmt.Errorf("failed to marshal attendees for event %s: %w", event.ID, marshalErr)
		}

		if _, execErr := tx.ExecContext(ctx, query,
			event.ID, event.UserID, event.Title, string(attendees),
			event.CalendarID, event.RecurringEventID, event.ProjectID,
			event.StartTime, event.EndTime, event.DeletedAt,
		); execErr != nil {
			return fmt.Errorf("failed to save event %s: %w", event.ID, execErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}

	return nil
}

// GetEventByID retrieves a single event, excluding soft-deleted events.
func (s *SQLiteStorage) GetEventByID(ctx context.Context, userID, eventID string) (*model.Event, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(eventID, "eventID"); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = ? AND user_id = ? AND deleted_at IS NULL`, eventColumns)

	event, err := scanEvent(s.db.QueryRowContext(ctx, query, eventID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", eventID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return event, nil
}

// GetEventsByIDs retrieves many events in one query, excluding soft-deleted
// events. Unknown IDs are silently absent from the result.
func (s *SQLiteStorage) GetEventsByIDs(ctx context.Context, userID string, eventIDs []string) ([]model.Event, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if len(eventIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(eventIDs)-1) + "?"
	query := fmt.Sprintf(
		`SELECT %s FROM events WHERE user_id = ? AND deleted_at IS NULL AND id IN (%s)`,
		eventColumns, placeholders)

	args := make([]any, 0, len(eventIDs)+1)
	args = append(args, userID)
	for _, id := range eventIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.Event
	for rows.Next() {
		event, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan event: %w", scanErr)
		}
		events = append(events, *event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// SetEventProject assigns or clears an event's project.
func (s *SQLiteStorage) SetEventProject(ctx context.Context, userID, eventID string, projectID *string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(eventID, "eventID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE events SET project_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		projectID, eventID, userID)
	if err != nil {
		return fmt.Errorf("failed to set event project: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("event %s: %w", eventID, common.ErrNotFound)
	}

	return nil
}

// CountCategorizedEvents counts every event the user has assigned to a
// project, across all time. Used for the cold-start gate.
func (s *SQLiteStorage) CountCategorizedEvents(ctx context.Context, userID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE user_id = ? AND project_id IS NOT NULL AND deleted_at IS NULL`,
		userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count categorized events: %w", err)
	}

	return count, nil
}

// CountCategorizedEventsInWindow counts categorized events starting in [from, to).
func (s *SQLiteStorage) CountCategorizedEventsInWindow(ctx context.Context, userID string, from, to time.Time) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateDateRange(from, to); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events
		 WHERE user_id = ? AND project_id IS NOT NULL AND deleted_at IS NULL
		   AND start_time >= ? AND start_time < ?`,
		userID, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count categorized events in window: %w", err)
	}

	return count, nil
}

// CountEventsInWindow counts all live events starting in [from, to).
func (s *SQLiteStorage) CountEventsInWindow(ctx context.Context, userID string, from, to time.Time) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateDateRange(from, to); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events
		 WHERE user_id = ? AND deleted_at IS NULL AND start_time >= ? AND start_time < ?`,
		userID, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events in window: %w", err)
	}

	return count, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*model.Event, error) {
	var event model.Event
	var attendees string
	var projectID sql.NullString
	var deletedAt sql.NullTime

	err := row.Scan(
		&event.ID, &event.UserID, &event.Title, &attendees,
		&event.CalendarID, &event.RecurringEventID, &projectID,
		&event.StartTime, &event.EndTime, &deletedAt,
		&event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if attendees != "" {
		if err := json.Unmarshal([]byte(attendees), &event.Attendees); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attendees: %w", err)
		}
	}
	if projectID.Valid {
		event.ProjectID = &projectID.String
	}
	if deletedAt.Valid {
		event.DeletedAt = &deletedAt.Time
	}

	return &event, nil
}
