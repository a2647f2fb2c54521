package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/oxleyb/timesage/internal/model"
)

// AppendSuggestionLog appends one suggestion outcome to the analytics log.
func (s *SQLiteStorage) AppendSuggestionLog(ctx context.Context, entry model.SuggestionLog) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(entry.UserID, "userID"); err != nil {
		return err
	}
	if err := validateString(entry.EventID, "eventID"); err != nil {
		return err
	}
	if err := validateOutcome(entry.Outcome); err != nil {
		return err
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO suggestion_logs (user_id, event_id, suggested_project_id, confidence, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.EventID, entry.SuggestedProjectID,
		entry.Confidence, entry.Outcome, createdAt)
	if err != nil {
		return fmt.Errorf("failed to append suggestion log: %w", err)
	}

	return nil
}

// FindSuggestionLogs returns a user's logged outcomes in [from, to), oldest
// first.
func (s *SQLiteStorage) FindSuggestionLogs(ctx context.Context, userID string, from, to time.Time) ([]model.SuggestionLog, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateDateRange(from, to); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, event_id, suggested_project_id, confidence, outcome, created_at
		 FROM suggestion_logs
		 WHERE user_id = ? AND created_at >= ? AND created_at < ?
		 ORDER BY created_at ASC, id ASC`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to find suggestion logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var logs []model.SuggestionLog
	for rows.Next() {
		var entry model.SuggestionLog
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.EventID, &entry.SuggestedProjectID,
			&entry.Confidence, &entry.Outcome, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan suggestion log: %w", err)
		}
		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestion logs: %w", err)
	}

	return logs, nil
}
