package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oxleyb/timesage/internal/common"
	"github.com/oxleyb/timesage/internal/model"
)

// CreateProject creates a new project for a user.
func (s *SQLiteStorage) CreateProject(ctx context.Context, userID, name string) (*model.Project, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	project := model.Project{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, user_id, name, is_archived) VALUES (?, ?, ?, 0)`,
		project.ID, project.UserID, project.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return &project, nil
}

// GetProjectByID retrieves a project by its ID.
func (s *SQLiteStorage) GetProjectByID(ctx context.Context, projectID string) (*model.Project, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(projectID, "projectID"); err != nil {
		return nil, err
	}

	var project model.Project
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, is_archived, created_at, updated_at FROM projects WHERE id = ?`,
		projectID).Scan(
		&project.ID, &project.UserID, &project.Name, &project.IsArchived,
		&project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", projectID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// GetProjectsForUser retrieves all of a user's projects, active first.
func (s *SQLiteStorage) GetProjectsForUser(ctx context.Context, userID string) ([]model.Project, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, is_archived, created_at, updated_at
		 FROM projects WHERE user_id = ? ORDER BY is_archived ASC, name ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []model.Project
	for rows.Next() {
		var project model.Project
		if err := rows.Scan(
			&project.ID, &project.UserID, &project.Name, &project.IsArchived,
			&project.CreatedAt, &project.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return projects, nil
}

// SetProjectArchived archives or unarchives a project. Rules referencing an
// archived project are kept; the suggestion engine excludes them at read
// time.
func (s *SQLiteStorage) SetProjectArchived(ctx context.Context, projectID string, archived bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(projectID, "projectID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE projects SET is_archived = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		archived, projectID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("project %s: %w", projectID, common.ErrNotFound)
	}

	return nil
}
