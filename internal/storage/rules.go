package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oxleyb/timesage/internal/common"
	"github.com/oxleyb/timesage/internal/model"
	"github.com/oxleyb/timesage/internal/service"
)

const ruleColumns = `r.id, r.user_id, r.project_id, r.rule_type, r.condition,
	r.confidence_score, r.accuracy, r.match_count, r.total_suggestions,
	r.last_matched_at, r.created_at, r.updated_at`

// GetActiveRulesForUser retrieves all of a user's rules with their projects
// joined. Rules whose project row has been deleted are returned without a
// project so the pruning pass can find them.
func (s *SQLiteStorage) GetActiveRulesForUser(ctx context.Context, userID string) ([]model.CategoryRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s,
			p.id, p.user_id, p.name, p.is_archived, p.created_at, p.updated_at
		FROM category_rules r
		LEFT JOIN projects p ON p.id = r.project_id
		WHERE r.user_id = ?
		ORDER BY r.created_at ASC, r.id ASC
	`, ruleColumns)

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.CategoryRule
	for rows.Next() {
		rule, scanErr := scanRuleWithProject(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", scanErr)
		}
		rules = append(rules, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

// GetRuleByKey retrieves the single rule identified by a rule key.
func (s *SQLiteStorage) GetRuleByKey(ctx context.Context, key model.RuleKey) (*model.CategoryRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateRuleKey(key); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM category_rules r
		WHERE r.user_id = ? AND r.rule_type = ? AND r.condition = ? AND r.project_id = ?
	`, ruleColumns)

	rule, err := scanRule(s.db.QueryRowContext(ctx, query,
		key.UserID, key.RuleType, key.Condition, key.ProjectID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rule: %w", common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// StrengthenRule upserts the rule identified by key: a new rule starts at
// the initial confidence with one match; an existing rule gains the
// increment and one match. The cap is applied inside the statement, so
// concurrent increments cannot push the score past it.
func (s *SQLiteStorage) StrengthenRule(ctx context.Context, key model.RuleKey, reinforcement service.RuleReinforcement) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRuleKey(key); err != nil {
		return err
	}

	query := `
		INSERT INTO category_rules (
			id, user_id, project_id, rule_type, condition,
			confidence_score, match_count
		) VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(user_id, rule_type, condition, project_id) DO UPDATE SET
			confidence_score = MIN(confidence_score + ?, ?),
			match_count = match_count + 1,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(), key.UserID, key.ProjectID, key.RuleType, key.Condition,
		reinforcement.InitialConfidence,
		reinforcement.Increment, reinforcement.Cap)
	if err != nil {
		return fmt.Errorf("failed to strengthen rule: %w", err)
	}

	return nil
}

// PenalizeRule weakens the rule identified by key, flooring the confidence
// score, recording one more evaluated suggestion, and recomputing accuracy.
// Returns the number of rules updated (zero when no such rule exists).
func (s *SQLiteStorage) PenalizeRule(ctx context.Context, key model.RuleKey, penalty service.RulePenalty) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateRuleKey(key); err != nil {
		return 0, err
	}

	query := `
		UPDATE category_rules SET
			confidence_score = MAX(confidence_score - ?, ?),
			accuracy = CAST(match_count AS REAL) / (total_suggestions + 1),
			total_suggestions = total_suggestions + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND rule_type = ? AND condition = ? AND project_id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		penalty.Decrement, penalty.Floor,
		key.UserID, key.RuleType, key.Condition, key.ProjectID)
	if err != nil {
		return 0, fmt.Errorf("failed to penalize rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check penalty result: %w", err)
	}

	return int(affected), nil
}

// RecordRuleOutcome records the user's response to a suggestion this rule
// backed. Acceptance counts as a match; either way the rule's volume grows,
// its accuracy is recomputed, and its last-matched timestamp advances.
func (s *SQLiteStorage) RecordRuleOutcome(ctx context.Context, ruleID string, accepted bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(ruleID, "ruleID"); err != nil {
		return err
	}

	var query string
	if accepted {
		query = `
			UPDATE category_rules SET
				match_count = match_count + 1,
				total_suggestions = total_suggestions + 1,
				accuracy = CAST(match_count + 1 AS REAL) / (total_suggestions + 1),
				last_matched_at = CURRENT_TIMESTAMP,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`
	} else {
		query = `
			UPDATE category_rules SET
				total_suggestions = total_suggestions + 1,
				accuracy = CAST(match_count AS REAL) / (total_suggestions + 1),
				last_matched_at = CURRENT_TIMESTAMP,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`
	}

	result, err := s.db.ExecContext(ctx, query, ruleID)
	if err != nil {
		return fmt.Errorf("failed to record rule outcome: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check outcome result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %s: %w", ruleID, common.ErrNotFound)
	}

	return nil
}

// FindPruneCandidates finds the user's rules eligible for deletion: rules
// with persistently low accuracy after sufficient volume, and rules whose
// project no longer exists. The two sets are disjoint.
func (s *SQLiteStorage) FindPruneCandidates(ctx context.Context, userID string, maxAccuracy float64, minSuggestions int) (*service.PruneCandidates, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	lowAccuracy, err := s.queryRules(ctx, fmt.Sprintf(`
		SELECT %s FROM category_rules r
		WHERE r.user_id = ? AND r.accuracy < ? AND r.total_suggestions >= ?
		  AND EXISTS (SELECT 1 FROM projects p WHERE p.id = r.project_id)
	`, ruleColumns), userID, maxAccuracy, minSuggestions)
	if err != nil {
		return nil, fmt.Errorf("failed to find low-accuracy rules: %w", err)
	}

	orphaned, err := s.queryRules(ctx, fmt.Sprintf(`
		SELECT %s FROM category_rules r
		WHERE r.user_id = ?
		  AND NOT EXISTS (SELECT 1 FROM projects p WHERE p.id = r.project_id)
	`, ruleColumns), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find orphaned rules: %w", err)
	}

	return &service.PruneCandidates{
		LowAccuracy:     lowAccuracy,
		OrphanedProject: orphaned,
	}, nil
}

// CountRulesForProject counts how many rules reference a project.
func (s *SQLiteStorage) CountRulesForProject(ctx context.Context, projectID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(projectID, "projectID"); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM category_rules WHERE project_id = ?`,
		projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rules for project: %w", err)
	}

	return count, nil
}

// CountRulesCreatedSince counts a user's rules created at or after the
// given time.
func (s *SQLiteStorage) CountRulesCreatedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM category_rules WHERE user_id = ? AND created_at >= ?`,
		userID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count new rules: %w", err)
	}

	return count, nil
}

// DeleteRulesByIDs deletes the given rules in one statement.
func (s *SQLiteStorage) DeleteRulesByIDs(ctx context.Context, ruleIDs []string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(ruleIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ruleIDs)-1) + "?"
	args := make([]any, len(ruleIDs))
	for i, id := range ruleIDs {
		args[i] = id
	}

	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM category_rules WHERE id IN (%s)`, placeholders), args...)
	if err != nil {
		return fmt.Errorf("failed to delete rules: %w", err)
	}

	return nil
}

// queryRules runs a query selecting ruleColumns and scans all rows.
func (s *SQLiteStorage) queryRules(ctx context.Context, query string, args ...any) ([]model.CategoryRule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var rules []model.CategoryRule
	for rows.Next() {
		rule, scanErr := scanRule(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		rules = append(rules, *rule)
	}

	return rules, rows.Err()
}

func scanRule(row scanner) (*model.CategoryRule, error) {
	var rule model.CategoryRule
	var lastMatched sql.NullTime

	err := row.Scan(
		&rule.ID, &rule.UserID, &rule.ProjectID, &rule.RuleType, &rule.Condition,
		&rule.ConfidenceScore, &rule.Accuracy, &rule.MatchCount, &rule.TotalSuggestions,
		&lastMatched, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastMatched.Valid {
		rule.LastMatchedAt = &lastMatched.Time
	}

	return &rule, nil
}

func scanRuleWithProject(row scanner) (*model.CategoryRule, error) {
	var rule model.CategoryRule
	var lastMatched sql.NullTime
	var projectID, projectUserID, projectName sql.NullString
	var projectArchived sql.NullBool
	var projectCreated, projectUpdated sql.NullTime

	err := row.Scan(
		&rule.ID, &rule.UserID, &rule.ProjectID, &rule.RuleType, &rule.Condition,
		&rule.ConfidenceScore, &rule.Accuracy, &rule.MatchCount, &rule.TotalSuggestions,
		&lastMatched, &rule.CreatedAt, &rule.UpdatedAt,
		&projectID, &projectUserID, &projectName, &projectArchived,
		&projectCreated, &projectUpdated,
	)
	if err != nil {
		return nil, err
	}

	if lastMatched.Valid {
		rule.LastMatchedAt = &lastMatched.Time
	}

	if projectID.Valid {
		rule.Project = &model.Project{
			ID:         projectID.String,
			UserID:     projectUserID.String,
			Name:       projectName.String,
			IsArchived: projectArchived.Bool,
			CreatedAt:  projectCreated.Time,
			UpdatedAt:  projectUpdated.Time,
		}
	}

	return &rule, nil
}
