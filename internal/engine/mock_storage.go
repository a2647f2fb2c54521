package engine

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/oxleyb/timesage/internal/common"
	"github.com/oxleyb/timesage/internal/model"
	"github.com/oxleyb/timesage/internal/service"
)

// MockStorage is an in-memory test implementation of service.Storage. It
// records per-method call counts so tests can assert query discipline, and
// FailWith forces every method to return the given error.
type MockStorage struct {
	FailWith error
	events   map[string]model.Event
	projects map[string]model.Project
	rules    map[model.RuleKey]*model.CategoryRule
	Calls    map[string]int
	logs     []model.SuggestionLog
	nextID   int
	mu       sync.Mutex
}

// Ensure MockStorage implements the Storage interface.
var _ service.Storage = (*MockStorage)(nil)

// NewMockStorage creates an empty in-memory storage.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		events:   make(map[string]model.Event),
		projects: make(map[string]model.Project),
		rules:    make(map[model.RuleKey]*model.CategoryRule),
		Calls:    make(map[string]int),
	}
}

// CallCount returns how many times the named method was invoked.
func (m *MockStorage) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

func (m *MockStorage) called(method string) error {
	m.Calls[method]++
	return m.FailWith
}

// SeedProject adds a project directly to the store.
func (m *MockStorage) SeedProject(project model.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[project.ID] = project
}

// SeedEvent adds an event directly to the store.
func (m *MockStorage) SeedEvent(event model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.ID] = event
}

// SeedRule adds a rule directly to the store, assigning an ID if absent.
func (m *MockStorage) SeedRule(rule model.CategoryRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rule.ID == "" {
		m.nextID++
		rule.ID = fmt.Sprintf("rule-%d", m.nextID)
	}
	m.rules[rule.Key()] = &rule
}

// RuleByKey returns a copy of the stored rule for assertions, or nil.
func (m *MockStorage) RuleByKey(key model.RuleKey) *model.CategoryRule {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule, ok := m.rules[key]
	if !ok {
		return nil
	}
	clone := *rule
	return &clone
}

func (m *MockStorage) SaveEvents(_ context.Context, events []model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("SaveEvents"); err != nil {
		return err
	}
	for _, event := range events {
		m.events[event.ID] = event
	}
	return nil
}

func (m *MockStorage) GetEventByID(_ context.Context, userID, eventID string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("GetEventByID"); err != nil {
		return nil, err
	}
	event, ok := m.events[eventID]
	if !ok || event.UserID != userID || event.IsDeleted() {
		return nil, common.ErrNotFound
	}
	clone := event
	return &clone, nil
}

func (m *MockStorage) GetEventsByIDs(_ context.Context, userID string, eventIDs []string) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("GetEventsByIDs"); err != nil {
		return nil, err
	}
	var events []model.Event
	for _, id := range eventIDs {
		event, ok := m.events[id]
		if !ok || event.UserID != userID || event.IsDeleted() {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func (m *MockStorage) SetEventProject(_ context.Context, userID, eventID string, projectID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("SetEventProject"); err != nil {
		return err
	}
	event, ok := m.events[eventID]
	if !ok || event.UserID != userID {
		return common.ErrNotFound
	}
	event.ProjectID = projectID
	m.events[eventID] = event
	return nil
}

func (m *MockStorage) CountCategorizedEvents(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("CountCategorizedEvents"); err != nil {
		return 0, err
	}
	count := 0
	for _, event := range m.events {
		if event.UserID == userID && event.IsCategorized() && !event.IsDeleted() {
			count++
		}
	}
	return count, nil
}

func (m *MockStorage) CountCategorizedEventsInWindow(_ context.Context, userID string, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("CountCategorizedEventsInWindow"); err != nil {
		return 0, err
	}
	count := 0
	for _, event := range m.events {
		if event.UserID == userID && event.IsCategorized() && !event.IsDeleted() &&
			!event.StartTime.Before(from) && event.StartTime.Before(to) {
			count++
		}
	}
	return count, nil
}

func (m *MockStorage) CountEventsInWindow(_ context.Context, userID string, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("CountEventsInWindow"); err != nil {
		return 0, err
	}
	count := 0
	for _, event := range m.events {
		if event.UserID == userID && !event.IsDeleted() &&
			!event.StartTime.Before(from) && event.StartTime.Before(to) {
			count++
		}
	}
	return count, nil
}

func (m *MockStorage) CreateProject(_ context.Context, userID, name string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("CreateProject"); err != nil {
		return nil, err
	}
	m.nextID++
	project := model.Project{
		ID:        fmt.Sprintf("project-%d", m.nextID),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.projects[project.ID] = project
	return &project, nil
}

func (m *MockStorage) GetProjectByID(_ context.Context, projectID string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("GetProjectByID"); err != nil {
		return nil, err
	}
	project, ok := m.projects[projectID]
	if !ok {
		return nil, common.ErrNotFound
	}
	clone := project
	return &clone, nil
}

func (m *MockStorage) GetProjectsForUser(_ context.Context, userID string) ([]model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("GetProjectsForUser"); err != nil {
		return nil, err
	}
	var projects []model.Project
	for _, project := range m.projects {
		if project.UserID == userID {
			projects = append(projects, project)
		}
	}
	return projects, nil
}

func (m *MockStorage) SetProjectArchived(_ context.Context, projectID string, archived bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("SetProjectArchived"); err != nil {
		return err
	}
	project, ok := m.projects[projectID]
	if !ok {
		return common.ErrNotFound
	}
	project.IsArchived = archived
	m.projects[projectID] = project
	return nil
}

func (m *MockStorage) GetActiveRulesForUser(_ context.Context, userID string) ([]model.CategoryRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("GetActiveRulesForUser"); err != nil {
		return nil, err
	}
	var rules []model.CategoryRule
	for _, rule := range m.rules {
		if rule.UserID != userID {
			continue
		}
		clone := *rule
		if project, ok := m.projects[rule.ProjectID]; ok {
			p := project
			clone.Project = &p
		}
		rules = append(rules, clone)
	}
	return rules, nil
}

func (m *MockStorage) GetRuleByKey(_ context.Context, key model.RuleKey) (*model.CategoryRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("GetRuleByKey"); err != nil {
		return nil, err
	}
	rule, ok := m.rules[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	clone := *rule
	return &clone, nil
}

func (m *MockStorage) StrengthenRule(_ context.Context, key model.RuleKey, reinforcement service.RuleReinforcement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("StrengthenRule"); err != nil {
		return err
	}

	if rule, ok := m.rules[key]; ok {
		rule.ConfidenceScore = math.Min(rule.ConfidenceScore+reinforcement.Increment, reinforcement.Cap)
		rule.MatchCount++
		rule.UpdatedAt = time.Now()
		return nil
	}

	m.nextID++
	m.rules[key] = &model.CategoryRule{
		ID:              fmt.Sprintf("rule-%d", m.nextID),
		UserID:          key.UserID,
		ProjectID:       key.ProjectID,
		RuleType:        key.RuleType,
		Condition:       key.Condition,
		ConfidenceScore: reinforcement.InitialConfidence,
		MatchCount:      1,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	return nil
}

func (m *MockStorage) PenalizeRule(_ context.Context, key model.RuleKey, penalty service.RulePenalty) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("PenalizeRule"); err != nil {
		return 0, err
	}

	rule, ok := m.rules[key]
	if !ok {
		return 0, nil
	}

	rule.ConfidenceScore = math.Max(rule.ConfidenceScore-penalty.Decrement, penalty.Floor)
	rule.Accuracy = float64(rule.MatchCount) / float64(rule.TotalSuggestions+1)
	rule.TotalSuggestions++
	rule.UpdatedAt = time.Now()
	return 1, nil
}

func (m *MockStorage) RecordRuleOutcome(_ context.Context, ruleID string, accepted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("RecordRuleOutcome"); err != nil {
		return err
	}

	for _, rule := range m.rules {
		if rule.ID != ruleID {
			continue
		}
		if accepted {
			rule.MatchCount++
		}
		rule.TotalSuggestions++
		rule.Accuracy = float64(rule.MatchCount) / float64(rule.TotalSuggestions)
		now := time.Now()
		rule.LastMatchedAt = &now
		rule.UpdatedAt = now
		return nil
	}
	return common.ErrNotFound
}

func (m *MockStorage) FindPruneCandidates(_ context.Context, userID string, maxAccuracy float64, minSuggestions int) (*service.PruneCandidates, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("FindPruneCandidates"); err != nil {
		return nil, err
	}

	candidates := &service.PruneCandidates{}
	for _, rule := range m.rules {
		if rule.UserID != userID {
			continue
		}
		if _, ok := m.projects[rule.ProjectID]; !ok {
			candidates.OrphanedProject = append(candidates.OrphanedProject, *rule)
			continue
		}
		if rule.TotalSuggestions >= minSuggestions && rule.Accuracy < maxAccuracy {
			candidates.LowAccuracy = append(candidates.LowAccuracy, *rule)
		}
	}
	return candidates, nil
}

func (m *MockStorage) CountRulesForProject(_ context.Context, projectID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("CountRulesForProject"); err != nil {
		return 0, err
	}
	count := 0
	for _, rule := range m.rules {
		if rule.ProjectID == projectID {
			count++
		}
	}
	return count, nil
}

func (m *MockStorage) CountRulesCreatedSince(_ context.Context, userID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("CountRulesCreatedSince"); err != nil {
		return 0, err
	}
	count := 0
	for _, rule := range m.rules {
		if rule.UserID == userID && !rule.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *MockStorage) DeleteRulesByIDs(_ context.Context, ruleIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("DeleteRulesByIDs"); err != nil {
		return err
	}
	doomed := make(map[string]struct{}, len(ruleIDs))
	for _, id := range ruleIDs {
		doomed[id] = struct{}{}
	}
	for key, rule := range m.rules {
		if _, ok := doomed[rule.ID]; ok {
			delete(m.rules, key)
		}
	}
	return nil
}

func (m *MockStorage) AppendSuggestionLog(_ context.Context, entry model.SuggestionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("AppendSuggestionLog"); err != nil {
		return err
	}
	entry.ID = int64(len(m.logs) + 1)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.logs = append(m.logs, entry)
	return nil
}

func (m *MockStorage) FindSuggestionLogs(_ context.Context, userID string, from, to time.Time) ([]model.SuggestionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.called("FindSuggestionLogs"); err != nil {
		return nil, err
	}
	var logs []model.SuggestionLog
	for _, entry := range m.logs {
		if entry.UserID == userID && !entry.CreatedAt.Before(from) && entry.CreatedAt.Before(to) {
			logs = append(logs, entry)
		}
	}
	return logs, nil
}

func (m *MockStorage) Migrate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.called("Migrate")
}

func (m *MockStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.called("Close")
}
