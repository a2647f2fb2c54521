package scoring

import (
	"sort"
	"time"

	"github.com/oxleyb/timesage/internal/model"
)

// ScoredRule pairs a matched rule with its computed confidence.
type ScoredRule struct {
	Rule       model.CategoryRule
	Confidence float64
}

// ProjectScore is the combined confidence of every rule supporting one
// project, carrying the contributing rules for caller-facing reasoning.
type ProjectScore struct {
	Project    *model.Project
	ProjectID  string
	Rules      []model.CategoryRule
	Confidence float64
}

// AggregateByProject groups scored rules by project, combines each group
// with a noisy-OR, drops projects below minConfidence, and returns at most
// limit entries sorted by confidence descending. Equal confidences are
// broken by the recency of each project's most recent contributing match.
func AggregateByProject(scored []ScoredRule, minConfidence float64, limit int) []ProjectScore {
	groups := make(map[string][]ScoredRule)
	var order []string

	for _, sr := range scored {
		projectID := sr.Rule.ProjectID
		if _, seen := groups[projectID]; !seen {
			order = append(order, projectID)
		}
		groups[projectID] = append(groups[projectID], sr)
	}

	var results []ProjectScore
	for _, projectID := range order {
		group := groups[projectID]

		confidences := make([]float64, len(group))
		rules := make([]model.CategoryRule, len(group))
		for i, sr := range group {
			confidences[i] = sr.Confidence
			rules[i] = sr.Rule
		}

		combined := CombinedConfidence(confidences)
		if combined < minConfidence {
			continue
		}

		results = append(results, ProjectScore{
			ProjectID:  projectID,
			Project:    group[0].Rule.Project,
			Rules:      rules,
			Confidence: combined,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return moreRecentMatch(results[i].Rules, results[j].Rules)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results
}

// moreRecentMatch reports whether rules a contain a more recent match than
// rules b. A project with any matched rule beats one with none.
func moreRecentMatch(a, b []model.CategoryRule) bool {
	latestA := latestMatch(a)
	latestB := latestMatch(b)

	if latestA == nil {
		return false
	}
	if latestB == nil {
		return true
	}
	return latestA.After(*latestB)
}

func latestMatch(rules []model.CategoryRule) *time.Time {
	var latest *time.Time
	for _, rule := range rules {
		if rule.LastMatchedAt == nil {
			continue
		}
		if latest == nil || rule.LastMatchedAt.After(*latest) {
			latest = rule.LastMatchedAt
		}
	}
	return latest
}
