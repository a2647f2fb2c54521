// Package scoring computes per-rule confidence scores and combines them
// into per-project suggestion confidences.
package scoring

import (
	"math"
	"time"

	"github.com/oxleyb/timesage/internal/model"
)

const (
	// accuracyBoostFactor scales how much a rule's historical accuracy
	// amplifies its base confidence.
	accuracyBoostFactor = 0.3

	// recencyBoost rewards rules matched within recencyWindow.
	recencyBoost  = 1.1
	recencyWindow = 7 * 24 * time.Hour

	// stalenessPenalty dampens rules whose last match is older than
	// stalenessAge. Rules that have never matched receive neither factor.
	stalenessPenalty = 0.9
	stalenessAge     = 30 * 24 * time.Hour
)

// RuleConfidence scores a single rule as of now. The result is the rule
// type's fixed weight times the learned base confidence, boosted by
// accuracy and adjusted for recency, hard-capped at 1.0.
func RuleConfidence(rule model.CategoryRule, now time.Time) float64 {
	score := rule.RuleType.Weight() * rule.ConfidenceScore
	score *= 1 + accuracyBoostFactor*rule.Accuracy

	if rule.LastMatchedAt != nil {
		age := now.Sub(*rule.LastMatchedAt)
		switch {
		case age <= recencyWindow:
			score *= recencyBoost
		case age > stalenessAge:
			score *= stalenessPenalty
		}
	}

	return math.Min(score, 1.0)
}

// CombinedConfidence merges independent confidence signals with a noisy-OR:
// 1 - product(1 - c). Corroborating weak signals combine super-linearly
// while the result never exceeds 1.0. An empty input combines to 0.
func CombinedConfidence(confidences []float64) float64 {
	if len(confidences) == 0 {
		return 0
	}

	miss := 1.0
	for _, c := range confidences {
		miss *= 1 - c
	}

	return 1 - miss
}
