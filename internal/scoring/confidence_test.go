package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oxleyb/timesage/internal/model"
)

func TestRuleConfidence(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-2 * 24 * time.Hour)
	stale := now.Add(-45 * 24 * time.Hour)
	middle := now.Add(-15 * 24 * time.Hour)

	tests := []struct {
		name string
		rule model.CategoryRule
		want float64
	}{
		{
			name: "base score with no history",
			rule: model.CategoryRule{
				RuleType:        model.RuleTypeTitleKeyword,
				ConfidenceScore: 0.8,
			},
			want: 0.5 * 0.8,
		},
		{
			name: "accuracy boosts the base score",
			rule: model.CategoryRule{
				RuleType:        model.RuleTypeTitleKeyword,
				ConfidenceScore: 0.8,
				Accuracy:        0.9,
			},
			want: 0.5 * 0.8 * (1 + 0.3*0.9),
		},
		{
			name: "recent match earns the recency boost",
			rule: model.CategoryRule{
				RuleType:        model.RuleTypeAttendeeDomain,
				ConfidenceScore: 0.7,
				LastMatchedAt:   &recent,
			},
			want: 0.7 * 0.7 * 1.1,
		},
		{
			name: "stale match is penalized",
			rule: model.CategoryRule{
				RuleType:        model.RuleTypeAttendeeDomain,
				ConfidenceScore: 0.7,
				LastMatchedAt:   &stale,
			},
			want: 0.7 * 0.7 * 0.9,
		},
		{
			name: "match between windows gets neither factor",
			rule: model.CategoryRule{
				RuleType:        model.RuleTypeAttendeeDomain,
				ConfidenceScore: 0.7,
				LastMatchedAt:   &middle,
			},
			want: 0.7 * 0.7,
		},
		{
			name: "never matched gets neither factor",
			rule: model.CategoryRule{
				RuleType:        model.RuleTypeRecurringEvent,
				ConfidenceScore: 1.0,
			},
			want: 1.0,
		},
		{
			name: "score is hard-capped at one",
			rule: model.CategoryRule{
				RuleType:        model.RuleTypeRecurringEvent,
				ConfidenceScore: 0.95,
				Accuracy:        1.0,
				LastMatchedAt:   &recent,
			},
			want: 1.0,
		},
		{
			name: "unknown rule type scores zero",
			rule: model.CategoryRule{
				RuleType:        model.RuleType("MYSTERY"),
				ConfidenceScore: 0.95,
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RuleConfidence(tt.rule, now), 1e-9)
		})
	}
}

func TestCombinedConfidence(t *testing.T) {
	tests := []struct {
		name        string
		confidences []float64
		want        float64
	}{
		{
			name:        "empty combines to zero",
			confidences: nil,
			want:        0,
		},
		{
			name:        "single signal passes through",
			confidences: []float64{0.7},
			want:        0.7,
		},
		{
			name:        "two signals corroborate super-linearly",
			confidences: []float64{0.8, 0.6},
			want:        0.92,
		},
		{
			name:        "certain signal dominates",
			confidences: []float64{1.0, 0.2},
			want:        1.0,
		},
		{
			name:        "zeros contribute nothing",
			confidences: []float64{0, 0, 0.5},
			want:        0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CombinedConfidence(tt.confidences), 1e-9)
		})
	}
}

func TestCombinedConfidenceMonotonic(t *testing.T) {
	base := CombinedConfidence([]float64{0.4, 0.3})
	more := CombinedConfidence([]float64{0.4, 0.3, 0.2})
	assert.Greater(t, more, base)
	assert.LessOrEqual(t, more, 1.0)
}
