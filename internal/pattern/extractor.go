// Package pattern extracts typed matching signals from calendar events.
// Extraction is pure and deterministic: the same event always yields the
// same patterns, so conditions learned at feedback time match conditions
// queried at suggestion time.
package pattern

import (
	"strings"
	"unicode"

	"github.com/oxleyb/timesage/internal/model"
)

const (
	// maxTitleKeywords bounds how many keywords a single title contributes.
	maxTitleKeywords = 3

	// minKeywordLength drops short tokens that carry little signal.
	minKeywordLength = 3
)

// stopWords excludes articles, prepositions, and meeting-cadence words from
// title keywords. Tokens shorter than minKeywordLength are dropped by the
// length filter and do not need to appear here.
var stopWords = map[string]struct{}{
	"the":       {},
	"and":       {},
	"for":       {},
	"with":      {},
	"from":      {},
	"into":      {},
	"about":     {},
	"over":      {},
	"under":     {},
	"meeting":   {},
	"call":      {},
	"sync":      {},
	"chat":      {},
	"daily":     {},
	"weekly":    {},
	"biweekly":  {},
	"monthly":   {},
	"quarterly": {},
}

// ExtractTitleKeywords normalizes an event title into at most three
// deduplicated lowercase keywords. Missing or unusable titles yield an
// empty slice; the function never fails.
func ExtractTitleKeywords(title string) []string {
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, title)

	var keywords []string
	seen := make(map[string]struct{})

	for _, word := range strings.Fields(normalized) {
		if len(word) < minKeywordLength {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}

		keywords = append(keywords, word)
		if len(keywords) == maxTitleKeywords {
			break
		}
	}

	return keywords
}

// ExtractAttendeePatterns produces one ATTENDEE_EMAIL pattern per unique
// normalized attendee email and one ATTENDEE_DOMAIN pattern per unique
// domain. Malformed entries are silently skipped.
func ExtractAttendeePatterns(attendees []model.Attendee) []model.Pattern {
	var patterns []model.Pattern

	seenEmails := make(map[string]struct{})
	seenDomains := make(map[string]struct{})
	var domains []string

	for _, attendee := range attendees {
		email, domain, ok := normalizeEmail(attendee.Email)
		if !ok {
			continue
		}

		if _, dup := seenEmails[email]; dup {
			continue
		}
		seenEmails[email] = struct{}{}

		patterns = append(patterns, model.Pattern{
			RuleType:  model.RuleTypeAttendeeEmail,
			Condition: email,
		})

		if _, dup := seenDomains[domain]; !dup {
			seenDomains[domain] = struct{}{}
			domains = append(domains, domain)
		}
	}

	for _, domain := range domains {
		patterns = append(patterns, model.Pattern{
			RuleType:  model.RuleTypeAttendeeDomain,
			Condition: domain,
		})
	}

	return patterns
}

// ExtractPatternsFromEvent extracts every matchable signal from an event:
// title keywords, attendee emails and domains, the calendar identifier, and
// the recurring series identifier. Malformed input degrades to fewer
// patterns, never an error.
func ExtractPatternsFromEvent(event model.Event) []model.Pattern {
	var patterns []model.Pattern

	for _, keyword := range ExtractTitleKeywords(event.Title) {
		patterns = append(patterns, model.Pattern{
			RuleType:  model.RuleTypeTitleKeyword,
			Condition: keyword,
		})
	}

	patterns = append(patterns, ExtractAttendeePatterns(event.Attendees)...)

	if calendarID := strings.TrimSpace(event.CalendarID); calendarID != "" {
		patterns = append(patterns, model.Pattern{
			RuleType:  model.RuleTypeCalendarName,
			Condition: calendarID,
		})
	}

	if recurringID := strings.TrimSpace(event.RecurringEventID); recurringID != "" {
		patterns = append(patterns, model.Pattern{
			RuleType:  model.RuleTypeRecurringEvent,
			Condition: recurringID,
		})
	}

	return patterns
}

// normalizeEmail lowercases and trims an email address and splits out its
// domain. It reports false for anything without exactly one @ separating a
// non-empty local part and domain.
func normalizeEmail(email string) (normalized, domain string, ok bool) {
	normalized = strings.ToLower(strings.TrimSpace(email))

	at := strings.Index(normalized, "@")
	if at <= 0 || at != strings.LastIndex(normalized, "@") || at == len(normalized)-1 {
		return "", "", false
	}

	return normalized, normalized[at+1:], true
}
