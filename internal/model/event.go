// Package model defines the core domain models used throughout the application.
package model

import "time"

// Attendee represents a single calendar event attendee.
type Attendee struct {
	Email string `json:"email"`
}

// Event represents a calendar event synced from an external calendar.
type Event struct {
	StartTime        time.Time
	EndTime          time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
	ProjectID        *string
	ID               string
	UserID           string
	Title            string
	CalendarID       string
	RecurringEventID string
	Attendees        []Attendee
}

// IsCategorized reports whether the event has been assigned to a project.
func (e *Event) IsCategorized() bool {
	return e.ProjectID != nil && *e.ProjectID != ""
}

// IsDeleted reports whether the event has been soft-deleted.
func (e *Event) IsDeleted() bool {
	return e.DeletedAt != nil
}
