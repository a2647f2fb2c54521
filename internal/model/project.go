package model

import "time"

// Project represents a user-defined project that events are categorized into.
type Project struct {
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ID         string
	UserID     string
	Name       string
	IsArchived bool
}
