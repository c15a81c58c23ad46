package models

import (
	"time"
)

// Task is a one-off or daily to-do. Completion is guarded to once per
// calendar day via LastCompletedDate (date string, local server time);
// listing on a later day clears the stale completed flag.
type Task struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"index;not null" json:"user_id"`

	Title             string     `gorm:"not null" json:"title"`
	Completed         bool       `gorm:"default:false" json:"completed"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	LastCompletedDate string     `gorm:"type:varchar(10)" json:"last_completed_date,omitempty"`

	Timestamps
}
