package models

// HabitFrequency is how often a habit is expected to be completed.
// Defaults are applied explicitly at creation time, never deep in
// business logic.
type HabitFrequency string

const (
	HabitFrequencyDaily  HabitFrequency = "daily"
	HabitFrequencyWeekly HabitFrequency = "weekly"
)

// HabitDifficulty scales how rewarding a habit feels client-side.
type HabitDifficulty string

const (
	HabitDifficultyEasy   HabitDifficulty = "easy"
	HabitDifficultyMedium HabitDifficulty = "medium"
	HabitDifficultyHard   HabitDifficulty = "hard"
)

// Habit is a recurring practice. Each completion bumps the streak
// counter; completion is guarded to once per day like tasks.
type Habit struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"index;not null" json:"user_id"`

	Title             string          `gorm:"not null" json:"title"`
	Frequency         HabitFrequency  `gorm:"type:varchar(16);not null;default:'daily'" json:"frequency"`
	Difficulty        HabitDifficulty `gorm:"type:varchar(16);not null;default:'medium'" json:"difficulty"`
	Streak            int             `gorm:"default:0" json:"streak"`
	LastCompletedDate string          `gorm:"type:varchar(10)" json:"last_completed_date,omitempty"`

	Timestamps
}
