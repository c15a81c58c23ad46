package models

import (
	"time"
)

// CombatProgress is the mutable per-(user,boss) fight state. One live
// record per pair; re-engaging a boss resets the record to full
// health. Once Defeated is set the record is terminal (health stays 0)
// until an explicit revive.
type CombatProgress struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"index:idx_user_boss,unique;not null" json:"user_id"`
	BossID string `gorm:"index:idx_user_boss,unique;not null" json:"boss_id"`

	CurrentHealth int       `gorm:"not null" json:"current_health"`
	Defeated      bool      `gorm:"default:false" json:"defeated"`
	LastUpdated   time.Time `json:"last_updated"`

	Timestamps
}

// CombatResult is returned from every damage application. Rewards is
// the boss's configured payout; it is granted only on the defeat
// transition itself, and CausedLevelUp is true only on the call that
// made that transition.
type CombatResult struct {
	BossID        string       `json:"boss_id"`
	Name          string       `json:"name"`
	MaxHealth     int          `json:"max_health"`
	CurrentHealth int          `json:"current_health"`
	Defeated      bool         `json:"defeated"`
	Rare          bool         `json:"rare"`
	Rewards       *BossRewards `json:"rewards,omitempty"`
	CausedLevelUp bool         `json:"caused_level_up"`
}

// FightSession marks a boss as engaged in an active, locked fight.
// At most one active session per boss; stale sessions are cleared by
// the reaper worker.
type FightSession struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	BossID    string    `gorm:"index;not null" json:"boss_id"`
	UserID    string    `gorm:"index" json:"user_id"`
	Active    bool      `gorm:"index" json:"active"`
	StartedAt time.Time `gorm:"autoCreateTime" json:"started_at"`
}
