package models

import (
	"time"
)

// BossStatus indicates the publishing status of a boss definition
type BossStatus string

const (
	BossStatusDraft     BossStatus = "draft"
	BossStatusPublished BossStatus = "published"
	BossStatusArchived  BossStatus = "archived"
)

// BossRewards is the configured payout for defeating the boss.
// Embedded into Boss; granted at most once per defeat transition.
type BossRewards struct {
	XP    int    `json:"xp" gorm:"column:reward_xp;default:0"`
	Gold  int    `json:"gold" gorm:"column:reward_gold;default:0"`
	Badge string `json:"badge,omitempty" gorm:"column:reward_badge"`
}

// Boss is a content-defined adversary. Immutable during combat;
// per-user fight state lives in CombatProgress, never here.
type Boss struct {
	ID   string `gorm:"primaryKey;type:uuid" json:"id"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`
	Name string `gorm:"not null" json:"name"`

	MaxHealth        int `gorm:"not null" json:"max_health"`
	LevelRequirement int `gorm:"default:0" json:"level_requirement"`

	Rewards BossRewards `gorm:"embedded" json:"rewards"`

	Rare       bool       `gorm:"default:false" json:"rare"`
	ArtworkURL string     `gorm:"type:text" json:"artwork_url,omitempty"`
	Status     BossStatus `gorm:"type:varchar(16);not null;default:'draft'" json:"status"`
	PublishAt  *time.Time `json:"publish_at,omitempty"`

	Timestamps
}

// BossSummary is the selection-screen projection of a Boss.
type BossSummary struct {
	ID               string `json:"id"`
	Slug             string `json:"slug"`
	Name             string `json:"name"`
	MaxHealth        int    `json:"max_health"`
	LevelRequirement int    `json:"level_requirement"`
	Rare             bool   `json:"rare"`
	ArtworkURL       string `json:"artwork_url,omitempty"`
	Defeated         bool   `json:"defeated"`
	CurrentHealth    int    `json:"current_health"`
}
