package models

import (
	"time"

	"gorm.io/gorm"
)

// User owns the progression stats (experience/level/gold). Combat
// rewards are folded in exclusively by the combat engine; other
// subsystems read but never write these fields directly.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`

	Level      int `gorm:"default:1" json:"level"`
	Experience int `gorm:"default:0" json:"experience"`
	Gold       int `gorm:"default:0" json:"gold"`
	Streak     int `gorm:"default:0" json:"streak"`

	CurrentBossID *string `gorm:"index" json:"current_boss_id,omitempty"`

	Badges []UserBadge `gorm:"foreignKey:UserID" json:"badges,omitempty"`

	Timestamps
}

// UserBadge is one earned badge. The unique (user_id, badge) index
// gives set semantics: re-awarding an owned badge is a no-op.
type UserBadge struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"index:idx_user_badge,unique;not null" json:"user_id"`
	Badge     string    `gorm:"index:idx_user_badge,unique;not null" json:"badge"`
	AwardedAt time.Time `gorm:"autoCreateTime" json:"awarded_at"`
}

// UserStatsUpdate is pushed to live clients after progression changes.
type UserStatsUpdate struct {
	Username string `json:"username"`
	Gold     int    `json:"gold"`
	Level    int    `json:"level"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
