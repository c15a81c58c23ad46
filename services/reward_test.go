package services

import (
	"testing"

	"habit-quest-system/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeRewardIsDirectProjection(t *testing.T) {
	boss := &models.Boss{
		Name:      "Dust Wyrm",
		MaxHealth: 100,
		Rewards:   models.BossRewards{XP: 50, Gold: 100, Badge: "Boss Slayer"},
	}

	reward := computeReward(boss)
	assert.Equal(t, 50, reward.XP)
	assert.Equal(t, 100, reward.Gold)
	assert.Equal(t, "Boss Slayer", reward.Badge)
}

func TestComputeRewardWithoutBadge(t *testing.T) {
	boss := &models.Boss{Name: "Mud Crab", MaxHealth: 10}

	reward := computeReward(boss)
	assert.Zero(t, reward.XP)
	assert.Zero(t, reward.Gold)
	assert.Empty(t, reward.Badge)
}
