package services

import (
	"habit-quest-system/models"
)

// computeReward projects a boss definition into the reward granted on
// its defeat. A direct copy of the configured fields: no randomness,
// no level-based multipliers. An empty Badge means the boss grants no
// badge.
func computeReward(boss *models.Boss) models.BossRewards {
	return models.BossRewards{
		XP:    boss.Rewards.XP,
		Gold:  boss.Rewards.Gold,
		Badge: boss.Rewards.Badge,
	}
}
