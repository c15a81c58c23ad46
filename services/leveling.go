package services

// Leveling curve: leaving level L costs exactly 100*L XP, so level
// 1→2 costs 100, 2→3 costs 200, and so on.
const BaseXPPerLevel = 100

// xpForNextLevel returns the XP required to leave currentLevel.
func xpForNextLevel(currentLevel int) int {
	if currentLevel < 1 {
		currentLevel = 1
	}
	return BaseXPPerLevel * currentLevel
}

// applyExperience folds an XP gain into (level, experience). Surplus
// XP carries into the next level, so a single large gain can jump
// several levels. Pure: no clock, no storage, no randomness.
func applyExperience(level, experience, gain int) (newLevel, newExperience int, leveledUp bool, err error) {
	if gain < 0 {
		return level, experience, false, ErrNegativeXP
	}
	if level < 1 {
		level = 1
	}
	if experience < 0 {
		experience = 0
	}

	experience += gain
	for experience >= xpForNextLevel(level) {
		experience -= xpForNextLevel(level)
		level++
		leveledUp = true
	}
	return level, experience, leveledUp, nil
}
