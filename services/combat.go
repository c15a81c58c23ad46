package services

import (
	"errors"
	"log"
	"time"

	"habit-quest-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BossSelectionTarget is how many fightable options the selection
// screen tries to offer before it stops reviving defeated bosses.
const BossSelectionTarget = 4

// CombatService applies damage to bosses on behalf of users, detects
// defeat, and settles rewards exactly once per defeat transition.
//
// Concurrency discipline: every read-decide-write sequence for a
// (user, boss) pair runs under that pair's keyed mutex. The storage
// layer is not versioned — the engine-held lock is the single
// serialization mechanism, and all progress writes go through it.
type CombatService struct {
	DB       *gorm.DB
	Users    *UserService
	Catalog  *BossCatalogService
	Notifier StatsNotifier

	locks *keyedMutex
}

func NewCombatService(db *gorm.DB, users *UserService, catalog *BossCatalogService, notifier StatsNotifier) *CombatService {
	return &CombatService{
		DB:       db,
		Users:    users,
		Catalog:  catalog,
		Notifier: notifier,
		locks:    newKeyedMutex(),
	}
}

func progressKey(userID, bossID string) string {
	return userID + "|" + bossID
}

// ApplyDamage decrements the boss's health for this user and, when the
// health crosses zero, marks the boss defeated and settles rewards.
// Calls against an already-defeated boss are no-ops returning the
// terminal state, which makes retried attacks idempotent.
func (s *CombatService) ApplyDamage(userID, bossID string, amount int) (*models.CombatResult, error) {
	if amount < 0 {
		return nil, ErrNegativeDamage
	}

	user, err := s.Users.ResolveUser(userID)
	if err != nil {
		return nil, err
	}
	boss, err := s.Catalog.GetBoss(bossID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(progressKey(user.ID, boss.ID))
	defer unlock()

	progress, err := s.getOrCreateProgress(user.ID, boss.ID, boss.MaxHealth)
	if err != nil {
		return nil, err
	}

	// Terminal state: damage is not reapplied, rewards are not
	// re-granted.
	if progress.Defeated {
		return combatResult(boss, progress, false), nil
	}

	newHealth := progress.CurrentHealth - amount
	if newHealth < 0 {
		newHealth = 0
	}

	if newHealth > 0 {
		progress.CurrentHealth = newHealth
		progress.LastUpdated = time.Now()
		if err := s.DB.Save(progress).Error; err != nil {
			return nil, storageErr("save combat progress", err)
		}
		return combatResult(boss, progress, false), nil
	}

	// Defeat transition. The progress flip and the reward settlement
	// share one transaction so the boss is never durably marked
	// defeated without the reward applied.
	progress.CurrentHealth = 0
	progress.Defeated = true
	progress.LastUpdated = time.Now()

	// A user can hold fights against several bosses; settlement writes
	// to the shared user row, so those serialize on the user key on
	// top of the pair key already held.
	unlockUser := s.locks.Lock("user|" + user.ID)

	var leveledUp bool
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(progress).Error; err != nil {
			return err
		}
		// The fight is over; release the boss for the next challenger
		// instead of waiting out the session TTL.
		if err := tx.Model(&models.FightSession{}).
			Where("boss_id = ? AND active = ?", boss.ID, true).
			Update("active", false).Error; err != nil {
			return err
		}
		var settleErr error
		leveledUp, settleErr = s.settleRewards(tx, user, boss)
		return settleErr
	})
	unlockUser()
	if err != nil {
		// Roll back the in-memory flip so a retry sees a live boss.
		progress.CurrentHealth = newHealth
		progress.Defeated = false
		if errors.Is(err, ErrNegativeXP) {
			return nil, err
		}
		return nil, storageErr("settle boss defeat", err)
	}

	s.Notifier.PushStatsUpdate(user.Username, user.Gold, user.Level)
	log.Printf("[Combat] %s defeated boss %s: +%d XP, +%d gold, badge=%q",
		user.Username, boss.Name, boss.Rewards.XP, boss.Rewards.Gold, boss.Rewards.Badge)

	return combatResult(boss, progress, leveledUp), nil
}

// AttackActiveBoss resolves the user's currently-engaged boss and
// applies damage to it.
func (s *CombatService) AttackActiveBoss(userID string, amount int) (*models.CombatResult, error) {
	if amount < 0 {
		return nil, ErrNegativeDamage
	}
	user, err := s.Users.ResolveUser(userID)
	if err != nil {
		return nil, err
	}
	if user.CurrentBossID == nil {
		return nil, ErrNoActiveBoss
	}
	return s.ApplyDamage(user.ID, *user.CurrentBossID, amount)
}

// GetActiveBoss returns the user's current fight snapshot without
// applying damage, creating the progress record if this is the first
// look at the fight.
func (s *CombatService) GetActiveBoss(userID string) (*models.CombatResult, error) {
	user, err := s.Users.ResolveUser(userID)
	if err != nil {
		return nil, err
	}
	if user.CurrentBossID == nil {
		return nil, ErrNoActiveBoss
	}
	boss, err := s.Catalog.GetBoss(*user.CurrentBossID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(progressKey(user.ID, boss.ID))
	defer unlock()

	progress, err := s.getOrCreateProgress(user.ID, boss.ID, boss.MaxHealth)
	if err != nil {
		return nil, err
	}
	return combatResult(boss, progress, false), nil
}

// EngageBoss points the user at a boss and resets the pair's fight
// state to a fresh record at full health, whether or not an older
// record exists.
func (s *CombatService) EngageBoss(userID, bossID string) (*models.Boss, error) {
	user, err := s.Users.ResolveUser(userID)
	if err != nil {
		return nil, err
	}
	boss, err := s.Catalog.GetBoss(bossID)
	if err != nil {
		return nil, err
	}
	if user.Level < boss.LevelRequirement {
		return nil, ErrLevelTooLow
	}

	unlock := s.locks.Lock(progressKey(user.ID, boss.ID))
	defer unlock()

	if err := s.resetProgress(user.ID, boss.ID, boss.MaxHealth); err != nil {
		return nil, err
	}

	// Single-column write: the snapshot read above may predate a reward
	// settlement, so the progression columns must not be rewritten here.
	err = s.DB.Model(&models.User{}).Where("id = ?", user.ID).
		Update("current_boss_id", boss.ID).Error
	if err != nil {
		return nil, storageErr("set active boss", err)
	}
	user.CurrentBossID = &boss.ID

	log.Printf("[Combat] %s engaged boss %s", user.Username, boss.Name)
	return boss, nil
}

// InitiateFight is a guard: it reports whether a new fight session may
// start against the boss. The boss must exist and must not already be
// held by an active session.
func (s *CombatService) InitiateFight(bossID, userID string) (bool, error) {
	boss, err := s.Catalog.GetBoss(bossID)
	if err != nil {
		return false, err
	}

	// Count-then-create is not atomic under READ COMMITTED; the fight
	// key lock keeps two racing callers from both counting zero.
	unlock := s.locks.Lock("fight|" + boss.ID)
	defer unlock()

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&models.FightSession{}).
			Where("boss_id = ? AND active = ?", boss.ID, true).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return ErrFightInProgress
		}
		return tx.Create(&models.FightSession{
			ID:     uuid.NewString(),
			BossID: boss.ID,
			UserID: userID,
			Active: true,
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrFightInProgress) {
			return false, ErrFightInProgress
		}
		return false, storageErr("create fight session", err)
	}
	return true, nil
}

// SelectEligibleBosses returns every boss the user's level allows, in
// stable creation order. When fewer than BossSelectionTarget of them
// are still alive for this user, defeated ones are revived in that
// same stable order until the target is met. Defeated bosses beyond
// the target stay defeated and are not returned.
func (s *CombatService) SelectEligibleBosses(userID string) ([]models.BossSummary, error) {
	user, err := s.Users.ResolveUser(userID)
	if err != nil {
		return nil, err
	}
	bosses, err := s.Catalog.ListBosses(user.Level)
	if err != nil {
		return nil, err
	}
	if len(bosses) == 0 {
		return []models.BossSummary{}, nil
	}

	bossIDs := make([]string, len(bosses))
	for i, b := range bosses {
		bossIDs[i] = b.ID
	}
	var records []models.CombatProgress
	if err := s.DB.Where("user_id = ? AND boss_id IN ?", user.ID, bossIDs).
		Find(&records).Error; err != nil {
		return nil, storageErr("fetch combat progress", err)
	}
	progressByBoss := make(map[string]*models.CombatProgress, len(records))
	for i := range records {
		progressByBoss[records[i].BossID] = &records[i]
	}

	var selection []models.BossSummary
	var defeated []models.Boss

	for _, boss := range bosses {
		prog := progressByBoss[boss.ID]
		if prog != nil && prog.Defeated {
			defeated = append(defeated, boss)
			continue
		}
		health := boss.MaxHealth
		if prog != nil {
			health = prog.CurrentHealth
		}
		selection = append(selection, bossSummary(boss, false, health))
	}

	// Backfill by reviving defeated bosses in input order.
	for _, boss := range defeated {
		if len(selection) >= BossSelectionTarget {
			break
		}
		if err := s.ReviveBoss(user.ID, boss.ID); err != nil {
			return nil, err
		}
		selection = append(selection, bossSummary(boss, false, boss.MaxHealth))
		log.Printf("[Combat] revived boss %s for %s", boss.Name, user.Username)
	}

	return selection, nil
}

// ReviveBoss resets a defeated boss back to full health for the user,
// keeping the same boss identity but a fresh fight.
func (s *CombatService) ReviveBoss(userID, bossID string) error {
	boss, err := s.Catalog.GetBoss(bossID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(progressKey(userID, boss.ID))
	defer unlock()

	return s.resetProgress(userID, boss.ID, boss.MaxHealth)
}

// settleRewards grants the defeat payout inside tx: XP folded through
// the leveling curve, gold added, badge added with set semantics. The
// caller pushes the stats notification after the transaction commits.
func (s *CombatService) settleRewards(tx *gorm.DB, user *models.User, boss *models.Boss) (bool, error) {
	reward := computeReward(boss)

	// Re-read inside the transaction: the snapshot taken at the top of
	// ApplyDamage may predate another boss's settlement for this user.
	var fresh models.User
	if err := tx.Where("id = ?", user.ID).First(&fresh).Error; err != nil {
		return false, err
	}
	user.Level = fresh.Level
	user.Experience = fresh.Experience
	user.Gold = fresh.Gold

	level, experience, leveledUp, err := applyExperience(user.Level, user.Experience, reward.XP)
	if err != nil {
		return false, err
	}
	user.Level = level
	user.Experience = experience
	user.Gold += reward.Gold

	// Write only the progression columns. A full-row save would carry
	// the snapshot's other fields (current_boss_id in particular) and
	// overwrite a concurrent engagement change.
	err = tx.Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"level":      user.Level,
			"experience": user.Experience,
			"gold":       user.Gold,
		}).Error
	if err != nil {
		return false, err
	}

	if reward.Badge != "" {
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.UserBadge{ID: uuid.NewString(), UserID: user.ID, Badge: reward.Badge}).Error
		if err != nil {
			return false, err
		}
	}

	return leveledUp, nil
}

// getOrCreateProgress must be called with the pair's key lock held.
func (s *CombatService) getOrCreateProgress(userID, bossID string, maxHealth int) (*models.CombatProgress, error) {
	var progress models.CombatProgress
	err := s.DB.Where("user_id = ? AND boss_id = ?", userID, bossID).First(&progress).Error
	if err == nil {
		return &progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storageErr("fetch combat progress", err)
	}

	progress = models.CombatProgress{
		ID:            uuid.NewString(),
		UserID:        userID,
		BossID:        bossID,
		CurrentHealth: maxHealth,
		Defeated:      false,
		LastUpdated:   time.Now(),
	}
	if err := s.DB.Create(&progress).Error; err != nil {
		return nil, storageErr("create combat progress", err)
	}
	return &progress, nil
}

// resetProgress must be called with the pair's key lock held.
func (s *CombatService) resetProgress(userID, bossID string, maxHealth int) error {
	var progress models.CombatProgress
	err := s.DB.Where("user_id = ? AND boss_id = ?", userID, bossID).First(&progress).Error
	switch {
	case err == nil:
		progress.CurrentHealth = maxHealth
		progress.Defeated = false
		progress.LastUpdated = time.Now()
		if err := s.DB.Save(&progress).Error; err != nil {
			return storageErr("reset combat progress", err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		_, err := s.getOrCreateProgress(userID, bossID, maxHealth)
		return err
	default:
		return storageErr("fetch combat progress", err)
	}
}

func bossSummary(boss models.Boss, defeated bool, currentHealth int) models.BossSummary {
	return models.BossSummary{
		ID:               boss.ID,
		Slug:             boss.Slug,
		Name:             boss.Name,
		MaxHealth:        boss.MaxHealth,
		LevelRequirement: boss.LevelRequirement,
		Rare:             boss.Rare,
		ArtworkURL:       boss.ArtworkURL,
		Defeated:         defeated,
		CurrentHealth:    currentHealth,
	}
}

func combatResult(boss *models.Boss, progress *models.CombatProgress, causedLevelUp bool) *models.CombatResult {
	rewards := boss.Rewards
	return &models.CombatResult{
		BossID:        boss.ID,
		Name:          boss.Name,
		MaxHealth:     boss.MaxHealth,
		CurrentHealth: progress.CurrentHealth,
		Defeated:      progress.Defeated,
		Rare:          boss.Rare,
		Rewards:       &rewards,
		CausedLevelUp: causedLevelUp,
	}
}
