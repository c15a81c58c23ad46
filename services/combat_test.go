package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"habit-quest-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// recordingNotifier captures stats pushes so tests can assert on
// settlement side effects without a live SSE client.
type recordingNotifier struct {
	mu     sync.Mutex
	pushes []models.UserStatsUpdate
}

func (r *recordingNotifier) PushStatsUpdate(username string, gold, level int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, models.UserStatsUpdate{Username: username, Gold: gold, Level: level})
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pushes)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection: in-memory sqlite is not safe for concurrent
	// writers, and the engine serializes on its own locks anyway.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.UserBadge{},
		&models.Boss{},
		&models.CombatProgress{},
		&models.FightSession{},
		&models.Task{},
		&models.Habit{},
	))
	return db
}

type combatHarness struct {
	db       *gorm.DB
	combat   *CombatService
	users    *UserService
	catalog  *BossCatalogService
	notifier *recordingNotifier
}

func newCombatHarness(t *testing.T) *combatHarness {
	t.Helper()
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	users := NewUserService(db, notifier)
	catalog := NewBossCatalogService(db)
	combat := NewCombatService(db, users, catalog, notifier)
	return &combatHarness{db: db, combat: combat, users: users, catalog: catalog, notifier: notifier}
}

func (h *combatHarness) seedUser(t *testing.T, username string, level, experience int) *models.User {
	t.Helper()
	user := models.User{
		ID:         uuid.NewString(),
		Username:   username,
		Email:      username + "@example.com",
		Level:      level,
		Experience: experience,
	}
	require.NoError(t, h.db.Create(&user).Error)
	return &user
}

func (h *combatHarness) seedBoss(t *testing.T, name string, maxHealth, levelReq int, rewards models.BossRewards, order int) *models.Boss {
	t.Helper()
	boss := models.Boss{
		ID:               uuid.NewString(),
		Slug:             fmt.Sprintf("%s-%d", name, order),
		Name:             name,
		MaxHealth:        maxHealth,
		LevelRequirement: levelReq,
		Rewards:          rewards,
		Status:           models.BossStatusPublished,
	}
	boss.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(order) * time.Minute)
	require.NoError(t, h.db.Create(&boss).Error)
	return &boss
}

func (h *combatHarness) progress(t *testing.T, userID, bossID string) *models.CombatProgress {
	t.Helper()
	var progress models.CombatProgress
	require.NoError(t, h.db.Where("user_id = ? AND boss_id = ?", userID, bossID).First(&progress).Error)
	return &progress
}

func TestApplyDamageDecrementsHealth(t *testing.T) {
	h := newCombatHarness(t)
	user := h.seedUser(t, "alice", 1, 0)
	boss := h.seedBoss(t, "Dust Wyrm", 100, 0, models.BossRewards{XP: 50, Gold: 100, Badge: "Boss Slayer"}, 0)

	result, err := h.combat.ApplyDamage(user.ID, boss.ID, 30)
	require.NoError(t, err)

	assert.Equal(t, 70, result.CurrentHealth)
	assert.False(t, result.Defeated)
	assert.False(t, result.CausedLevelUp)
	assert.Equal(t, 70, h.progress(t, user.ID, boss.ID).CurrentHealth)
}

func TestApplyDamageClampsHealthAtZero(t *testing.T) {
	h := newCombatHarness(t)
	user := h.seedUser(t, "alice", 1, 0)
	boss := h.seedBoss(t, "Dust Wyrm", 100, 0, models.BossRewards{XP: 10}, 0)

	result, err := h.combat.ApplyDamage(user.ID, boss.ID, 150)
	require.NoError(t, err)

	assert.Equal(t, 0, result.CurrentHealth)
	assert.True(t, result.Defeated)
}

func TestApplyDamageRejectsNegativeAmount(t *testing.T) {
	h := newCombatHarness(t)
	user := h.seedUser(t, "alice", 1, 0)
	boss := h.seedBoss(t, "Dust Wyrm", 100, 0, models.BossRewards{}, 0)

	_, err := h.combat.ApplyDamage(user.ID, boss.ID, 40)
	require.NoError(t, err)

	_, err = h.combat.ApplyDamage(user.ID, boss.ID, -5)
	require.ErrorIs(t, err, ErrNegativeDamage)

	// No mutation happened before the rejection.
	assert.Equal(t, 60, h.progress(t, user.ID, boss.ID).CurrentHealth)
}

func TestApplyDamageUnknownBoss(t *testing.T) {
	h := newCombatHarness(t)
	user := h.seedUser(t, "alice", 1, 0)

	_, err := h.combat.ApplyDamage(user.ID, uuid.NewString(), 10)
	require.ErrorIs(t, err, ErrBossNotFound)
}

func TestDefeatSettlesRewardsExactlyOnce(t *testing.T) {
	h := newCombatHarness(t)
	user := h.seedUser(t, "alice", 1, 90)
	boss := h.seedBoss(t, "Dust Wyrm", 100, 0, models.BossRewards{XP: 210, Gold: 100, Badge: "Boss Slayer"}, 0)

	result, err := h.combat.ApplyDamage(user.ID, boss.ID, 100)
	require.NoError(t, err)
	assert.True(t, result.Defeated)
	assert.True(t, result.CausedLevelUp)

	var updated models.User
	require.NoError(t, h.db.First(&updated, "id = ?", user.ID).Error)
	assert.Equal(t, 3, updated.Level) // 90+210 → level 3, 0 surplus
	assert.Equal(t, 0, updated.Experience)
	assert.Equal(t, 100, updated.Gold)

	// Further attacks are no-ops on a dead boss.
	again, err := h.combat.ApplyDamage(user.ID, boss.ID, 9999)
	require.NoError(t, err)
	assert.True(t, again.Defeated)
	assert.Equal(t, 0, again.CurrentHealth)
	assert.False(t, again.CausedLevelUp)

	require.NoError(t, h.db.First(&updated, "id = ?", user.ID).Error)
	assert.Equal(t, 100, updated.Gold)

	var badgeCount int64
	h.db.Model(&models.UserBadge{}).Where("user_id = ? AND badge = ?", user.ID, "Boss Slayer").Count(&badgeCount)
	assert.EqualValues(t, 1, badgeCount)

	assert.Equal(t, 1, h.notifier.count())
}

func TestConcurrentAttackersDefeatAtMostOnce(t *testing.T) {
	h := newCombatHarness(t)
	user := h.seedUser(t, "alice", 1, 0)
	boss := h.seedBoss(t, "Dust Wyrm", 100, 0, models.BossRewards{XP: 150, Gold: 40, Badge: "Boss Slayer"}, 0)

	const attackers = 25

	var wg sync.WaitGroup
	results := make([]*models.CombatResult, attackers)
	errs := make([]error, attackers)
	for i := 0; i < attackers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.combat.ApplyDamage(user.ID, boss.ID, 10)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	// The damage sum far exceeds max health: every caller that arrived
	// after the transition sees the terminal state, and exactly one
	// observed the level-up the settlement caused.
	levelUps := 0
	for _, r := range results {
		assert.GreaterOrEqual(t, r.CurrentHealth, 0)
		if r.CausedLevelUp {
			levelUps++
		}
	}
	assert.Equal(t, 1, levelUps)

	progress := h.progress(t, user.ID, boss.ID)
	assert.True(t, progress.Defeated)
	assert.Equal(t, 0, progress.CurrentHealth)

	var updated models.User
	require.NoError(t, h.db.First(&updated, "id = ?", user.ID).Error)
	assert.Equal(t, 40, updated.Gold) // one reward, not N
	assert.Equal(t, 2, updated.Level)
	assert.Equal(t, 50, updated.Experience)

	var badgeCount int64
	h.db.Model(&models.UserBadge{}).Where("user_id = ?", user.ID).Count(&badgeCount)
	assert.EqualValues(t, 1, badgeCount)

	assert.Equal(t, 1, h.notifier.count())
}

func TestEngageBossResetsProgress(t *testing.T) {
	h := newCombatHarness(t)
	user := h.seedUser(t, "alice", 5, 0)
	boss := h.seedBoss(t, "Dust Wyrm", 100, 3, models.BossRewards{}, 0)

	_, err := h.combat.EngageBoss(user.ID, boss.ID)
	require.NoError(t, err)

	_, err = h.combat.ApplyDamage(user.ID, boss.ID, 60)
	require.NoError(t, err)

	// Re-engaging starts the fight over.
	_, err = h.combat.EngageBoss(user.ID, boss.ID)
	require.NoError(t, err)

	progress := h.progress(t, user.ID, boss.ID)
	assert.Equal(t, 100, progress.CurrentHealth)
	assert.False(t, progress.Defeated)

	var updated models.User
	require.NoError(t, h.db.First(&updated, "id = ?", user.ID).Error)
	require.NotNil(t, updated.CurrentBossID)
	assert.Equal(t, boss.ID, *updated.CurrentBossID)
}

func TestEngageBossBelowLevelRequirement(t *testing.T) {
	h := newCombatHarness(t)
	user := h.seedUser(t, "alice", 1, 0)
	boss := h.seedBoss(t, "Elder Wyrm", 500, 10, models.BossRewards{}, 0)

	_, err := h.combat.EngageBoss(user.ID, boss.ID)
	require.ErrorIs(t, err, ErrLevelTooLow)
}

func TestReviveResetsDefeatedBoss(t *testing.T) {
	h := newCombatHarness(t)
	user := h.seedUser(t, "alice", 1, 0)
	boss := h.seedBoss(t, "Dust Wyrm", 100, 0, models.BossRewards{XP: 10}, 0)

	_, err := h.combat.ApplyDamage(user.ID, boss.ID, 100)
	require.NoError(t, err)
	require.True(t, h.progress(t, user.ID, boss.ID).Defeated)

	require.NoError(t, h.combat.ReviveBoss(user.ID, boss.ID))

	progress := h.progress(t, user.ID, boss.ID)
	assert.Equal(t, 100, progress.CurrentHealth)
	assert.False(t, progress.Defeated)
	assert.Equal(t, boss.ID, progress.BossID)
}

func TestAttackActiveBossResolvesEngagement(t *testing.T) {
	h := newCombatHarness(t)
	user := h.seedUser(t, "alice", 1, 0)
	boss := h.seedBoss(t, "Dust Wyrm", 100, 0, models.BossRewards{}, 0)

	_, err := h.combat.AttackActiveBoss(user.ID, 10)
	require.ErrorIs(t, err, ErrNoActiveBoss)

	_, err = h.combat.EngageBoss(user.ID, boss.ID)
	require.NoError(t, err)

	result, err := h.combat.AttackActiveBoss(user.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 90, result.CurrentHealth)
	assert.Equal(t, boss.ID, result.BossID)
}

func TestGetActiveBossCreatesProgressLazily(t *testing.T) {
	h := newCombatHarness(t)
	user := h.seedUser(t, "alice", 1, 0)
	boss := h.seedBoss(t, "Dust Wyrm", 100, 0, models.BossRewards{}, 0)

	user.CurrentBossID = &boss.ID
	require.NoError(t, h.db.Save(user).Error)

	result, err := h.combat.GetActiveBoss(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, result.CurrentHealth)
	assert.False(t, result.Defeated)
	assert.Equal(t, 100, h.progress(t, user.ID, boss.ID).CurrentHealth)
}

func TestSelectEligibleBossesBackfillsByReviving(t *testing.T) {
	h := newCombatHarness(t)
	user := h.seedUser(t, "alice", 10, 0)

	// Five eligible bosses in stable creation order; the first three
	// are already defeated for this user.
	var bosses []*models.Boss
	for i := 0; i < 5; i++ {
		bosses = append(bosses, h.seedBoss(t, fmt.Sprintf("Boss %d", i), 100, 0, models.BossRewards{}, i))
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, h.db.Create(&models.CombatProgress{
			ID:            uuid.NewString(),
			UserID:        user.ID,
			BossID:        bosses[i].ID,
			CurrentHealth: 0,
			Defeated:      true,
			LastUpdated:   time.Now(),
		}).Error)
	}

	selection, err := h.combat.SelectEligibleBosses(user.ID)
	require.NoError(t, err)
	require.Len(t, selection, 4)

	// The two alive bosses come first, then revivals in input order.
	ids := make([]string, len(selection))
	for i, s := range selection {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{bosses[3].ID, bosses[4].ID, bosses[0].ID, bosses[1].ID}, ids)

	// Revived records are fresh fights again.
	for _, idx := range []int{0, 1} {
		progress := h.progress(t, user.ID, bosses[idx].ID)
		assert.False(t, progress.Defeated)
		assert.Equal(t, 100, progress.CurrentHealth)
	}

	// The third defeated boss was beyond the target: untouched and
	// unselected.
	assert.True(t, h.progress(t, user.ID, bosses[2].ID).Defeated)
}

func TestSelectEligibleBossesFiltersByLevel(t *testing.T) {
	h := newCombatHarness(t)
	user := h.seedUser(t, "alice", 2, 0)

	h.seedBoss(t, "Mud Crab", 10, 0, models.BossRewards{}, 0)
	h.seedBoss(t, "Elder Wyrm", 500, 10, models.BossRewards{}, 1)

	selection, err := h.combat.SelectEligibleBosses(user.ID)
	require.NoError(t, err)
	require.Len(t, selection, 1)
	assert.Equal(t, "Mud Crab", selection[0].Name)
}

func TestInitiateFightConflictsWhileSessionActive(t *testing.T) {
	h := newCombatHarness(t)
	user := h.seedUser(t, "alice", 1, 0)
	rival := h.seedUser(t, "bob", 1, 0)
	boss := h.seedBoss(t, "Dust Wyrm", 100, 0, models.BossRewards{}, 0)

	ok, err := h.combat.InitiateFight(boss.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = h.combat.InitiateFight(boss.ID, rival.ID)
	require.ErrorIs(t, err, ErrFightInProgress)
}

func TestInitiateFightUnknownBoss(t *testing.T) {
	h := newCombatHarness(t)
	user := h.seedUser(t, "alice", 1, 0)

	_, err := h.combat.InitiateFight(uuid.NewString(), user.ID)
	require.ErrorIs(t, err, ErrBossNotFound)
}

func TestInitiateFightSerializesConcurrentCallers(t *testing.T) {
	h := newCombatHarness(t)
	boss := h.seedBoss(t, "Dust Wyrm", 100, 0, models.BossRewards{}, 0)

	const callers = 10

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.combat.InitiateFight(boss.ID, uuid.NewString())
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		require.ErrorIs(t, err, ErrFightInProgress)
	}
	assert.Equal(t, 1, wins)

	var active int64
	h.db.Model(&models.FightSession{}).
		Where("boss_id = ? AND active = ?", boss.ID, true).
		Count(&active)
	assert.EqualValues(t, 1, active)
}

func TestDefeatReleasesFightSession(t *testing.T) {
	h := newCombatHarness(t)
	user := h.seedUser(t, "alice", 1, 0)
	rival := h.seedUser(t, "bob", 1, 0)
	boss := h.seedBoss(t, "Dust Wyrm", 100, 0, models.BossRewards{XP: 10}, 0)

	ok, err := h.combat.InitiateFight(boss.ID, user.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = h.combat.InitiateFight(boss.ID, rival.ID)
	require.ErrorIs(t, err, ErrFightInProgress)

	result, err := h.combat.ApplyDamage(user.ID, boss.ID, 100)
	require.NoError(t, err)
	require.True(t, result.Defeated)

	// The defeat transition released the boss; no TTL wait needed.
	ok, err = h.combat.InitiateFight(boss.ID, rival.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSettleRewardsWritesOnlyProgressionColumns(t *testing.T) {
	h := newCombatHarness(t)
	user := h.seedUser(t, "alice", 1, 0)
	engaged := h.seedBoss(t, "Engaged Wyrm", 100, 0, models.BossRewards{}, 0)
	slain := h.seedBoss(t, "Slain Wyrm", 100, 0, models.BossRewards{XP: 10, Gold: 5}, 1)

	// Snapshot taken before the user engages a different boss, the way
	// a settlement's user read can predate a concurrent engagement.
	stale := *user

	require.NoError(t, h.db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("current_boss_id", engaged.ID).Error)

	require.NoError(t, h.db.Transaction(func(tx *gorm.DB) error {
		_, err := h.combat.settleRewards(tx, &stale, slain)
		return err
	}))

	var persisted models.User
	require.NoError(t, h.db.First(&persisted, "id = ?", user.ID).Error)
	assert.Equal(t, 5, persisted.Gold)
	assert.Equal(t, 10, persisted.Experience)
	require.NotNil(t, persisted.CurrentBossID)
	assert.Equal(t, engaged.ID, *persisted.CurrentBossID)
}

func TestEngageBossWritesOnlyEngagementColumn(t *testing.T) {
	h := newCombatHarness(t)
	user := h.seedUser(t, "alice", 1, 0)
	boss := h.seedBoss(t, "Dust Wyrm", 100, 0, models.BossRewards{}, 0)

	// Park the engagement between its user read and its write by
	// holding the pair lock it needs.
	release := h.combat.locks.Lock(progressKey(user.ID, boss.ID))

	done := make(chan error, 1)
	go func() {
		_, err := h.combat.EngageBoss(user.ID, boss.ID)
		done <- err
	}()

	// Give the goroutine time to read the user and block, then change
	// the stats its snapshot no longer reflects.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, h.db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("gold", 777).Error)
	release()

	require.NoError(t, <-done)

	var persisted models.User
	require.NoError(t, h.db.First(&persisted, "id = ?", user.ID).Error)
	assert.Equal(t, 777, persisted.Gold)
	require.NotNil(t, persisted.CurrentBossID)
	assert.Equal(t, boss.ID, *persisted.CurrentBossID)
}
