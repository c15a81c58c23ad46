package workers

import (
	"context"
	"log"
	"time"

	"habit-quest-system/models"

	"gorm.io/gorm"
)

// FightSessionReaper clears fight sessions whose holder went away
// without finishing the fight. Without it a crashed client would keep
// a boss locked forever and every InitiateFight would conflict.
type FightSessionReaper struct {
	DB  *gorm.DB
	TTL time.Duration
}

func NewFightSessionReaper(db *gorm.DB, ttl time.Duration) *FightSessionReaper {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &FightSessionReaper{DB: db, TTL: ttl}
}

// ReapOnce deactivates every active session older than the TTL and
// returns how many it cleared.
func (r *FightSessionReaper) ReapOnce() (int64, error) {
	cutoff := time.Now().Add(-r.TTL)
	result := r.DB.Model(&models.FightSession{}).
		Where("active = ? AND started_at < ?", true, cutoff).
		Update("active", false)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// PollStaleSessions runs the reaper on a fixed interval until ctx is
// cancelled.
func PollStaleSessions(ctx context.Context, reaper *FightSessionReaper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[Reaper] fight session reaper running (ttl=%s, every %s)", reaper.TTL, interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[Reaper] stopping fight session reaper")
			return
		case <-ticker.C:
			cleared, err := reaper.ReapOnce()
			if err != nil {
				log.Printf("[Reaper] failed to clear stale sessions: %v", err)
				continue
			}
			if cleared > 0 {
				log.Printf("[Reaper] cleared %d stale fight session(s)", cleared)
			}
		}
	}
}
