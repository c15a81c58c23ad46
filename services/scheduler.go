package services

import (
	"log"
	"time"

	"habit-quest-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartPublishScheduler flips scheduled draft bosses to published once
// their publish time passes. Content setup can stage rare event bosses
// ahead of time without a deploy.
func (s *BossCatalogService) StartPublishScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: publish scheduled bosses
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if _, err := s.PublishDueBosses(time.Now()); err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
			}
		}),
	)
}

// PublishDueBosses publishes every draft boss whose publish time is at
// or before now and returns how many it flipped.
func (s *BossCatalogService) PublishDueBosses(now time.Time) (int, error) {
	var bosses []models.Boss
	err := s.DB.Where("status = ? AND publish_at IS NOT NULL AND publish_at <= ?",
		models.BossStatusDraft, now).
		Find(&bosses).Error
	if err != nil {
		return 0, storageErr("fetch scheduled bosses", err)
	}

	published := 0
	for _, b := range bosses {
		b.Status = models.BossStatusPublished
		b.PublishAt = nil
		if err := s.DB.Save(&b).Error; err != nil {
			log.Printf("[Scheduler] failed to publish boss %s: %v", b.ID, err)
			continue
		}
		published++
		log.Printf("[Scheduler] auto-published boss: %s", b.Name)
	}
	return published, nil
}
