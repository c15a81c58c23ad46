package services

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"time"

	"habit-quest-system/models"
	"habit-quest-system/utils"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

type BossCatalogService struct {
	DB *gorm.DB
}

func NewBossCatalogService(db *gorm.DB) *BossCatalogService {
	return &BossCatalogService{DB: db}
}

var bossTitleCaser = cases.Title(language.English)

// BossCreateInput is the content-setup payload for a new boss.
// Zero rewards are legal; zero or negative health is not.
type BossCreateInput struct {
	Name             string     `json:"name"`
	MaxHealth        int        `json:"max_health"`
	LevelRequirement int        `json:"level_requirement"`
	RewardXP         int        `json:"reward_xp"`
	RewardGold       int        `json:"reward_gold"`
	RewardBadge      string     `json:"reward_badge"`
	Rare             bool       `json:"rare"`
	PublishAt        *time.Time `json:"publish_at,omitempty"`
}

// CreateBoss registers a boss definition. Artwork is optional; when
// present it is uploaded to R2 and the public URL stored. A boss with
// a PublishAt in the future stays draft until the publish scheduler
// flips it.
func (s *BossCatalogService) CreateBoss(input BossCreateInput, artwork *multipart.FileHeader) (*models.Boss, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: boss name is required", ErrInvalidBossInput)
	}
	if input.MaxHealth <= 0 {
		return nil, fmt.Errorf("%w: max health must be positive, got %d", ErrInvalidBossInput, input.MaxHealth)
	}
	if input.LevelRequirement < 0 || input.RewardXP < 0 || input.RewardGold < 0 {
		return nil, fmt.Errorf("%w: level requirement and rewards must not be negative", ErrInvalidBossInput)
	}

	boss := models.Boss{
		ID:               uuid.NewString(),
		Name:             bossTitleCaser.String(input.Name),
		Slug:             slug.Make(input.Name),
		MaxHealth:        input.MaxHealth,
		LevelRequirement: input.LevelRequirement,
		Rewards: models.BossRewards{
			XP:    input.RewardXP,
			Gold:  input.RewardGold,
			Badge: input.RewardBadge,
		},
		Rare:      input.Rare,
		Status:    models.BossStatusPublished,
		PublishAt: input.PublishAt,
	}
	if input.PublishAt != nil && input.PublishAt.After(time.Now()) {
		boss.Status = models.BossStatusDraft
	}

	if artwork != nil {
		key := fmt.Sprintf("bosses/%s/%s", boss.Slug, artwork.Filename)
		var url string
		var err error
		if utils.R2Enabled() {
			url, err = utils.UploadFileToR2(artwork, key)
		} else {
			url, err = utils.SaveUpload(artwork, key)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to store boss artwork: %w", err)
		}
		boss.ArtworkURL = url
	}

	if err := s.DB.Create(&boss).Error; err != nil {
		return nil, storageErr("create boss", err)
	}

	log.Printf("[Catalog] boss created: %s (%s, hp=%d, status=%s)", boss.Name, boss.Slug, boss.MaxHealth, boss.Status)
	return &boss, nil
}

// GetBoss fetches a published boss by id or slug. The id column is
// uuid-typed, so non-uuid identifiers go straight to the slug lookup
// instead of failing the cast.
func (s *BossCatalogService) GetBoss(bossID string) (*models.Boss, error) {
	query := s.DB.Where("status = ?", models.BossStatusPublished)
	if _, err := uuid.Parse(bossID); err == nil {
		query = query.Where("id = ?", bossID)
	} else {
		query = query.Where("slug = ?", bossID)
	}

	var boss models.Boss
	err := query.First(&boss).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBossNotFound
		}
		return nil, storageErr("fetch boss", err)
	}
	return &boss, nil
}

// ListBosses returns published bosses with levelRequirement <= maxLevel
// in stable creation order. The ordering is load-bearing: boss
// selection revives defeated bosses in exactly this order.
func (s *BossCatalogService) ListBosses(maxLevel int) ([]models.Boss, error) {
	var bosses []models.Boss
	err := s.DB.Where("status = ? AND level_requirement <= ?", models.BossStatusPublished, maxLevel).
		Order("created_at ASC, id ASC").
		Find(&bosses).Error
	if err != nil {
		return nil, storageErr("list bosses", err)
	}
	return bosses, nil
}

// ListAllBosses returns every boss regardless of status (admin view).
func (s *BossCatalogService) ListAllBosses() ([]models.Boss, error) {
	var bosses []models.Boss
	if err := s.DB.Order("created_at ASC").Find(&bosses).Error; err != nil {
		return nil, storageErr("list all bosses", err)
	}
	return bosses, nil
}
