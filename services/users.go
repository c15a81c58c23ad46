package services

import (
	"errors"
	"log"

	"habit-quest-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserService struct {
	DB       *gorm.DB
	Notifier StatsNotifier
}

func NewUserService(db *gorm.DB, notifier StatsNotifier) *UserService {
	return &UserService{DB: db, Notifier: notifier}
}

// Register creates a new user with the canonical starting stats:
// level 1, zero XP, zero gold, and the "Newbie" badge.
func (s *UserService) Register(username, email string) (*models.User, error) {
	var count int64
	if err := s.DB.Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error; err != nil {
		return nil, storageErr("check existing user", err)
	}
	if count > 0 {
		return nil, ErrAlreadyExists
	}

	user := models.User{
		ID:         uuid.NewString(),
		Username:   username,
		Email:      email,
		Level:      1,
		Experience: 0,
		Gold:       0,
		Streak:     0,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&models.UserBadge{
			ID:     uuid.NewString(),
			UserID: user.ID,
			Badge:  "Newbie",
		}).Error
	})
	if err != nil {
		return nil, storageErr("create user", err)
	}

	s.Notifier.PushStatsUpdate(user.Username, user.Gold, user.Level)
	log.Printf("[Users] registered %s (level=%d)", user.Username, user.Level)
	return &user, nil
}

// ResolveUser looks a user up by UUID or, failing that, by username.
func (s *UserService) ResolveUser(identifier string) (*models.User, error) {
	var user models.User

	if _, err := uuid.Parse(identifier); err == nil {
		err := s.DB.Where("id = ?", identifier).First(&user).Error
		if err == nil {
			return &user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storageErr("fetch user by id", err)
		}
	}

	if err := s.DB.Where("username = ?", identifier).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storageErr("fetch user by username", err)
	}
	return &user, nil
}

// SaveUser persists the full user snapshot.
func (s *UserService) SaveUser(user *models.User) error {
	if err := s.DB.Save(user).Error; err != nil {
		return storageErr("save user", err)
	}
	return nil
}

// GrantExperience folds an XP gain into the user's level curve and
// persists the result. Used for non-combat XP sources; combat XP goes
// through the engine's reward settlement instead.
func (s *UserService) GrantExperience(identifier string, gain int, reason string) (*models.User, bool, error) {
	user, err := s.ResolveUser(identifier)
	if err != nil {
		return nil, false, err
	}

	level, experience, leveledUp, err := applyExperience(user.Level, user.Experience, gain)
	if err != nil {
		return nil, false, err
	}
	user.Level = level
	user.Experience = experience

	if err := s.SaveUser(user); err != nil {
		return nil, false, err
	}

	s.Notifier.PushStatsUpdate(user.Username, user.Gold, user.Level)
	log.Printf("[Users] XP granted: %s +%d → level=%d xp=%d (reason: %s)",
		user.Username, gain, user.Level, user.Experience, reason)
	return user, leveledUp, nil
}

// GrantBadge adds a badge to the user's set. Re-granting an owned
// badge is a no-op, not an error.
func (s *UserService) GrantBadge(userID, badge string) error {
	if badge == "" {
		return nil
	}
	err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserBadge{ID: uuid.NewString(), UserID: userID, Badge: badge}).Error
	if err != nil {
		return storageErr("grant badge", err)
	}
	return nil
}

// GetBadges returns the user's badge set, oldest first.
func (s *UserService) GetBadges(userID string) ([]models.UserBadge, error) {
	var badges []models.UserBadge
	err := s.DB.Where("user_id = ?", userID).
		Order("awarded_at ASC").
		Find(&badges).Error
	if err != nil {
		return nil, storageErr("fetch badges", err)
	}
	return badges, nil
}
