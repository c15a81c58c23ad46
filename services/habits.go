package services

import (
	"errors"

	"habit-quest-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HabitService struct {
	DB *gorm.DB
}

func NewHabitService(db *gorm.DB) *HabitService {
	return &HabitService{DB: db}
}

// HabitCreateInput carries optional fields whose defaults are applied
// here, explicitly, rather than deep in business logic.
type HabitCreateInput struct {
	Title      string                  `json:"title"`
	Frequency  *models.HabitFrequency  `json:"frequency,omitempty"`
	Difficulty *models.HabitDifficulty `json:"difficulty,omitempty"`
}

// CreateHabit adds a habit, defaulting frequency to daily and
// difficulty to medium.
func (s *HabitService) CreateHabit(userID string, input HabitCreateInput) (*models.Habit, error) {
	habit := models.Habit{
		ID:         uuid.NewString(),
		UserID:     userID,
		Title:      input.Title,
		Frequency:  models.HabitFrequencyDaily,
		Difficulty: models.HabitDifficultyMedium,
	}
	if input.Frequency != nil {
		habit.Frequency = *input.Frequency
	}
	if input.Difficulty != nil {
		habit.Difficulty = *input.Difficulty
	}

	if err := s.DB.Create(&habit).Error; err != nil {
		return nil, storageErr("create habit", err)
	}
	return &habit, nil
}

// ListHabits returns the user's habits, oldest first.
func (s *HabitService) ListHabits(userID string) ([]models.Habit, error) {
	var habits []models.Habit
	if err := s.DB.Where("user_id = ?", userID).Order("created_at ASC").Find(&habits).Error; err != nil {
		return nil, storageErr("list habits", err)
	}
	return habits, nil
}

// CompleteHabit records today's completion and bumps the streak.
// A second completion on the same day is a conflict.
func (s *HabitService) CompleteHabit(userID, habitID string) (*models.Habit, error) {
	habit, err := s.getOwnedHabit(userID, habitID)
	if err != nil {
		return nil, err
	}

	day := today()
	if habit.LastCompletedDate == day {
		return nil, ErrAlreadyCompletedToday
	}

	habit.Streak++
	habit.LastCompletedDate = day
	if err := s.DB.Save(habit).Error; err != nil {
		return nil, storageErr("complete habit", err)
	}
	return habit, nil
}

// DeleteHabit removes the user's habit.
func (s *HabitService) DeleteHabit(userID, habitID string) error {
	habit, err := s.getOwnedHabit(userID, habitID)
	if err != nil {
		return err
	}
	if err := s.DB.Delete(habit).Error; err != nil {
		return storageErr("delete habit", err)
	}
	return nil
}

func (s *HabitService) getOwnedHabit(userID, habitID string) (*models.Habit, error) {
	var habit models.Habit
	if err := s.DB.Where("id = ?", habitID).First(&habit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, storageErr("fetch habit", err)
	}
	if habit.UserID != userID {
		return nil, ErrHabitNotFound
	}
	return &habit, nil
}
