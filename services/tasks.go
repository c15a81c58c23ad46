package services

import (
	"errors"
	"time"

	"habit-quest-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskService struct {
	DB *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{DB: db}
}

func today() string {
	return time.Now().Format("2006-01-02")
}

// CreateTask adds a task for the user.
func (s *TaskService) CreateTask(userID, title string, dueDate *time.Time) (*models.Task, error) {
	task := models.Task{
		ID:      uuid.NewString(),
		UserID:  userID,
		Title:   title,
		DueDate: dueDate,
	}
	if err := s.DB.Create(&task).Error; err != nil {
		return nil, storageErr("create task", err)
	}
	return &task, nil
}

// ListTasks returns the user's tasks. Tasks completed on an earlier
// day roll back to incomplete on read, so each day starts fresh.
func (s *TaskService) ListTasks(userID string) ([]models.Task, error) {
	var tasks []models.Task
	if err := s.DB.Where("user_id = ?", userID).Order("created_at ASC").Find(&tasks).Error; err != nil {
		return nil, storageErr("list tasks", err)
	}

	day := today()
	var stale []models.Task
	for i := range tasks {
		if tasks[i].Completed && tasks[i].LastCompletedDate != day {
			tasks[i].Completed = false
			tasks[i].LastCompletedDate = ""
			stale = append(stale, tasks[i])
		}
	}
	for i := range stale {
		if err := s.DB.Save(&stale[i]).Error; err != nil {
			return nil, storageErr("reset stale task", err)
		}
	}
	return tasks, nil
}

// CompleteTask marks the task done for today. Completing the same task
// twice in one day is a conflict.
func (s *TaskService) CompleteTask(userID, taskID string) (*models.Task, error) {
	task, err := s.getOwnedTask(userID, taskID)
	if err != nil {
		return nil, err
	}

	day := today()
	if task.LastCompletedDate == day {
		return nil, ErrAlreadyCompletedToday
	}

	task.Completed = true
	task.LastCompletedDate = day
	if err := s.DB.Save(task).Error; err != nil {
		return nil, storageErr("complete task", err)
	}
	return task, nil
}

// DeleteTask removes the user's task.
func (s *TaskService) DeleteTask(userID, taskID string) error {
	task, err := s.getOwnedTask(userID, taskID)
	if err != nil {
		return err
	}
	if err := s.DB.Delete(task).Error; err != nil {
		return storageErr("delete task", err)
	}
	return nil
}

func (s *TaskService) getOwnedTask(userID, taskID string) (*models.Task, error) {
	var task models.Task
	if err := s.DB.Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, storageErr("fetch task", err)
	}
	if task.UserID != userID {
		return nil, ErrTaskNotFound
	}
	return &task, nil
}
