package handlers

import (
	"errors"

	"habit-quest-system/services"

	"github.com/gofiber/fiber/v2"
)

// serviceError maps the service error taxonomy onto HTTP statuses.
func serviceError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrBossNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrNoActiveBoss),
		errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrHabitNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrNegativeDamage),
		errors.Is(err, services.ErrNegativeXP),
		errors.Is(err, services.ErrInvalidBossInput):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrFightInProgress),
		errors.Is(err, services.ErrLevelTooLow),
		errors.Is(err, services.ErrAlreadyCompletedToday),
		errors.Is(err, services.ErrAlreadyExists):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrStorage):
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
