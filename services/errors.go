package services

import (
	"errors"
	"fmt"
)

// Error taxonomy. Handlers map these onto HTTP statuses with
// errors.Is; services wrap them with %w so callers keep the class
// while the message carries context.
var (
	// Not found
	ErrBossNotFound  = errors.New("boss not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrNoActiveBoss  = errors.New("user is not currently fighting any boss")
	ErrTaskNotFound  = errors.New("task not found")
	ErrHabitNotFound = errors.New("habit not found")

	// Invalid argument, rejected before any state mutation
	ErrNegativeDamage   = errors.New("damage must not be negative")
	ErrNegativeXP       = errors.New("xp gain must not be negative")
	ErrInvalidBossInput = errors.New("invalid boss definition")

	// Conflict
	ErrFightInProgress       = errors.New("boss is already engaged in an active fight")
	ErrLevelTooLow           = errors.New("user level below boss requirement")
	ErrAlreadyCompletedToday = errors.New("already completed today")
	ErrAlreadyExists         = errors.New("already exists")

	// Persistence layer failed, no partial state
	ErrStorage = errors.New("storage unavailable")
)

// storageErr wraps a database failure so it surfaces as the
// StorageUnavailable class without losing the underlying cause.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
