package errors

import (
	"errors"
	"fmt"
)

// ValidationReason categorizes a rejected request.
type ValidationReason string

const (
	ReasonInactiveUser  ValidationReason = "inactive_user"
	ReasonInactiveHabit ValidationReason = "inactive_habit"
	ReasonUnknownUser   ValidationReason = "unknown_user"
	ReasonUnknownHabit  ValidationReason = "unknown_habit"
	ReasonUnknownReward ValidationReason = "unknown_reward"
	ReasonInvalidDate   ValidationReason = "invalid_date"
	ReasonFutureDate    ValidationReason = "future_date"
	ReasonNoMatch       ValidationReason = "no_match"
)

// ValidationError is a caller mistake. It is surfaced as-is and never retried.
type ValidationError struct {
	Reason ValidationReason
	Entity string // "user", "habit", "reward" or "date"
	ID     string
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonInactiveUser, ReasonInactiveHabit:
		return fmt.Sprintf("%s %q is inactive", e.Entity, e.ID)
	case ReasonUnknownUser, ReasonUnknownHabit, ReasonUnknownReward:
		return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
	case ReasonInvalidDate:
		return fmt.Sprintf("invalid date %q (expected YYYY-MM-DD)", e.ID)
	case ReasonFutureDate:
		return fmt.Sprintf("date %s is in the future", e.ID)
	case ReasonNoMatch:
		return fmt.Sprintf("no %s matches %q", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s: %s %q", e.Reason, e.Entity, e.ID)
}

// NewInactiveEntity builds the ValidationError returned for inactive users and habits.
func NewInactiveEntity(entity, id string) *ValidationError {
	reason := ReasonInactiveHabit
	if entity == "user" {
		reason = ReasonInactiveUser
	}
	return &ValidationError{Reason: reason, Entity: entity, ID: id}
}

// ConfigurationError marks an operator misconfiguration such as an empty
// reward catalog.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Message
}

// NotAchievedError is returned by a claim on a reward whose pieces are incomplete.
type NotAchievedError struct {
	RewardID       string
	PiecesEarned   int
	PiecesRequired int
}

func (e *NotAchievedError) Error() string {
	return fmt.Sprintf("reward %s not achieved yet (%d/%d pieces)", e.RewardID, e.PiecesEarned, e.PiecesRequired)
}

// AlreadyClaimedError is returned by a second claim of the same reward.
type AlreadyClaimedError struct {
	RewardID string
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("reward %s already claimed", e.RewardID)
}

// ConcurrencyConflictError means a completion could not be serialized
// against another in-flight completion for the same (user, habit).
type ConcurrencyConflictError struct {
	Key      string
	Attempts int
	Err      error
}

func (e *ConcurrencyConflictError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("concurrent completion conflict on %s after %d attempt(s): %v", e.Key, e.Attempts, e.Err)
	}
	return fmt.Sprintf("concurrent completion conflict on %s: %v", e.Key, e.Err)
}

func (e *ConcurrencyConflictError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInactiveEntity reports whether err is a ValidationError for an inactive user or habit.
func IsInactiveEntity(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason == ReasonInactiveUser || ve.Reason == ReasonInactiveHabit
	}
	return false
}

func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func IsNotAchieved(err error) bool {
	var ne *NotAchievedError
	return errors.As(err, &ne)
}

func IsAlreadyClaimed(err error) bool {
	var ae *AlreadyClaimedError
	return errors.As(err, &ae)
}

func IsConcurrencyConflict(err error) bool {
	var ce *ConcurrencyConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
