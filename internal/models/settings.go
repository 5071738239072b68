package models

import (
	"fmt"
	"time"

	"github.com/julianstephens/habitreward/internal/constants"
)

// Settings holds the persisted engine tunables
type Settings struct {
	StreakFactor    float64 `json:"streak_factor" validate:"gte=0"`    // k in 1 + streak*k
	NoneWeightFloor float64 `json:"none_weight_floor" validate:"gt=0"` // lowest draw weight of the none reward
	NoneDecay       float64 `json:"none_decay" validate:"gte=0"`       // effort multiplier subtracted from the none weight
	MaxAttempts     int     `json:"max_attempts" validate:"min=1"`     // completion attempts on concurrency conflicts
	LockTimeoutMs   int     `json:"lock_timeout_ms" validate:"min=1"`  // wait for the per-(user, habit) lock
	Timezone        string  `json:"timezone" validate:"required"`      // IANA timezone name or "Local"
}

// DefaultSettings returns the compiled defaults.
func DefaultSettings() Settings {
	return Settings{
		StreakFactor:    constants.DefaultStreakFactor,
		NoneWeightFloor: constants.DefaultNoneWeightFloor,
		NoneDecay:       constants.DefaultNoneDecay,
		MaxAttempts:     constants.DefaultMaxAttempts,
		LockTimeoutMs:   constants.DefaultLockTimeoutMs,
		Timezone:        constants.DefaultTimezone,
	}
}

func (s *Settings) Validate() error {
	if err := Validate(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone.
func (s *Settings) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == constants.DefaultTimezone {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}
