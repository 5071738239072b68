package engine

import (
	"time"

	"github.com/julianstephens/habitreward/internal/constants"
	"github.com/julianstephens/habitreward/internal/models"
	"github.com/julianstephens/habitreward/internal/selector"
)

// Config tunes the completion flow.
type Config struct {
	StreakFactor    float64       // k in effort = weight * (1 + streak*k)
	NoneWeightFloor float64       // lowest draw weight of a NONE reward
	NoneDecay       float64       // effort multiplier subtracted from the NONE weight
	MaxAttempts     int           // tries per completion on concurrency conflicts
	RetryDelay      time.Duration // pause between tries
	LockTimeout     time.Duration // wait for the per-(user, habit) lock
	Location        *time.Location
}

func DefaultConfig() Config {
	return Config{
		StreakFactor:    constants.DefaultStreakFactor,
		NoneWeightFloor: constants.DefaultNoneWeightFloor,
		NoneDecay:       constants.DefaultNoneDecay,
		MaxAttempts:     constants.DefaultMaxAttempts,
		RetryDelay:      constants.DefaultRetryDelay,
		LockTimeout:     constants.DefaultLockTimeout,
		Location:        time.Local,
	}
}

// ConfigFromSettings builds a Config from persisted settings. The timezone
// must already have been validated.
func ConfigFromSettings(s models.Settings) (Config, error) {
	if err := s.Validate(); err != nil {
		return Config{}, err
	}
	loc, err := s.Location()
	if err != nil {
		return Config{}, err
	}
	cfg := DefaultConfig()
	cfg.StreakFactor = s.StreakFactor
	cfg.NoneWeightFloor = s.NoneWeightFloor
	cfg.NoneDecay = s.NoneDecay
	cfg.MaxAttempts = s.MaxAttempts
	cfg.LockTimeout = time.Duration(s.LockTimeoutMs) * time.Millisecond
	cfg.Location = loc
	return cfg, nil
}

// SelectorConfig returns the subset of cfg the reward selector needs.
func (c Config) SelectorConfig() selector.Config {
	return selector.Config{
		NoneWeightFloor: c.NoneWeightFloor,
		NoneDecay:       c.NoneDecay,
	}
}
