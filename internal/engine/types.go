package engine

import (
	"github.com/julianstephens/habitreward/internal/models"
	"github.com/julianstephens/habitreward/internal/streak"
)

// Stage is a step of the completion flow, used for logging.
type Stage string

const (
	StageValidating     Stage = "VALIDATING"
	StageStreakComputed Stage = "STREAK_COMPUTED"
	StageRewardSelected Stage = "REWARD_SELECTED"
	StagePersisted      Stage = "PERSISTED"
	StageRejected       Stage = "REJECTED"
)

// CompleteRequest asks for one habit completion.
type CompleteRequest struct {
	UserID string
	// Habit is an id, a name (case-insensitive) or a slug. With Fuzzy set,
	// free text that matches none of those goes through the matcher.
	Habit string
	// TargetDate is the YYYY-MM-DD day to credit; empty means today.
	TargetDate string
	Fuzzy      bool
}

// CompletionResult describes a persisted completion.
type CompletionResult struct {
	Confirmed      bool
	LogID          string
	HabitID        string
	HabitName      string
	CompletionDate string
	Backdated      bool
	Streak         int
	EffortScore    float64
	GotReward      bool
	// Reward is the granted reward; nil when the draw was NONE.
	Reward *models.Reward
	// Progress is set for cumulative rewards.
	Progress *models.RewardProgress
	// RecomputedLogs lists later logs whose streak changed because this
	// completion was backdated into the chain.
	RecomputedLogs []streak.Update
}

// ClaimResult describes a successful claim.
type ClaimResult struct {
	Reward   models.Reward
	Progress models.RewardProgress
}
