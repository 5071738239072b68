package storage

import (
	"context"

	"github.com/julianstephens/habitreward/internal/models"
)

// Provider is the persistence contract shared by the sqlite, postgres and
// memory stores.
type Provider interface {
	// Lifecycle
	Init(ctx context.Context) error
	Load(ctx context.Context) error
	Close() error

	// Settings
	GetSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error

	// Users
	AddUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (models.User, error)
	GetAllUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user models.User) error

	// Habits
	AddHabit(ctx context.Context, habit models.Habit) error
	GetHabit(ctx context.Context, id string) (models.Habit, error)
	// GetHabitByName matches case-insensitively.
	GetHabitByName(ctx context.Context, name string) (models.Habit, error)
	GetHabitBySlug(ctx context.Context, slug string) (models.Habit, error)
	GetAllHabits(ctx context.Context, includeInactive bool) ([]models.Habit, error)
	UpdateHabit(ctx context.Context, habit models.Habit) error

	// Rewards
	AddReward(ctx context.Context, reward models.Reward) error
	GetReward(ctx context.Context, id string) (models.Reward, error)
	GetRewardByName(ctx context.Context, name string) (models.Reward, error)
	GetRewardBySlug(ctx context.Context, slug string) (models.Reward, error)
	// GetActiveRewards returns the active catalog in catalog order
	// (sort_order, then name).
	GetActiveRewards(ctx context.Context) ([]models.Reward, error)
	GetAllRewards(ctx context.Context, includeInactive bool) ([]models.Reward, error)
	UpdateReward(ctx context.Context, reward models.Reward) error

	// Reporting
	// GetHabitLogs returns the full chain for (user, habit), ascending.
	GetHabitLogs(ctx context.Context, userID, habitID string) ([]models.HabitLog, error)
	GetAllProgress(ctx context.Context, userID string) ([]models.RewardProgress, error)

	// WithTx runs fn in a single transaction. If fn returns an error nothing
	// it wrote is visible afterwards. fn must only use tx, never the Provider.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Utils
	GetConfigPath() string
}

// Tx is the transactional view used by completions and claims.
type Tx interface {
	// LockCompletion serializes completions for (user, habit) across
	// processes sharing the store, for stores that need it.
	LockCompletion(ctx context.Context, userID, habitID string) error
	// LockUser serializes the user-scoped steps of completions and claims:
	// reading the day's grants and updating reward progress. Callers that
	// also hold LockCompletion take it first.
	LockUser(ctx context.Context, userID string) error

	// PriorLog returns the latest log for (user, habit) dated on or before
	// day, ties broken by insertion order. ErrNotFound if there is none.
	PriorLog(ctx context.Context, userID, habitID, day string) (models.HabitLog, error)
	// LogsAfter returns the logs for (user, habit) dated strictly after day,
	// ascending.
	LogsAfter(ctx context.Context, userID, habitID, day string) ([]models.HabitLog, error)
	// GrantedOn returns the ids of non-NONE rewards granted to userID by
	// completions submitted on day, across all habits.
	GrantedOn(ctx context.Context, userID, day string) (map[string]bool, error)
	// InsertLog appends a log and returns it with its sequence assigned.
	InsertLog(ctx context.Context, log models.HabitLog) (models.HabitLog, error)
	UpdateLogStreak(ctx context.Context, logID string, streak int) error

	GetProgress(ctx context.Context, userID, rewardID string) (models.RewardProgress, error)
	SaveProgress(ctx context.Context, p models.RewardProgress) error
}
