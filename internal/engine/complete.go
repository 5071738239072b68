package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/habitreward/internal/clock"
	apperrors "github.com/julianstephens/habitreward/internal/errors"
	"github.com/julianstephens/habitreward/internal/logger"
	"github.com/julianstephens/habitreward/internal/models"
	"github.com/julianstephens/habitreward/internal/selector"
	"github.com/julianstephens/habitreward/internal/storage"
	"github.com/julianstephens/habitreward/internal/streak"
)

// completion carries the resolved inputs of one request.
type completion struct {
	user    models.User
	habit   models.Habit
	day     string
	today   string
	catalog []models.Reward
}

func (c *completion) key() string {
	return c.user.ID + "|" + c.habit.ID
}

// CompleteHabit records a completion and draws its reward. Validation
// failures are returned as *errors.ValidationError, an unusable catalog as
// *errors.ConfigurationError, and contention that outlasts the retry budget
// as *errors.ConcurrencyConflictError. Nothing is persisted on error.
func (e *Engine) CompleteHabit(ctx context.Context, req CompleteRequest) (*CompletionResult, error) {
	stage(StageValidating, "user", req.UserID, "habit", req.Habit, "date", req.TargetDate)

	c, err := e.prepare(ctx, req)
	if err != nil {
		reject(err, "user", req.UserID, "habit", req.Habit)
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		result, err := e.attempt(ctx, c)
		if err == nil {
			logger.Info("habit completed",
				"user", c.user.ID, "habit", c.habit.Name, "date", c.day,
				"streak", result.Streak, "reward", rewardName(result.Reward), "recomputed", len(result.RecomputedLogs))
			return result, nil
		}
		if !apperrors.IsConcurrencyConflict(err) {
			reject(err, "user", c.user.ID, "habit", c.habit.ID)
			return nil, err
		}
		lastErr = err
		logger.Warn("completion conflict, retrying", "key", c.key(), "attempt", attempt, "error", err)
		if attempt < e.cfg.MaxAttempts {
			if err := sleep(ctx, e.cfg.RetryDelay); err != nil {
				return nil, err
			}
		}
	}

	err = &apperrors.ConcurrencyConflictError{Key: c.key(), Attempts: e.cfg.MaxAttempts, Err: unwrapConflict(lastErr)}
	reject(err, "user", c.user.ID, "habit", c.habit.ID)
	return nil, err
}

// prepare validates the request and snapshots the catalog.
func (e *Engine) prepare(ctx context.Context, req CompleteRequest) (*completion, error) {
	user, err := e.ResolveUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, apperrors.NewInactiveEntity("user", user.ExternalID)
	}

	habit, err := e.ResolveHabit(ctx, req.Habit, req.Fuzzy)
	if err != nil {
		return nil, err
	}
	if !habit.Active {
		return nil, apperrors.NewInactiveEntity("habit", habit.Name)
	}

	today := e.Today()
	day := today
	if req.TargetDate != "" {
		day, err = clock.ParseDay(req.TargetDate)
		if err != nil {
			return nil, &apperrors.ValidationError{Reason: apperrors.ReasonInvalidDate, Entity: "date", ID: req.TargetDate}
		}
		if day > today {
			return nil, &apperrors.ValidationError{Reason: apperrors.ReasonFutureDate, Entity: "date", ID: day}
		}
	}

	catalog, err := e.store.GetActiveRewards(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reward catalog: %w", err)
	}
	if len(catalog) == 0 {
		return nil, &apperrors.ConfigurationError{Message: "no active rewards in catalog"}
	}

	return &completion{user: user, habit: habit, day: day, today: today, catalog: catalog}, nil
}

// attempt runs one locked, transactional try.
func (e *Engine) attempt(ctx context.Context, c *completion) (*CompletionResult, error) {
	release, err := e.locks.acquire(ctx, c.key(), e.cfg.LockTimeout)
	if err != nil {
		if errors.Is(err, errLockTimeout) {
			return nil, &apperrors.ConcurrencyConflictError{Key: c.key(), Err: err}
		}
		return nil, err
	}
	defer release()

	var result *CompletionResult
	err = e.store.WithTx(ctx, func(tx storage.Tx) error {
		r, err := e.persist(ctx, tx, c)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) persist(ctx context.Context, tx storage.Tx, c *completion) (*CompletionResult, error) {
	if err := tx.LockCompletion(ctx, c.user.ID, c.habit.ID); err != nil {
		return nil, err
	}

	prior, err := tx.PriorLog(ctx, c.user.ID, c.habit.ID, c.day)
	var priorPtr *models.HabitLog
	switch {
	case err == nil:
		priorPtr = &prior
	case !apperrors.IsNotFound(err):
		return nil, fmt.Errorf("failed to load prior log: %w", err)
	}

	count, err := streak.Compute(priorPtr, c.day)
	if err != nil {
		return nil, err
	}
	stage(StageStreakComputed, "key", c.key(), "date", c.day, "streak", count)

	effort := selector.EffortScore(c.habit.Weight, count, e.cfg.StreakFactor)
	if err := tx.LockUser(ctx, c.user.ID); err != nil {
		return nil, err
	}
	granted, err := tx.GrantedOn(ctx, c.user.ID, c.today)
	if err != nil {
		return nil, fmt.Errorf("failed to load today's grants: %w", err)
	}
	reward, err := e.selector.Select(c.catalog, effort, granted)
	if err != nil {
		return nil, err
	}
	stage(StageRewardSelected, "key", c.key(), "effort", effort, "reward", reward.Name, "kind", reward.Kind)

	prog, err := e.progress.Grant(ctx, tx, c.user.ID, reward)
	if err != nil {
		return nil, err
	}

	log, err := tx.InsertLog(ctx, models.HabitLog{
		ID:                 uuid.New().String(),
		UserID:             c.user.ID,
		HabitID:            c.habit.ID,
		CompletionDate:     c.day,
		LoggedOn:           c.today,
		LoggedAt:           e.clock.Now(),
		StreakCount:        count,
		HabitWeight:        c.habit.Weight,
		TotalWeightApplied: effort,
		RewardID:           reward.ID,
		GotReward:          !reward.IsNone(),
	})
	if err != nil {
		return nil, err
	}

	updates, err := e.propagate(ctx, tx, log)
	if err != nil {
		return nil, err
	}
	stage(StagePersisted, "key", c.key(), "log", log.ID, "recomputed", len(updates))

	result := &CompletionResult{
		Confirmed:      true,
		LogID:          log.ID,
		HabitID:        c.habit.ID,
		HabitName:      c.habit.Name,
		CompletionDate: c.day,
		Backdated:      c.day != c.today,
		Streak:         count,
		EffortScore:    effort,
		GotReward:      !reward.IsNone(),
		RecomputedLogs: updates,
	}
	if result.GotReward {
		r := reward
		result.Reward = &r
	}
	if reward.IsCumulative {
		result.Progress = prog
	}
	return result, nil
}

// propagate rewrites the streaks of logs dated after an inserted log.
func (e *Engine) propagate(ctx context.Context, tx storage.Tx, inserted models.HabitLog) ([]streak.Update, error) {
	later, err := tx.LogsAfter(ctx, inserted.UserID, inserted.HabitID, inserted.CompletionDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load later logs: %w", err)
	}
	if len(later) == 0 {
		return nil, nil
	}
	updates, err := streak.Recompute(inserted, later)
	if err != nil {
		return nil, err
	}
	for _, u := range updates {
		if err := tx.UpdateLogStreak(ctx, u.LogID, u.New); err != nil {
			return nil, err
		}
		logger.Debug("streak recomputed", "log", u.LogID, "old", u.Old, "new", u.New)
	}
	return updates, nil
}

func stage(s Stage, keyvals ...interface{}) {
	logger.Debug("completion", append([]interface{}{"stage", s}, keyvals...)...)
}

func reject(err error, keyvals ...interface{}) {
	kv := append([]interface{}{"stage", StageRejected, "error", err}, keyvals...)
	if apperrors.IsValidation(err) {
		logger.Debug("completion", kv...)
		return
	}
	logger.Warn("completion", kv...)
}

func rewardName(r *models.Reward) string {
	if r == nil {
		return "none"
	}
	return r.Name
}

func unwrapConflict(err error) error {
	var ce *apperrors.ConcurrencyConflictError
	if errors.As(err, &ce) && ce.Err != nil {
		return ce.Err
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
