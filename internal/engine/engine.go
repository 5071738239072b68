// Package engine runs habit completions and reward claims against a store.
//
// A completion validates the user and habit, computes the streak from the
// prior log, draws a reward and persists the progress grant, the new log
// and any forward streak corrections in one transaction. Completions for the
// same (user, habit) are serialized in-process by a keyed lock and across
// processes by the store.
package engine

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitreward/internal/clock"
	apperrors "github.com/julianstephens/habitreward/internal/errors"
	"github.com/julianstephens/habitreward/internal/matcher"
	"github.com/julianstephens/habitreward/internal/models"
	"github.com/julianstephens/habitreward/internal/progress"
	"github.com/julianstephens/habitreward/internal/selector"
	"github.com/julianstephens/habitreward/internal/storage"
)

type Engine struct {
	store    storage.Provider
	selector *selector.Selector
	clock    clock.Clock
	progress *progress.Updater
	locks    *keyedLock
	cfg      Config
}

// New wires an engine. A nil clock means the system clock in cfg.Location.
func New(store storage.Provider, sel *selector.Selector, clk clock.Clock, cfg Config) *Engine {
	if clk == nil {
		clk = clock.System{Location: cfg.Location}
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Engine{
		store:    store,
		selector: sel,
		clock:    clk,
		progress: &progress.Updater{Clock: clk},
		locks:    newKeyedLock(),
		cfg:      cfg,
	}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// ResolveUser looks a user up by id, then by external id.
func (e *Engine) ResolveUser(ctx context.Context, id string) (models.User, error) {
	u, err := e.store.GetUser(ctx, id)
	if apperrors.IsNotFound(err) {
		u, err = e.store.GetUserByExternalID(ctx, id)
	}
	if err != nil {
		if apperrors.IsNotFound(err) {
			return models.User{}, &apperrors.ValidationError{Reason: apperrors.ReasonUnknownUser, Entity: "user", ID: id}
		}
		return models.User{}, fmt.Errorf("failed to load user %s: %w", id, err)
	}
	return u, nil
}

// ResolveHabit looks a habit up by id, name or slug. With fuzzy set, text
// that matches none of them is matched against the active habits.
func (e *Engine) ResolveHabit(ctx context.Context, identifier string, fuzzy bool) (models.Habit, error) {
	lookups := []func(context.Context, string) (models.Habit, error){
		e.store.GetHabit,
		e.store.GetHabitByName,
		e.store.GetHabitBySlug,
	}
	for _, lookup := range lookups {
		h, err := lookup(ctx, identifier)
		if err == nil {
			return h, nil
		}
		if !apperrors.IsNotFound(err) {
			return models.Habit{}, fmt.Errorf("failed to load habit %s: %w", identifier, err)
		}
	}

	if fuzzy {
		habits, err := e.store.GetAllHabits(ctx, false)
		if err != nil {
			return models.Habit{}, fmt.Errorf("failed to load habits: %w", err)
		}
		return matcher.Match(identifier, habits)
	}
	return models.Habit{}, &apperrors.ValidationError{Reason: apperrors.ReasonUnknownHabit, Entity: "habit", ID: identifier}
}

// ResolveReward looks a reward up by id, name or slug.
func (e *Engine) ResolveReward(ctx context.Context, identifier string) (models.Reward, error) {
	lookups := []func(context.Context, string) (models.Reward, error){
		e.store.GetReward,
		e.store.GetRewardByName,
		e.store.GetRewardBySlug,
	}
	for _, lookup := range lookups {
		r, err := lookup(ctx, identifier)
		if err == nil {
			return r, nil
		}
		if !apperrors.IsNotFound(err) {
			return models.Reward{}, fmt.Errorf("failed to load reward %s: %w", identifier, err)
		}
	}
	return models.Reward{}, &apperrors.ValidationError{Reason: apperrors.ReasonUnknownReward, Entity: "reward", ID: identifier}
}

// Today is the current day in the engine's clock.
func (e *Engine) Today() string {
	return clock.Today(e.clock)
}
