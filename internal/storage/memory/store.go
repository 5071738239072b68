// Package memory is an in-process storage.Provider. Transactions run on a
// copy of the state that replaces the original only on success, so a failed
// transaction leaves nothing behind.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/julianstephens/habitreward/internal/errors"
	"github.com/julianstephens/habitreward/internal/models"
	"github.com/julianstephens/habitreward/internal/storage"
)

type state struct {
	settings *models.Settings
	users    map[string]models.User
	habits   map[string]models.Habit
	rewards  map[string]models.Reward
	logs     []models.HabitLog
	progress map[string]models.RewardProgress
	seq      int64
}

func newState() *state {
	return &state{
		users:    map[string]models.User{},
		habits:   map[string]models.Habit{},
		rewards:  map[string]models.Reward{},
		progress: map[string]models.RewardProgress{},
	}
}

func (s *state) clone() *state {
	c := &state{
		users:    make(map[string]models.User, len(s.users)),
		habits:   make(map[string]models.Habit, len(s.habits)),
		rewards:  make(map[string]models.Reward, len(s.rewards)),
		logs:     append([]models.HabitLog(nil), s.logs...),
		progress: make(map[string]models.RewardProgress, len(s.progress)),
		seq:      s.seq,
	}
	if s.settings != nil {
		settings := *s.settings
		c.settings = &settings
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.habits {
		c.habits[k] = v
	}
	for k, v := range s.rewards {
		c.rewards[k] = v
	}
	for k, v := range s.progress {
		c.progress[k] = v
	}
	return c
}

// Store is safe for concurrent use. Writers, transactional or not, are
// serialized.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	st      *state

	// FailOn, when set, is consulted before every transactional write with
	// the operation name ("insert_log", "update_log", "save_progress"). A
	// non-nil result fails that write.
	FailOn func(op string) error
}

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) Init(ctx context.Context) error {
	if _, err := s.GetSettings(ctx); err != nil {
		return s.SaveSettings(ctx, models.DefaultSettings())
	}
	return nil
}

func (s *Store) Load(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }
func (s *Store) GetConfigPath() string      { return "memory" }

func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

func (s *Store) write(fn func(st *state) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) GetSettings(context.Context) (models.Settings, error) {
	var out models.Settings
	err := s.read(func(st *state) error {
		if st.settings == nil {
			return fmt.Errorf("settings: %w", apperrors.ErrNotFound)
		}
		out = *st.settings
		return nil
	})
	return out, err
}

func (s *Store) SaveSettings(_ context.Context, settings models.Settings) error {
	return s.write(func(st *state) error {
		st.settings = &settings
		return nil
	})
}

// Users

func (s *Store) AddUser(ctx context.Context, user models.User) error {
	return s.UpdateUser(ctx, user)
}

func (s *Store) GetUser(_ context.Context, id string) (models.User, error) {
	var out models.User
	err := s.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return fmt.Errorf("user %s: %w", id, apperrors.ErrNotFound)
		}
		out = u
		return nil
	})
	return out, err
}

func (s *Store) GetUserByExternalID(_ context.Context, externalID string) (models.User, error) {
	var out models.User
	err := s.read(func(st *state) error {
		for _, u := range st.users {
			if u.ExternalID == externalID {
				out = u
				return nil
			}
		}
		return fmt.Errorf("user %s: %w", externalID, apperrors.ErrNotFound)
	})
	return out, err
}

func (s *Store) GetAllUsers(context.Context) ([]models.User, error) {
	var out []models.User
	err := s.read(func(st *state) error {
		for _, u := range st.users {
			out = append(out, u)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out, err
}

func (s *Store) UpdateUser(_ context.Context, user models.User) error {
	return s.write(func(st *state) error {
		st.users[user.ID] = user
		return nil
	})
}

// Habits

func (s *Store) AddHabit(ctx context.Context, habit models.Habit) error {
	return s.UpdateHabit(ctx, habit)
}

func (s *Store) GetHabit(_ context.Context, id string) (models.Habit, error) {
	return s.findHabit(id, func(h models.Habit) bool { return h.ID == id })
}

func (s *Store) GetHabitByName(_ context.Context, name string) (models.Habit, error) {
	return s.findHabit(name, func(h models.Habit) bool { return strings.EqualFold(h.Name, name) })
}

func (s *Store) GetHabitBySlug(_ context.Context, slug string) (models.Habit, error) {
	return s.findHabit(slug, func(h models.Habit) bool { return h.Slug == slug })
}

func (s *Store) findHabit(key string, match func(models.Habit) bool) (models.Habit, error) {
	var out models.Habit
	err := s.read(func(st *state) error {
		for _, h := range st.habits {
			if match(h) {
				out = h
				return nil
			}
		}
		return fmt.Errorf("habit %s: %w", key, apperrors.ErrNotFound)
	})
	return out, err
}

func (s *Store) GetAllHabits(_ context.Context, includeInactive bool) ([]models.Habit, error) {
	var out []models.Habit
	err := s.read(func(st *state) error {
		for _, h := range st.habits {
			if h.Active || includeInactive {
				out = append(out, h)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, err
}

func (s *Store) UpdateHabit(_ context.Context, habit models.Habit) error {
	return s.write(func(st *state) error {
		st.habits[habit.ID] = habit
		return nil
	})
}

// Rewards

func (s *Store) AddReward(ctx context.Context, reward models.Reward) error {
	return s.UpdateReward(ctx, reward)
}

func (s *Store) GetReward(_ context.Context, id string) (models.Reward, error) {
	return s.findReward(id, func(r models.Reward) bool { return r.ID == id })
}

func (s *Store) GetRewardByName(_ context.Context, name string) (models.Reward, error) {
	return s.findReward(name, func(r models.Reward) bool { return strings.EqualFold(r.Name, name) })
}

func (s *Store) GetRewardBySlug(_ context.Context, slug string) (models.Reward, error) {
	return s.findReward(slug, func(r models.Reward) bool { return r.Slug == slug })
}

func (s *Store) findReward(key string, match func(models.Reward) bool) (models.Reward, error) {
	var out models.Reward
	err := s.read(func(st *state) error {
		for _, r := range st.rewards {
			if match(r) {
				out = r
				return nil
			}
		}
		return fmt.Errorf("reward %s: %w", key, apperrors.ErrNotFound)
	})
	return out, err
}

func (s *Store) GetActiveRewards(ctx context.Context) ([]models.Reward, error) {
	return s.GetAllRewards(ctx, false)
}

func (s *Store) GetAllRewards(_ context.Context, includeInactive bool) ([]models.Reward, error) {
	var out []models.Reward
	err := s.read(func(st *state) error {
		for _, r := range st.rewards {
			if r.Active || includeInactive {
				out = append(out, r)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, err
}

func (s *Store) UpdateReward(_ context.Context, reward models.Reward) error {
	return s.write(func(st *state) error {
		st.rewards[reward.ID] = reward
		return nil
	})
}

// Reporting

func (s *Store) GetHabitLogs(_ context.Context, userID, habitID string) ([]models.HabitLog, error) {
	var out []models.HabitLog
	err := s.read(func(st *state) error {
		for _, l := range st.logs {
			if l.UserID == userID && l.HabitID == habitID {
				out = append(out, l)
			}
		}
		return nil
	})
	sortLogs(out)
	return out, err
}

func (s *Store) GetAllProgress(_ context.Context, userID string) ([]models.RewardProgress, error) {
	var out []models.RewardProgress
	err := s.read(func(st *state) error {
		for _, p := range st.progress {
			if p.UserID == userID {
				out = append(out, p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].RewardID < out[j].RewardID })
	return out, err
}

// WithTx runs fn against a private copy of the state and publishes it only
// when fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	working := s.st.clone()
	s.mu.RUnlock()

	if err := fn(&tx{st: working, failOn: s.FailOn}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = working
	s.mu.Unlock()
	return nil
}

func sortLogs(logs []models.HabitLog) {
	sort.Slice(logs, func(i, j int) bool { return logs[i].Before(&logs[j]) })
}

func progressKey(userID, rewardID string) string {
	return userID + "\x00" + rewardID
}
