package memory

import (
	"context"
	"fmt"

	apperrors "github.com/julianstephens/habitreward/internal/errors"
	"github.com/julianstephens/habitreward/internal/models"
)

type tx struct {
	st     *state
	failOn func(op string) error
}

func (t *tx) check(op string) error {
	if t.failOn == nil {
		return nil
	}
	return t.failOn(op)
}

// LockCompletion is a no-op: WithTx already holds the store's writer lock.
func (t *tx) LockCompletion(context.Context, string, string) error { return nil }

func (t *tx) LockUser(context.Context, string) error { return nil }

func (t *tx) PriorLog(_ context.Context, userID, habitID, day string) (models.HabitLog, error) {
	var best *models.HabitLog
	for i := range t.st.logs {
		l := &t.st.logs[i]
		if l.UserID != userID || l.HabitID != habitID || l.CompletionDate > day {
			continue
		}
		if best == nil || best.Before(l) {
			best = l
		}
	}
	if best == nil {
		return models.HabitLog{}, fmt.Errorf("prior log: %w", apperrors.ErrNotFound)
	}
	return *best, nil
}

func (t *tx) LogsAfter(_ context.Context, userID, habitID, day string) ([]models.HabitLog, error) {
	var out []models.HabitLog
	for _, l := range t.st.logs {
		if l.UserID == userID && l.HabitID == habitID && l.CompletionDate > day {
			out = append(out, l)
		}
	}
	sortLogs(out)
	return out, nil
}

func (t *tx) GrantedOn(_ context.Context, userID, day string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, l := range t.st.logs {
		if l.UserID == userID && l.LoggedOn == day && l.GotReward {
			out[l.RewardID] = true
		}
	}
	return out, nil
}

func (t *tx) InsertLog(_ context.Context, log models.HabitLog) (models.HabitLog, error) {
	if err := t.check("insert_log"); err != nil {
		return models.HabitLog{}, err
	}
	t.st.seq++
	log.Seq = t.st.seq
	t.st.logs = append(t.st.logs, log)
	return log, nil
}

func (t *tx) UpdateLogStreak(_ context.Context, logID string, streak int) error {
	if err := t.check("update_log"); err != nil {
		return err
	}
	for i := range t.st.logs {
		if t.st.logs[i].ID == logID {
			t.st.logs[i].StreakCount = streak
			return nil
		}
	}
	return fmt.Errorf("log %s: %w", logID, apperrors.ErrNotFound)
}

func (t *tx) GetProgress(_ context.Context, userID, rewardID string) (models.RewardProgress, error) {
	p, ok := t.st.progress[progressKey(userID, rewardID)]
	if !ok {
		return models.RewardProgress{}, fmt.Errorf("progress %s/%s: %w", userID, rewardID, apperrors.ErrNotFound)
	}
	return p, nil
}

func (t *tx) SaveProgress(_ context.Context, p models.RewardProgress) error {
	if err := t.check("save_progress"); err != nil {
		return err
	}
	t.st.progress[progressKey(p.UserID, p.RewardID)] = p
	return nil
}
