// Package streak implements the per-(user, habit) consecutive-day rules.
//
// A completion's streak depends only on the log immediately preceding it
// (the latest log dated on or before its completion date):
//
//	no prior log            -> 1
//	prior on the same day   -> prior streak (same-day re-log)
//	prior on the day before -> prior streak + 1
//	anything else           -> 1
package streak

import (
	"fmt"

	"github.com/julianstephens/habitreward/internal/clock"
	"github.com/julianstephens/habitreward/internal/models"
)

// Compute returns the streak for a completion credited to day, given the
// latest log for the same (user, habit) dated on or before day.
func Compute(prior *models.HabitLog, day string) (int, error) {
	if prior == nil {
		return 1, nil
	}
	gap, err := clock.DaysBetween(prior.CompletionDate, day)
	if err != nil {
		return 0, fmt.Errorf("computing streak: %w", err)
	}
	switch gap {
	case 0:
		return prior.StreakCount, nil
	case 1:
		return prior.StreakCount + 1, nil
	default:
		return 1, nil
	}
}

// Update is a corrected streak value for an existing log.
type Update struct {
	LogID string
	Old   int
	New   int
}

// Recompute walks the logs that follow anchor (ascending by completion date,
// then sequence) and returns the streak corrections needed to keep the chain
// consistent. The walk stops at the first log whose stored value is already
// correct, since every later value depends only on its predecessor.
func Recompute(anchor models.HabitLog, later []models.HabitLog) ([]Update, error) {
	var updates []Update
	prev := anchor
	for _, l := range later {
		want, err := Compute(&prev, l.CompletionDate)
		if err != nil {
			return nil, err
		}
		if want == l.StreakCount {
			break
		}
		updates = append(updates, Update{LogID: l.ID, Old: l.StreakCount, New: want})
		l.StreakCount = want
		prev = l
	}
	return updates, nil
}

// Check verifies a full chain (ascending order) and returns the first log
// whose stored streak disagrees with its predecessor.
func Check(chain []models.HabitLog) (*Update, error) {
	var prev *models.HabitLog
	for i := range chain {
		want, err := Compute(prev, chain[i].CompletionDate)
		if err != nil {
			return nil, err
		}
		if want != chain[i].StreakCount {
			return &Update{LogID: chain[i].ID, Old: chain[i].StreakCount, New: want}, nil
		}
		prev = &chain[i]
	}
	return nil, nil
}
