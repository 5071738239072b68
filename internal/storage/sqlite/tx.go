package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/julianstephens/habitreward/internal/models"
	"github.com/julianstephens/habitreward/internal/storage"
)

type txStore struct {
	tx *sql.Tx
}

// LockCompletion is a no-op: BEGIN IMMEDIATE already holds the database
// write lock for the whole transaction.
func (t *txStore) LockCompletion(context.Context, string, string) error {
	return nil
}

// LockUser is a no-op for the same reason.
func (t *txStore) LockUser(context.Context, string) error {
	return nil
}

func (t *txStore) PriorLog(ctx context.Context, userID, habitID, day string) (models.HabitLog, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+logColumns+` FROM habit_logs
		WHERE user_id = ? AND habit_id = ? AND completion_date <= ?
		ORDER BY completion_date DESC, seq DESC
		LIMIT 1`, userID, habitID, day)
	l, err := scanLog(row)
	if err != nil {
		return models.HabitLog{}, notFound(err, "prior log", day)
	}
	return l, nil
}

func (t *txStore) LogsAfter(ctx context.Context, userID, habitID, day string) ([]models.HabitLog, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+logColumns+` FROM habit_logs
		WHERE user_id = ? AND habit_id = ? AND completion_date > ?
		ORDER BY completion_date, seq`, userID, habitID, day)
	if err != nil {
		return nil, err
	}
	return scanLogs(rows)
}

func (t *txStore) GrantedOn(ctx context.Context, userID, day string) (map[string]bool, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT DISTINCT reward_id FROM habit_logs
		WHERE user_id = ? AND logged_on = ? AND got_reward = ? AND reward_id IS NOT NULL`,
		userID, day, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	granted := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		granted[id] = true
	}
	return granted, rows.Err()
}

func (t *txStore) InsertLog(ctx context.Context, log models.HabitLog) (models.HabitLog, error) {
	var rewardID sql.NullString
	if log.RewardID != "" {
		rewardID = sql.NullString{String: log.RewardID, Valid: true}
	}
	row := t.tx.QueryRowContext(ctx, `
		INSERT INTO habit_logs (id, user_id, habit_id, completion_date, logged_on, logged_at,
			streak_count, habit_weight, total_weight_applied, reward_id, got_reward)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING seq`,
		log.ID, log.UserID, log.HabitID, log.CompletionDate, log.LoggedOn, storage.FormatTime(log.LoggedAt),
		log.StreakCount, log.HabitWeight, log.TotalWeightApplied, rewardID, log.GotReward)
	if err := row.Scan(&log.Seq); err != nil {
		return models.HabitLog{}, fmt.Errorf("failed to insert habit log: %w", err)
	}
	return log, nil
}

func (t *txStore) UpdateLogStreak(ctx context.Context, logID string, streak int) error {
	res, err := t.tx.ExecContext(ctx, "UPDATE habit_logs SET streak_count = ? WHERE id = ?", streak, logID)
	if err != nil {
		return fmt.Errorf("failed to update streak of log %s: %w", logID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(sql.ErrNoRows, "log", logID)
	}
	return nil
}

func (t *txStore) GetProgress(ctx context.Context, userID, rewardID string) (models.RewardProgress, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+progressColumns+` FROM reward_progress
		WHERE user_id = ? AND reward_id = ?`, userID, rewardID)
	p, err := scanProgress(row)
	if err != nil {
		return models.RewardProgress{}, notFound(err, "progress", userID+"/"+rewardID)
	}
	return p, nil
}

func (t *txStore) SaveProgress(ctx context.Context, p models.RewardProgress) error {
	var claimedAt sql.NullString
	if p.ClaimedAt != nil {
		claimedAt = sql.NullString{String: storage.FormatTime(*p.ClaimedAt), Valid: true}
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO reward_progress (user_id, reward_id, pieces_earned, pieces_required, claimed, claimed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, reward_id) DO UPDATE SET
			pieces_earned = excluded.pieces_earned,
			pieces_required = excluded.pieces_required,
			claimed = excluded.claimed,
			claimed_at = excluded.claimed_at,
			updated_at = excluded.updated_at`,
		p.UserID, p.RewardID, p.PiecesEarned, p.PiecesRequired, p.Claimed, claimedAt, storage.FormatTime(p.UpdatedAt))
	return err
}
