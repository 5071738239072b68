package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/julianstephens/habitreward/internal/models"
	"github.com/julianstephens/habitreward/internal/storage"
)

type rowScanner interface {
	Scan(dest ...any) error
}

const logColumns = "seq, id, user_id, habit_id, completion_date, logged_on, logged_at, streak_count, habit_weight, total_weight_applied, reward_id, got_reward"

func scanLog(row rowScanner) (models.HabitLog, error) {
	var l models.HabitLog
	var loggedAt string
	var rewardID sql.NullString
	err := row.Scan(&l.Seq, &l.ID, &l.UserID, &l.HabitID, &l.CompletionDate, &l.LoggedOn, &loggedAt,
		&l.StreakCount, &l.HabitWeight, &l.TotalWeightApplied, &rewardID, &l.GotReward)
	if err != nil {
		return models.HabitLog{}, err
	}
	if l.LoggedAt, err = storage.ParseTime(loggedAt); err != nil {
		return models.HabitLog{}, fmt.Errorf("failed to parse logged_at: %w", err)
	}
	l.RewardID = rewardID.String
	return l, nil
}

func scanLogs(rows *sql.Rows) ([]models.HabitLog, error) {
	defer rows.Close()
	var logs []models.HabitLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

const progressColumns = "user_id, reward_id, pieces_earned, pieces_required, claimed, claimed_at, updated_at"

func scanProgress(row rowScanner) (models.RewardProgress, error) {
	var p models.RewardProgress
	var claimedAt sql.NullString
	var updatedAt string
	err := row.Scan(&p.UserID, &p.RewardID, &p.PiecesEarned, &p.PiecesRequired, &p.Claimed, &claimedAt, &updatedAt)
	if err != nil {
		return models.RewardProgress{}, err
	}
	if p.UpdatedAt, err = storage.ParseTime(updatedAt); err != nil {
		return models.RewardProgress{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if claimedAt.Valid {
		t, err := storage.ParseTime(claimedAt.String)
		if err != nil {
			return models.RewardProgress{}, fmt.Errorf("failed to parse claimed_at: %w", err)
		}
		p.ClaimedAt = &t
	}
	return p, nil
}

func (s *Store) GetHabitLogs(ctx context.Context, userID, habitID string) ([]models.HabitLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+logColumns+` FROM habit_logs
		WHERE user_id = ? AND habit_id = ?
		ORDER BY completion_date, seq`, userID, habitID)
	if err != nil {
		return nil, err
	}
	return scanLogs(rows)
}

func (s *Store) GetAllProgress(ctx context.Context, userID string) ([]models.RewardProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+progressColumns+` FROM reward_progress
		WHERE user_id = ?
		ORDER BY reward_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RewardProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
