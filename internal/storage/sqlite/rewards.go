package sqlite

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitreward/internal/models"
	"github.com/julianstephens/habitreward/internal/storage"
)

const rewardColumns = "id, name, slug, weight, kind, is_cumulative, pieces_required, piece_value, sort_order, active, created_at"

func scanReward(row rowScanner) (models.Reward, error) {
	var r models.Reward
	var kind, createdAt string
	err := row.Scan(&r.ID, &r.Name, &r.Slug, &r.Weight, &kind, &r.IsCumulative,
		&r.PiecesRequired, &r.PieceValue, &r.SortOrder, &r.Active, &createdAt)
	if err != nil {
		return models.Reward{}, err
	}
	if r.Kind, err = models.ParseRewardKind(kind); err != nil {
		return models.Reward{}, err
	}
	if r.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
		return models.Reward{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return r, nil
}

func (s *Store) AddReward(ctx context.Context, reward models.Reward) error {
	return s.UpdateReward(ctx, reward)
}

func (s *Store) GetReward(ctx context.Context, id string) (models.Reward, error) {
	return s.queryReward(ctx, "id = ?", id)
}

func (s *Store) GetRewardByName(ctx context.Context, name string) (models.Reward, error) {
	return s.queryReward(ctx, "lower(name) = lower(?)", name)
}

func (s *Store) GetRewardBySlug(ctx context.Context, slug string) (models.Reward, error) {
	return s.queryReward(ctx, "slug = ?", slug)
}

func (s *Store) queryReward(ctx context.Context, where, arg string) (models.Reward, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+rewardColumns+" FROM rewards WHERE "+where, arg)
	r, err := scanReward(row)
	if err != nil {
		return models.Reward{}, notFound(err, "reward", arg)
	}
	return r, nil
}

func (s *Store) GetActiveRewards(ctx context.Context) ([]models.Reward, error) {
	return s.GetAllRewards(ctx, false)
}

func (s *Store) GetAllRewards(ctx context.Context, includeInactive bool) ([]models.Reward, error) {
	query := "SELECT " + rewardColumns + " FROM rewards"
	if !includeInactive {
		query += " WHERE active = 1"
	}
	query += " ORDER BY sort_order, name"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rewards []models.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, err
		}
		rewards = append(rewards, r)
	}
	return rewards, rows.Err()
}

func (s *Store) UpdateReward(ctx context.Context, reward models.Reward) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rewards (id, name, slug, weight, kind, is_cumulative, pieces_required, piece_value, sort_order, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			slug = excluded.slug,
			weight = excluded.weight,
			kind = excluded.kind,
			is_cumulative = excluded.is_cumulative,
			pieces_required = excluded.pieces_required,
			piece_value = excluded.piece_value,
			sort_order = excluded.sort_order,
			active = excluded.active`,
		reward.ID, reward.Name, reward.Slug, reward.Weight, string(reward.Kind), reward.IsCumulative,
		reward.PiecesRequired, reward.PieceValue, reward.SortOrder, reward.Active, storage.FormatTime(reward.CreatedAt))
	return err
}
