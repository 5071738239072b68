package sqlite

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitreward/internal/models"
	"github.com/julianstephens/habitreward/internal/storage"
)

const habitColumns = "id, name, slug, weight, active, created_at"

func scanHabit(row rowScanner) (models.Habit, error) {
	var h models.Habit
	var createdAt string
	if err := row.Scan(&h.ID, &h.Name, &h.Slug, &h.Weight, &h.Active, &createdAt); err != nil {
		return models.Habit{}, err
	}
	t, err := storage.ParseTime(createdAt)
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	h.CreatedAt = t
	return h, nil
}

func (s *Store) AddHabit(ctx context.Context, habit models.Habit) error {
	return s.UpdateHabit(ctx, habit)
}

func (s *Store) GetHabit(ctx context.Context, id string) (models.Habit, error) {
	return s.queryHabit(ctx, "id = ?", id)
}

func (s *Store) GetHabitByName(ctx context.Context, name string) (models.Habit, error) {
	return s.queryHabit(ctx, "lower(name) = lower(?)", name)
}

func (s *Store) GetHabitBySlug(ctx context.Context, slug string) (models.Habit, error) {
	return s.queryHabit(ctx, "slug = ?", slug)
}

func (s *Store) queryHabit(ctx context.Context, where, arg string) (models.Habit, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+habitColumns+" FROM habits WHERE "+where, arg)
	h, err := scanHabit(row)
	if err != nil {
		return models.Habit{}, notFound(err, "habit", arg)
	}
	return h, nil
}

func (s *Store) GetAllHabits(ctx context.Context, includeInactive bool) ([]models.Habit, error) {
	query := "SELECT " + habitColumns + " FROM habits"
	if !includeInactive {
		query += " WHERE active = 1"
	}
	query += " ORDER BY created_at, name"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var habits []models.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (s *Store) UpdateHabit(ctx context.Context, habit models.Habit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO habits (id, name, slug, weight, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			slug = excluded.slug,
			weight = excluded.weight,
			active = excluded.active`,
		habit.ID, habit.Name, habit.Slug, habit.Weight, habit.Active, storage.FormatTime(habit.CreatedAt))
	return err
}
