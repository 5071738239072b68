package sqlite

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitreward/internal/models"
	"github.com/julianstephens/habitreward/internal/storage"
)

const userColumns = "id, external_id, name, locale, active, created_at"

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	var createdAt string
	if err := row.Scan(&u.ID, &u.ExternalID, &u.Name, &u.Locale, &u.Active, &createdAt); err != nil {
		return models.User{}, err
	}
	t, err := storage.ParseTime(createdAt)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	u.CreatedAt = t
	return u, nil
}

func (s *Store) AddUser(ctx context.Context, user models.User) error {
	return s.UpdateUser(ctx, user)
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if err != nil {
		return models.User{}, notFound(err, "user", id)
	}
	return u, nil
}

func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE external_id = ?", externalID)
	u, err := scanUser(row)
	if err != nil {
		return models.User{}, notFound(err, "user", externalID)
	}
	return u, nil
}

func (s *Store) GetAllUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY external_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, user models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, external_id, name, locale, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			external_id = excluded.external_id,
			name = excluded.name,
			locale = excluded.locale,
			active = excluded.active`,
		user.ID, user.ExternalID, user.Name, user.Locale, user.Active, storage.FormatTime(user.CreatedAt))
	return err
}
