package storage

import (
	"context"
	"fmt"

	"discuss_go/models"
)

// CreateUser регистрирует идентификатор зрителя. Аутентификация живёт вне ядра.
func (q *Queries) CreateUser(ctx context.Context, u models.User) (*models.User, error) {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO app_user (id, username, created_at) VALUES ($1, $2, $3)`,
		u.ID, u.Username, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %s: %w", u.ID, ErrConflict)
		}
		return nil, err
	}
	return &u, nil
}

// UserExists проверяет, известен ли идентификатор зрителя.
func (q *Queries) UserExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := q.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM app_user WHERE id = $1)`, id,
	).Scan(&exists)
	return exists, err
}
