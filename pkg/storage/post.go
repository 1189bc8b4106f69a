package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"discuss_go/models"
)

const postColumns = `id, parent_id, author_id, content, created_at, deleted_at, is_private`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (models.Post, error) {
	var (
		p         models.Post
		parentID  sql.NullInt64
		deletedAt sql.NullTime
	)
	if err := row.Scan(&p.ID, &parentID, &p.AuthorID, &p.Content, &p.CreatedAt, &deletedAt, &p.IsPrivate); err != nil {
		return models.Post{}, err
	}
	if parentID.Valid {
		v := parentID.Int64
		p.ParentID = &v
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		p.DeletedAt = &t
	}
	return p, nil
}

// CreatePost вставляет пост и возвращает его с присвоенным id.
// Рёбра lineage добавляет InsertLineage в той же транзакции.
func (q *Queries) CreatePost(ctx context.Context, p models.Post) (*models.Post, error) {
	var parentID any
	if p.ParentID != nil {
		parentID = *p.ParentID
	}
	err := q.q.QueryRowContext(ctx, `
		INSERT INTO post (parent_id, author_id, content, created_at, is_private)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, parentID, p.AuthorID, p.Content, p.CreatedAt, p.IsPrivate).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return &p, nil
}

func (q *Queries) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	p, err := scanPost(q.q.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM post WHERE id = $1`, id,
	))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("post %d", id))
	}
	return &p, nil
}

// SetPostDeleted выставляет или снимает deleted_at. nil означает восстановление.
func (q *Queries) SetPostDeleted(ctx context.Context, id int64, deletedAt *time.Time) error {
	var value any
	if deletedAt != nil {
		value = *deletedAt
	}
	res, err := q.q.ExecContext(ctx, `UPDATE post SET deleted_at = $1 WHERE id = $2`, value, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("post %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListSubtreePosts возвращает корень и всех его потомков, включая удалённых,
// в порядке создания.
func (q *Queries) ListSubtreePosts(ctx context.Context, rootID int64) ([]models.Post, error) {
	return q.listPosts(ctx, `
		SELECT `+postColumns+`
		FROM post
		WHERE id = $1
		   OR id IN (SELECT descendant_id FROM lineage WHERE ancestor_id = $1)
		ORDER BY created_at, id
	`, rootID)
}

func (q *Queries) listPosts(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	return posts, nil
}
