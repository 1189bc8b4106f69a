package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"discuss_go/models"
)

const effectColumns = `vote_event_id, vote_event_time, post_id, comment_id, p, p_count, p_size, q, q_count, q_size, r, weight`

func scanEffect(row rowScanner) (models.Effect, error) {
	var e models.Effect
	err := row.Scan(
		&e.VoteEventID, &e.VoteEventTime, &e.PostID, &e.CommentID,
		&e.P, &e.PCount, &e.PSize,
		&e.Q, &e.QCount, &e.QSize,
		&e.R, &e.Weight,
	)
	return e, err
}

// InsertEffect сохраняет Effect от движка. Ключ (vote_event_id, post_id, comment_id)
// уникален: повтор не перезаписывает ранее закоммиченную строку.
func (q *Queries) InsertEffect(ctx context.Context, e models.Effect) (inserted bool, err error) {
	res, err := q.q.ExecContext(ctx, `
		INSERT INTO effect (`+effectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (vote_event_id, post_id, comment_id) DO NOTHING
	`, e.VoteEventID, e.VoteEventTime, e.PostID, e.CommentID,
		e.P, e.PCount, e.PSize,
		e.Q, e.QCount, e.QSize,
		e.R, e.Weight,
	)
	if err != nil {
		return false, fmt.Errorf("insert effect %d->%d: %w", e.CommentID, e.PostID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// EffectOf возвращает последний Effect потомка на предка или nil, если связи не наблюдалось.
func (q *Queries) EffectOf(ctx context.Context, ancestorID, descendantID int64) (*models.Effect, error) {
	e, err := scanEffect(q.q.QueryRowContext(ctx, `
		SELECT `+effectColumns+`
		FROM effect
		WHERE post_id = $1 AND comment_id = $2
		ORDER BY vote_event_id DESC
		LIMIT 1
	`, ancestorID, descendantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListSubtreeEffects возвращает последние Effect для всех пар (предок, потомок),
// где предок лежит в поддереве rootID. Потомок в таком случае тоже в поддереве.
func (q *Queries) ListSubtreeEffects(ctx context.Context, rootID int64) ([]models.Effect, error) {
	return q.listEffects(ctx, `
		SELECT `+effectColumns+`
		FROM effect e
		WHERE e.vote_event_id = (
		        SELECT MAX(e2.vote_event_id) FROM effect e2
		        WHERE e2.post_id = e.post_id AND e2.comment_id = e.comment_id)
		  AND (e.post_id = $1
		       OR e.post_id IN (SELECT descendant_id FROM lineage WHERE ancestor_id = $1))
		ORDER BY e.post_id, e.comment_id
	`, rootID)
}

// ListEffectsForVoteEvent возвращает все Effect, порождённые событием голоса.
func (q *Queries) ListEffectsForVoteEvent(ctx context.Context, voteEventID int64) ([]models.Effect, error) {
	return q.listEffects(ctx, `
		SELECT `+effectColumns+` FROM effect WHERE vote_event_id = $1 ORDER BY post_id, comment_id
	`, voteEventID)
}

// DescendantEffect — потомок поста, его удалённость и последний Effect на этот пост.
type DescendantEffect struct {
	Post       models.Post
	Separation int
	Effect     *models.Effect
}

// ListDescendantEffects собирает кандидатов в критический комментарий поста:
// всех потомков (включая удалённых) с расстоянием и последним эффектом.
func (q *Queries) ListDescendantEffects(ctx context.Context, postID int64) ([]DescendantEffect, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT p.id, p.parent_id, p.author_id, p.content, p.created_at, p.deleted_at, p.is_private,
		       l.separation, e.weight, e.vote_event_id
		FROM lineage l
		JOIN post p ON p.id = l.descendant_id
		LEFT JOIN effect e
		       ON e.post_id = l.ancestor_id
		      AND e.comment_id = l.descendant_id
		      AND e.vote_event_id = (
		            SELECT MAX(e2.vote_event_id) FROM effect e2
		            WHERE e2.post_id = l.ancestor_id AND e2.comment_id = l.descendant_id)
		WHERE l.ancestor_id = $1
		ORDER BY l.separation, p.id
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DescendantEffect
	for rows.Next() {
		var (
			p           models.Post
			parentID    sql.NullInt64
			deletedAt   sql.NullTime
			sep         int
			weight      sql.NullFloat64
			voteEventID sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &parentID, &p.AuthorID, &p.Content, &p.CreatedAt, &deletedAt, &p.IsPrivate,
			&sep, &weight, &voteEventID); err != nil {
			return nil, err
		}
		if parentID.Valid {
			v := parentID.Int64
			p.ParentID = &v
		}
		if deletedAt.Valid {
			t := deletedAt.Time
			p.DeletedAt = &t
		}
		d := DescendantEffect{Post: p, Separation: sep}
		if weight.Valid {
			d.Effect = &models.Effect{
				VoteEventID: voteEventID.Int64,
				PostID:      postID,
				CommentID:   p.ID,
				Weight:      weight.Float64,
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q *Queries) listEffects(ctx context.Context, query string, args ...any) ([]models.Effect, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var effects []models.Effect
	for rows.Next() {
		e, err := scanEffect(rows)
		if err != nil {
			return nil, err
		}
		effects = append(effects, e)
	}
	return effects, rows.Err()
}
