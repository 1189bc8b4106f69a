package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"discuss_go/models"
)

const scoreColumns = `vote_event_id, vote_event_time, post_id, o, o_count, o_size, p, score`

func scanScore(row rowScanner) (models.Score, error) {
	var s models.Score
	err := row.Scan(&s.VoteEventID, &s.VoteEventTime, &s.PostID, &s.O, &s.OCount, &s.OSize, &s.P, &s.Score)
	return s, err
}

// InsertScore сохраняет Score от движка. Ключ (vote_event_id, post_id) уникален:
// повторная доставка того же события игнорируется и не меняет сохранённые значения.
// inserted=false означает, что строка уже была.
func (q *Queries) InsertScore(ctx context.Context, s models.Score) (inserted bool, err error) {
	res, err := q.q.ExecContext(ctx, `
		INSERT INTO score (`+scoreColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (vote_event_id, post_id) DO NOTHING
	`, s.VoteEventID, s.VoteEventTime, s.PostID, s.O, s.OCount, s.OSize, s.P, s.Score)
	if err != nil {
		return false, fmt.Errorf("insert score for post %d: %w", s.PostID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ScoreOf возвращает последний Score поста или nil, если голосов ещё не было.
func (q *Queries) ScoreOf(ctx context.Context, postID int64) (*models.Score, error) {
	s, err := scanScore(q.q.QueryRowContext(ctx, `
		SELECT `+scoreColumns+`
		FROM score
		WHERE post_id = $1
		ORDER BY vote_event_id DESC
		LIMIT 1
	`, postID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSubtreeScores возвращает последний Score для каждого поста поддерева.
func (q *Queries) ListSubtreeScores(ctx context.Context, rootID int64) (map[int64]models.Score, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+scoreColumns+`
		FROM score s
		WHERE s.vote_event_id = (SELECT MAX(s2.vote_event_id) FROM score s2 WHERE s2.post_id = s.post_id)
		  AND (s.post_id = $1
		       OR s.post_id IN (SELECT descendant_id FROM lineage WHERE ancestor_id = $1))
	`, rootID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make(map[int64]models.Score)
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		scores[s.PostID] = s
	}
	return scores, rows.Err()
}

// ListScoresForVoteEvent возвращает все Score, порождённые событием голоса.
func (q *Queries) ListScoresForVoteEvent(ctx context.Context, voteEventID int64) ([]models.Score, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+scoreColumns+` FROM score WHERE vote_event_id = $1 ORDER BY post_id
	`, voteEventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []models.Score
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}
