package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"discuss_go/models"
)

const voteColumns = `vote_event_id, user_id, post_id, parent_id, vote, vote_event_time, critical_comment_id, is_informed`

func scanVote(row rowScanner) (models.VoteEvent, error) {
	var (
		v          models.VoteEvent
		parentID   sql.NullInt64
		criticalID sql.NullInt64
	)
	if err := row.Scan(&v.VoteEventID, &v.UserID, &v.PostID, &parentID, &v.Vote, &v.VoteEventTime, &criticalID, &v.IsInformed); err != nil {
		return models.VoteEvent{}, err
	}
	if parentID.Valid {
		id := parentID.Int64
		v.ParentID = &id
	}
	if criticalID.Valid {
		id := criticalID.Int64
		v.CriticalCommentID = &id
	}
	return v, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// InsertVoteEvent добавляет событие в историю голосов. История только растёт:
// смена голоса — новое событие, а не UPDATE.
func (q *Queries) InsertVoteEvent(ctx context.Context, v models.VoteEvent) (*models.VoteEvent, error) {
	err := q.q.QueryRowContext(ctx, `
		INSERT INTO vote_event (user_id, post_id, parent_id, vote, vote_event_time, critical_comment_id, is_informed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING vote_event_id
	`, v.UserID, v.PostID, nullableID(v.ParentID), int(v.Vote), v.VoteEventTime, nullableID(v.CriticalCommentID), v.IsInformed,
	).Scan(&v.VoteEventID)
	if err != nil {
		return nil, fmt.Errorf("insert vote event: %w", err)
	}
	return &v, nil
}

func (q *Queries) GetVoteEvent(ctx context.Context, id int64) (*models.VoteEvent, error) {
	v, err := scanVote(q.q.QueryRowContext(ctx,
		`SELECT `+voteColumns+` FROM vote_event WHERE vote_event_id = $1`, id,
	))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("vote event %d", id))
	}
	return &v, nil
}

// LatestVote возвращает текущий голос пользователя за пост или nil.
func (q *Queries) LatestVote(ctx context.Context, userID string, postID int64) (*models.VoteEvent, error) {
	v, err := scanVote(q.q.QueryRowContext(ctx, `
		SELECT `+voteColumns+`
		FROM vote_event
		WHERE user_id = $1 AND post_id = $2
		ORDER BY vote_event_id DESC
		LIMIT 1
	`, userID, postID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListSubtreeVotes возвращает последний голос зрителя за каждый пост поддерева.
func (q *Queries) ListSubtreeVotes(ctx context.Context, rootID int64, userID string) (map[int64]models.VoteEvent, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+voteColumns+`
		FROM vote_event v
		WHERE v.user_id = $1
		  AND v.vote_event_id = (
		        SELECT MAX(v2.vote_event_id) FROM vote_event v2
		        WHERE v2.user_id = v.user_id AND v2.post_id = v.post_id)
		  AND (v.post_id = $2
		       OR v.post_id IN (SELECT descendant_id FROM lineage WHERE ancestor_id = $2))
	`, userID, rootID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := make(map[int64]models.VoteEvent)
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		votes[v.PostID] = v
	}
	return votes, rows.Err()
}

// PendingVoteEvents возвращает события, по которым движок ещё не прислал Score
// для самого поста, за который голосовали.
// Используется для повторной отправки после сбоя между коммитом и доставкой.
func (q *Queries) PendingVoteEvents(ctx context.Context, limit int) ([]models.VoteEvent, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+voteColumns+`
		FROM vote_event v
		WHERE NOT EXISTS (
			SELECT 1 FROM score s
			WHERE s.vote_event_id = v.vote_event_id AND s.post_id = v.post_id
		)
		ORDER BY v.vote_event_id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.VoteEvent
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, v)
	}
	return events, rows.Err()
}
