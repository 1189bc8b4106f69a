package storage

import (
	"context"
	"fmt"

	"discuss_go/models"
)

// Snapshot — всё, что нужно для построения дерева и состояния зрителя,
// прочитанное одной транзакцией.
type Snapshot struct {
	RootID  int64
	Posts   []models.Post
	Edges   []models.LineageEdge
	Scores  map[int64]models.Score
	Effects []models.Effect
	// Votes заполняется, только если снимок читался для конкретного зрителя.
	Votes map[int64]models.VoteEvent
}

// LoadSnapshot читает поддерево rootID. viewerID == "" — без истории голосов.
func (q *Queries) LoadSnapshot(ctx context.Context, rootID int64, viewerID string) (*Snapshot, error) {
	posts, err := q.ListSubtreePosts(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("post %d: %w", rootID, ErrNotFound)
	}
	edges, err := q.ListSubtreeLineage(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("load lineage: %w", err)
	}
	scores, err := q.ListSubtreeScores(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	effects, err := q.ListSubtreeEffects(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("load effects: %w", err)
	}

	snap := &Snapshot{
		RootID:  rootID,
		Posts:   posts,
		Edges:   edges,
		Scores:  scores,
		Effects: effects,
	}
	if viewerID != "" {
		votes, err := q.ListSubtreeVotes(ctx, rootID, viewerID)
		if err != nil {
			return nil, fmt.Errorf("load votes: %w", err)
		}
		snap.Votes = votes
	}
	return snap, nil
}
