// Package treestate вычисляет состояние дерева комментариев глазами одного зрителя.
//
// Состояние не хранится: каждый запрос заново считает его по снимку поддерева,
// прочитанному одной транзакцией.
package treestate

import (
	"fmt"
	"sort"

	"discuss_go/internal/criticalthread"
	"discuss_go/internal/lineage"
	"discuss_go/internal/replytree"
	"discuss_go/models"
	"discuss_go/pkg/storage"
	"discuss_go/pkg/tally"
)

// supportPrior — равномерное априорное Beta(1,1): среднее 0.5 с весом 2.
var supportPrior = tally.Estimate{Average: models.DefaultP, Weight: 2}

// Engine — вычислитель CommentTreeState. Не имеет изменяемого состояния и
// безопасен для одновременного использования.
type Engine struct {
	policy Policy
}

func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

type view struct {
	snap *storage.Snapshot
	ix   *lineage.Index
	src  *replytree.MemorySource
}

// Compute строит состояние для всех постов снимка.
func (e *Engine) Compute(snap *storage.Snapshot, viewerID string) (*models.CommentTreeState, error) {
	v := view{
		snap: snap,
		ix:   lineage.New(snap.Edges),
		src:  replytree.FromSnapshot(snap),
	}
	if _, ok := v.src.Post(snap.RootID); !ok {
		return nil, fmt.Errorf("post %d: %w", snap.RootID, storage.ErrNotFound)
	}

	ids := make([]int64, 0, len(snap.Posts))
	for _, p := range snap.Posts {
		ids = append(ids, p.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	state := &models.CommentTreeState{
		TargetPostID:                snap.RootID,
		CriticalCommentIDToTargetID: make(map[int64][]int64),
		Posts:                       make(map[int64]models.PostViewState, len(ids)),
	}
	for _, id := range ids {
		post, _ := v.src.Post(id)
		current := v.critical(id)

		ps := models.PostViewState{IsDeleted: post.IsDeleted()}
		if current != nil {
			cid := current.Post.ID
			ps.CriticalCommentID = &cid
			state.CriticalCommentIDToTargetID[cid] = append(state.CriticalCommentIDToTargetID[cid], id)
		}
		if vote, ok := snap.Votes[id]; ok {
			ps.VoteState = models.VoteState{
				Vote:       vote.Vote,
				IsInformed: e.policy.Informed(vote, viewerID, current, v.thread(id, vote.CriticalCommentID)),
			}
		}
		v.annotate(&ps, id)
		state.Posts[id] = ps
	}
	return state, nil
}

// critical выбирает критический комментарий поста по эффектам снимка.
func (v view) critical(postID int64) *Thread {
	edges := v.ix.DescendantEdges(postID)
	candidates := make([]criticalthread.Candidate, 0, len(edges))
	for _, edge := range edges {
		d, ok := v.src.Post(edge.DescendantID)
		if !ok {
			continue
		}
		candidates = append(candidates, criticalthread.Candidate{
			CommentID:  d.ID,
			Weight:     models.WeightOf(v.src.EffectOf(postID, d.ID)),
			Separation: edge.Separation,
			Deleted:    d.IsDeleted(),
		})
	}
	return v.thread(postID, criticalthread.Resolve(candidates))
}

func (v view) thread(postID int64, commentID *int64) *Thread {
	if commentID == nil {
		return nil
	}
	c, ok := v.src.Post(*commentID)
	if !ok {
		return nil
	}
	return &Thread{Post: c, Weight: models.WeightOf(v.src.EffectOf(postID, c.ID))}
}

func (v view) annotate(ps *models.PostViewState, postID int64) {
	score, ok := v.src.ScoreOf(postID)
	if !ok {
		score = models.DefaultScore(postID)
	}
	ps.VoteCount = score.OSize
	ps.P = score.P
	ps.Support = tally.Update(supportPrior, tally.Tally{
		Count: float64(score.OCount),
		Total: float64(score.OSize),
	}).Average

	if postID == v.snap.RootID {
		return
	}
	if eff := v.src.EffectOf(v.snap.RootID, postID); eff != nil {
		ps.EffectOnTarget = eff
		ps.EffectSize = tally.EffectSize(eff.P, eff.Q, eff.PSize)
	}
}
