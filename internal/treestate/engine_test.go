package treestate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"discuss_go/internal/lineage"
	"discuss_go/models"
	"discuss_go/pkg/storage"
)

var t0 = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func at(minute int) time.Time {
	return t0.Add(time.Duration(minute) * time.Minute)
}

func reply(id, parent int64, minute int) models.Post {
	p := models.Post{ID: id, AuthorID: "author", Content: "text", CreatedAt: at(minute)}
	if parent != 0 {
		p.ParentID = &parent
	}
	return p
}

func snapshot(posts []models.Post, effects []models.Effect, votes ...models.VoteEvent) *storage.Snapshot {
	snap := &storage.Snapshot{
		RootID:  posts[0].ID,
		Posts:   posts,
		Edges:   lineage.Closure(posts),
		Scores:  map[int64]models.Score{},
		Effects: effects,
		Votes:   map[int64]models.VoteEvent{},
	}
	for _, v := range votes {
		snap.Votes[v.PostID] = v
	}
	return snap
}

func effect(event, post, comment int64, weight float64) models.Effect {
	return models.Effect{VoteEventID: event, PostID: post, CommentID: comment, Weight: weight}
}

func id(v int64) *int64 { return &v }

// T=1, C1=2 (0.05), C2=3 (0.3).
func discussion() []models.Post {
	return []models.Post{reply(1, 0, 0), reply(2, 1, 1), reply(3, 1, 3)}
}

func TestComputePicksCriticalComment(t *testing.T) {
	snap := snapshot(discussion(), []models.Effect{effect(1, 1, 2, 0.05), effect(2, 1, 3, 0.3)})

	state, err := NewEngine(Policy{}).Compute(snap, "viewer")
	require.NoError(t, err)

	require.Equal(t, int64(1), state.TargetPostID)
	require.Equal(t, id(3), state.Posts[1].CriticalCommentID)
	require.Nil(t, state.Posts[2].CriticalCommentID)
	require.Equal(t, map[int64][]int64{3: {1}}, state.CriticalCommentIDToTargetID)
}

// Чужой приватный критический комментарий остаётся в состоянии, но голос
// зрителя, который не мог его видеть, не считается информированным.
func TestComputePrivateCriticalCommentKeepsID(t *testing.T) {
	posts := discussion()
	posts[2].IsPrivate = true
	vote := models.VoteEvent{VoteEventID: 5, UserID: "viewer", PostID: 1, Vote: models.Up, VoteEventTime: at(5)}
	snap := snapshot(posts, []models.Effect{effect(1, 1, 2, 0.05), effect(2, 1, 3, 0.3)}, vote)

	state, err := NewEngine(Policy{}).Compute(snap, "viewer")
	require.NoError(t, err)
	require.Equal(t, id(3), state.Posts[1].CriticalCommentID)
	require.Equal(t, []int64{1}, state.CriticalCommentIDToTargetID[3])
	require.False(t, state.Posts[1].VoteState.IsInformed)

	author, err := NewEngine(Policy{}).Compute(snap, "author")
	require.NoError(t, err)
	require.Equal(t, id(3), author.Posts[1].CriticalCommentID)
}

// Голос за T до появления C2 остаётся неинформированным и после записи эффекта C2.
func TestComputeVoteBeforeCriticalComment(t *testing.T) {
	vote := models.VoteEvent{
		VoteEventID: 5, UserID: "viewer", PostID: 1, Vote: models.Up,
		VoteEventTime: at(2), CriticalCommentID: id(2), IsInformed: true,
	}
	snap := snapshot(discussion(), []models.Effect{effect(1, 1, 2, 0.05), effect(2, 1, 3, 0.3)}, vote)

	state, err := NewEngine(Policy{}).Compute(snap, "viewer")
	require.NoError(t, err)
	require.Equal(t, models.VoteState{Vote: models.Up, IsInformed: false}, state.Posts[1].VoteState)

	again, err := NewEngine(Policy{}).Compute(snap, "viewer")
	require.NoError(t, err)
	require.Equal(t, state, again)
}

func TestComputeDeadBandAbsorbsSmallIncrease(t *testing.T) {
	vote := models.VoteEvent{
		VoteEventID: 5, UserID: "viewer", PostID: 1, Vote: models.Down,
		VoteEventTime: at(2), CriticalCommentID: id(2), IsInformed: true,
	}
	snap := snapshot(discussion(), []models.Effect{effect(1, 1, 2, 0.05), effect(2, 1, 3, 0.3)}, vote)

	state, err := NewEngine(Policy{DeadBand: 0.5}).Compute(snap, "viewer")
	require.NoError(t, err)
	require.True(t, state.Posts[1].VoteState.IsInformed)
}

// Удаление C2 откатывает критический комментарий к C1, не отменяя
// информированность голосов, поданных после C2.
func TestComputeDeletedCriticalFallsBack(t *testing.T) {
	posts := discussion()
	deletedAt := at(10)
	posts[2].DeletedAt = &deletedAt
	informedByC2 := models.VoteEvent{
		VoteEventID: 6, UserID: "viewer", PostID: 1, Vote: models.Up,
		VoteEventTime: at(5), CriticalCommentID: id(3), IsInformed: true,
	}
	snap := snapshot(posts, []models.Effect{effect(1, 1, 2, 0.05), effect(2, 1, 3, 0.3)}, informedByC2)

	state, err := NewEngine(Policy{}).Compute(snap, "viewer")
	require.NoError(t, err)
	require.Equal(t, id(2), state.Posts[1].CriticalCommentID)
	require.True(t, state.Posts[1].VoteState.IsInformed)
	require.True(t, state.Posts[3].IsDeleted)
}

func TestInformedIgnoresDeletionOfSeenComment(t *testing.T) {
	deletedAt := at(10)
	seen := &Thread{Post: models.Post{ID: 3, CreatedAt: at(3), DeletedAt: &deletedAt}, Weight: 0.3}
	vote := models.VoteEvent{UserID: "viewer", PostID: 1, Vote: models.Up, VoteEventTime: at(5), IsInformed: true}

	weaker := &Thread{Post: models.Post{ID: 4, CreatedAt: at(12)}, Weight: 0.1}
	if !(Policy{}).Informed(vote, "viewer", weaker, seen) {
		t.Fatalf("более слабый критический после удаления не должен сбрасывать информированность")
	}
	stronger := &Thread{Post: models.Post{ID: 4, CreatedAt: at(7)}, Weight: 0.9}
	if (Policy{}).Informed(vote, "viewer", stronger, seen) {
		t.Fatalf("более сильный критический должен сбрасывать информированность и после удаления")
	}
}

// Голос видел 3 (0.3), позже появился 4 (0.9). Удаление 3 не делает голос
// информированным.
func TestComputeDeletionDoesNotInformStaleVote(t *testing.T) {
	posts := []models.Post{reply(1, 0, 0), reply(3, 1, 3), reply(4, 1, 7)}
	vote := models.VoteEvent{
		VoteEventID: 7, UserID: "viewer", PostID: 1, Vote: models.Up,
		VoteEventTime: at(5), CriticalCommentID: id(3), IsInformed: true,
	}
	effects := []models.Effect{effect(1, 1, 3, 0.3), effect(2, 1, 4, 0.9)}

	live, err := NewEngine(Policy{}).Compute(snapshot(posts, effects, vote), "viewer")
	require.NoError(t, err)
	require.False(t, live.Posts[1].VoteState.IsInformed)

	deletedAt := at(10)
	posts[1].DeletedAt = &deletedAt
	deleted, err := NewEngine(Policy{}).Compute(snapshot(posts, effects, vote), "viewer")
	require.NoError(t, err)
	require.Equal(t, id(4), deleted.Posts[1].CriticalCommentID)
	require.False(t, deleted.Posts[1].VoteState.IsInformed)
}

func TestInformedRules(t *testing.T) {
	public := &Thread{Post: models.Post{ID: 2, AuthorID: "other", CreatedAt: at(1)}, Weight: 0.2}
	private := &Thread{Post: models.Post{ID: 2, AuthorID: "other", CreatedAt: at(1), IsPrivate: true}, Weight: 0.2}
	own := &Thread{Post: models.Post{ID: 2, AuthorID: "viewer", CreatedAt: at(1), IsPrivate: true}, Weight: 0.2}

	vote := models.VoteEvent{UserID: "viewer", PostID: 1, Vote: models.Up, VoteEventTime: at(2)}
	cases := []struct {
		name    string
		vote    models.VoteEvent
		current *Thread
		want    bool
	}{
		{"без критического", vote, nil, true},
		{"критический раньше голоса", vote, public, true},
		{"критический в момент голоса", models.VoteEvent{UserID: "viewer", Vote: models.Up, VoteEventTime: at(1)}, public, true},
		{"чужой приватный", vote, private, false},
		{"свой приватный", vote, own, true},
		{"нейтральный голос", models.VoteEvent{UserID: "viewer", Vote: models.Neutral, VoteEventTime: at(2)}, nil, false},
	}
	for _, tc := range cases {
		if got := (Policy{}).Informed(tc.vote, "viewer", tc.current, nil); got != tc.want {
			t.Fatalf("%s: ожидалось %v, получено %v", tc.name, tc.want, got)
		}
	}
}

func TestComputeAnnotatesScoresAndEffects(t *testing.T) {
	snap := snapshot(discussion(), []models.Effect{
		{VoteEventID: 2, PostID: 1, CommentID: 3, P: 0.9, Q: 0.5, PSize: 4, Weight: 0.3},
	})
	snap.Scores[1] = models.Score{VoteEventID: 2, PostID: 1, O: 0.75, OCount: 3, OSize: 4, P: 0.7}

	state, err := NewEngine(Policy{}).Compute(snap, "")
	require.NoError(t, err)

	root := state.Posts[1]
	require.Equal(t, 4, root.VoteCount)
	require.Equal(t, 0.7, root.P)
	require.InDelta(t, 4.0/6.0, root.Support, 1e-12)
	require.Nil(t, root.EffectOnTarget)

	c2 := state.Posts[3]
	require.Equal(t, models.DefaultP, c2.P)
	require.Equal(t, 0.5, c2.Support)
	require.NotNil(t, c2.EffectOnTarget)
	require.Greater(t, c2.EffectSize, 0.0)
}

func TestComputeUnknownRoot(t *testing.T) {
	snap := snapshot(discussion(), nil)
	snap.RootID = 42
	_, err := NewEngine(Policy{}).Compute(snap, "viewer")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// Голос, поданный после создания всех публичных постов, всегда информирован.
func TestComputeLateVoteInformed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 15).Draw(t, "n")
		posts := []models.Post{reply(1, 0, 0)}
		var effects []models.Effect
		for i := 2; i <= n; i++ {
			parent := int64(rapid.IntRange(1, i-1).Draw(t, "parent"))
			posts = append(posts, reply(int64(i), parent, i))
		}
		edges := lineage.Closure(posts)
		for k, e := range edges {
			if rapid.Bool().Draw(t, "has_effect") {
				w := rapid.Float64Range(-0.5, 1).Draw(t, "w")
				effects = append(effects, effect(int64(k+1), e.AncestorID, e.DescendantID, w))
			}
		}
		var votes []models.VoteEvent
		for _, p := range posts {
			votes = append(votes, models.VoteEvent{
				UserID: "viewer", PostID: p.ID, Vote: models.Up, VoteEventTime: at(n + 1),
			})
		}
		snap := snapshot(posts, effects, votes...)

		state, err := NewEngine(Policy{}).Compute(snap, "viewer")
		if err != nil {
			t.Fatalf("compute: %v", err)
		}
		for postID, ps := range state.Posts {
			if !ps.VoteState.IsInformed {
				t.Fatalf("голос за %d не информирован", postID)
			}
			if ps.CriticalCommentID != nil {
				if _, ok := state.CriticalCommentIDToTargetID[*ps.CriticalCommentID]; !ok {
					t.Fatalf("нет обратной ссылки для %d", *ps.CriticalCommentID)
				}
			}
		}
	})
}
