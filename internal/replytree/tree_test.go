package replytree

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"discuss_go/models"
	"discuss_go/pkg/storage"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func post(id int64, parent int64, minute int) models.Post {
	p := models.Post{ID: id, AuthorID: "u", Content: "c", CreatedAt: base.Add(time.Duration(minute) * time.Minute)}
	if parent != 0 {
		p.ParentID = &parent
	}
	return p
}

// fixture:
//
//	1
//	├── 3 (t=1)
//	│   └── 4
//	└── 2 (t=2)
func fixture() []models.Post {
	return []models.Post{post(1, 0, 0), post(2, 1, 2), post(3, 1, 1), post(4, 3, 3)}
}

func TestBuildOrdersRepliesByCreation(t *testing.T) {
	tree, err := Build(NewSource(fixture(), nil, nil), 1)
	require.NoError(t, err)

	require.Len(t, tree.Replies, 2)
	require.Equal(t, int64(3), tree.Replies[0].Post.ID)
	require.Equal(t, int64(2), tree.Replies[1].Post.ID)
	require.Equal(t, int64(4), tree.Replies[0].Replies[0].Post.ID)
	require.Equal(t, 4, tree.Size())
}

func TestBuildDefaultsMissingScore(t *testing.T) {
	tree, err := Build(NewSource(fixture(), nil, nil), 1)
	require.NoError(t, err)
	require.Equal(t, models.DefaultP, tree.Score.P)
	require.Equal(t, 0, tree.Score.OCount)
	require.Nil(t, tree.Effect)
}

// Эффект глубокого потомка берётся относительно корня дерева, а не родителя.
func TestBuildEffectsRelativeToTarget(t *testing.T) {
	effects := []models.Effect{
		{VoteEventID: 1, PostID: 1, CommentID: 4, Weight: 0.7},
		{VoteEventID: 1, PostID: 3, CommentID: 4, Weight: 0.1},
		{VoteEventID: 2, PostID: 1, CommentID: 4, Weight: 0.9},
	}
	src := NewSource(fixture(), nil, effects)

	fromRoot, err := Build(src, 1)
	require.NoError(t, err)
	require.Equal(t, 0.9, models.WeightOf(fromRoot.Find(4).Effect))
	require.Nil(t, fromRoot.Find(3).Effect)

	fromMiddle, err := Build(src, 3)
	require.NoError(t, err)
	require.Equal(t, 0.1, models.WeightOf(fromMiddle.Find(4).Effect))
	require.Nil(t, fromMiddle.Find(2))
}

func TestBuildKeepsDeletedPosts(t *testing.T) {
	posts := fixture()
	deleted := base.Add(time.Hour)
	posts[2].DeletedAt = &deleted

	tree, err := Build(NewSource(posts, nil, nil), 1)
	require.NoError(t, err)
	node := tree.Find(3)
	require.NotNil(t, node)
	require.True(t, node.Post.IsDeleted())
	require.Len(t, node.Replies, 1)
}

func TestBuildUnknownTarget(t *testing.T) {
	_, err := Build(NewSource(fixture(), nil, nil), 99)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
}

func TestWalkStopsDescent(t *testing.T) {
	tree, err := Build(NewSource(fixture(), nil, nil), 1)
	require.NoError(t, err)

	var visited []int64
	tree.Walk(func(n *ReplyTree, depth int) bool {
		visited = append(visited, n.Post.ID)
		return n.Post.ID != 3
	})
	require.Equal(t, []int64{1, 3, 2}, visited)
}

func TestShareReusesUnchangedSubtrees(t *testing.T) {
	posts := fixture()
	prev, err := Build(NewSource(posts, nil, nil), 1)
	require.NoError(t, err)

	// новый ответ под постом 2: поддерево 3 не меняется
	posts = append(posts, post(5, 2, 4))
	next, err := Build(NewSource(posts, nil, nil), 1)
	require.NoError(t, err)

	shared := Share(prev, next)
	require.Equal(t, next.Fingerprint(), shared.Fingerprint())
	require.Same(t, prev.Replies[0], shared.Replies[0])
	require.NotSame(t, prev.Replies[1], shared.Replies[1])
	require.Equal(t, int64(5), shared.Find(5).Post.ID)
	require.Len(t, prev.Replies[1].Replies, 0)
}

func TestShareIdenticalReturnsPrevious(t *testing.T) {
	prev, err := Build(NewSource(fixture(), nil, nil), 1)
	require.NoError(t, err)
	next, err := Build(NewSource(fixture(), nil, nil), 1)
	require.NoError(t, err)

	require.Same(t, prev, Share(prev, next))
}

func TestFingerprintSeesNewScore(t *testing.T) {
	prev, err := Build(NewSource(fixture(), nil, nil), 1)
	require.NoError(t, err)
	scores := map[int64]models.Score{4: {VoteEventID: 7, PostID: 4, P: 0.8, O: 0.8, OCount: 1, OSize: 1}}
	next, err := Build(NewSource(fixture(), scores, nil), 1)
	require.NoError(t, err)

	require.NotEqual(t, prev.Fingerprint(), next.Fingerprint())
	require.Equal(t, prev.Replies[1].Fingerprint(), next.Replies[1].Fingerprint())
	require.NotEqual(t, prev.Replies[0].Fingerprint(), next.Replies[0].Fingerprint())
}
