// Package replytree строит неизменяемое дерево ответов с точки зрения одного поста.
package replytree

import (
	"errors"
	"fmt"

	"discuss_go/models"
	"discuss_go/pkg/storage"
)

// ReplyTree — узел дерева. Effect — влияние этого поста на корень дерева
// (nil у корня и у постов без наблюдаемого эффекта).
//
// Дерево не изменяется после построения: поддеревья могут разделяться
// между сборками (см. Share), поэтому менять поля и срез Replies нельзя.
type ReplyTree struct {
	Post    models.Post    `json:"post"`
	Score   models.Score   `json:"score"`
	Effect  *models.Effect `json:"effect"`
	Replies []*ReplyTree   `json:"replies"`

	fingerprint uint64
}

// Walk обходит дерево в глубину в порядке ответов. fn возвращает false,
// чтобы не спускаться в поддерево узла.
func (t *ReplyTree) Walk(fn func(node *ReplyTree, depth int) bool) {
	t.walk(fn, 0)
}

func (t *ReplyTree) walk(fn func(*ReplyTree, int) bool, depth int) {
	if t == nil || !fn(t, depth) {
		return
	}
	for _, r := range t.Replies {
		r.walk(fn, depth+1)
	}
}

// Find возвращает узел поста или nil.
func (t *ReplyTree) Find(postID int64) *ReplyTree {
	var found *ReplyTree
	t.Walk(func(n *ReplyTree, _ int) bool {
		if found != nil {
			return false
		}
		if n.Post.ID == postID {
			found = n
			return false
		}
		return true
	})
	return found
}

// Size — число узлов.
func (t *ReplyTree) Size() int {
	n := 0
	t.Walk(func(*ReplyTree, int) bool { n++; return true })
	return n
}

// Build строит дерево с корнем targetID. Ответы упорядочены по времени создания,
// удалённые посты остаются в дереве. Effect каждого узла берётся относительно
// targetID, а не непосредственного родителя: ответ может влиять на оценку поста
// на несколько уровней выше.
func Build(src Source, targetID int64) (*ReplyTree, error) {
	post, ok := src.Post(targetID)
	if !ok {
		return nil, fmt.Errorf("post %d: %w", targetID, storage.ErrNotFound)
	}
	root := &ReplyTree{
		Post:    post,
		Score:   scoreOrDefault(src, targetID),
		Replies: buildReplies(src, targetID, targetID, map[int64]bool{targetID: true}),
	}
	if err := root.seal(); err != nil {
		return nil, err
	}
	return root, nil
}

func buildReplies(src Source, targetID, parentID int64, seen map[int64]bool) []*ReplyTree {
	children := src.Children(parentID)
	if len(children) == 0 {
		return nil
	}
	replies := make([]*ReplyTree, 0, len(children))
	for _, child := range children {
		if seen[child.ID] {
			continue
		}
		seen[child.ID] = true
		replies = append(replies, &ReplyTree{
			Post:    child,
			Score:   scoreOrDefault(src, child.ID),
			Effect:  src.EffectOf(targetID, child.ID),
			Replies: buildReplies(src, targetID, child.ID, seen),
		})
	}
	return replies
}

func scoreOrDefault(src Source, postID int64) models.Score {
	if s, ok := src.ScoreOf(postID); ok {
		return s
	}
	return models.DefaultScore(postID)
}

var errFingerprint = errors.New("fingerprint reply tree")
