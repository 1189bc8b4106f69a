// Package criticalthread выбирает критический комментарий поста: потомка,
// сильнее всех сдвигающего оценку этого поста.
package criticalthread

import (
	"errors"

	"discuss_go/internal/replytree"
	"discuss_go/models"
)

// ErrForeignRoot — дерево построено с точки зрения другого поста, и эффекты
// в нём измерены не относительно запрошенной цели.
var ErrForeignRoot = errors.New("tree is rooted at a different post")

// Candidate — потомок поста с весом эффекта относительно этого поста.
type Candidate struct {
	CommentID  int64
	Weight     float64
	Separation int
	Deleted    bool
}

// better сообщает, предпочтительнее ли a чем b: больший вес, затем меньшее
// расстояние, затем меньший id.
func better(a, b Candidate) bool {
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	if a.Separation != b.Separation {
		return a.Separation < b.Separation
	}
	return a.CommentID < b.CommentID
}

// Resolve возвращает id критического комментария или nil, если ни один
// неудалённый кандидат не имеет положительного веса. Порядок кандидатов не важен.
func Resolve(candidates []Candidate) *int64 {
	var (
		best  Candidate
		found bool
	)
	for _, c := range candidates {
		if c.Deleted || c.Weight <= 0 {
			continue
		}
		if !found || better(c, best) {
			best, found = c, true
		}
	}
	if !found {
		return nil
	}
	id := best.CommentID
	return &id
}

// CriticalCommentFor выбирает критический комментарий для корня дерева.
// Эффекты в ReplyTree всегда измерены относительно корня, поэтому targetID
// обязан совпадать с ним.
func CriticalCommentFor(targetID int64, tree *replytree.ReplyTree) (*int64, error) {
	if tree == nil || tree.Post.ID != targetID {
		return nil, ErrForeignRoot
	}
	return Resolve(Candidates(tree)), nil
}

// Candidates собирает всех потомков корня дерева с их весом и глубиной.
func Candidates(tree *replytree.ReplyTree) []Candidate {
	var out []Candidate
	tree.Walk(func(node *replytree.ReplyTree, depth int) bool {
		if depth == 0 {
			return true
		}
		out = append(out, Candidate{
			CommentID:  node.Post.ID,
			Weight:     models.WeightOf(node.Effect),
			Separation: depth,
			Deleted:    node.Post.IsDeleted(),
		})
		return true
	})
	return out
}
