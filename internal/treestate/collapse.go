package treestate

import (
	"discuss_go/internal/replytree"
	"discuss_go/models"
)

type subtreeSummary struct {
	allDeleted           bool
	informative          bool
	undeletedInformative bool
	hasFocus             bool
}

// ComputeCollapse выводит подсказки сворачивания из формы дерева и состояния.
//
// Пост информативен, если у него ненулевой вес относительно корня дерева или он
// критический для какого-то поста. HideChildren — пост удалён и ниже нет
// неудалённых информативных постов. HidePost — всё поддерево удалено и
// неинформативно, а пост не находится на пути к focused. Пустой state
// означает, что учитываются только удаления и эффекты самого дерева.
func ComputeCollapse(tree *replytree.ReplyTree, state *models.CommentTreeState, focused *int64) models.CollapsedState {
	out := models.CollapsedState{
		HidePost:     make(map[int64]bool),
		HideChildren: make(map[int64]bool),
	}
	if focused != nil {
		id := *focused
		out.CurrentlyFocussedPostID = &id
	}
	if state == nil {
		state = &models.CommentTreeState{}
	}
	if tree != nil {
		collapse(tree, state, focused, &out)
	}
	return out
}

func collapse(n *replytree.ReplyTree, state *models.CommentTreeState, focused *int64, out *models.CollapsedState) subtreeSummary {
	id := n.Post.ID
	deleted := n.Post.IsDeleted()
	if ps, ok := state.Posts[id]; ok {
		deleted = ps.IsDeleted
	}
	informative := models.WeightOf(n.Effect) != 0 || len(state.CriticalCommentIDToTargetID[id]) > 0
	isFocus := focused != nil && *focused == id

	below := subtreeSummary{allDeleted: true}
	for _, r := range n.Replies {
		s := collapse(r, state, focused, out)
		below.allDeleted = below.allDeleted && s.allDeleted
		below.informative = below.informative || s.informative
		below.undeletedInformative = below.undeletedInformative || s.undeletedInformative
		below.hasFocus = below.hasFocus || s.hasFocus
	}

	out.HideChildren[id] = deleted && !below.undeletedInformative
	out.HidePost[id] = deleted && below.allDeleted && !informative && !below.informative &&
		!isFocus && !below.hasFocus

	return subtreeSummary{
		allDeleted:           deleted && below.allDeleted,
		informative:          informative || below.informative,
		undeletedInformative: (!deleted && informative) || below.undeletedInformative,
		hasFocus:             isFocus || below.hasFocus,
	}
}
