package models

// PostViewState — состояние поста глазами конкретного зрителя.
type PostViewState struct {
	CriticalCommentID *int64    `json:"critical_comment_id"`
	VoteState         VoteState `json:"vote_state"`
	IsDeleted         bool      `json:"is_deleted"`
	VoteCount         int       `json:"vote_count"`
	P                 float64   `json:"p"`
	Support           float64   `json:"support"`
	EffectOnTarget    *Effect   `json:"effect_on_target"`
	EffectSize        float64   `json:"effect_size"`
}

// CommentTreeState — состояние всего дерева для пары (зритель, целевой пост).
// CriticalCommentIDToTargetID: id комментария -> посты, для которых он критический.
type CommentTreeState struct {
	TargetPostID                int64                   `json:"target_post_id"`
	CriticalCommentIDToTargetID map[int64][]int64       `json:"critical_comment_id_to_target_id"`
	Posts                       map[int64]PostViewState `json:"posts"`
}

// CollapsedState — производная проекция для интерфейса, в базе не хранится.
type CollapsedState struct {
	CurrentlyFocussedPostID *int64         `json:"currently_focussed_post_id"`
	HidePost                map[int64]bool `json:"hide_post"`
	HideChildren            map[int64]bool `json:"hide_children"`
}
