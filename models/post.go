package models

import "time"

// Post — пост или ответ в дискуссии.
// ParentID == nil у корневых постов. DeletedAt выставляется модератором и
// влияет только на видимость: пост остаётся в дереве и в lineage.
type Post struct {
	ID        int64      `json:"id"`
	ParentID  *int64     `json:"parent_id"`
	AuthorID  string     `json:"author_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at"`
	IsPrivate bool       `json:"is_private"`
}

// IsDeleted сообщает, скрыт ли пост модератором.
func (p Post) IsDeleted() bool {
	return p.DeletedAt != nil
}
