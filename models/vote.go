package models

import (
	"fmt"
	"time"
)

// VoteDirection — направление голоса. Значения совпадают с протоколом движка.
type VoteDirection int

const (
	Down    VoteDirection = -1
	Neutral VoteDirection = 0
	Up      VoteDirection = 1
)

// Valid проверяет, что направление одно из трёх допустимых.
func (d VoteDirection) Valid() bool {
	return d == Down || d == Neutral || d == Up
}

func (d VoteDirection) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Neutral:
		return "neutral"
	default:
		return fmt.Sprintf("VoteDirection(%d)", int(d))
	}
}

// VoteEvent — запись в истории голосов. Таблица только дополняется,
// текущий голос пользователя — последнее событие по паре (user, post).
//
// CriticalCommentID фиксирует критический комментарий на момент голосования,
// IsInformed — был ли он уже виден голосующему.
type VoteEvent struct {
	VoteEventID       int64         `json:"vote_event_id"`
	UserID            string        `json:"user_id"`
	PostID            int64         `json:"post_id"`
	ParentID          *int64        `json:"parent_id"`
	Vote              VoteDirection `json:"vote"`
	VoteEventTime     time.Time     `json:"vote_event_time"`
	CriticalCommentID *int64        `json:"critical_comment_id"`
	IsInformed        bool          `json:"is_informed"`
}

// VoteState — голос зрителя за пост и его информированность.
type VoteState struct {
	Vote       VoteDirection `json:"vote"`
	IsInformed bool          `json:"is_informed"`
}
