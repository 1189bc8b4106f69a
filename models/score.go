package models

import "time"

// DefaultP — оценка поста, пока движок не прислал ни одного Score.
const DefaultP = 0.5

// Score — агрегат голосов по самому посту, рассчитанный внешним движком.
// Строки только добавляются: актуальной считается строка с наибольшим VoteEventID.
type Score struct {
	VoteEventID   int64     `json:"vote_event_id"`
	VoteEventTime time.Time `json:"vote_event_time"`
	PostID        int64     `json:"post_id"`
	O             float64   `json:"o"`
	OCount        int       `json:"o_count"`
	OSize         int       `json:"o_size"`
	P             float64   `json:"p"`
	Score         float64   `json:"score"`
}

// DefaultScore возвращает значения по умолчанию для поста без голосов.
func DefaultScore(postID int64) Score {
	return Score{PostID: postID, O: DefaultP, P: DefaultP}
}
