package models

import "time"

// Effect описывает причинное влияние ответа CommentID на голоса за предка PostID.
//
// P — оценка предка среди тех, кто видел ответ, Q — контрфактическая оценка без него,
// R объединяет обе в размер эффекта, Weight — насколько ответ сдвигает мнение.
type Effect struct {
	VoteEventID   int64     `json:"vote_event_id"`
	VoteEventTime time.Time `json:"vote_event_time"`
	PostID        int64     `json:"post_id"`
	CommentID     int64     `json:"comment_id"`
	P             float64   `json:"p"`
	PCount        int       `json:"p_count"`
	PSize         int       `json:"p_size"`
	Q             float64   `json:"q"`
	QCount        int       `json:"q_count"`
	QSize         int       `json:"q_size"`
	R             float64   `json:"r"`
	Weight        float64   `json:"weight"`
}

// WeightOf возвращает вес эффекта; отсутствие записи означает нулевой вес.
func WeightOf(e *Effect) float64 {
	if e == nil {
		return 0
	}
	return e.Weight
}
