package treestate

import (
	"time"

	"discuss_go/internal/criticalthread"
	"discuss_go/models"
	"discuss_go/pkg/storage"
)

// Thread — критический комментарий поста и вес его эффекта на этот пост.
type Thread struct {
	Post   models.Post
	Weight float64
}

// Policy задаёт, когда ранее информированный голос перестаёт им быть.
// DeadBand — на сколько вес нового критического комментария может превышать
// вес увиденного, не сбрасывая информированность. 0 — любое увеличение сбрасывает.
type Policy struct {
	DeadBand float64
}

func visibleTo(p models.Post, viewerID string) bool {
	return !p.IsPrivate || p.AuthorID == viewerID
}

// SeenBefore сообщает, мог ли зритель увидеть критический комментарий к моменту at.
// Отсутствие критического комментария считается увиденным.
func SeenBefore(c *Thread, viewerID string, at time.Time) bool {
	if c == nil {
		return true
	}
	return visibleTo(c.Post, viewerID) && !c.Post.CreatedAt.After(at)
}

// Informed вычисляет флаг информированности последнего голоса зрителя.
// current — критический комментарий сейчас, seen — тот, что был критическим
// в момент голосования (vote.CriticalCommentID), nil если его не было или он
// не попал в снимок.
//
// Удаление увиденного комментария само по себе ничего не меняет: новый
// критический сравнивается с весом увиденного так же, как при живом.
func (p Policy) Informed(vote models.VoteEvent, viewerID string, current, seen *Thread) bool {
	if vote.Vote == models.Neutral {
		return false
	}
	if SeenBefore(current, viewerID, vote.VoteEventTime) {
		return true
	}
	if !vote.IsInformed {
		return false
	}
	var seenWeight float64
	if seen != nil {
		seenWeight = seen.Weight
	}
	return current.Weight-seenWeight <= p.DeadBand
}

// CurrentThread выбирает критический комментарий среди потомков поста,
// прочитанных ListDescendantEffects.
func CurrentThread(descendants []storage.DescendantEffect) *Thread {
	candidates := make([]criticalthread.Candidate, len(descendants))
	for i, d := range descendants {
		candidates[i] = criticalthread.Candidate{
			CommentID:  d.Post.ID,
			Weight:     models.WeightOf(d.Effect),
			Separation: d.Separation,
			Deleted:    d.Post.IsDeleted(),
		}
	}
	id := criticalthread.Resolve(candidates)
	if id == nil {
		return nil
	}
	for _, d := range descendants {
		if d.Post.ID == *id {
			return &Thread{Post: d.Post, Weight: models.WeightOf(d.Effect)}
		}
	}
	return nil
}
