package replytree

import (
	"fmt"

	"github.com/mitchellh/hashstructure/v2"
)

// nodeKey — содержимое узла без времени в виде time.Time: hashstructure
// не видит неэкспортируемые поля time.Time, поэтому время переводится в наносекунды.
type nodeKey struct {
	PostID     int64
	ParentID   int64
	AuthorID   string
	Content    string
	CreatedAt  int64
	DeletedAt  int64
	IsPrivate  bool
	ScoreEvent int64
	O, P, S    float64
	OCount     int
	OSize      int
	HasEffect  bool
	Effect     effectKeyFields
	Children   []uint64
}

type effectKeyFields struct {
	VoteEventID     int64
	P, Q, R, Weight float64
	PCount, PSize   int
	QCount, QSize   int
}

func keyOf(t *ReplyTree) nodeKey {
	k := nodeKey{
		PostID:     t.Post.ID,
		AuthorID:   t.Post.AuthorID,
		Content:    t.Post.Content,
		CreatedAt:  t.Post.CreatedAt.UnixNano(),
		IsPrivate:  t.Post.IsPrivate,
		ScoreEvent: t.Score.VoteEventID,
		O:          t.Score.O,
		P:          t.Score.P,
		S:          t.Score.Score,
		OCount:     t.Score.OCount,
		OSize:      t.Score.OSize,
	}
	if t.Post.ParentID != nil {
		k.ParentID = *t.Post.ParentID
	}
	if t.Post.DeletedAt != nil {
		k.DeletedAt = t.Post.DeletedAt.UnixNano()
	}
	if e := t.Effect; e != nil {
		k.HasEffect = true
		k.Effect = effectKeyFields{
			VoteEventID: e.VoteEventID,
			P:           e.P, Q: e.Q, R: e.R, Weight: e.Weight,
			PCount: e.PCount, PSize: e.PSize,
			QCount: e.QCount, QSize: e.QSize,
		}
	}
	for _, r := range t.Replies {
		k.Children = append(k.Children, r.fingerprint)
	}
	return k
}

// seal вычисляет отпечатки снизу вверх. Два поддерева с равными отпечатками
// построены из одинаковых данных.
func (t *ReplyTree) seal() error {
	for _, r := range t.Replies {
		if err := r.seal(); err != nil {
			return err
		}
	}
	h, err := hashstructure.Hash(keyOf(t), hashstructure.FormatV2, nil)
	if err != nil {
		return fmt.Errorf("%w: post %d: %v", errFingerprint, t.Post.ID, err)
	}
	t.fingerprint = h
	return nil
}

// Fingerprint — отпечаток содержимого поддерева.
func (t *ReplyTree) Fingerprint() uint64 {
	return t.fingerprint
}

// Share возвращает дерево, равное next по содержимому, в котором неизменившиеся
// поддеревья взяты из prev. Так повторная сборка после нового ответа или голоса
// делит с предыдущей всё, кроме пути от изменившихся узлов к корню.
func Share(prev, next *ReplyTree) *ReplyTree {
	if prev == nil || next == nil {
		return next
	}
	if prev.Post.ID != next.Post.ID {
		return next
	}
	if prev.fingerprint == next.fingerprint {
		return prev
	}

	prevByID := make(map[int64]*ReplyTree, len(prev.Replies))
	for _, r := range prev.Replies {
		prevByID[r.Post.ID] = r
	}
	replies := make([]*ReplyTree, len(next.Replies))
	for i, r := range next.Replies {
		replies[i] = Share(prevByID[r.Post.ID], r)
	}

	shared := *next
	shared.Replies = replies
	return &shared
}
