package replytree

import (
	"sort"

	"discuss_go/models"
	"discuss_go/pkg/storage"
)

type effectKey struct {
	ancestor, descendant int64
}

// Source — данные, из которых строится дерево. Реализация для снимка
// поддерева — MemorySource.
type Source interface {
	Post(id int64) (models.Post, bool)
	Children(parentID int64) []models.Post
	ScoreOf(postID int64) (models.Score, bool)
	EffectOf(ancestorID, descendantID int64) *models.Effect
}

// MemorySource индексирует посты, Score и последние Effect снимка.
type MemorySource struct {
	posts    map[int64]models.Post
	children map[int64][]models.Post
	scores   map[int64]models.Score
	effects  map[effectKey]models.Effect
}

// NewSource строит индекс. Для пары (предок, потомок) с несколькими Effect
// берётся строка с наибольшим VoteEventID.
func NewSource(posts []models.Post, scores map[int64]models.Score, effects []models.Effect) *MemorySource {
	s := &MemorySource{
		posts:    make(map[int64]models.Post, len(posts)),
		children: make(map[int64][]models.Post),
		scores:   scores,
		effects:  make(map[effectKey]models.Effect, len(effects)),
	}
	if s.scores == nil {
		s.scores = map[int64]models.Score{}
	}
	for _, p := range posts {
		s.posts[p.ID] = p
		if p.ParentID != nil {
			s.children[*p.ParentID] = append(s.children[*p.ParentID], p)
		}
	}
	for _, list := range s.children {
		sort.SliceStable(list, func(i, j int) bool {
			if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
				return list[i].CreatedAt.Before(list[j].CreatedAt)
			}
			return list[i].ID < list[j].ID
		})
	}
	for _, e := range effects {
		k := effectKey{e.PostID, e.CommentID}
		if prev, ok := s.effects[k]; !ok || e.VoteEventID > prev.VoteEventID {
			s.effects[k] = e
		}
	}
	return s
}

// FromSnapshot индексирует снимок, прочитанный из хранилища.
func FromSnapshot(snap *storage.Snapshot) *MemorySource {
	return NewSource(snap.Posts, snap.Scores, snap.Effects)
}

func (s *MemorySource) Post(id int64) (models.Post, bool) {
	p, ok := s.posts[id]
	return p, ok
}

func (s *MemorySource) Children(parentID int64) []models.Post {
	return s.children[parentID]
}

func (s *MemorySource) ScoreOf(postID int64) (models.Score, bool) {
	sc, ok := s.scores[postID]
	return sc, ok
}

func (s *MemorySource) EffectOf(ancestorID, descendantID int64) *models.Effect {
	e, ok := s.effects[effectKey{ancestorID, descendantID}]
	if !ok {
		return nil
	}
	return &e
}
