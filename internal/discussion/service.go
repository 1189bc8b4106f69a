// Package discussion — публичная поверхность ядра: дерево ответов, состояние
// зрителя и мутации (ответ, голос, удаление), каждая в одной транзакции.
package discussion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"discuss_go/internal/criticalthread"
	"discuss_go/internal/replytree"
	"discuss_go/internal/treestate"
	"discuss_go/models"
	"discuss_go/pkg/storage"
)

var (
	ErrInvalidVote  = errors.New("vote must be -1, 0 or 1")
	ErrEmptyContent = errors.New("content must not be empty")
	ErrPostDeleted  = errors.New("post is deleted")
)

// Events принимает закоммиченные события голосов для доставки в причинный движок.
// Реализация не должна блокировать вызывающего.
type Events interface {
	Submit(v models.VoteEvent) bool
}

type Service struct {
	db     *storage.DB
	engine *treestate.Engine
	events Events
	log    *slog.Logger
	now    func() time.Time
}

func NewService(db *storage.DB, engine *treestate.Engine, events Events, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		db:     db,
		engine: engine,
		events: events,
		log:    log,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// ReplyTreeView — дерево ответов и критический комментарий его корня.
type ReplyTreeView struct {
	Tree              *replytree.ReplyTree `json:"tree"`
	CriticalCommentID *int64               `json:"critical_comment_id"`
}

// GetReplyTree строит дерево с корнем targetID по одному согласованному снимку.
func (s *Service) GetReplyTree(ctx context.Context, targetID int64) (*ReplyTreeView, error) {
	snap, err := s.snapshot(ctx, targetID, "")
	if err != nil {
		return nil, err
	}
	return s.treeView(snap)
}

// RefreshReplyTree перестраивает ранее полученное дерево. Неизменившиеся
// поддеревья нового дерева — те же узлы, что в prev.
func (s *Service) RefreshReplyTree(ctx context.Context, prev *replytree.ReplyTree) (*ReplyTreeView, error) {
	if prev == nil {
		return nil, fmt.Errorf("refresh: %w", storage.ErrNotFound)
	}
	view, err := s.GetReplyTree(ctx, prev.Post.ID)
	if err != nil {
		return nil, err
	}
	view.Tree = replytree.Share(prev, view.Tree)
	return view, nil
}

func (s *Service) treeView(snap *storage.Snapshot) (*ReplyTreeView, error) {
	tree, err := replytree.Build(replytree.FromSnapshot(snap), snap.RootID)
	if err != nil {
		return nil, err
	}
	critical, err := criticalthread.CriticalCommentFor(snap.RootID, tree)
	if err != nil {
		return nil, err
	}
	return &ReplyTreeView{Tree: tree, CriticalCommentID: critical}, nil
}

// GetCommentTreeState пересчитывает состояние дерева для зрителя. viewerID == ""
// — анонимный зритель без голосов; иначе зритель должен существовать.
func (s *Service) GetCommentTreeState(ctx context.Context, targetID int64, viewerID string) (*models.CommentTreeState, error) {
	snap, err := s.snapshot(ctx, targetID, viewerID)
	if err != nil {
		return nil, err
	}
	return s.engine.Compute(snap, viewerID)
}

// CollapsedView — дерево, состояние зрителя и подсказки сворачивания из одного снимка.
type CollapsedView struct {
	ReplyTreeView
	State     *models.CommentTreeState `json:"state"`
	Collapsed models.CollapsedState    `json:"collapsed"`
}

func (s *Service) GetCollapsedState(ctx context.Context, targetID int64, viewerID string, focused *int64) (*CollapsedView, error) {
	snap, err := s.snapshot(ctx, targetID, viewerID)
	if err != nil {
		return nil, err
	}
	view, err := s.treeView(snap)
	if err != nil {
		return nil, err
	}
	state, err := s.engine.Compute(snap, viewerID)
	if err != nil {
		return nil, err
	}
	return &CollapsedView{
		ReplyTreeView: *view,
		State:         state,
		Collapsed:     treestate.ComputeCollapse(view.Tree, state, focused),
	}, nil
}

func (s *Service) snapshot(ctx context.Context, targetID int64, viewerID string) (*storage.Snapshot, error) {
	var snap *storage.Snapshot
	err := s.db.WithSnapshot(ctx, func(q *storage.Queries) error {
		if viewerID != "" {
			if err := requireUser(ctx, q, viewerID); err != nil {
				return err
			}
		}
		var err error
		snap, err = q.LoadSnapshot(ctx, targetID, viewerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func requireUser(ctx context.Context, q *storage.Queries, userID string) error {
	ok, err := q.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}
	return nil
}

// CastVote записывает голос вместе с критическим комментарием, видимым в момент
// голосования, и флагом информированности. Доставка в движок — после коммита.
func (s *Service) CastVote(ctx context.Context, userID string, postID int64, dir models.VoteDirection) (*models.VoteEvent, error) {
	if !dir.Valid() {
		return nil, ErrInvalidVote
	}
	var vote *models.VoteEvent
	err := s.db.WithTx(ctx, func(q *storage.Queries) error {
		if err := requireUser(ctx, q, userID); err != nil {
			return err
		}
		post, err := q.GetPost(ctx, postID)
		if err != nil {
			return err
		}
		if post.IsDeleted() {
			return fmt.Errorf("vote on post %d: %w", postID, ErrPostDeleted)
		}
		descendants, err := q.ListDescendantEffects(ctx, postID)
		if err != nil {
			return fmt.Errorf("load critical thread candidates: %w", err)
		}
		now := s.now()
		thread := treestate.CurrentThread(descendants)
		v := models.VoteEvent{
			UserID:        userID,
			PostID:        postID,
			ParentID:      post.ParentID,
			Vote:          dir,
			VoteEventTime: now,
			IsInformed:    dir != models.Neutral && treestate.SeenBefore(thread, userID, now),
		}
		if thread != nil {
			id := thread.Post.ID
			v.CriticalCommentID = &id
		}
		vote, err = q.InsertVoteEvent(ctx, v)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("[VOTE] vote recorded", "vote_event_id", vote.VoteEventID, "post_id", postID,
		"vote", dir.String(), "informed", vote.IsInformed)
	s.submit(*vote)
	return vote, nil
}

// NewReply создаёт пост (parentID == nil — корневой) с рёбрами lineage и
// неявным голосом автора «за» в одной транзакции. Критические комментарии
// предков пересчитываются при следующем чтении.
func (s *Service) NewReply(ctx context.Context, authorID string, parentID *int64, content string, isPrivate bool) (*models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	var (
		post *models.Post
		vote *models.VoteEvent
	)
	err := s.db.WithTx(ctx, func(q *storage.Queries) error {
		if err := requireUser(ctx, q, authorID); err != nil {
			return err
		}
		if parentID != nil {
			if _, err := q.GetPost(ctx, *parentID); err != nil {
				return err
			}
		}
		now := s.now()
		var err error
		post, err = q.CreatePost(ctx, models.Post{
			ParentID:  parentID,
			AuthorID:  authorID,
			Content:   content,
			CreatedAt: now,
			IsPrivate: isPrivate,
		})
		if err != nil {
			return err
		}
		if parentID != nil {
			if err := q.InsertLineage(ctx, *parentID, post.ID); err != nil {
				return err
			}
		}
		vote, err = q.InsertVoteEvent(ctx, models.VoteEvent{
			UserID:        authorID,
			PostID:        post.ID,
			ParentID:      parentID,
			Vote:          models.Up,
			VoteEventTime: now,
			IsInformed:    true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	var parent int64
	if parentID != nil {
		parent = *parentID
	}
	s.log.Info("[POST] reply created", "post_id", post.ID, "parent_id", parent, "author_id", authorID)
	s.submit(*vote)
	return post, nil
}

// DeletePost скрывает пост. Lineage, Score и Effect не меняются.
// Повторное удаление не сдвигает время первого.
func (s *Service) DeletePost(ctx context.Context, postID int64) error {
	return s.setDeleted(ctx, postID, true)
}

func (s *Service) RestorePost(ctx context.Context, postID int64) error {
	return s.setDeleted(ctx, postID, false)
}

func (s *Service) setDeleted(ctx context.Context, postID int64, deleted bool) error {
	changed := false
	err := s.db.WithTx(ctx, func(q *storage.Queries) error {
		post, err := q.GetPost(ctx, postID)
		if err != nil {
			return err
		}
		if post.IsDeleted() == deleted {
			return nil
		}
		var at *time.Time
		if deleted {
			now := s.now()
			at = &now
		}
		changed = true
		return q.SetPostDeleted(ctx, postID, at)
	})
	if err != nil {
		return err
	}
	if changed {
		s.log.Info("[POST] deletion toggled", "post_id", postID, "deleted", deleted)
	}
	return nil
}

func (s *Service) submit(v models.VoteEvent) {
	if s.events == nil {
		return
	}
	s.events.Submit(v)
}
