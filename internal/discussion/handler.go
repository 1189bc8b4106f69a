package discussion

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"discuss_go/internal/httputil"
	"discuss_go/models"
	"discuss_go/pkg/storage"
)

type Handler struct {
	Service *Service
	log     *slog.Logger
}

func NewHandler(service *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Service: service, log: log}
}

// respondServiceError переводит доменные ошибки в HTTP-статусы.
func (h *Handler) respondServiceError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httputil.RespondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidVote), errors.Is(err, ErrEmptyContent):
		httputil.RespondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrPostDeleted):
		httputil.RespondError(c, http.StatusConflict, err.Error())
	default:
		h.log.Error("[HANDLER ERROR] "+op+" failed", "err", err)
		httputil.RespondError(c, http.StatusInternalServerError, "internal error")
	}
}

func postIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondError(c, http.StatusBadRequest, "invalid post id")
		return 0, false
	}
	return id, true
}

// GetReplyTree — GET /posts/:id/tree
func (h *Handler) GetReplyTree(c *gin.Context) {
	id, ok := postIDParam(c)
	if !ok {
		return
	}
	view, err := h.Service.GetReplyTree(c.Request.Context(), id)
	if err != nil {
		h.respondServiceError(c, "get reply tree", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetCommentTreeState — GET /posts/:id/state?viewer=
func (h *Handler) GetCommentTreeState(c *gin.Context) {
	id, ok := postIDParam(c)
	if !ok {
		return
	}
	state, err := h.Service.GetCommentTreeState(c.Request.Context(), id, c.Query("viewer"))
	if err != nil {
		h.respondServiceError(c, "get comment tree state", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// GetCollapsedState — GET /posts/:id/collapsed?viewer=&focus=
func (h *Handler) GetCollapsedState(c *gin.Context) {
	id, ok := postIDParam(c)
	if !ok {
		return
	}
	var focused *int64
	if raw := c.Query("focus"); raw != "" {
		f, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.RespondError(c, http.StatusBadRequest, "invalid focus id")
			return
		}
		focused = &f
	}
	view, err := h.Service.GetCollapsedState(c.Request.Context(), id, c.Query("viewer"), focused)
	if err != nil {
		h.respondServiceError(c, "get collapsed state", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// NewReply — POST /posts
func (h *Handler) NewReply(c *gin.Context) {
	var request struct {
		AuthorID  string `json:"author_id" binding:"required"`
		ParentID  *int64 `json:"parent_id"`
		Content   string `json:"content" binding:"required"`
		IsPrivate bool   `json:"is_private"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		h.log.Warn("[HANDLER WARN] invalid reply request", "err", err)
		httputil.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	post, err := h.Service.NewReply(c.Request.Context(), request.AuthorID, request.ParentID, request.Content, request.IsPrivate)
	if err != nil {
		h.respondServiceError(c, "new reply", err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// CastVote — POST /posts/:id/votes
func (h *Handler) CastVote(c *gin.Context) {
	id, ok := postIDParam(c)
	if !ok {
		return
	}
	var request struct {
		UserID string `json:"user_id" binding:"required"`
		Vote   *int   `json:"vote" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		h.log.Warn("[HANDLER WARN] invalid vote request", "err", err)
		httputil.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	vote, err := h.Service.CastVote(c.Request.Context(), request.UserID, id, models.VoteDirection(*request.Vote))
	if err != nil {
		h.respondServiceError(c, "cast vote", err)
		return
	}
	c.JSON(http.StatusCreated, vote)
}

// DeletePost — DELETE /posts/:id
func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := postIDParam(c)
	if !ok {
		return
	}
	if err := h.Service.DeletePost(c.Request.Context(), id); err != nil {
		h.respondServiceError(c, "delete post", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RestorePost — POST /posts/:id/restore
func (h *Handler) RestorePost(c *gin.Context) {
	id, ok := postIDParam(c)
	if !ok {
		return
	}
	if err := h.Service.RestorePost(c.Request.Context(), id); err != nil {
		h.respondServiceError(c, "restore post", err)
		return
	}
	c.Status(http.StatusNoContent)
}
