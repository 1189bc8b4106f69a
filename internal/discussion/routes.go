package discussion

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.RouterGroup, service *Service, log *slog.Logger) {
	handler := NewHandler(service, log)

	r.POST("", handler.NewReply)
	r.GET("/:id/tree", handler.GetReplyTree)
	r.GET("/:id/state", handler.GetCommentTreeState)
	r.GET("/:id/collapsed", handler.GetCollapsedState)
	r.POST("/:id/votes", handler.CastVote)
	r.DELETE("/:id", handler.DeletePost)
	r.POST("/:id/restore", handler.RestorePost)

	handler.log.Info("[ROUTER] Discussion routes registered", "prefix", r.BasePath())
}
