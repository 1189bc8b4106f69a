package httputil

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// ErrorResponse — тело ответа с ошибкой для всех маршрутов.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// RespondError отправляет ошибку в едином формате и прерывает цепочку обработчиков.
// Сообщение уходит клиенту как есть, поэтому внутренние детали сюда не передаются.
func RespondError(c *gin.Context, status int, msg string) {
	_ = c.Error(errors.New(msg))
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Status: status})
}
