package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger пишет одну строку на запрос: метод, маршрут, статус и длительность.
// Ответы 5xx логируются уровнем Error, 4xx — Warn.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			attrs = append(attrs, "err", errs.String())
		}
		switch {
		case status >= 500:
			log.Error("[HTTP ERROR] request failed", attrs...)
		case status >= 400:
			log.Warn("[HTTP WARN] request rejected", attrs...)
		default:
			log.Info("[HTTP] request served", attrs...)
		}
	}
}
