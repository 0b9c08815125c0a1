package middleware

import (
    "time"

    "github.com/gin-gonic/gin"
    "github.com/google/uuid"
    "github.com/rs/zerolog/log"

    "github.com/GTDGit/gradeshop_api/internal/utils"
)

const maxInboundRequestID = 64

// LoggingMiddleware tags every request with an id and logs one line per
// response. An X-Request-Id set by the load balancer is reused.
func LoggingMiddleware() gin.HandlerFunc {
    return func(c *gin.Context) {
        start := time.Now()

        requestID := c.GetHeader("X-Request-Id")
        if requestID == "" || len(requestID) > maxInboundRequestID {
            requestID = uuid.New().String()[:8]
        }
        c.Set(utils.ContextRequestID, requestID)
        c.Header("X-Request-Id", requestID)

        c.Next()

        status := c.Writer.Status()
        evt := log.Info()
        if status >= 500 {
            evt = log.Error()
        } else if status >= 400 {
            evt = log.Warn()
        }
        if adminID := c.GetInt(utils.ContextAdminID); adminID != 0 {
            evt = evt.Int("admin_id", adminID)
        }
        if len(c.Errors) > 0 {
            evt = evt.Str("errors", c.Errors.String())
        }
        evt.
            Str("request_id", requestID).
            Str("method", c.Request.Method).
            Str("route", c.FullPath()).
            Str("path", c.Request.URL.Path).
            Int("status", status).
            Int("bytes", c.Writer.Size()).
            Dur("latency", time.Since(start)).
            Str("ip", c.ClientIP()).
            Msg("HTTP Request")
    }
}
