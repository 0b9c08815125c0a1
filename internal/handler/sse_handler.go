package handler

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gradeshop_api/internal/sse"
	"github.com/GTDGit/gradeshop_api/internal/utils"
)

// SSEHandler streams catalog events to admin dashboards.
type SSEHandler struct {
	hub       *sse.Hub
	jwt       *utils.JWTIssuer
	keepAlive time.Duration
}

// NewSSEHandler creates a new SSEHandler.
func NewSSEHandler(hub *sse.Hub, jwt *utils.JWTIssuer) *SSEHandler {
	return &SSEHandler{hub: hub, jwt: jwt, keepAlive: 30 * time.Second}
}

// Stream handles GET /v1/admin/events?token=<jwt>[&events=a,b][&product_id=n]
// EventSource API cannot set custom headers, so JWT is passed via query param.
func (h *SSEHandler) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.Error(c, 401, utils.CodeUnauthorized, "Missing token query parameter")
		return
	}

	claims, err := h.jwt.ValidateJWT(token)
	if err != nil {
		utils.Error(c, 401, utils.CodeInvalidToken, "Invalid or expired token")
		return
	}

	sub, ok := subscription(c)
	if !ok {
		return
	}

	clientID := fmt.Sprintf("admin-%d-%d", claims.UserID, time.Now().UnixNano())

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering

	client := h.hub.Register(clientID, sub)
	defer h.hub.Unregister(clientID)

	c.SSEvent("connected", gin.H{
		"clientId":  clientID,
		"timestamp": time.Now().Format(time.RFC3339),
	})
	c.Writer.Flush()

	log.Info().Str("client_id", clientID).Int("admin_id", claims.UserID).Msg("Admin event stream started")

	c.Stream(func(w io.Writer) bool {
		select {
		case data, ok := <-client.Events:
			if !ok {
				return false
			}
			c.SSEvent("catalog", string(data))
			return true
		case <-time.After(h.keepAlive):
			c.SSEvent("ping", gin.H{"timestamp": time.Now().Format(time.RFC3339)})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func subscription(c *gin.Context) (sse.Subscription, bool) {
	var sub sse.Subscription
	types, err := sse.ParseEventTypes(c.Query("events"))
	if err != nil {
		utils.Error(c, 400, utils.CodeInvalidRequest, err.Error())
		return sub, false
	}
	sub.Types = types
	if raw := c.Query("product_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			utils.Error(c, 400, utils.CodeInvalidRequest, "Invalid product_id")
			return sub, false
		}
		sub.ProductID = id
	}
	return sub, true
}
