package presence

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/middleware"
	ws "github.com/richxcame/gigmarket/pkg/websocket"
)

// Handler upgrades authenticated users onto the hub
type Handler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a presence handler. An empty origin list accepts any
// origin.
func NewHandler(hub *ws.Hub, allowedOrigins []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				_, ok := origins[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// RegisterRoutes mounts the websocket endpoint and presence queries on an
// authenticated group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ws", h.HandleWebSocket)
	r.GET("/presence/:userId", h.GetPresence)
	r.GET("/presence/stats", middleware.RequireAdmin(), h.GetStats)
}

// HandleWebSocket upgrades the request and starts the client pumps
func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}

	client := ws.NewClient(userID.String(), conn, h.hub, string(middleware.GetUserRole(c)), h.logger)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// GetPresence reports whether a user is connected
func (h *Handler) GetPresence(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid user ID")
		return
	}

	common.SuccessResponse(c, gin.H{
		"user_id": userID,
		"online":  h.hub.IsOnline(userID.String()),
	})
}

// GetStats returns hub counters
func (h *Handler) GetStats(c *gin.Context) {
	common.SuccessResponse(c, gin.H{
		"connected_clients":    h.hub.GetClientCount(),
		"active_conversations": h.hub.GetConversationCount(),
	})
}
