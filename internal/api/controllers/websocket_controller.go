package controllers

import (
	"net/http"

	"github.com/babysphere/backend/internal/api/middleware"
	"github.com/babysphere/backend/internal/services"
	"github.com/babysphere/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketController upgrades connections for live readings and alerts
type WebSocketController struct {
	notificationService *services.NotificationService
	upgrader            websocket.Upgrader
	logger              *utils.Logger
}

// NewWebSocketController creates a new websocket controller
func NewWebSocketController(notificationService *services.NotificationService, logger *utils.Logger) *WebSocketController {
	return &WebSocketController{
		notificationService: notificationService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.Named("websocket_controller"),
	}
}

// RegisterRoutes registers the websocket route
func (c *WebSocketController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", c.Connect)
}

// Connect upgrades the request to a websocket. Clients may send
// {"action":"subscribe","topic":"alerts"} to narrow what they receive.
// @Summary Live updates
// @Description Websocket stream of readings and alerts
// @Tags live
// @Security Bearer
// @Success 101 "Switching protocols"
// @Router /ws [get]
func (c *WebSocketController) Connect(ctx *gin.Context) {
	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	c.notificationService.RegisterClient(conn, middleware.UserID(ctx))
}
