package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/movitrak/avl/internal/repository"
	"github.com/movitrak/avl/internal/service"
	"github.com/movitrak/avl/pkg/ws"
)

// Handler serves the HTTP API.
type Handler struct {
	logger      *zap.Logger
	apiKey      string
	vehicleRepo *repository.VehicleRepository
	processor   *service.Processor
	wsHub       *ws.Hub
	upgrader    websocket.Upgrader
}

// NewHandler creates the handler.
func NewHandler(
	logger *zap.Logger,
	apiKey string,
	vehicleRepo *repository.VehicleRepository,
	processor *service.Processor,
	wsHub *ws.Hub,
) *Handler {
	return &Handler{
		logger:      logger,
		apiKey:      apiKey,
		vehicleRepo: vehicleRepo,
		processor:   processor,
		wsHub:       wsHub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.Use(h.requireAPIKey())
	{
		api.POST("/events", h.IngestEvent)
		api.GET("/vehicles/:id", h.GetVehicle)
	}

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)

	// Health check
	r.GET("/health", h.HealthCheck)
}

// requireAPIKey rejects requests without the configured X-API-Key header.
// An empty configured key disables the check.
func (h *Handler) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.apiKey != "" && c.GetHeader("X-API-Key") != h.apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}
		c.Next()
	}
}

// HandleWebSocket upgrades the connection and attaches it to the hub.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck reports service liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": h.wsHub.ClientCount(),
	})
}
