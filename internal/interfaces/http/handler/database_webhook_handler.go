package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/proflow/billing-sync/internal/application/sync"
	"github.com/proflow/billing-sync/internal/infrastructure/logger"
)

// DatabaseWebhookHandler receives change notifications from the application
// database. These endpoints are called by the database's webhook layer and do
// not require end-user authentication.
type DatabaseWebhookHandler struct {
	eventService *sync.DatabaseEventService
}

// NewDatabaseWebhookHandler creates a new DatabaseWebhookHandler
func NewDatabaseWebhookHandler(eventService *sync.DatabaseEventService) *DatabaseWebhookHandler {
	return &DatabaseWebhookHandler{
		eventService: eventService,
	}
}

// RegisterRoutes registers the database webhook routes
func (h *DatabaseWebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/database", h.HandleChangeNotification)
}

// HandleChangeNotification processes a database change notification.
// Malformed JSON is the caller's fault (400); anything the service declines
// to act on is still acknowledged with 200 so the notifier does not retry.
func (h *DatabaseWebhookHandler) HandleChangeNotification(c *gin.Context) {
	reqLog := logger.GetGinLogger(c)

	var notification sync.ChangeNotification
	if err := c.ShouldBindJSON(&notification); err != nil {
		reqLog.Warn("Invalid change notification payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid change notification payload",
		})
		return
	}

	result, err := h.eventService.ProcessChangeNotification(c.Request.Context(), notification)
	if err != nil {
		reqLog.Error("Failed to process change notification",
			zap.String("type", notification.Type),
			zap.String("table", notification.Table),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
