package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/movitrak/avl/internal/models"
)

// IngestEvent ingests one telemetry frame and runs it through the processor.
// POST /api/events
func (h *Handler) IngestEvent(c *gin.Context) {
	var event models.VehicleEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event payload"})
		return
	}
	if event.VehicleID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing vehicle ID"})
		return
	}

	res, err := h.processor.Process(c.Request.Context(), &event)
	if err != nil {
		h.logger.Error("Failed to process event",
			zap.String("vehicle_id", event.VehicleID),
			zap.Int("event_code", event.EventCode),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		return
	}

	if res.Inactive {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "ignored",
			"message": res.Message(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": res.Message(),
		"data": gin.H{
			"event_id":  res.EventID,
			"period_id": res.PeriodID,
			"speed":     res.Speed,
			"static":    res.Static,
		},
	})
}
