package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetVehicle returns the current snapshot for one vehicle.
// GET /api/vehicles/:id
func (h *Handler) GetVehicle(c *gin.Context) {
	id := c.Param("id")

	vehicle, err := h.vehicleRepo.Get(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load vehicle", zap.String("vehicle_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load vehicle"})
		return
	}
	if vehicle == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": vehicle})
}
