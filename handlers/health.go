package handlers

import (
	"net/http"

	"agendazap/services/tenant"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves the index and liveness endpoints.
type HealthHandler struct {
	Registry *tenant.Registry
}

func NewHealthHandler(registry *tenant.Registry) *HealthHandler {
	return &HealthHandler{Registry: registry}
}

// HandleIndex returns basic service info plus the configured tenant ids.
func (h *HealthHandler) HandleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "agendazap",
		"status":  "ok",
		"tenants": h.Registry.IDs(),
	})
}

// HandleHealth is the liveness probe.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
