package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gestionar/internal/metrics"
)

// DashboardHandler serves the derived-metrics payload consumed by the
// dashboard cards. Metrics are recomputed on every call from the cached
// datasets; nothing here is persisted.
type DashboardHandler struct {
	metrics *metrics.Service
}

func NewDashboardHandler(svc *metrics.Service) *DashboardHandler {
	return &DashboardHandler{metrics: svc}
}

// Metrics computes and returns the full derived-metrics object.
func (h *DashboardHandler) Metrics(c *gin.Context) {
	computed, err := h.metrics.Dashboard(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, computed)
}
