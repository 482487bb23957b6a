package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/certified-copy-api/internal/models"
	"github.com/noah-isme/certified-copy-api/internal/service"
	"github.com/noah-isme/certified-copy-api/pkg/response"
)

// storeProbe is satisfied by the application store; reading statistics touches the backend.
type storeProbe interface {
	Stats(ctx context.Context) (models.Statistics, error)
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	store   storeProbe
	backend string
}

// NewMetricsHandler constructs a metrics handler. store may be nil, in which case health skips the backend probe.
func NewMetricsHandler(metrics *service.MetricsService, store storeProbe, backend string) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, store: store, backend: backend}
}

// Prometheus serves the scrape endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Summary godoc
// @Summary Aggregated request, cache and workflow counters
// @Tags Observability
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /metrics/summary [get]
func (h *MetricsHandler) Summary(c *gin.Context) {
	response.OK(c, h.metrics.Snapshot())
}

// Health reports 503 when the store backend cannot be read within two seconds.
func (h *MetricsHandler) Health(c *gin.Context) {
	body := gin.H{"status": "ok", "backend": h.backend}
	if h.store == nil {
		c.JSON(http.StatusOK, body)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if _, err := h.store.Stats(ctx); err != nil {
		body["status"] = "degraded"
		body["error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
