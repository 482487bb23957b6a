package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/certified-copy-api/internal/dto"
	"github.com/noah-isme/certified-copy-api/internal/middleware"
	"github.com/noah-isme/certified-copy-api/internal/models"
	appErrors "github.com/noah-isme/certified-copy-api/pkg/errors"
	"github.com/noah-isme/certified-copy-api/pkg/response"
)

type dashboardService interface {
	Staff(ctx context.Context) (*dto.StaffDashboardResponse, bool, error)
	Admin(ctx context.Context) (*dto.AdminDashboardResponse, bool, error)
	Statistics(ctx context.Context) (models.Statistics, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Staff godoc
// @Summary Staff review queue summary
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/staff [get]
func (h *DashboardHandler) Staff(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Staff(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary, dashboardMeta(c, cacheHit, start))
}

// Admin godoc
// @Summary Admin portal summary
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/admin [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Admin(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary, dashboardMeta(c, cacheHit, start))
}

// Statistics godoc
// @Summary Raw statistics aggregate
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *DashboardHandler) Statistics(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

func dashboardMeta(c *gin.Context, cacheHit bool, start time.Time) map[string]interface{} {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	return meta
}
