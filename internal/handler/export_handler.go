package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/certified-copy-api/internal/models"
	"github.com/noah-isme/certified-copy-api/internal/service"
	"github.com/noah-isme/certified-copy-api/pkg/response"
)

type exportService interface {
	Applications(ctx context.Context, format string, filter models.ApplicationFilter) (*service.ExportFile, error)
}

// ExportHandler serves the application register as CSV or PDF.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Applications godoc
// @Summary Export applications
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv (default) or pdf"
// @Param status query string false "Comma separated statuses"
// @Success 200 {file} binary
// @Router /exports/applications [get]
func (h *ExportHandler) Applications(c *gin.Context) {
	filter := models.ApplicationFilter{Statuses: statusesFromQuery(c)}
	file, err := h.service.Applications(c.Request.Context(), c.Query("format"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
