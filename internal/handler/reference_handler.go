package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/certified-copy-api/internal/models"
	"github.com/noah-isme/certified-copy-api/pkg/response"
)

type referenceService interface {
	Data() models.ReferenceData
}

// ReferenceHandler serves the lookup lists used by the submission form.
type ReferenceHandler struct {
	service referenceService
}

// NewReferenceHandler constructs the handler.
func NewReferenceHandler(service referenceService) *ReferenceHandler {
	return &ReferenceHandler{service: service}
}

// Get godoc
// @Summary Case types, copy types, districts and courts
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reference [get]
func (h *ReferenceHandler) Get(c *gin.Context) {
	response.OK(c, h.service.Data())
}
