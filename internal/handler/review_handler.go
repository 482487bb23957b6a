package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/certified-copy-api/internal/dto"
	"github.com/noah-isme/certified-copy-api/internal/models"
	appErrors "github.com/noah-isme/certified-copy-api/pkg/errors"
	"github.com/noah-isme/certified-copy-api/pkg/response"
)

type reviewService interface {
	StartReview(ctx context.Context, id string, reviewer models.UserInfo) (*models.Application, error)
	Release(ctx context.Context, id string, reviewer models.UserInfo) (*models.Application, error)
	Approve(ctx context.Context, id string, reviewer models.UserInfo, req dto.ApproveRequest) (*models.Application, error)
	Reject(ctx context.Context, id string, reviewer models.UserInfo, req dto.RejectRequest) (*models.Application, error)
}

// ReviewHandler drives the staff review workflow.
type ReviewHandler struct {
	service reviewService
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(service reviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// StartReview godoc
// @Summary Take a pending application under review
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/start-review [post]
func (h *ReviewHandler) StartReview(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	app, err := h.service.StartReview(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, app)
}

// Release godoc
// @Summary Return an application to the pending queue
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/release [post]
func (h *ReviewHandler) Release(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	app, err := h.service.Release(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, app)
}

// Approve godoc
// @Summary Approve an application
// @Description Requires the reference of an uploaded certified copy.
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param payload body dto.ApproveRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /applications/{id}/approve [post]
func (h *ReviewHandler) Approve(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.ApproveRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	app, err := h.service.Approve(c.Request.Context(), c.Param("id"), user, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, app)
}

// Reject godoc
// @Summary Reject an application
// @Description Remarks are mandatory.
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param payload body dto.RejectRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /applications/{id}/reject [post]
func (h *ReviewHandler) Reject(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.RejectRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	app, err := h.service.Reject(c.Request.Context(), c.Param("id"), user, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, app)
}

// bindOptionalJSON accepts an empty body so that the service reports the missing field.
func bindOptionalJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return false
	}
	return true
}
