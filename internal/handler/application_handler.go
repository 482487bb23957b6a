package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/certified-copy-api/internal/dto"
	"github.com/noah-isme/certified-copy-api/internal/models"
	appErrors "github.com/noah-isme/certified-copy-api/pkg/errors"
	"github.com/noah-isme/certified-copy-api/pkg/response"
)

type applicationService interface {
	Submit(ctx context.Context, applicant models.UserInfo, req dto.SubmitApplicationRequest) (*models.Application, error)
	List(ctx context.Context, caller models.UserInfo, query dto.ApplicationListQuery) ([]models.Application, error)
	Get(ctx context.Context, caller models.UserInfo, id string) (*models.Application, error)
	Delete(ctx context.Context, caller models.UserInfo, id string) error
}

// ApplicationHandler exposes certified copy applications.
type ApplicationHandler struct {
	service applicationService
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(service applicationService) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

// Submit godoc
// @Summary Submit a certified copy application
// @Tags Applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SubmitApplicationRequest true "Application"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid application payload"))
		return
	}
	app, err := h.service.Submit(c.Request.Context(), user, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app)
}

// List godoc
// @Summary List applications
// @Description Citizens see their own applications. Staff and admins see all of them.
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param status query string false "Comma separated statuses"
// @Param sort query string false "submitted, -submitted or -lastUpdated"
// @Success 200 {object} response.Envelope
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	query := dto.ApplicationListQuery{Statuses: statusesFromQuery(c), Sort: c.Query("sort")}
	apps, err := h.service.List(c.Request.Context(), user, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, apps, map[string]interface{}{"count": len(apps)})
}

// Get godoc
// @Summary Get an application
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	app, err := h.service.Get(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, app)
}

// Delete godoc
// @Summary Delete an application
// @Description Statistics keep counting deleted applications.
// @Tags Applications
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /applications/{id} [delete]
func (h *ApplicationHandler) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
