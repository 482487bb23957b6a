package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/certified-copy-api/internal/dto"
	"github.com/noah-isme/certified-copy-api/internal/models"
	"github.com/noah-isme/certified-copy-api/internal/service"
	appErrors "github.com/noah-isme/certified-copy-api/pkg/errors"
	"github.com/noah-isme/certified-copy-api/pkg/response"
)

type documentService interface {
	Upload(ctx context.Context, uploader models.UserInfo, upload service.DocumentUpload) (*dto.DocumentUploadResponse, error)
	Link(ctx context.Context, caller models.UserInfo, applicationID string) (*dto.DocumentLinkResponse, error)
	Download(ctx context.Context, token string) (*service.DocumentDownload, error)
}

// DocumentHandler manages certified copy files.
type DocumentHandler struct {
	service documentService
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(service documentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// Upload godoc
// @Summary Upload a certified copy
// @Description Returns the reference staff quote when approving.
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Certified copy (PDF, JPEG or PNG)"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		if readErr != nil {
			response.Error(c, appErrors.Wrap(readErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
			return
		}
		reader = bytes.NewReader(buf)
	}

	result, err := h.service.Upload(c.Request.Context(), user, service.DocumentUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Content:  reader,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Link godoc
// @Summary Signed download link for an approved application
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{id}/document-link [get]
func (h *DocumentHandler) Link(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	link, err := h.service.Link(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, link)
}

// Download godoc
// @Summary Download a certified copy
// @Tags Documents
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /documents/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, err := h.service.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.File.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, file.SizeBytes, file.MimeType, file.File, nil)
}
