package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/certified-copy-api/internal/dto"
	"github.com/noah-isme/certified-copy-api/internal/models"
	appErrors "github.com/noah-isme/certified-copy-api/pkg/errors"
	"github.com/noah-isme/certified-copy-api/pkg/storage"
)

type documentStorage interface {
	SaveStream(name string, r io.Reader) (int64, error)
	Open(name string) (*os.File, error)
	Exists(name string) bool
	Delete(name string) error
}

type documentSigner interface {
	Generate(subject, relPath string) (string, time.Time, error)
	Parse(token string) (*storage.DownloadGrant, error)
}

type applicationReader interface {
	Get(ctx context.Context, caller models.UserInfo, id string) (*models.Application, error)
}

// DocumentUpload describes an incoming certified copy.
type DocumentUpload struct {
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

// DocumentDownload bundles an opened certified copy for streaming.
type DocumentDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
	ExpiresAt time.Time
}

// DocumentServiceConfig holds upload limits and link settings.
type DocumentServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	APIPrefix    string
}

// DocumentService stores uploaded certified copies and hands out signed download links.
type DocumentService struct {
	storage      documentStorage
	signer       documentSigner
	applications applicationReader
	logger       *zap.Logger
	cfg          DocumentServiceConfig
	mimeSet      map[string]struct{}
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(files documentStorage, signer documentSigner, applications applicationReader, logger *zap.Logger, cfg DocumentServiceConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "image/jpeg", "image/png"}
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, m := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return &DocumentService{storage: files, signer: signer, applications: applications, logger: logger, cfg: cfg, mimeSet: mimeSet}
}

// Upload stores a certified copy and returns the reference to quote when approving.
func (s *DocumentService) Upload(ctx context.Context, uploader models.UserInfo, upload DocumentUpload) (*dto.DocumentUploadResponse, error) {
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType, err := detectMime(upload.Content)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[mimeType]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("mime type %s not allowed", mimeType))
	}

	reference := documentReference(upload.Filename, mimeType)
	written, err := s.storage.SaveStream(reference, io.LimitReader(upload.Content, s.cfg.MaxFileSize+1))
	if err != nil {
		_ = s.storage.Delete(reference)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
	}
	if written > s.cfg.MaxFileSize {
		_ = s.storage.Delete(reference)
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}

	s.logger.Info("certified copy uploaded",
		zap.String("reference", reference),
		zap.Int64("size", written),
		zap.String("uploader", uploader.Username),
	)
	return &dto.DocumentUploadResponse{Reference: reference, Size: written, ContentType: mimeType}, nil
}

// Exists reports whether reference names a stored certified copy.
func (s *DocumentService) Exists(reference string) bool {
	return s.storage.Exists(reference)
}

// Link issues a signed download link for the certified copy of an approved application.
func (s *DocumentService) Link(ctx context.Context, caller models.UserInfo, applicationID string) (*dto.DocumentLinkResponse, error) {
	app, err := s.applications.Get(ctx, caller, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != models.StatusApproved || app.UploadedDocument == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no certified copy is available for this application")
	}
	token, expiresAt, err := s.signer.Generate(app.ID, *app.UploadedDocument)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate download token")
	}
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	return &dto.DocumentLinkResponse{
		URL:       fmt.Sprintf("%s/documents/download?token=%s", base, url.QueryEscape(token)),
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Download validates a signed token and opens the referenced file.
func (s *DocumentService) Download(ctx context.Context, token string) (*DocumentDownload, error) {
	grant, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired token")
	}
	file, err := s.storage.Open(grant.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read document metadata")
	}
	return &DocumentDownload{
		File:      file,
		Filename:  grant.Subject + filepath.Ext(grant.Path),
		MimeType:  mimeFromExtension(grant.Path),
		SizeBytes: info.Size(),
		ExpiresAt: grant.ExpiresAt,
	}, nil
}

func detectMime(content io.ReadSeeker) (string, error) {
	header := make([]byte, 512)
	n, err := io.ReadFull(content, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	mimeType := http.DetectContentType(header[:n])
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mimeType)), nil
}

func documentReference(original, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if want := extensionForMime(mimeType); want != "" {
		ext = want
	}
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("copy_%d_%s%s", time.Now().Unix(), strings.ReplaceAll(uuid.NewString(), "-", "")[:12], ext)
}

func extensionForMime(mimeType string) string {
	switch mimeType {
	case "application/pdf":
		return ".pdf"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	}
	return ""
}

func mimeFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	}
	return "application/octet-stream"
}
