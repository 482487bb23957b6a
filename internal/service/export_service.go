package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/certified-copy-api/internal/models"
	appErrors "github.com/noah-isme/certified-copy-api/pkg/errors"
	"github.com/noah-isme/certified-copy-api/pkg/export"
)

type exportStore interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error)
}

// Renderer turns a dataset into a downloadable file.
type Renderer interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered report ready to be sent.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders the application register as CSV or PDF.
type ExportService struct {
	store     exportStore
	reference *ReferenceService
	renderers map[string]Renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService with the csv and pdf renderers.
func NewExportService(store exportStore, reference *ReferenceService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reference == nil {
		reference = NewReferenceService()
	}
	return &ExportService{
		store:     store,
		reference: reference,
		renderers: map[string]Renderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// Applications renders every application matching filter in the requested format.
func (s *ExportService) Applications(ctx context.Context, format string, filter models.ApplicationFilter) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	apps, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}

	dataset := s.dataset(apps)
	data, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("applications_%s.%s", s.now().UTC().Format("20060102_150405"), renderer.Extension())
	s.logger.Info("applications exported", zap.String("format", format), zap.Int("rows", len(apps)))
	return &ExportFile{Filename: filename, ContentType: renderer.ContentType(), Data: data, Rows: len(apps)}, nil
}

func (s *ExportService) dataset(apps []models.Application) export.Dataset {
	rows := make([][]string, 0, len(apps))
	for _, app := range apps {
		rows = append(rows, []string{
			app.ID,
			app.ApplicantName,
			app.CaseReference(),
			s.reference.CaseTypeLabel(app.CaseType),
			app.CourtName,
			strings.Join(app.CopyTypes, "; "),
			string(app.Status),
			app.SubmittedDate.UTC().Format(time.RFC3339),
			deref(app.ProcessedBy),
			formatOptionalTime(app.ProcessedDate),
			deref(app.StaffRemarks),
		})
	}
	return export.Dataset{
		Title:   "Certified Copy Applications",
		Headers: []string{"ID", "Applicant", "Case Reference", "Case Type", "Court", "Copies", "Status", "Submitted", "Processed By", "Processed", "Remarks"},
		Rows:    rows,
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
