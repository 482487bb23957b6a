package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/noah-isme/certified-copy-api/internal/dto"
	"github.com/noah-isme/certified-copy-api/internal/models"
	appErrors "github.com/noah-isme/certified-copy-api/pkg/errors"
)

type importStore interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error)
	Stats(ctx context.Context) (models.Statistics, error)
	Replace(ctx context.Context, apps []models.Application, stats models.Statistics) error
}

// browserDumpSchema describes the local-storage dump of the browser portal.
const browserDumpSchema = `{
  "type": "object",
  "required": ["ca_applications", "ca_stats"],
  "properties": {
    "ca_applications": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "applicantName", "applicantUsername", "status", "submittedDate"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "applicantName": {"type": "string"},
          "applicantUsername": {"type": "string", "minLength": 1},
          "identificationType": {"enum": ["case_number", "fir_number", null, ""]},
          "caseNumber": {"type": ["string", "null"]},
          "firNumber": {"type": ["string", "null"]},
          "copyTypes": {"type": "array", "items": {"type": "string"}},
          "status": {"enum": ["pending", "under_review", "approved", "rejected"]},
          "submittedDate": {"type": "string", "format": "date-time"},
          "lastUpdated": {"type": ["string", "null"]},
          "staffRemarks": {"type": ["string", "null"]},
          "uploadedDocument": {"type": ["string", "null"]},
          "processedBy": {"type": ["string", "null"]},
          "processedDate": {"type": ["string", "null"]}
        }
      }
    },
    "ca_stats": {
      "type": "object",
      "required": ["totalApplications", "totalApproved", "totalRejected"],
      "properties": {
        "totalApplications": {"type": "integer", "minimum": 0},
        "totalApproved": {"type": "integer", "minimum": 0},
        "totalRejected": {"type": "integer", "minimum": 0},
        "dailyProcessed": {
          "type": "object",
          "additionalProperties": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

// BrowserDump mirrors the two local-storage keys of the browser portal.
type BrowserDump struct {
	Applications []models.Application `json:"ca_applications"`
	Statistics   models.Statistics    `json:"ca_stats"`
}

// ImportService moves whole datasets in and out of the store.
type ImportService struct {
	store  importStore
	schema *gojsonschema.Schema
	cache  *CacheService
	logger *zap.Logger
}

// NewImportService constructs an ImportService. The dump schema is compiled once.
func NewImportService(store importStore, cache *CacheService, logger *zap.Logger) (*ImportService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(browserDumpSchema))
	if err != nil {
		return nil, fmt.Errorf("compile dump schema: %w", err)
	}
	return &ImportService{store: store, schema: schema, cache: cache, logger: logger}, nil
}

// Import validates a browser dump and replaces the store contents with it.
func (s *ImportService) Import(ctx context.Context, r io.Reader) (*dto.ImportSummary, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read dump")
	}

	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "dump is not valid JSON")
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, "dump validation failed: "+strings.Join(errs, "; "))
	}

	var dump BrowserDump
	if err := json.Unmarshal(raw, &dump); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to decode dump")
	}
	if err := normaliseDump(&dump); err != nil {
		return nil, err
	}

	if err := s.store.Replace(ctx, dump.Applications, dump.Statistics); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace store contents")
	}
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("browser dump imported", zap.Int("applications", len(dump.Applications)))
	return &dto.ImportSummary{Applications: len(dump.Applications), Statistics: dump.Statistics}, nil
}

// Dump writes the store contents in the browser dump layout.
func (s *ImportService) Dump(ctx context.Context, w io.Writer) error {
	apps, err := s.store.List(ctx, models.ApplicationFilter{})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load statistics")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BrowserDump{Applications: apps, Statistics: stats})
}

// normaliseDump fills fields older dumps omit and rejects records that break the
// application invariants.
func normaliseDump(dump *BrowserDump) error {
	seen := make(map[string]struct{}, len(dump.Applications))
	for i := range dump.Applications {
		app := &dump.Applications[i]
		if _, dup := seen[app.ID]; dup {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate application id %s", app.ID))
		}
		seen[app.ID] = struct{}{}

		if app.IdentificationType == "" {
			if app.FIRNumber != nil && *app.FIRNumber != "" {
				app.IdentificationType = models.IdentificationFIRNumber
			} else {
				app.IdentificationType = models.IdentificationCaseNumber
			}
		}
		if err := ValidateIdentification(app.IdentificationType, app.CaseNumber, app.FIRNumber); err != nil {
			return appErrors.Clone(appErrors.ErrInvalidIdentification, fmt.Sprintf("application %s: %s", app.ID, appErrors.FromError(err).Message))
		}
		if app.LastUpdated.IsZero() {
			app.LastUpdated = app.SubmittedDate
		}
		if app.Status == models.StatusApproved && (app.UploadedDocument == nil || *app.UploadedDocument == "") {
			return appErrors.Clone(appErrors.ErrMissingDocument, fmt.Sprintf("application %s is approved without a document", app.ID))
		}
		if app.Status == models.StatusRejected && (app.StaffRemarks == nil || *app.StaffRemarks == "") {
			return appErrors.Clone(appErrors.ErrMissingRemarks, fmt.Sprintf("application %s is rejected without remarks", app.ID))
		}
	}
	if dump.Statistics.DailyProcessed == nil {
		dump.Statistics.DailyProcessed = map[string]int{}
	}
	return nil
}
