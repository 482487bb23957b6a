package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/certified-copy-api/internal/dto"
	"github.com/noah-isme/certified-copy-api/internal/models"
	"github.com/noah-isme/certified-copy-api/internal/repository"
	appErrors "github.com/noah-isme/certified-copy-api/pkg/errors"
)

type reviewStore interface {
	UpdateFunc(ctx context.Context, id string, fn func(current models.Application) (models.ApplicationPatch, error)) (*models.Application, error)
}

type documentLocator interface {
	Exists(reference string) bool
}

// ReviewService applies staff workflow actions to applications.
type ReviewService struct {
	store     reviewStore
	documents documentLocator
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// ReviewServiceParams groups constructor dependencies.
type ReviewServiceParams struct {
	Store     reviewStore
	Documents documentLocator
	Cache     *CacheService
	Metrics   *MetricsService
	Logger    *zap.Logger
	Now       func() time.Time
}

// NewReviewService constructs a ReviewService.
func NewReviewService(params ReviewServiceParams) *ReviewService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &ReviewService{
		store:     params.Store,
		documents: params.Documents,
		cache:     params.Cache,
		metrics:   params.Metrics,
		logger:    logger,
		now:       now,
	}
}

// StartReview moves a pending application under review.
func (s *ReviewService) StartReview(ctx context.Context, id string, reviewer models.UserInfo) (*models.Application, error) {
	return s.transition(ctx, id, reviewer, ActionStartReview, nil)
}

// Release returns an application under review to the pending queue.
func (s *ReviewService) Release(ctx context.Context, id string, reviewer models.UserInfo) (*models.Application, error) {
	return s.transition(ctx, id, reviewer, ActionRelease, nil)
}

// Approve records an approval. The uploaded certified copy must be referenced.
func (s *ReviewService) Approve(ctx context.Context, id string, reviewer models.UserInfo, req dto.ApproveRequest) (*models.Application, error) {
	decision, err := DecideApproval(req.Document, req.Remarks)
	if err != nil {
		return nil, err
	}
	if s.documents != nil && !s.documents.Exists(decision.Document) {
		return nil, appErrors.Clone(appErrors.ErrMissingDocument, "referenced document has not been uploaded")
	}
	return s.transition(ctx, id, reviewer, ActionApprove, &decision)
}

// Reject records a rejection. Remarks are mandatory.
func (s *ReviewService) Reject(ctx context.Context, id string, reviewer models.UserInfo, req dto.RejectRequest) (*models.Application, error) {
	decision, err := DecideRejection(req.Remarks)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, id, reviewer, ActionReject, &decision)
}

func (s *ReviewService) transition(ctx context.Context, id string, reviewer models.UserInfo, action ReviewAction, decision *Decision) (*models.Application, error) {
	var from models.ApplicationStatus
	app, err := s.store.UpdateFunc(ctx, id, func(current models.Application) (models.ApplicationPatch, error) {
		from = current.Status
		next, err := NextStatus(current.Status, action)
		if err != nil {
			return models.ApplicationPatch{}, err
		}
		patch := models.ApplicationPatch{Status: &next}
		if decision != nil {
			processedBy := reviewer.Name
			if processedBy == "" {
				processedBy = reviewer.Username
			}
			processedAt := s.now().UTC()
			remarks := decision.Remarks
			patch.StaffRemarks = &remarks
			patch.ProcessedBy = &processedBy
			patch.ProcessedDate = &processedAt
			if decision.Document != "" {
				document := decision.Document
				patch.UploadedDocument = &document
			}
		}
		return patch, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update application")
	}

	if decision != nil {
		s.metrics.RecordDecision(decision.Status)
	}
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("application status changed",
		zap.String("application_id", app.ID),
		zap.String("action", string(action)),
		zap.String("from", string(from)),
		zap.String("to", string(app.Status)),
		zap.String("reviewer", reviewer.Username),
	)
	return app, nil
}
