package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/certified-copy-api/internal/dto"
	"github.com/noah-isme/certified-copy-api/internal/models"
	"github.com/noah-isme/certified-copy-api/internal/repository"
	appErrors "github.com/noah-isme/certified-copy-api/pkg/errors"
)

type applicationStore interface {
	Create(ctx context.Context, in models.ApplicationInput) (*models.Application, error)
	CreateIfEmpty(ctx context.Context, inputs []models.ApplicationInput) ([]models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error)
	GetByID(ctx context.Context, id string) (*models.Application, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// ApplicationService handles submission and role-scoped access to applications.
type ApplicationService struct {
	store     applicationStore
	reference *ReferenceService
	validator *validator.Validate
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
}

// ApplicationServiceParams groups constructor dependencies.
type ApplicationServiceParams struct {
	Store     applicationStore
	Reference *ReferenceService
	Validator *validator.Validate
	Cache     *CacheService
	Metrics   *MetricsService
	Logger    *zap.Logger
}

// NewApplicationService constructs an ApplicationService.
func NewApplicationService(params ApplicationServiceParams) *ApplicationService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	reference := params.Reference
	if reference == nil {
		reference = NewReferenceService()
	}
	return &ApplicationService{
		store:     params.Store,
		reference: reference,
		validator: validate,
		cache:     params.Cache,
		metrics:   params.Metrics,
		logger:    logger,
	}
}

// Submit validates and stores a new application owned by the caller.
func (s *ApplicationService) Submit(ctx context.Context, applicant models.UserInfo, req dto.SubmitApplicationRequest) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	if err := ValidateIdentification(req.IdentificationType, req.CaseNumber, req.FIRNumber); err != nil {
		return nil, err
	}
	if !s.reference.ValidCaseType(req.CaseType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown case type %q", req.CaseType))
	}
	for _, copyType := range req.CopyTypes {
		if !s.reference.ValidCopyType(copyType) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown copy type %q", copyType))
		}
	}

	in := models.ApplicationInput{
		ApplicantName:      strings.TrimSpace(req.ApplicantName),
		ApplicantUsername:  applicant.Username,
		Email:              strings.TrimSpace(req.Email),
		Phone:              strings.TrimSpace(req.Phone),
		Address:            strings.TrimSpace(req.Address),
		HasAdvocate:        req.HasAdvocate,
		IdentificationType: req.IdentificationType,
		CaseType:           req.CaseType,
		District:           req.District,
		CourtName:          req.CourtName,
		CopyTypes:          req.CopyTypes,
		Purpose:            strings.TrimSpace(req.Purpose),
		AdditionalInfo:     strings.TrimSpace(req.AdditionalInfo),
	}
	if req.HasAdvocate {
		in.AdvocateName = strings.TrimSpace(req.AdvocateName)
		in.AdvocateBarNumber = strings.TrimSpace(req.AdvocateBarNumber)
	}
	if req.IdentificationType == models.IdentificationCaseNumber {
		ref := strings.TrimSpace(*req.CaseNumber)
		in.CaseNumber = &ref
	} else {
		ref := strings.TrimSpace(*req.FIRNumber)
		in.FIRNumber = &ref
	}

	app, err := s.store.Create(ctx, in)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store application")
	}

	s.metrics.RecordSubmission()
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("application submitted", zap.String("application_id", app.ID), zap.String("applicant", applicant.Username))
	return app, nil
}

// List returns applications visible to the caller. Citizens only see their own.
func (s *ApplicationService) List(ctx context.Context, caller models.UserInfo, query dto.ApplicationListQuery) ([]models.Application, error) {
	for _, status := range query.Statuses {
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", status))
		}
	}

	filter := models.ApplicationFilter{Statuses: query.Statuses}
	if caller.Role == models.RoleCitizen {
		filter.ApplicantUsername = caller.Username
	}

	apps, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}

	switch query.Sort {
	case dto.SortInsertion:
	case dto.SortSubmittedAsc:
		sort.SliceStable(apps, func(i, j int) bool { return apps[i].SubmittedDate.Before(apps[j].SubmittedDate) })
	case dto.SortSubmittedDesc:
		sort.SliceStable(apps, func(i, j int) bool { return apps[i].SubmittedDate.After(apps[j].SubmittedDate) })
	case dto.SortLastUpdatedDesc:
		sort.SliceStable(apps, func(i, j int) bool { return apps[i].LastUpdated.After(apps[j].LastUpdated) })
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown sort %q", query.Sort))
	}
	return apps, nil
}

// Get returns one application. Citizens asking for someone else's record get ErrNotFound.
func (s *ApplicationService) Get(ctx context.Context, caller models.UserInfo, id string) (*models.Application, error) {
	app, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if caller.Role == models.RoleCitizen && app.ApplicantUsername != caller.Username {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}
	return app, nil
}

// Delete removes an application. Statistics keep counting it.
func (s *ApplicationService) Delete(ctx context.Context, caller models.UserInfo, id string) error {
	if caller.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators may delete applications")
	}
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete application")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("application deleted", zap.String("application_id", id), zap.String("admin", caller.Username))
	return nil
}

// SeedDemo stores the two sample applications of the demo citizen when the store is empty.
// It returns the number of applications created.
func (s *ApplicationService) SeedDemo(ctx context.Context) (int, error) {
	created, err := s.store.CreateIfEmpty(ctx, demoApplications())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed demo data")
	}
	if len(created) == 0 {
		return 0, nil
	}
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("demo applications seeded", zap.Int("count", len(created)))
	return len(created), nil
}

func demoApplications() []models.ApplicationInput {
	first, second := "CR/2024/001", "CIV/2024/045"
	return []models.ApplicationInput{
		{
			ApplicantName:      "Rajesh Patel",
			ApplicantUsername:  "citizen",
			Email:              "rajesh.patel@example.com",
			Phone:              "9876543210",
			Address:            "123, MG Road, Mumbai, Maharashtra - 400001",
			HasAdvocate:        true,
			AdvocateName:       "Adv. Sunita Mehta",
			AdvocateBarNumber:  "MH/12345/2010",
			IdentificationType: models.IdentificationCaseNumber,
			CaseNumber:         &first,
			CaseType:           "criminal",
			District:           "Mumbai",
			CourtName:          "High Court of Mumbai",
			CopyTypes:          []string{"Case Documents"},
			Purpose:            "Appeal preparation",
			AdditionalInfo:     "Require certified copies of all case proceedings",
		},
		{
			ApplicantName:      "Amit Singh",
			ApplicantUsername:  "citizen",
			Email:              "amit.singh@example.com",
			Phone:              "9123456789",
			Address:            "456, Sector 15, Delhi - 110001",
			IdentificationType: models.IdentificationCaseNumber,
			CaseNumber:         &second,
			CaseType:           "civil",
			District:           "Delhi",
			CourtName:          "District Court, Delhi",
			CopyTypes:          []string{"Court Order"},
			Purpose:            "Personal records",
			AdditionalInfo:     "Need copy of final judgment",
		},
	}
}
