package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/certified-copy-api/internal/models"
)

// ApplicationStore owns the application collection and the statistics aggregate.
// Every mutation reloads both values from the backend and rewrites them whole.
type ApplicationStore struct {
	backend  Backend
	now      func() time.Time
	newID    func(time.Time) string
	observer StoreObserver
	mu       sync.Mutex
}

// StoreObserver receives the duration of every backend call.
type StoreObserver interface {
	ObserveStoreOperation(op, key string, duration time.Duration)
}

// StoreOption customises an ApplicationStore.
type StoreOption func(*ApplicationStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *ApplicationStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides application id generation.
func WithIDGenerator(fn func(time.Time) string) StoreOption {
	return func(s *ApplicationStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithObserver reports backend call latencies to o.
func WithObserver(o StoreObserver) StoreOption {
	return func(s *ApplicationStore) {
		s.observer = o
	}
}

// NewApplicationStore constructs the store over the given backend.
func NewApplicationStore(backend Backend, opts ...StoreOption) *ApplicationStore {
	s := &ApplicationStore{
		backend: backend,
		now:     time.Now,
		newID:   generateApplicationID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// generateApplicationID returns ids shaped CA<unix millis><9 random hex chars>.
func generateApplicationID(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:9]
	return "CA" + strconv.FormatInt(at.UnixMilli(), 10) + suffix
}

// Create appends a new pending application and counts it in the aggregate. The input is not validated.
func (s *ApplicationStore) Create(ctx context.Context, in models.ApplicationInput) (*models.Application, error) {
	var created models.Application
	err := s.mutate(ctx, func(apps []models.Application, stats *models.Statistics) ([]models.Application, error) {
		created = s.newApplication(in)
		stats.TotalApplications++
		return append(apps, created), nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateIfEmpty appends every input only when the collection holds no application, checking and
// writing within one locked cycle. It returns the created applications, none when the store was not empty.
func (s *ApplicationStore) CreateIfEmpty(ctx context.Context, inputs []models.ApplicationInput) ([]models.Application, error) {
	var created []models.Application
	err := s.mutate(ctx, func(apps []models.Application, stats *models.Statistics) ([]models.Application, error) {
		if len(apps) > 0 {
			return apps, nil
		}
		for _, in := range inputs {
			app := s.newApplication(in)
			created = append(created, app)
			apps = append(apps, app)
			stats.TotalApplications++
		}
		return apps, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *ApplicationStore) newApplication(in models.ApplicationInput) models.Application {
	now := s.now().UTC()
	return models.Application{
		ID:                 s.newID(now),
		ApplicantName:      in.ApplicantName,
		ApplicantUsername:  in.ApplicantUsername,
		Email:              in.Email,
		Phone:              in.Phone,
		Address:            in.Address,
		HasAdvocate:        in.HasAdvocate,
		AdvocateName:       in.AdvocateName,
		AdvocateBarNumber:  in.AdvocateBarNumber,
		IdentificationType: in.IdentificationType,
		CaseNumber:         in.CaseNumber,
		FIRNumber:          in.FIRNumber,
		CaseType:           in.CaseType,
		District:           in.District,
		CourtName:          in.CourtName,
		CopyTypes:          append([]string(nil), in.CopyTypes...),
		Purpose:            in.Purpose,
		AdditionalInfo:     in.AdditionalInfo,
		Status:             models.StatusPending,
		SubmittedDate:      now,
		LastUpdated:        now,
	}
}

// List returns the applications matching filter in insertion order.
func (s *ApplicationStore) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apps, err := s.loadApplications(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]models.Application, 0, len(apps))
	for _, app := range apps {
		if filter.Matches(app) {
			result = append(result, app)
		}
	}
	return result, nil
}

// GetByID returns a single application or ErrApplicationNotFound.
func (s *ApplicationStore) GetByID(ctx context.Context, id string) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apps, err := s.loadApplications(ctx)
	if err != nil {
		return nil, err
	}
	for i := range apps {
		if apps[i].ID == id {
			app := apps[i]
			return &app, nil
		}
	}
	return nil, ErrApplicationNotFound
}

// Update merges patch into the application and refreshes LastUpdated. Setting the status
// to approved or rejected bumps the matching total and today's processed counter every
// time, even when the record already carried that status.
func (s *ApplicationStore) Update(ctx context.Context, id string, patch models.ApplicationPatch) (*models.Application, error) {
	return s.UpdateFunc(ctx, id, func(models.Application) (models.ApplicationPatch, error) {
		return patch, nil
	})
}

// UpdateFunc computes the patch from the current record while the store is locked, so
// the guard and the write cannot interleave with another mutation. An error from fn
// aborts the update without touching the backend.
func (s *ApplicationStore) UpdateFunc(ctx context.Context, id string, fn func(current models.Application) (models.ApplicationPatch, error)) (*models.Application, error) {
	var updated models.Application
	err := s.mutate(ctx, func(apps []models.Application, stats *models.Statistics) ([]models.Application, error) {
		idx := indexOf(apps, id)
		if idx < 0 {
			return nil, ErrApplicationNotFound
		}
		patch, err := fn(apps[idx])
		if err != nil {
			return nil, err
		}

		now := s.now().UTC()
		app := apps[idx]
		applyPatch(&app, patch)
		app.LastUpdated = now

		if patch.Status != nil {
			switch *patch.Status {
			case models.StatusApproved:
				stats.TotalApproved++
				stats.DailyProcessed[models.DayKey(now)]++
			case models.StatusRejected:
				stats.TotalRejected++
				stats.DailyProcessed[models.DayKey(now)]++
			}
		}

		apps[idx] = app
		updated = app
		return apps, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the application. The aggregate is left untouched. The boolean reports
// whether a record was removed.
func (s *ApplicationStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	apps, err := s.loadApplications(ctx)
	if err != nil {
		return false, err
	}
	idx := indexOf(apps, id)
	if idx < 0 {
		return false, nil
	}
	apps = append(apps[:idx], apps[idx+1:]...)
	if err := s.saveJSON(ctx, ApplicationsKey, apps); err != nil {
		return false, err
	}
	return true, nil
}

// Stats returns the aggregate, zero-valued when nothing has been recorded yet.
func (s *ApplicationStore) Stats(ctx context.Context) (models.Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadStatistics(ctx)
}

// DailyProcessedCount returns the decisions recorded for the calendar day of day.
func (s *ApplicationStore) DailyProcessedCount(ctx context.Context, day time.Time) (int, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return 0, err
	}
	return stats.ProcessedOn(day), nil
}

// Replace overwrites both the collection and the aggregate, as done by imports.
func (s *ApplicationStore) Replace(ctx context.Context, apps []models.Application, stats models.Statistics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if apps == nil {
		apps = []models.Application{}
	}
	if stats.DailyProcessed == nil {
		stats.DailyProcessed = map[string]int{}
	}
	if err := s.saveJSON(ctx, ApplicationsKey, apps); err != nil {
		return err
	}
	return s.saveJSON(ctx, StatisticsKey, stats)
}

func (s *ApplicationStore) mutate(ctx context.Context, fn func([]models.Application, *models.Statistics) ([]models.Application, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	apps, err := s.loadApplications(ctx)
	if err != nil {
		return err
	}
	stats, err := s.loadStatistics(ctx)
	if err != nil {
		return err
	}

	apps, err = fn(apps, &stats)
	if err != nil {
		return err
	}

	if err := s.saveJSON(ctx, ApplicationsKey, apps); err != nil {
		return err
	}
	return s.saveJSON(ctx, StatisticsKey, stats)
}

func (s *ApplicationStore) lock(ctx context.Context) (func(), error) {
	locker, ok := s.backend.(Locker)
	if !ok {
		return func() {}, nil
	}
	release, err := locker.Lock(ctx)
	if err != nil {
		return nil, err
	}
	return func() { _ = release() }, nil
}

func (s *ApplicationStore) loadApplications(ctx context.Context) ([]models.Application, error) {
	raw, err := s.load(ctx, ApplicationsKey)
	if err != nil {
		return nil, fmt.Errorf("load applications: %w", err)
	}
	apps := []models.Application{}
	if len(raw) == 0 {
		return apps, nil
	}
	if err := json.Unmarshal(raw, &apps); err != nil {
		return nil, fmt.Errorf("decode applications: %w", err)
	}
	return apps, nil
}

func (s *ApplicationStore) loadStatistics(ctx context.Context) (models.Statistics, error) {
	stats := models.NewStatistics()
	raw, err := s.load(ctx, StatisticsKey)
	if err != nil {
		return stats, fmt.Errorf("load statistics: %w", err)
	}
	if len(raw) == 0 {
		return stats, nil
	}
	if err := json.Unmarshal(raw, &stats); err != nil {
		return stats, fmt.Errorf("decode statistics: %w", err)
	}
	if stats.DailyProcessed == nil {
		stats.DailyProcessed = map[string]int{}
	}
	return stats, nil
}

func (s *ApplicationStore) saveJSON(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	start := time.Now()
	err = s.backend.SaveAll(ctx, key, payload)
	s.observe("save", key, start)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *ApplicationStore) load(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	raw, err := s.backend.LoadAll(ctx, key)
	s.observe("load", key, start)
	return raw, err
}

func (s *ApplicationStore) observe(op, key string, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveStoreOperation(op, key, time.Since(start))
	}
}

func indexOf(apps []models.Application, id string) int {
	for i := range apps {
		if apps[i].ID == id {
			return i
		}
	}
	return -1
}

func applyPatch(app *models.Application, patch models.ApplicationPatch) {
	if patch.Status != nil {
		app.Status = *patch.Status
	}
	if patch.StaffRemarks != nil {
		app.StaffRemarks = patch.StaffRemarks
	}
	if patch.UploadedDocument != nil {
		app.UploadedDocument = patch.UploadedDocument
	}
	if patch.ProcessedBy != nil {
		app.ProcessedBy = patch.ProcessedBy
	}
	if patch.ProcessedDate != nil {
		processed := patch.ProcessedDate.UTC()
		app.ProcessedDate = &processed
	}
}
