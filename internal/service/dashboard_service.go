package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/certified-copy-api/internal/dto"
	"github.com/noah-isme/certified-copy-api/internal/models"
	appErrors "github.com/noah-isme/certified-copy-api/pkg/errors"
)

type dashboardStore interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error)
	Stats(ctx context.Context) (models.Statistics, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL    time.Duration
	RecentLimit int
	TrendDays   int
}

// DashboardService composes the staff and admin summaries.
type DashboardService struct {
	store  dashboardStore
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Store  dashboardStore
	Cache  *CacheService
	Logger *zap.Logger
	Now    func() time.Time
	Config DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 10
	}
	if cfg.TrendDays <= 0 {
		cfg.TrendDays = 7
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &DashboardService{store: params.Store, cache: params.Cache, logger: logger, now: now, cfg: cfg}
}

// Staff returns the review queue summary and indicates cache utilisation.
func (s *DashboardService) Staff(ctx context.Context) (*dto.StaffDashboardResponse, bool, error) {
	today := s.now().UTC()
	cacheKey := fmt.Sprintf("dashboard:staff:%s", models.DayKey(today))

	var cached dto.StaffDashboardResponse
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	apps, stats, err := s.load(ctx)
	if err != nil {
		return nil, false, err
	}
	counts := countByStatus(apps)
	summary := &dto.StaffDashboardResponse{
		Pending:        counts[models.StatusPending],
		UnderReview:    counts[models.StatusUnderReview],
		ProcessedToday: stats.ProcessedOn(today),
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// Admin returns the portal-wide summary and indicates cache utilisation.
// Counts and approval rate come from live records; the trend and processed-today figures
// come from the statistics aggregate, so they keep counting deleted applications.
func (s *DashboardService) Admin(ctx context.Context) (*dto.AdminDashboardResponse, bool, error) {
	today := s.now().UTC()
	cacheKey := fmt.Sprintf("dashboard:admin:%s", models.DayKey(today))

	var cached dto.AdminDashboardResponse
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	apps, stats, err := s.load(ctx)
	if err != nil {
		return nil, false, err
	}
	counts := countByStatus(apps)

	distribution := make([]dto.StatusCount, 0, len(models.AllStatuses))
	for _, status := range models.AllStatuses {
		distribution = append(distribution, dto.StatusCount{Status: status, Count: counts[status]})
	}

	summary := &dto.AdminDashboardResponse{
		TotalApplications:  len(apps),
		AwaitingDecision:   counts[models.StatusPending] + counts[models.StatusUnderReview],
		Approved:           counts[models.StatusApproved],
		ProcessedToday:     stats.ProcessedOn(today),
		ApprovalRate:       approvalRate(counts[models.StatusApproved], counts[models.StatusRejected]),
		StatusDistribution: distribution,
		RecentActivity:     s.recentDecisions(apps),
		Trend:              s.trend(stats, today),
		Statistics:         stats,
		GeneratedAt:        today,
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// Statistics returns the raw aggregate.
func (s *DashboardService) Statistics(ctx context.Context) (models.Statistics, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return models.Statistics{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load statistics")
	}
	return stats, nil
}

func (s *DashboardService) load(ctx context.Context) ([]models.Application, models.Statistics, error) {
	apps, err := s.store.List(ctx, models.ApplicationFilter{})
	if err != nil {
		return nil, models.Statistics{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	stats, err := s.Statistics(ctx)
	if err != nil {
		return nil, models.Statistics{}, err
	}
	return apps, stats, nil
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *DashboardService) recentDecisions(apps []models.Application) []dto.RecentDecision {
	decided := make([]models.Application, 0, len(apps))
	for _, app := range apps {
		if app.ProcessedDate != nil {
			decided = append(decided, app)
		}
	}
	sort.SliceStable(decided, func(i, j int) bool {
		return decided[i].ProcessedDate.After(*decided[j].ProcessedDate)
	})
	if len(decided) > s.cfg.RecentLimit {
		decided = decided[:s.cfg.RecentLimit]
	}

	recent := make([]dto.RecentDecision, 0, len(decided))
	for _, app := range decided {
		entry := dto.RecentDecision{
			ID:            app.ID,
			ApplicantName: app.ApplicantName,
			Status:        app.Status,
			ProcessedDate: *app.ProcessedDate,
		}
		if app.ProcessedBy != nil {
			entry.ProcessedBy = *app.ProcessedBy
		}
		recent = append(recent, entry)
	}
	return recent
}

// trend lists the processed counts of the last TrendDays days, oldest first, ending today.
func (s *DashboardService) trend(stats models.Statistics, today time.Time) []dto.DailyCount {
	points := make([]dto.DailyCount, 0, s.cfg.TrendDays)
	for offset := s.cfg.TrendDays - 1; offset >= 0; offset-- {
		day := models.DayKey(today.AddDate(0, 0, -offset))
		points = append(points, dto.DailyCount{Date: day, Count: stats.DailyProcessed[day]})
	}
	return points
}

func countByStatus(apps []models.Application) map[models.ApplicationStatus]int {
	counts := make(map[models.ApplicationStatus]int, len(models.AllStatuses))
	for _, app := range apps {
		counts[app.Status]++
	}
	return counts
}

// approvalRate is the rounded percentage of decided applications that were approved.
func approvalRate(approved, rejected int) int {
	decided := approved + rejected
	if decided == 0 {
		return 0
	}
	return int(math.Round(float64(approved) / float64(decided) * 100))
}
