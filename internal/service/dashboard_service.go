package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-cockpit-api/internal/dto"
	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
)

const (
	recentStudentsLimit = 5
	incomeHistoryMonths = 3
	growthWindow        = 30 * 24 * time.Hour
)

type dashboardRepository interface {
	ActiveStudents(ctx context.Context, from, to time.Time) (int, error)
	CountLessons(ctx context.Context, status models.LessonStatus, from, to time.Time) (int, error)
	UnpaidCompleted(ctx context.Context) ([]models.LessonDetail, error)
	RecentStudents(ctx context.Context, limit int) ([]models.Student, error)
	IncomeByMonth(ctx context.Context, from, to time.Time) ([]models.MonthAmount, error)
	StudentGrowth(ctx context.Context, since time.Time) (models.Growth, error)
	LessonGrowth(ctx context.Context, since time.Time) (models.Growth, error)
}

type dayLessonLister interface {
	ListRange(ctx context.Context, from, to time.Time) ([]models.LessonDetail, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
	Location *time.Location
}

// DashboardService composes the home dashboard.
type DashboardService struct {
	repo    dashboardRepository
	lessons dayLessonLister
	totals  financeTotalsRepository
	cache   *CacheService
	logger  *zap.Logger
	now     func() time.Time
	cfg     DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Repo    dashboardRepository
	Lessons dayLessonLister
	Totals  financeTotalsRepository
	Cache   *CacheService
	Logger  *zap.Logger
	Config  DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		repo:    params.Repo,
		lessons: params.Lessons,
		totals:  params.Totals,
		cache:   params.Cache,
		logger:  logger,
		now:     time.Now,
		cfg:     cfg,
	}
}

// Summary returns the dashboard for the current day and reports whether it came from cache.
func (s *DashboardService) Summary(ctx context.Context) (*dto.DashboardResponse, bool, error) {
	now := s.now().In(s.cfg.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cacheKey := cacheDashboardPrefix + today.Format(dateLayout)

	var cached dto.DashboardResponse
	if s.cache.Get(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	summary, err := s.compose(ctx, now, today)
	if err != nil {
		return nil, false, err
	}
	s.cache.Set(ctx, cacheKey, summary, s.cfg.CacheTTL)
	return summary, false, nil
}

func (s *DashboardService) compose(ctx context.Context, now, today time.Time) (*dto.DashboardResponse, error) {
	summary := &dto.DashboardResponse{Date: today.Format(dateLayout)}

	totals, err := s.totals.AllTimeTotals(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load finance totals")
	}
	summary.TotalIncome = totals.Income
	summary.Profit = totals.Income - totals.Expenses

	monthStart := startOfMonth(today)
	if summary.ActiveStudents, err = s.repo.ActiveStudents(ctx, monthStart, monthStart.AddDate(0, 1, 0)); err != nil {
		return nil, appErrors.Internal(err, "failed to count active students")
	}

	dayLessons, err := s.lessons.ListRange(ctx, today, today)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load today's lessons")
	}
	summary.TodayLessons = make([]models.LessonDetail, 0, len(dayLessons))
	for _, lesson := range dayLessons {
		if lesson.Status == models.LessonStatusScheduled {
			summary.TodayLessons = append(summary.TodayLessons, lesson)
		}
	}

	if summary.WeekLessonsCount, err = s.repo.CountLessons(ctx, models.LessonStatusScheduled, today, today.AddDate(0, 0, 7)); err != nil {
		return nil, appErrors.Internal(err, "failed to count week lessons")
	}

	unpaid, err := s.repo.UnpaidCompleted(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load unpaid lessons")
	}
	summary.Unpaid.Lessons = nonNilLessons(unpaid)
	for _, lesson := range unpaid {
		summary.Unpaid.Total += lesson.Price
	}

	recent, err := s.repo.RecentStudents(ctx, recentStudentsLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load recent students")
	}
	if recent == nil {
		recent = []models.Student{}
	}
	summary.RecentStudents = recent

	historyStart := monthStart.AddDate(0, -(incomeHistoryMonths - 1), 0)
	buckets, err := s.repo.IncomeByMonth(ctx, historyStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load monthly income")
	}
	summary.MonthlyIncome = fillMonths(historyStart, incomeHistoryMonths, buckets)
	last := summary.MonthlyIncome[incomeHistoryMonths-1].Amount
	previous := summary.MonthlyIncome[incomeHistoryMonths-2].Amount
	summary.Changes.Income = percentChange(last, previous)

	since := now.Add(-growthWindow).UTC()
	studentGrowth, err := s.repo.StudentGrowth(ctx, since)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to compute student growth")
	}
	lessonGrowth, err := s.repo.LessonGrowth(ctx, since)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to compute lesson growth")
	}
	summary.Changes.Students = growthPercent(studentGrowth)
	summary.Changes.Lessons = growthPercent(lessonGrowth)

	return summary, nil
}

// fillMonths returns one bucket per month starting at start, zero-filling gaps.
func fillMonths(start time.Time, months int, buckets []models.MonthAmount) []models.MonthAmount {
	amounts := make(map[string]int64, len(buckets))
	for _, bucket := range buckets {
		amounts[bucket.Month] = bucket.Amount
	}
	out := make([]models.MonthAmount, 0, months)
	for i := 0; i < months; i++ {
		key := start.AddDate(0, i, 0).Format(monthLayout)
		out = append(out, models.MonthAmount{Month: key, Amount: amounts[key]})
	}
	return out
}

// percentChange is 100 when previous is zero and current positive.
func percentChange(current, previous int64) int {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return int(math.Round(float64(current-previous) / float64(previous) * 100))
}

func growthPercent(g models.Growth) int {
	if g.Before == 0 {
		if g.Recent > 0 {
			return 100
		}
		return 0
	}
	return int(math.Round(float64(g.Recent) / float64(g.Before) * 100))
}

func nonNilLessons(lessons []models.LessonDetail) []models.LessonDetail {
	if lessons == nil {
		return []models.LessonDetail{}
	}
	return lessons
}
