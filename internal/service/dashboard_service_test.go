package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
)

type stubDashboardRepo struct {
	activeFrom   time.Time
	weekFrom     time.Time
	weekTo       time.Time
	incomeFrom   time.Time
	buckets      []models.MonthAmount
	unpaid       []models.LessonDetail
	studentTrend models.Growth
	lessonTrend  models.Growth
	calls        int
}

func (s *stubDashboardRepo) ActiveStudents(ctx context.Context, from, to time.Time) (int, error) {
	s.calls++
	s.activeFrom = from
	return 4, nil
}

func (s *stubDashboardRepo) CountLessons(ctx context.Context, status models.LessonStatus, from, to time.Time) (int, error) {
	s.weekFrom, s.weekTo = from, to
	return 6, nil
}

func (s *stubDashboardRepo) UnpaidCompleted(ctx context.Context) ([]models.LessonDetail, error) {
	return s.unpaid, nil
}

func (s *stubDashboardRepo) RecentStudents(ctx context.Context, limit int) ([]models.Student, error) {
	return nil, nil
}

func (s *stubDashboardRepo) IncomeByMonth(ctx context.Context, from, to time.Time) ([]models.MonthAmount, error) {
	s.incomeFrom = from
	return s.buckets, nil
}

func (s *stubDashboardRepo) StudentGrowth(ctx context.Context, since time.Time) (models.Growth, error) {
	return s.studentTrend, nil
}

func (s *stubDashboardRepo) LessonGrowth(ctx context.Context, since time.Time) (models.Growth, error) {
	return s.lessonTrend, nil
}

type stubDayLessons struct {
	lessons []models.LessonDetail
	day     time.Time
}

func (s *stubDayLessons) ListRange(ctx context.Context, from, to time.Time) ([]models.LessonDetail, error) {
	s.day = from
	return s.lessons, nil
}

func TestDashboardServiceSummary(t *testing.T) {
	repo := &stubDashboardRepo{
		buckets: []models.MonthAmount{{Month: "2024-01", Amount: 3000}, {Month: "2024-03", Amount: 4500}},
		unpaid: []models.LessonDetail{
			{Lesson: models.Lesson{ID: "u1", Price: 1500}},
			{Lesson: models.Lesson{ID: "u2", Price: 2000}},
		},
		studentTrend: models.Growth{Recent: 1, Before: 4},
		lessonTrend:  models.Growth{Recent: 3, Before: 0},
	}
	day := &stubDayLessons{lessons: []models.LessonDetail{
		{Lesson: models.Lesson{ID: "a", Status: models.LessonStatusScheduled, StartTime: "09:00"}},
		{Lesson: models.Lesson{ID: "b", Status: models.LessonStatusCancelled, StartTime: "10:00"}},
	}}
	svc := NewDashboardService(DashboardServiceParams{
		Repo:    repo,
		Lessons: day,
		Totals:  &mockTotalsRepo{allTime: models.FinanceTotals{Income: 20000, Expenses: 5000}},
	})
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }

	summary, cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "2024-03-15", summary.Date)
	assert.Equal(t, int64(20000), summary.TotalIncome)
	assert.Equal(t, int64(15000), summary.Profit)
	assert.Equal(t, 4, summary.ActiveStudents)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), repo.activeFrom)
	require.Len(t, summary.TodayLessons, 1)
	assert.Equal(t, "a", summary.TodayLessons[0].ID)
	assert.Equal(t, 6, summary.WeekLessonsCount)
	assert.Equal(t, time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC), repo.weekTo)
	assert.Equal(t, int64(3500), summary.Unpaid.Total)
	assert.NotNil(t, summary.RecentStudents)

	assert.Equal(t, []models.MonthAmount{{Month: "2024-01", Amount: 3000}, {Month: "2024-02", Amount: 0}, {Month: "2024-03", Amount: 4500}}, summary.MonthlyIncome)
	assert.Equal(t, 100, summary.Changes.Income)
	assert.Equal(t, 25, summary.Changes.Students)
	assert.Equal(t, 100, summary.Changes.Lessons)
}

func TestDashboardServiceUsesLocationForToday(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	day := &stubDayLessons{}
	svc := NewDashboardService(DashboardServiceParams{
		Repo:    &stubDashboardRepo{},
		Lessons: day,
		Totals:  &mockTotalsRepo{},
		Config:  DashboardServiceConfig{Location: loc},
	})
	svc.now = func() time.Time { return time.Date(2024, 3, 31, 20, 0, 0, 0, time.UTC) }

	summary, _, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-04-01", summary.Date)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), day.day)
}

func TestDashboardServiceCachesSummary(t *testing.T) {
	repo := &stubDashboardRepo{}
	svc := NewDashboardService(DashboardServiceParams{
		Repo:    repo,
		Lessons: &stubDayLessons{},
		Totals:  &mockTotalsRepo{},
		Cache:   NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true),
	})

	_, cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)

	_, cached, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, repo.calls)
}

func TestPercentHelpers(t *testing.T) {
	assert.Equal(t, 0, percentChange(0, 0))
	assert.Equal(t, -50, percentChange(500, 1000))
	assert.Equal(t, 33, percentChange(4000, 3000))
	assert.Equal(t, 0, growthPercent(models.Growth{}))
}
