package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
)

type mockLessonRepo struct {
	lessons    map[string]models.LessonDetail
	rangeFrom  time.Time
	rangeTo    time.Time
	rangeItems []models.LessonDetail
}

func (m *mockLessonRepo) List(ctx context.Context, filter models.LessonFilter) ([]models.LessonDetail, int, error) {
	out := make([]models.LessonDetail, 0, len(m.lessons))
	for _, l := range m.lessons {
		out = append(out, l)
	}
	return out, len(out), nil
}

func (m *mockLessonRepo) FindByID(ctx context.Context, id string) (*models.LessonDetail, error) {
	if l, ok := m.lessons[id]; ok {
		return &l, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLessonRepo) ListRange(ctx context.Context, from, to time.Time) ([]models.LessonDetail, error) {
	m.rangeFrom, m.rangeTo = from, to
	return m.rangeItems, nil
}

func (m *mockLessonRepo) Create(ctx context.Context, lesson *models.Lesson) error {
	if m.lessons == nil {
		m.lessons = map[string]models.LessonDetail{}
	}
	lesson.ID = "lesson-1"
	m.lessons[lesson.ID] = models.LessonDetail{Lesson: *lesson}
	return nil
}

func (m *mockLessonRepo) Update(ctx context.Context, lesson *models.Lesson) error {
	detail := m.lessons[lesson.ID]
	detail.Lesson = *lesson
	m.lessons[lesson.ID] = detail
	return nil
}

func (m *mockLessonRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.lessons[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.lessons, id)
	return nil
}

func newTestLessonService(repo *mockLessonRepo) *LessonService {
	students := &mockStudentRepo{students: map[string]models.Student{"s1": {ID: "s1", Name: "Anna"}}}
	return NewLessonService(repo, students, nil, validator.New(), zap.NewNop(), LessonServiceConfig{})
}

func validLessonRequest() LessonRequest {
	return LessonRequest{
		StudentID: "s1",
		Title:     "Quadratic equations",
		Date:      "2024-03-05",
		StartTime: "10:00",
		EndTime:   "11:30",
		Price:     1500,
		Subject:   models.SubjectMath,
	}
}

func TestLessonServiceCreateDerivesDuration(t *testing.T) {
	svc := newTestLessonService(&mockLessonRepo{})

	lesson, err := svc.Create(context.Background(), validLessonRequest())
	require.NoError(t, err)
	assert.Equal(t, 90, lesson.Duration)
	assert.Equal(t, models.LessonStatusScheduled, lesson.Status)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), lesson.Date)
	require.NotNil(t, lesson.Subject)
	assert.Equal(t, models.SubjectMath, *lesson.Subject)
}

func TestLessonServiceCreateRejectsInvalidTimes(t *testing.T) {
	svc := newTestLessonService(&mockLessonRepo{})

	req := validLessonRequest()
	req.EndTime = "09:00"
	_, err := svc.Create(context.Background(), req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	req = validLessonRequest()
	req.StartTime = "25:00"
	_, err = svc.Create(context.Background(), req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	req = validLessonRequest()
	req.Price = -1
	_, err = svc.Create(context.Background(), req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestLessonServiceCreateUnknownStudent(t *testing.T) {
	svc := newTestLessonService(&mockLessonRepo{})
	req := validLessonRequest()
	req.StudentID = "ghost"
	_, err := svc.Create(context.Background(), req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestLessonServiceUpdateKeepsStatusWhenOmitted(t *testing.T) {
	repo := &mockLessonRepo{lessons: map[string]models.LessonDetail{
		"l1": {Lesson: models.Lesson{ID: "l1", StudentID: "s1", Status: models.LessonStatusCompleted, Paid: true}},
	}}
	svc := newTestLessonService(repo)

	req := validLessonRequest()
	lesson, err := svc.Update(context.Background(), "l1", req)
	require.NoError(t, err)
	assert.Equal(t, models.LessonStatusCompleted, lesson.Status)
	assert.Equal(t, "Quadratic equations", repo.lessons["l1"].Title)
}

func TestLessonServiceUpdateKeepsSettledFlag(t *testing.T) {
	repo := &mockLessonRepo{lessons: map[string]models.LessonDetail{
		"l1": {Lesson: models.Lesson{ID: "l1", StudentID: "s1", Title: "Old", Status: models.LessonStatusCompleted, Paid: true}},
	}}
	svc := newTestLessonService(repo)

	req := validLessonRequest()
	req.Title = "Renamed lesson"
	_, err := svc.Update(context.Background(), "l1", req)
	require.NoError(t, err)
	assert.True(t, repo.lessons["l1"].Paid)
	assert.Equal(t, "Renamed lesson", repo.lessons["l1"].Title)

	unpaid := false
	req.Paid = &unpaid
	_, err = svc.Update(context.Background(), "l1", req)
	require.NoError(t, err)
	assert.False(t, repo.lessons["l1"].Paid)
}

func TestLessonServiceCalendar(t *testing.T) {
	physics := models.SubjectPhysics
	repo := &mockLessonRepo{rangeItems: []models.LessonDetail{
		{Lesson: models.Lesson{ID: "l1", Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), StartTime: "10:00", EndTime: "11:00", Subject: &physics}, StudentName: "Anna"},
		{Lesson: models.Lesson{ID: "l2", Date: time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), StartTime: "18:30", EndTime: "19:15"}, StudentName: "Boris"},
	}}
	svc := newTestLessonService(repo)

	events, err := svc.Calendar(context.Background(), "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Anna - physics", events[0].Title)
	assert.Equal(t, "Boris - Lesson", events[1].Title)
	assert.Equal(t, time.Date(2024, 3, 6, 19, 15, 0, 0, time.UTC), events[1].End)

	_, err = svc.Calendar(context.Background(), "2024-03-31", "2024-03-01")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestLessonServiceByDate(t *testing.T) {
	repo := &mockLessonRepo{}
	svc := newTestLessonService(repo)

	lessons, err := svc.ByDate(context.Background(), "2024-03-05")
	require.NoError(t, err)
	assert.NotNil(t, lessons)
	assert.Equal(t, repo.rangeFrom, repo.rangeTo)

	_, err = svc.ByDate(context.Background(), "05.03.2024")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestLessonServiceTimeSlots(t *testing.T) {
	svc := newTestLessonService(&mockLessonRepo{})

	slots, err := svc.TimeSlots(8, 22, 30)
	require.NoError(t, err)
	require.Len(t, slots, 28)
	assert.Equal(t, "08:00", slots[0])
	assert.Equal(t, "08:30", slots[1])
	assert.Equal(t, "21:30", slots[27])

	_, err = svc.TimeSlots(22, 8, 30)
	assert.Error(t, err)
}

func TestLessonServiceDeleteMissing(t *testing.T) {
	svc := newTestLessonService(&mockLessonRepo{})
	assert.True(t, errors.Is(svc.Delete(context.Background(), "missing"), appErrors.ErrNotFound))
}
