package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
)

type mockStudentRepo struct {
	students   map[string]models.Student
	lastFilter models.StudentFilter
	listTotal  int
	err        error
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	return out, m.listTotal, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[string]models.Student)
	}
	if student.ID == "" {
		student.ID = "generated"
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.students, id)
	return nil
}

type mockLessonLister struct {
	byStudent map[string][]models.LessonDetail
}

func (m *mockLessonLister) ListByStudent(ctx context.Context, studentID string) ([]models.LessonDetail, error) {
	return m.byStudent[studentID], nil
}

func newTestStudentService(repo *mockStudentRepo, lessons *mockLessonLister, cache *CacheService) *StudentService {
	return NewStudentService(repo, lessons, cache, validator.New(), zap.NewNop())
}

func TestStudentServiceCreate(t *testing.T) {
	repo := &mockStudentRepo{}
	cacheRepo := newMemoryCacheRepo()
	svc := newTestStudentService(repo, &mockLessonLister{}, NewCacheService(cacheRepo, nil, 0, nil, true))

	student, err := svc.Create(context.Background(), StudentRequest{
		Name:    "Anna",
		Grade:   "9",
		Subject: models.SubjectMath,
		Goal:    "OGE",
		Email:   "anna@example.com",
		Phone:   "  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "generated", student.ID)
	require.NotNil(t, student.Email)
	assert.Equal(t, "anna@example.com", *student.Email)
	assert.Nil(t, student.Phone)
	assert.Equal(t, []string{"dashboard:*", "finance:*"}, cacheRepo.patterns)
}

func TestStudentServiceCreateValidation(t *testing.T) {
	svc := newTestStudentService(&mockStudentRepo{}, &mockLessonLister{}, nil)

	_, err := svc.Create(context.Background(), StudentRequest{Name: "Anna", Grade: "9", Subject: "chemistry"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(context.Background(), StudentRequest{Name: "Anna", Grade: "9", Subject: models.SubjectBoth, Email: "not-an-email"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestStudentServiceUpdateNotFound(t *testing.T) {
	svc := newTestStudentService(&mockStudentRepo{}, &mockLessonLister{}, nil)
	_, err := svc.Update(context.Background(), "missing", StudentRequest{Name: "A", Grade: "9", Subject: models.SubjectPhysics})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestStudentServiceListPagination(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{"s1": {ID: "s1", Name: "Anna"}}, listTotal: 41}
	svc := newTestStudentService(repo, &mockLessonLister{}, nil)

	students, page, err := svc.List(context.Background(), models.StudentFilter{Page: 0, PageSize: 500, Search: "an"})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 41, page.TotalCount)
	assert.Equal(t, "an", repo.lastFilter.Search)
}

func TestStudentServiceLessons(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{"s1": {ID: "s1"}}}
	lessons := &mockLessonLister{byStudent: map[string][]models.LessonDetail{}}
	svc := newTestStudentService(repo, lessons, nil)

	out, err := svc.Lessons(context.Background(), "s1")
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)

	_, err = svc.Lessons(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestStudentServiceDelete(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{"s1": {ID: "s1"}}}
	svc := newTestStudentService(repo, &mockLessonLister{}, nil)

	require.NoError(t, svc.Delete(context.Background(), "s1"))
	assert.True(t, errors.Is(svc.Delete(context.Background(), "s1"), appErrors.ErrNotFound))
}
