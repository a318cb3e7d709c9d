package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type studentLessonLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.LessonDetail, error)
}

// StudentRequest holds the payload for creating or replacing a student.
type StudentRequest struct {
	Name    string         `json:"name" validate:"required,max=200"`
	Grade   string         `json:"grade" validate:"required,max=50"`
	Subject models.Subject `json:"subject" validate:"required,oneof=math physics both"`
	Goal    string         `json:"goal" validate:"max=500"`
	Phone   string         `json:"phone" validate:"omitempty,max=50"`
	Email   string         `json:"email" validate:"omitempty,email"`
	Notes   string         `json:"notes"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	lessons   studentLessonLister
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, lessons studentLessonLister, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, lessons: lessons, cache: cache, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Subject != "" {
		if err := s.validator.Var(string(filter.Subject), "oneof=math physics both"); err != nil {
			return nil, nil, appErrors.Validation(err, "invalid subject filter")
		}
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list students")
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a single student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student")
	}
	return student, nil
}

// Lessons returns the student's lessons sorted by date then start time.
func (s *StudentService) Lessons(ctx context.Context, id string) ([]models.LessonDetail, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	lessons, err := s.lessons.ListByStudent(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list student lessons")
	}
	if lessons == nil {
		lessons = []models.LessonDetail{}
	}
	return lessons, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid student payload")
	}
	student := &models.Student{}
	applyStudentRequest(student, req)
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Internal(err, "failed to create student")
	}
	s.cache.InvalidateDerived(ctx)
	return student, nil
}

// Update replaces the editable fields of a student.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid student payload")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student")
	}
	applyStudentRequest(student, req)
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Internal(err, "failed to update student")
	}
	s.cache.InvalidateDerived(ctx)
	return student, nil
}

// Delete removes a student along with their lessons and payments.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Internal(err, "failed to delete student")
	}
	s.cache.InvalidateDerived(ctx)
	s.logger.Info("student deleted", zap.String("student_id", id))
	return nil
}

func applyStudentRequest(student *models.Student, req StudentRequest) {
	student.Name = req.Name
	student.Grade = req.Grade
	student.Subject = req.Subject
	student.Goal = req.Goal
	student.Phone = nullableString(req.Phone)
	student.Email = nullableString(req.Email)
	student.Notes = nullableString(req.Notes)
}
