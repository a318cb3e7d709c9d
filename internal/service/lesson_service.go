package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
)

const maxCalendarSpan = 366 * 24 * time.Hour

type lessonRepository interface {
	List(ctx context.Context, filter models.LessonFilter) ([]models.LessonDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.LessonDetail, error)
	ListRange(ctx context.Context, from, to time.Time) ([]models.LessonDetail, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// LessonRequest holds the payload for creating or replacing a lesson.
type LessonRequest struct {
	StudentID   string              `json:"student_id" validate:"required"`
	Title       string              `json:"title" validate:"required,min=2,max=200"`
	Description string              `json:"description"`
	Date        string              `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string              `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string              `json:"end_time" validate:"required,datetime=15:04"`
	Status      models.LessonStatus `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
	Price       int64               `json:"price" validate:"gte=0"`
	Paid        *bool               `json:"paid,omitempty"`
	Subject     models.Subject      `json:"subject" validate:"omitempty,oneof=math physics"`
	Notes       string              `json:"notes"`
}

// LessonServiceConfig tunes calendar rendering.
type LessonServiceConfig struct {
	Location *time.Location
}

// LessonService handles scheduling use-cases.
type LessonService struct {
	repo      lessonRepository
	students  studentFinder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       LessonServiceConfig
}

// NewLessonService constructs the lesson service.
func NewLessonService(repo lessonRepository, students studentFinder, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg LessonServiceConfig) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &LessonService{repo: repo, students: students, cache: cache, validator: validate, logger: logger, cfg: cfg}
}

// List returns lessons matching the filter with pagination metadata.
func (s *LessonService) List(ctx context.Context, filter models.LessonFilter) ([]models.LessonDetail, *models.Pagination, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "date_to must not be before date_from")
	}
	lessons, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list lessons")
	}
	if lessons == nil {
		lessons = []models.LessonDetail{}
	}
	return lessons, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a lesson with its student's name.
func (s *LessonService) Get(ctx context.Context, id string) (*models.LessonDetail, error) {
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "lesson")
	}
	return lesson, nil
}

// ByDate returns the lessons of one calendar day ordered by start time.
func (s *LessonService) ByDate(ctx context.Context, rawDate string) ([]models.LessonDetail, error) {
	day, err := parseDate(rawDate)
	if err != nil {
		return nil, err
	}
	lessons, err := s.repo.ListRange(ctx, day, day)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list lessons for day")
	}
	if lessons == nil {
		lessons = []models.LessonDetail{}
	}
	return lessons, nil
}

// Calendar renders lessons within [from, to] as calendar events.
func (s *LessonService) Calendar(ctx context.Context, rawFrom, rawTo string) ([]models.CalendarEvent, error) {
	from, err := parseDate(rawFrom)
	if err != nil {
		return nil, err
	}
	to, err := parseDate(rawTo)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	if to.Sub(from) > maxCalendarSpan {
		return nil, appErrors.Clone(appErrors.ErrValidation, "calendar range cannot exceed one year")
	}

	lessons, err := s.repo.ListRange(ctx, from, to)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list calendar lessons")
	}
	events := make([]models.CalendarEvent, 0, len(lessons))
	for _, lesson := range lessons {
		events = append(events, s.toCalendarEvent(lesson))
	}
	return events, nil
}

// TimeSlots lists "HH:MM" booking slots from startHour up to, but excluding, endHour.
func (s *LessonService) TimeSlots(startHour, endHour, interval int) ([]string, error) {
	if startHour < 0 || endHour > 24 || startHour >= endHour {
		return nil, appErrors.Clone(appErrors.ErrValidation, "hours must satisfy 0 <= start < end <= 24")
	}
	if interval <= 0 || interval > 60 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "interval must be between 1 and 60 minutes")
	}
	return generateTimeSlots(startHour, endHour, interval), nil
}

// Create books a new lesson.
func (s *LessonService) Create(ctx context.Context, req LessonRequest) (*models.Lesson, error) {
	lesson := &models.Lesson{Status: models.LessonStatusScheduled}
	if err := s.apply(ctx, lesson, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, lesson); err != nil {
		return nil, appErrors.Internal(err, "failed to create lesson")
	}
	s.cache.InvalidateDerived(ctx)
	return lesson, nil
}

// Update replaces a lesson's editable fields.
func (s *LessonService) Update(ctx context.Context, id string, req LessonRequest) (*models.Lesson, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "lesson")
	}
	lesson := detail.Lesson
	if err := s.apply(ctx, &lesson, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &lesson); err != nil {
		return nil, appErrors.Internal(err, "failed to update lesson")
	}
	s.cache.InvalidateDerived(ctx)
	return &lesson, nil
}

// Delete removes a lesson and its payments.
func (s *LessonService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return appErrors.Internal(err, "failed to delete lesson")
	}
	s.cache.InvalidateDerived(ctx)
	return nil
}

func (s *LessonService) apply(ctx context.Context, lesson *models.Lesson, req LessonRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid lesson payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return err
	}
	duration, err := lessonDuration(req.StartTime, req.EndTime)
	if err != nil {
		return err
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrValidation, "student does not exist")
		}
		return appErrors.Internal(err, "failed to load student")
	}

	lesson.StudentID = req.StudentID
	lesson.Title = req.Title
	lesson.Description = nullableString(req.Description)
	lesson.Date = date
	lesson.StartTime = req.StartTime
	lesson.EndTime = req.EndTime
	lesson.Duration = duration
	if req.Status != "" {
		lesson.Status = req.Status
	}
	lesson.Price = req.Price
	// payments own the flag unless the client sets it explicitly
	if req.Paid != nil {
		lesson.Paid = *req.Paid
	}
	lesson.Subject = nil
	if req.Subject != "" {
		subject := req.Subject
		lesson.Subject = &subject
	}
	lesson.Notes = nullableString(req.Notes)
	return nil
}

func (s *LessonService) toCalendarEvent(lesson models.LessonDetail) models.CalendarEvent {
	label := "Lesson"
	if lesson.Subject != nil && *lesson.Subject != "" {
		label = string(*lesson.Subject)
	}
	return models.CalendarEvent{
		ID:          lesson.ID,
		Title:       fmt.Sprintf("%s - %s", lesson.StudentName, label),
		Start:       atClock(lesson.Date, lesson.StartTime, s.cfg.Location),
		End:         atClock(lesson.Date, lesson.EndTime, s.cfg.Location),
		StudentName: lesson.StudentName,
		Lesson:      lesson.Lesson,
	}
}

// lessonDuration returns end - start in minutes; the lesson must end after it starts.
func lessonDuration(start, end string) (int, error) {
	startAt, err := time.Parse("15:04", start)
	if err != nil {
		return 0, appErrors.Validation(err, "invalid start_time")
	}
	endAt, err := time.Parse("15:04", end)
	if err != nil {
		return 0, appErrors.Validation(err, "invalid end_time")
	}
	minutes := int(endAt.Sub(startAt).Minutes())
	if minutes <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	return minutes, nil
}

func atClock(day time.Time, clock string, loc *time.Location) time.Time {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

func generateTimeSlots(startHour, endHour, interval int) []string {
	slots := make([]string, 0, (endHour-startHour)*60/interval)
	for hour := startHour; hour < endHour; hour++ {
		for minute := 0; minute < 60; minute += interval {
			slots = append(slots, fmt.Sprintf("%02d:%02d", hour, minute))
		}
	}
	return slots
}
