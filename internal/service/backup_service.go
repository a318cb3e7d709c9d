package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
)

type backupRepository interface {
	Dump(ctx context.Context) (*models.Backup, error)
	Replace(ctx context.Context, backup *models.Backup) error
}

// BackupService exports and restores the whole data set.
type BackupService struct {
	repo   backupRepository
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
}

// NewBackupService constructs the backup service.
func NewBackupService(repo backupRepository, cache *CacheService, logger *zap.Logger) *BackupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupService{repo: repo, cache: cache, logger: logger, now: time.Now}
}

// Export returns a snapshot of every record.
func (s *BackupService) Export(ctx context.Context) (*models.Backup, error) {
	backup, err := s.repo.Dump(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to export backup")
	}
	backup.Version = models.BackupVersion
	backup.ExportedAt = s.now().UTC()
	return backup, nil
}

// Import replaces all data with the snapshot after checking references.
func (s *BackupService) Import(ctx context.Context, backup *models.Backup) (*models.BackupCounts, error) {
	if backup == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "backup payload is required")
	}
	if backup.Version < 1 || backup.Version > models.BackupVersion {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported backup version %d", backup.Version))
	}

	s.fillTimestamps(backup)
	if err := validateBackup(backup); err != nil {
		return nil, appErrors.Validation(err, err.Error())
	}
	backup.Categories = orderCategories(backup.Categories)

	if err := s.repo.Replace(ctx, backup); err != nil {
		return nil, appErrors.Internal(err, "failed to import backup")
	}
	s.cache.InvalidateDerived(ctx)

	counts := backup.Counts()
	s.logger.Info("backup imported",
		zap.Int("students", counts.Students),
		zap.Int("lessons", counts.Lessons),
		zap.Int("payments", counts.Payments),
		zap.Int("problems", counts.Problems),
	)
	return &counts, nil
}

// fillTimestamps replaces zero timestamps with the import time.
func (s *BackupService) fillTimestamps(b *models.Backup) {
	now := s.now().UTC()
	stamp := func(t *time.Time) {
		if t.IsZero() {
			*t = now
		}
	}
	for i := range b.Students {
		stamp(&b.Students[i].CreatedAt)
		stamp(&b.Students[i].UpdatedAt)
	}
	for i := range b.Lessons {
		stamp(&b.Lessons[i].Date)
		stamp(&b.Lessons[i].CreatedAt)
		stamp(&b.Lessons[i].UpdatedAt)
	}
	for i := range b.Payments {
		stamp(&b.Payments[i].Date)
		stamp(&b.Payments[i].CreatedAt)
	}
	for i := range b.Expenses {
		stamp(&b.Expenses[i].Date)
		stamp(&b.Expenses[i].CreatedAt)
	}
	for i := range b.Categories {
		stamp(&b.Categories[i].CreatedAt)
		stamp(&b.Categories[i].UpdatedAt)
	}
	for i := range b.Problems {
		stamp(&b.Problems[i].CreatedAt)
		stamp(&b.Problems[i].UpdatedAt)
	}
	for i := range b.Theories {
		stamp(&b.Theories[i].CreatedAt)
		stamp(&b.Theories[i].UpdatedAt)
	}
	for i := range b.Variants {
		stamp(&b.Variants[i].CreatedAt)
	}
}

type idSet map[string]struct{}

func (s idSet) add(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s without id", kind)
	}
	if _, ok := s[id]; ok {
		return fmt.Errorf("duplicate %s id %s", kind, id)
	}
	s[id] = struct{}{}
	return nil
}

func (s idSet) has(id string) bool {
	_, ok := s[id]
	return ok
}

// validateBackup checks ids are unique, every reference resolves inside the snapshot
// and each record carries values the API itself would accept.
func validateBackup(b *models.Backup) error {
	students := idSet{}
	for _, student := range b.Students {
		if err := students.add("student", student.ID); err != nil {
			return err
		}
		switch student.Subject {
		case models.SubjectMath, models.SubjectPhysics, models.SubjectBoth:
		default:
			return fmt.Errorf("student %s has invalid subject %q", student.ID, student.Subject)
		}
	}
	lessons := idSet{}
	for i := range b.Lessons {
		lesson := &b.Lessons[i]
		if err := lessons.add("lesson", lesson.ID); err != nil {
			return err
		}
		if !students.has(lesson.StudentID) {
			return fmt.Errorf("lesson %s references unknown student %s", lesson.ID, lesson.StudentID)
		}
		if err := normalizeLesson(lesson); err != nil {
			return err
		}
	}
	payments := idSet{}
	for _, payment := range b.Payments {
		if err := payments.add("payment", payment.ID); err != nil {
			return err
		}
		if !lessons.has(payment.LessonID) {
			return fmt.Errorf("payment %s references unknown lesson %s", payment.ID, payment.LessonID)
		}
		if payment.Amount <= 0 {
			return fmt.Errorf("payment %s must have a positive amount", payment.ID)
		}
		switch payment.Method {
		case models.PaymentMethodCash, models.PaymentMethodCard, models.PaymentMethodTransfer:
		default:
			return fmt.Errorf("payment %s has invalid method %q", payment.ID, payment.Method)
		}
	}
	expenses := idSet{}
	for _, expense := range b.Expenses {
		if err := expenses.add("expense", expense.ID); err != nil {
			return err
		}
		if expense.Amount <= 0 {
			return fmt.Errorf("expense %s must have a positive amount", expense.ID)
		}
		switch expense.Category {
		case models.ExpenseCategoryMaterials, models.ExpenseCategorySoftware, models.ExpenseCategoryAdvertising,
			models.ExpenseCategoryOffice, models.ExpenseCategoryOther:
		default:
			return fmt.Errorf("expense %s has invalid category %q", expense.ID, expense.Category)
		}
	}

	categories := idSet{}
	subjects := make(map[string]models.Subject, len(b.Categories))
	for _, category := range b.Categories {
		if err := categories.add("category", category.ID); err != nil {
			return err
		}
		if category.Subject != models.SubjectMath && category.Subject != models.SubjectPhysics {
			return fmt.Errorf("category %s has invalid subject %q", category.ID, category.Subject)
		}
		subjects[category.ID] = category.Subject
	}
	for _, category := range b.Categories {
		if category.ParentID == nil {
			continue
		}
		parent := *category.ParentID
		if parent == category.ID || !categories.has(parent) {
			return fmt.Errorf("category %s references invalid parent %s", category.ID, parent)
		}
		if subjects[parent] != category.Subject {
			return fmt.Errorf("category %s and its parent belong to different subjects", category.ID)
		}
	}
	if len(orderCategories(b.Categories)) != len(b.Categories) {
		return fmt.Errorf("category hierarchy contains a cycle")
	}

	problems := idSet{}
	for i := range b.Problems {
		problem := &b.Problems[i]
		if err := problems.add("problem", problem.ID); err != nil {
			return err
		}
		if !categories.has(problem.CategoryID) {
			return fmt.Errorf("problem %s references unknown category %s", problem.ID, problem.CategoryID)
		}
		switch problem.Difficulty {
		case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		default:
			return fmt.Errorf("problem %s has invalid difficulty %q", problem.ID, problem.Difficulty)
		}
		if problem.Points < 0 {
			return fmt.Errorf("problem %s has negative points", problem.ID)
		}
		problem.Points = problem.EffectivePoints()
	}
	theories := idSet{}
	for _, theory := range b.Theories {
		if err := theories.add("theory", theory.ID); err != nil {
			return err
		}
		if !categories.has(theory.CategoryID) {
			return fmt.Errorf("theory %s references unknown category %s", theory.ID, theory.CategoryID)
		}
	}
	variants := idSet{}
	for _, variant := range b.Variants {
		if err := variants.add("variant", variant.ID); err != nil {
			return err
		}
	}
	return nil
}

// normalizeLesson derives the duration from the time range and checks the enumerated fields.
func normalizeLesson(lesson *models.Lesson) error {
	minutes, err := lessonDuration(lesson.StartTime, lesson.EndTime)
	if err != nil {
		return fmt.Errorf("lesson %s: %s", lesson.ID, appErrors.FromError(err).Message)
	}
	lesson.Duration = minutes

	if lesson.Status == "" {
		lesson.Status = models.LessonStatusScheduled
	}
	switch lesson.Status {
	case models.LessonStatusScheduled, models.LessonStatusCompleted, models.LessonStatusCancelled:
	default:
		return fmt.Errorf("lesson %s has invalid status %q", lesson.ID, lesson.Status)
	}
	if lesson.Price < 0 {
		return fmt.Errorf("lesson %s has a negative price", lesson.ID)
	}
	if lesson.Subject != nil && *lesson.Subject != models.SubjectMath && *lesson.Subject != models.SubjectPhysics {
		return fmt.Errorf("lesson %s has invalid subject %q", lesson.ID, *lesson.Subject)
	}
	return nil
}

// orderCategories sorts categories so every parent precedes its children.
// Categories caught in a cycle are left out.
func orderCategories(categories []models.MaterialCategory) []models.MaterialCategory {
	ordered := make([]models.MaterialCategory, 0, len(categories))
	placed := make(map[string]bool, len(categories))
	pending := categories
	for len(pending) > 0 {
		var next []models.MaterialCategory
		for _, category := range pending {
			if category.ParentID == nil || placed[*category.ParentID] {
				ordered = append(ordered, category)
				placed[category.ID] = true
				continue
			}
			next = append(next, category)
		}
		if len(next) == len(pending) {
			break
		}
		pending = next
	}
	return ordered
}
