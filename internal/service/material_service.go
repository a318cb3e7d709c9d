package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
)

// maxCategoryDepth bounds the ancestor walk used for cycle detection.
const maxCategoryDepth = 32

type categoryRepository interface {
	ListBySubject(ctx context.Context, subject models.Subject) ([]models.MaterialCategory, error)
	ListChildren(ctx context.Context, parentID string) ([]models.MaterialCategory, error)
	FindByID(ctx context.Context, id string) (*models.MaterialCategory, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, category *models.MaterialCategory) error
	Update(ctx context.Context, category *models.MaterialCategory) error
	Delete(ctx context.Context, id string) error
	Seed(ctx context.Context, categories []models.MaterialCategory, problems []models.Problem) error
}

type problemRepository interface {
	ListByCategory(ctx context.Context, categoryID string) ([]models.Problem, error)
	FindByID(ctx context.Context, id string) (*models.Problem, error)
	Search(ctx context.Context, term string, subject models.Subject) ([]models.ProblemWithSubject, error)
	Tags(ctx context.Context) ([]string, error)
	Create(ctx context.Context, problem *models.Problem) error
	Update(ctx context.Context, problem *models.Problem) error
	Delete(ctx context.Context, id string) error
}

type theoryRepository interface {
	ListByCategory(ctx context.Context, categoryID string) ([]models.Theory, error)
	FindByID(ctx context.Context, id string) (*models.Theory, error)
	Create(ctx context.Context, theory *models.Theory) error
	Update(ctx context.Context, theory *models.Theory) error
	Delete(ctx context.Context, id string) error
}

// CategoryRequest is the payload for creating or editing a material category.
type CategoryRequest struct {
	Name        string         `json:"name" validate:"required,max=200"`
	Subject     models.Subject `json:"subject" validate:"required,oneof=math physics"`
	ParentID    string         `json:"parent_id"`
	Description string         `json:"description"`
	Order       int            `json:"order"`
}

// ProblemRequest is the payload for creating or editing a problem.
type ProblemRequest struct {
	CategoryID string            `json:"category_id" validate:"required"`
	Question   string            `json:"question" validate:"required"`
	Answer     string            `json:"answer" validate:"required"`
	Solution   string            `json:"solution"`
	Difficulty models.Difficulty `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Points     int               `json:"points" validate:"gte=0"`
	Tags       []string          `json:"tags" validate:"omitempty,dive,required"`
	Images     []string          `json:"images" validate:"omitempty,dive,required"`
}

// TheoryRequest is the payload for creating or editing a theory article.
type TheoryRequest struct {
	CategoryID string   `json:"category_id" validate:"required"`
	Title      string   `json:"title" validate:"required,max=300"`
	Content    string   `json:"content" validate:"required"`
	Examples   []string `json:"examples"`
}

// MaterialService manages the problem bank: categories, problems and theory.
type MaterialService struct {
	categories categoryRepository
	problems   problemRepository
	theories   theoryRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewMaterialService constructs the material service.
func NewMaterialService(categories categoryRepository, problems problemRepository, theories theoryRepository, validate *validator.Validate, logger *zap.Logger) *MaterialService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaterialService{categories: categories, problems: problems, theories: theories, validator: validate, logger: logger}
}

// Roots returns top-level categories of a subject sorted by order.
func (s *MaterialService) Roots(ctx context.Context, subject models.Subject) ([]models.MaterialCategory, error) {
	all, err := s.listSubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	roots := make([]models.MaterialCategory, 0, len(all))
	for _, category := range all {
		if category.ParentID == nil {
			roots = append(roots, category)
		}
	}
	return roots, nil
}

// Tree returns the subject's root categories with their direct children.
func (s *MaterialService) Tree(ctx context.Context, subject models.Subject) ([]models.CategoryNode, error) {
	all, err := s.listSubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	children := make(map[string][]models.MaterialCategory)
	for _, category := range all {
		if category.ParentID != nil {
			children[*category.ParentID] = append(children[*category.ParentID], category)
		}
	}
	tree := make([]models.CategoryNode, 0)
	for _, category := range all {
		if category.ParentID != nil {
			continue
		}
		node := models.CategoryNode{MaterialCategory: category, Children: children[category.ID]}
		if node.Children == nil {
			node.Children = []models.MaterialCategory{}
		}
		tree = append(tree, node)
	}
	return tree, nil
}

// Children returns the direct subcategories of a category.
func (s *MaterialService) Children(ctx context.Context, parentID string) ([]models.MaterialCategory, error) {
	if _, err := s.categories.FindByID(ctx, parentID); err != nil {
		return nil, lookupError(err, "category")
	}
	children, err := s.categories.ListChildren(ctx, parentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list subcategories")
	}
	if children == nil {
		children = []models.MaterialCategory{}
	}
	return children, nil
}

// GetCategory returns a category by id.
func (s *MaterialService) GetCategory(ctx context.Context, id string) (*models.MaterialCategory, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "category")
	}
	return category, nil
}

// CreateCategory adds a category.
func (s *MaterialService) CreateCategory(ctx context.Context, req CategoryRequest) (*models.MaterialCategory, error) {
	category := &models.MaterialCategory{}
	if err := s.applyCategory(ctx, category, req); err != nil {
		return nil, err
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, appErrors.Internal(err, "failed to create category")
	}
	return category, nil
}

// UpdateCategory edits a category.
func (s *MaterialService) UpdateCategory(ctx context.Context, id string, req CategoryRequest) (*models.MaterialCategory, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "category")
	}
	if err := s.applyCategory(ctx, category, req); err != nil {
		return nil, err
	}
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, appErrors.Internal(err, "failed to update category")
	}
	return category, nil
}

// DeleteCategory removes a category, its subcategories and their content.
func (s *MaterialService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return appErrors.Internal(err, "failed to delete category")
	}
	s.logger.Info("category deleted", zap.String("category_id", id))
	return nil
}

// ProblemsByCategory lists a category's problems from easy to hard.
func (s *MaterialService) ProblemsByCategory(ctx context.Context, categoryID string) ([]models.Problem, error) {
	if _, err := s.categories.FindByID(ctx, categoryID); err != nil {
		return nil, lookupError(err, "category")
	}
	problems, err := s.problems.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list problems")
	}
	if problems == nil {
		problems = []models.Problem{}
	}
	return problems, nil
}

// GetProblem returns a problem by id.
func (s *MaterialService) GetProblem(ctx context.Context, id string) (*models.Problem, error) {
	problem, err := s.problems.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "problem")
	}
	return problem, nil
}

// CreateProblem adds a problem to the bank.
func (s *MaterialService) CreateProblem(ctx context.Context, req ProblemRequest) (*models.Problem, error) {
	problem := &models.Problem{}
	if err := s.applyProblem(ctx, problem, req); err != nil {
		return nil, err
	}
	if err := s.problems.Create(ctx, problem); err != nil {
		return nil, appErrors.Internal(err, "failed to create problem")
	}
	return problem, nil
}

// UpdateProblem edits a problem.
func (s *MaterialService) UpdateProblem(ctx context.Context, id string, req ProblemRequest) (*models.Problem, error) {
	problem, err := s.problems.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "problem")
	}
	if err := s.applyProblem(ctx, problem, req); err != nil {
		return nil, err
	}
	if err := s.problems.Update(ctx, problem); err != nil {
		return nil, appErrors.Internal(err, "failed to update problem")
	}
	return problem, nil
}

// DeleteProblem removes a problem. Saved variants keep their snapshot.
func (s *MaterialService) DeleteProblem(ctx context.Context, id string) error {
	if err := s.problems.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "problem not found")
		}
		return appErrors.Internal(err, "failed to delete problem")
	}
	return nil
}

// SearchProblems matches question text or tags case-insensitively.
func (s *MaterialService) SearchProblems(ctx context.Context, query string, subject models.Subject) ([]models.ProblemWithSubject, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "search query is required")
	}
	if subject != "" {
		if err := s.validator.Var(string(subject), "oneof=math physics"); err != nil {
			return nil, appErrors.Validation(err, "invalid subject")
		}
	}
	problems, err := s.problems.Search(ctx, query, subject)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to search problems")
	}
	if problems == nil {
		problems = []models.ProblemWithSubject{}
	}
	return problems, nil
}

// Tags lists every distinct problem tag.
func (s *MaterialService) Tags(ctx context.Context) ([]string, error) {
	tags, err := s.problems.Tags(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list tags")
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

// TheoriesByCategory lists the theory articles of a category.
func (s *MaterialService) TheoriesByCategory(ctx context.Context, categoryID string) ([]models.Theory, error) {
	if _, err := s.categories.FindByID(ctx, categoryID); err != nil {
		return nil, lookupError(err, "category")
	}
	theories, err := s.theories.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list theory")
	}
	if theories == nil {
		theories = []models.Theory{}
	}
	return theories, nil
}

// GetTheory returns a theory article by id.
func (s *MaterialService) GetTheory(ctx context.Context, id string) (*models.Theory, error) {
	theory, err := s.theories.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "theory")
	}
	return theory, nil
}

// CreateTheory adds a theory article.
func (s *MaterialService) CreateTheory(ctx context.Context, req TheoryRequest) (*models.Theory, error) {
	theory := &models.Theory{}
	if err := s.applyTheory(ctx, theory, req); err != nil {
		return nil, err
	}
	if err := s.theories.Create(ctx, theory); err != nil {
		return nil, appErrors.Internal(err, "failed to create theory")
	}
	return theory, nil
}

// UpdateTheory edits a theory article.
func (s *MaterialService) UpdateTheory(ctx context.Context, id string, req TheoryRequest) (*models.Theory, error) {
	theory, err := s.theories.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "theory")
	}
	if err := s.applyTheory(ctx, theory, req); err != nil {
		return nil, err
	}
	if err := s.theories.Update(ctx, theory); err != nil {
		return nil, appErrors.Internal(err, "failed to update theory")
	}
	return theory, nil
}

// DeleteTheory removes a theory article.
func (s *MaterialService) DeleteTheory(ctx context.Context, id string) error {
	if err := s.theories.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "theory not found")
		}
		return appErrors.Internal(err, "failed to delete theory")
	}
	return nil
}

// Seed loads the starter bank when no category exists yet. It reports whether anything was inserted.
func (s *MaterialService) Seed(ctx context.Context) (bool, error) {
	total, err := s.categories.Count(ctx)
	if err != nil {
		return false, appErrors.Internal(err, "failed to count categories")
	}
	if total > 0 {
		return false, nil
	}
	categories, problems := starterMaterials()
	if err := s.categories.Seed(ctx, categories, problems); err != nil {
		return false, appErrors.Internal(err, "failed to seed materials")
	}
	s.logger.Info("material bank seeded", zap.Int("categories", len(categories)), zap.Int("problems", len(problems)))
	return true, nil
}

func (s *MaterialService) listSubject(ctx context.Context, subject models.Subject) ([]models.MaterialCategory, error) {
	if err := s.validator.Var(string(subject), "required,oneof=math physics"); err != nil {
		return nil, appErrors.Validation(err, "subject must be math or physics")
	}
	categories, err := s.categories.ListBySubject(ctx, subject)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list categories")
	}
	return categories, nil
}

func (s *MaterialService) applyCategory(ctx context.Context, category *models.MaterialCategory, req CategoryRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid category payload")
	}
	if category.ID != "" && category.Subject != req.Subject {
		children, err := s.categories.ListChildren(ctx, category.ID)
		if err != nil {
			return appErrors.Internal(err, "failed to load subcategories")
		}
		if len(children) > 0 {
			return appErrors.Clone(appErrors.ErrValidation, "cannot change the subject of a category that has subcategories")
		}
	}
	parentID := strings.TrimSpace(req.ParentID)
	if parentID != "" {
		if err := s.checkParent(ctx, category.ID, parentID, req.Subject); err != nil {
			return err
		}
	}

	category.Name = strings.TrimSpace(req.Name)
	category.Subject = req.Subject
	category.ParentID = nullableString(parentID)
	category.Description = nullableString(req.Description)
	category.Order = req.Order
	return nil
}

// checkParent requires an existing parent of the same subject that is not the category or one of its descendants.
func (s *MaterialService) checkParent(ctx context.Context, selfID, parentID string, subject models.Subject) error {
	if selfID != "" && parentID == selfID {
		return appErrors.Clone(appErrors.ErrValidation, "category cannot be its own parent")
	}
	parent, err := s.categories.FindByID(ctx, parentID)
	if err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrValidation, "parent category does not exist")
		}
		return appErrors.Internal(err, "failed to load parent category")
	}
	if parent.Subject != subject {
		return appErrors.Clone(appErrors.ErrValidation, "parent category belongs to another subject")
	}
	if selfID == "" {
		return nil
	}

	ancestor := parent
	for depth := 0; ancestor.ParentID != nil && depth < maxCategoryDepth; depth++ {
		if *ancestor.ParentID == selfID {
			return appErrors.Clone(appErrors.ErrValidation, "category cannot be moved under its own subcategory")
		}
		ancestor, err = s.categories.FindByID(ctx, *ancestor.ParentID)
		if err != nil {
			return appErrors.Internal(err, "failed to load category ancestor")
		}
	}
	return nil
}

func (s *MaterialService) requireCategory(ctx context.Context, id string) error {
	if _, err := s.categories.FindByID(ctx, id); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrValidation, "category does not exist")
		}
		return appErrors.Internal(err, "failed to load category")
	}
	return nil
}

func (s *MaterialService) applyProblem(ctx context.Context, problem *models.Problem, req ProblemRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid problem payload")
	}
	if err := s.requireCategory(ctx, req.CategoryID); err != nil {
		return err
	}
	problem.CategoryID = req.CategoryID
	problem.Question = req.Question
	problem.Answer = req.Answer
	problem.Solution = nullableString(req.Solution)
	problem.Difficulty = req.Difficulty
	problem.Points = req.Points
	if problem.Points <= 0 {
		problem.Points = 1
	}
	problem.Tags = normalizeTags(req.Tags)
	problem.Images = append([]string{}, req.Images...)
	return nil
}

func (s *MaterialService) applyTheory(ctx context.Context, theory *models.Theory, req TheoryRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid theory payload")
	}
	if err := s.requireCategory(ctx, req.CategoryID); err != nil {
		return err
	}
	theory.CategoryID = req.CategoryID
	theory.Title = req.Title
	theory.Content = req.Content
	theory.Examples = append([]string{}, req.Examples...)
	return nil
}

// normalizeTags trims tags and drops blanks and duplicates, preserving order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
