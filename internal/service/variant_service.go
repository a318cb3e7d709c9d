package service

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
)

const (
	popularTagLimit = 5
	bandShare       = 0.4
)

type variantRepository interface {
	List(ctx context.Context, subject models.Subject) ([]models.GeneratedVariant, error)
	FindByID(ctx context.Context, id string) (*models.GeneratedVariant, error)
	Create(ctx context.Context, variant *models.GeneratedVariant) error
	Delete(ctx context.Context, id string) error
}

type problemPoolRepository interface {
	Pool(ctx context.Context, filter models.VariantFilter) ([]models.Problem, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.ProblemWithSubject, error)
}

// GenerateRequest asks for count problems drawn from the pool described by the filter.
type GenerateRequest struct {
	models.VariantFilter
	Count int `json:"count" validate:"required,gte=1,lte=100"`
}

// VariantRequest saves a named variant from either explicit problem ids or a fresh generation.
type VariantRequest struct {
	Name       string           `json:"name" validate:"required,max=200"`
	Subject    models.Subject   `json:"subject" validate:"required,oneof=math physics"`
	ProblemIDs []string         `json:"problem_ids" validate:"omitempty,max=100,dive,required"`
	Generate   *GenerateRequest `json:"generate,omitempty"`
}

// VariantSelection is an unsaved draw from the pool.
type VariantSelection struct {
	Problems    []models.Problem `json:"problems"`
	TotalPoints int              `json:"total_points"`
	PoolSize    int              `json:"pool_size"`
}

// VariantService builds test variants out of the problem bank.
type VariantService struct {
	variants  variantRepository
	problems  problemPoolRepository
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewVariantService constructs the variant generator. A nil rng seeds one from the clock.
func NewVariantService(variants variantRepository, problems problemPoolRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, rng *rand.Rand) *VariantService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &VariantService{variants: variants, problems: problems, metrics: metrics, validator: validate, logger: logger, rng: rng}
}

// PoolStats summarises the problems a filter selects.
func (s *VariantService) PoolStats(ctx context.Context, filter models.VariantFilter) (*models.PoolStats, error) {
	pool, err := s.pool(ctx, filter)
	if err != nil {
		return nil, err
	}
	return poolStats(pool), nil
}

// Preview draws a selection without saving it.
func (s *VariantService) Preview(ctx context.Context, req GenerateRequest) (*VariantSelection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid generation request")
	}
	return s.generate(ctx, req)
}

// List returns saved variants, optionally narrowed to a subject.
func (s *VariantService) List(ctx context.Context, subject models.Subject) ([]models.GeneratedVariant, error) {
	if subject != "" {
		if err := s.validator.Var(string(subject), "oneof=math physics"); err != nil {
			return nil, appErrors.Validation(err, "invalid subject")
		}
	}
	variants, err := s.variants.List(ctx, subject)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list variants")
	}
	if variants == nil {
		variants = []models.GeneratedVariant{}
	}
	return variants, nil
}

// Get returns a saved variant.
func (s *VariantService) Get(ctx context.Context, id string) (*models.GeneratedVariant, error) {
	variant, err := s.variants.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "variant")
	}
	return variant, nil
}

// Create saves a named snapshot of problems.
func (s *VariantService) Create(ctx context.Context, req VariantRequest) (*models.GeneratedVariant, error) {
	if req.Generate != nil && req.Generate.Subject == "" {
		req.Generate.Subject = req.Subject
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid variant payload")
	}

	var problems []models.Problem
	switch {
	case len(req.ProblemIDs) > 0 && req.Generate != nil:
		return nil, appErrors.Clone(appErrors.ErrValidation, "provide either problem_ids or generate, not both")
	case len(req.ProblemIDs) > 0:
		picked, err := s.resolveProblems(ctx, req.Subject, req.ProblemIDs)
		if err != nil {
			return nil, err
		}
		problems = picked
	case req.Generate != nil:
		if req.Generate.Subject != req.Subject {
			return nil, appErrors.Clone(appErrors.ErrValidation, "generation subject must match variant subject")
		}
		selection, err := s.generate(ctx, *req.Generate)
		if err != nil {
			return nil, err
		}
		problems = selection.Problems
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "problem_ids or generate is required")
	}

	variant := &models.GeneratedVariant{
		Name:        strings.TrimSpace(req.Name),
		Subject:     req.Subject,
		Problems:    problems,
		TotalPoints: totalPoints(problems),
	}
	if err := s.variants.Create(ctx, variant); err != nil {
		return nil, appErrors.Internal(err, "failed to save variant")
	}
	s.logger.Info("variant saved", zap.String("variant_id", variant.ID), zap.Int("problems", len(problems)))
	return variant, nil
}

// Delete removes a saved variant.
func (s *VariantService) Delete(ctx context.Context, id string) error {
	if err := s.variants.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "variant not found")
		}
		return appErrors.Internal(err, "failed to delete variant")
	}
	return nil
}

func (s *VariantService) pool(ctx context.Context, filter models.VariantFilter) ([]models.Problem, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, appErrors.Validation(err, "invalid pool filter")
	}
	if filter.MaxPoints > 0 && filter.MinPoints > filter.MaxPoints {
		return nil, appErrors.Clone(appErrors.ErrValidation, "min_points must not exceed max_points")
	}
	pool, err := s.problems.Pool(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load problem pool")
	}
	return pool, nil
}

func (s *VariantService) generate(ctx context.Context, req GenerateRequest) (*VariantSelection, error) {
	pool, err := s.pool(ctx, req.VariantFilter)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no problems match the filter")
	}

	s.mu.Lock()
	picked := selectVariant(pool, req.Count, s.rng)
	s.mu.Unlock()

	s.metrics.RecordVariantGenerated(string(req.Subject))
	return &VariantSelection{Problems: picked, TotalPoints: totalPoints(picked), PoolSize: len(pool)}, nil
}

// resolveProblems loads ids in the given order and requires each to exist once and belong to subject.
func (s *VariantService) resolveProblems(ctx context.Context, subject models.Subject, ids []string) ([]models.Problem, error) {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "problem_ids must not contain duplicates")
		}
		seen[id] = struct{}{}
	}

	found, err := s.problems.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load problems")
	}
	byID := make(map[string]models.ProblemWithSubject, len(found))
	for _, problem := range found {
		byID[problem.ID] = problem
	}

	problems := make([]models.Problem, 0, len(ids))
	for _, id := range ids {
		problem, ok := byID[id]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "problem "+id+" does not exist")
		}
		if problem.Subject != subject {
			return nil, appErrors.Clone(appErrors.ErrValidation, "problem "+id+" belongs to another subject")
		}
		problems = append(problems, problem.Problem)
	}
	return problems, nil
}

// selectVariant draws n = min(count, len(pool)) distinct problems. Up to 40% come
// from each of the easy and medium bands, hard fills the rest, and any shortfall
// is topped up from the remaining pool.
func selectVariant(pool []models.Problem, count int, rng *rand.Rand) []models.Problem {
	n := min(count, len(pool))
	if n <= 0 {
		return []models.Problem{}
	}

	bands := map[models.Difficulty][]models.Problem{}
	for _, problem := range pool {
		bands[problem.Difficulty] = append(bands[problem.Difficulty], problem)
	}

	target := int(math.Ceil(bandShare * float64(n)))
	easyN := min(target, len(bands[models.DifficultyEasy]), n)
	// rounding both bands up must not push the variant past n
	mediumN := min(target, len(bands[models.DifficultyMedium]), n-easyN)
	hardN := min(max(0, n-easyN-mediumN), len(bands[models.DifficultyHard]))

	picked := make([]models.Problem, 0, n)
	used := make(map[string]struct{}, n)
	take := func(candidates []models.Problem, k int) {
		shuffled := append([]models.Problem(nil), candidates...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		for _, problem := range shuffled {
			if k == 0 {
				return
			}
			if _, ok := used[problem.ID]; ok {
				continue
			}
			used[problem.ID] = struct{}{}
			picked = append(picked, problem)
			k--
		}
	}

	take(bands[models.DifficultyEasy], easyN)
	take(bands[models.DifficultyMedium], mediumN)
	take(bands[models.DifficultyHard], hardN)
	if len(picked) < n {
		take(pool, n-len(picked))
	}

	rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	return picked
}

func poolStats(pool []models.Problem) *models.PoolStats {
	stats := &models.PoolStats{Total: len(pool), PopularTags: []models.TagCount{}}
	if len(pool) == 0 {
		return stats
	}

	points := 0
	tagCounts := map[string]int{}
	for _, problem := range pool {
		switch problem.Difficulty {
		case models.DifficultyEasy:
			stats.Easy++
		case models.DifficultyMedium:
			stats.Medium++
		case models.DifficultyHard:
			stats.Hard++
		}
		points += problem.EffectivePoints()
		for _, tag := range problem.Tags {
			if tag = strings.TrimSpace(tag); tag != "" {
				tagCounts[tag]++
			}
		}
	}
	stats.AveragePoints = math.Round(float64(points)/float64(len(pool))*100) / 100

	for tag, count := range tagCounts {
		stats.PopularTags = append(stats.PopularTags, models.TagCount{Tag: tag, Count: count})
	}
	sort.Slice(stats.PopularTags, func(i, j int) bool {
		if stats.PopularTags[i].Count != stats.PopularTags[j].Count {
			return stats.PopularTags[i].Count > stats.PopularTags[j].Count
		}
		return stats.PopularTags[i].Tag < stats.PopularTags[j].Tag
	})
	if len(stats.PopularTags) > popularTagLimit {
		stats.PopularTags = stats.PopularTags[:popularTagLimit]
	}
	return stats
}

func totalPoints(problems []models.Problem) int {
	total := 0
	for _, problem := range problems {
		total += problem.EffectivePoints()
	}
	return total
}
