package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
)

const problemColumns = `p.id, p.category_id, p.question, p.answer, p.solution, p.difficulty, p.points, p.tags, p.images, p.created_at, p.updated_at`

const difficultyOrder = `CASE p.difficulty WHEN 'easy' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END`

const insertProblemQuery = `INSERT INTO problems (id, category_id, question, answer, solution, difficulty, points, tags, images, created_at, updated_at)
    VALUES (:id, :category_id, :question, :answer, :solution, :difficulty, :points, :tags, :images, :created_at, :updated_at)`

// ProblemRepository persists the practice problem bank.
type ProblemRepository struct {
	db *sqlx.DB
}

// NewProblemRepository constructs a ProblemRepository.
func NewProblemRepository(db *sqlx.DB) *ProblemRepository {
	return &ProblemRepository{db: db}
}

// ListByCategory returns the problems of a category ordered easy, medium, hard.
func (r *ProblemRepository) ListByCategory(ctx context.Context, categoryID string) ([]models.Problem, error) {
	var problems []models.Problem
	query := "SELECT " + problemColumns + " FROM problems p WHERE p.category_id = $1 ORDER BY " + difficultyOrder + ", p.created_at ASC"
	if err := r.db.SelectContext(ctx, &problems, query, categoryID); err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	return problems, nil
}

// ListBySubject returns every problem whose category belongs to subject, grouped by category.
func (r *ProblemRepository) ListBySubject(ctx context.Context, subject models.Subject) ([]models.Problem, error) {
	var problems []models.Problem
	query := "SELECT " + problemColumns + " FROM problems p JOIN material_categories c ON c.id = p.category_id WHERE c.subject = $1 ORDER BY c.sort_order, p.category_id, " + difficultyOrder
	if err := r.db.SelectContext(ctx, &problems, query, subject); err != nil {
		return nil, fmt.Errorf("list subject problems: %w", err)
	}
	return problems, nil
}

// FindByID fetches a problem.
func (r *ProblemRepository) FindByID(ctx context.Context, id string) (*models.Problem, error) {
	var problem models.Problem
	if err := r.db.GetContext(ctx, &problem, "SELECT "+problemColumns+" FROM problems p WHERE p.id = $1", id); err != nil {
		return nil, err
	}
	return &problem, nil
}

// FindByIDs fetches problems with their category subject. Missing ids are skipped.
func (r *ProblemRepository) FindByIDs(ctx context.Context, ids []string) ([]models.ProblemWithSubject, error) {
	if len(ids) == 0 {
		return []models.ProblemWithSubject{}, nil
	}
	var problems []models.ProblemWithSubject
	query := "SELECT " + problemColumns + ", c.subject FROM problems p JOIN material_categories c ON c.id = p.category_id WHERE p.id = ANY($1)"
	if err := r.db.SelectContext(ctx, &problems, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find problems by ids: %w", err)
	}
	return problems, nil
}

// Search matches the query against question text and tags, case-insensitively.
func (r *ProblemRepository) Search(ctx context.Context, term string, subject models.Subject) ([]models.ProblemWithSubject, error) {
	args := []interface{}{"%" + strings.ToLower(term) + "%"}
	conditions := []string{"(LOWER(p.question) LIKE $1 OR EXISTS (SELECT 1 FROM unnest(p.tags) AS tag WHERE LOWER(tag) LIKE $1))"}
	if subject != "" {
		conditions = append(conditions, fmt.Sprintf("c.subject = $%d", len(args)+1))
		args = append(args, subject)
	}
	query := fmt.Sprintf("SELECT %s, c.subject FROM problems p JOIN material_categories c ON c.id = p.category_id WHERE %s ORDER BY %s, p.created_at ASC LIMIT 200",
		problemColumns, strings.Join(conditions, " AND "), difficultyOrder)

	var problems []models.ProblemWithSubject
	if err := r.db.SelectContext(ctx, &problems, query, args...); err != nil {
		return nil, fmt.Errorf("search problems: %w", err)
	}
	return problems, nil
}

// Pool returns the problems matching a variant filter.
func (r *ProblemRepository) Pool(ctx context.Context, filter models.VariantFilter) ([]models.Problem, error) {
	args := []interface{}{filter.Subject}
	conditions := []string{"c.subject = $1"}

	if len(filter.CategoryIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("p.category_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.CategoryIDs))
	}
	if len(filter.Difficulties) > 0 {
		levels := make([]string, len(filter.Difficulties))
		for i, d := range filter.Difficulties {
			levels[i] = string(d)
		}
		conditions = append(conditions, fmt.Sprintf("p.difficulty = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(levels))
	}
	if len(filter.Tags) > 0 {
		conditions = append(conditions, fmt.Sprintf("p.tags && $%d", len(args)+1))
		args = append(args, pq.Array(filter.Tags))
	}
	if filter.MinPoints > 0 {
		conditions = append(conditions, fmt.Sprintf("GREATEST(p.points, 1) >= $%d", len(args)+1))
		args = append(args, filter.MinPoints)
	}
	if filter.MaxPoints > 0 {
		conditions = append(conditions, fmt.Sprintf("GREATEST(p.points, 1) <= $%d", len(args)+1))
		args = append(args, filter.MaxPoints)
	}

	query := fmt.Sprintf("SELECT %s FROM problems p JOIN material_categories c ON c.id = p.category_id WHERE %s ORDER BY p.id",
		problemColumns, strings.Join(conditions, " AND "))
	var problems []models.Problem
	if err := r.db.SelectContext(ctx, &problems, query, args...); err != nil {
		return nil, fmt.Errorf("problem pool: %w", err)
	}
	return problems, nil
}

// Tags lists the distinct tags in use, alphabetically.
func (r *ProblemRepository) Tags(ctx context.Context) ([]string, error) {
	var tags []string
	if err := r.db.SelectContext(ctx, &tags, "SELECT DISTINCT unnest(tags) AS tag FROM problems ORDER BY tag"); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// Create inserts a problem.
func (r *ProblemRepository) Create(ctx context.Context, problem *models.Problem) error {
	return insertProblem(ctx, r.db, problem)
}

// Update modifies a problem.
func (r *ProblemRepository) Update(ctx context.Context, problem *models.Problem) error {
	problem.UpdatedAt = time.Now().UTC()
	normalizeProblemArrays(problem)
	const query = `UPDATE problems SET category_id = :category_id, question = :question, answer = :answer, solution = :solution,
        difficulty = :difficulty, points = :points, tags = :tags, images = :images, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, problem); err != nil {
		return fmt.Errorf("update problem: %w", err)
	}
	return nil
}

// Delete removes a problem.
func (r *ProblemRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM problems WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete problem: %w", err)
	}
	return expectAffected(res)
}

func normalizeProblemArrays(problem *models.Problem) {
	if problem.Tags == nil {
		problem.Tags = pq.StringArray{}
	}
	if problem.Images == nil {
		problem.Images = pq.StringArray{}
	}
}

func insertProblem(ctx context.Context, exec sqlx.ExtContext, problem *models.Problem) error {
	if problem.ID == "" {
		problem.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if problem.CreatedAt.IsZero() {
		problem.CreatedAt = now
	}
	if problem.UpdatedAt.IsZero() {
		problem.UpdatedAt = now
	}
	if problem.Points <= 0 {
		problem.Points = 1
	}
	normalizeProblemArrays(problem)
	if _, err := sqlx.NamedExecContext(ctx, exec, insertProblemQuery, problem); err != nil {
		return fmt.Errorf("insert problem: %w", err)
	}
	return nil
}
