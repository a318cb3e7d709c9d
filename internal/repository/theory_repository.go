package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
)

const theoryColumns = `id, category_id, title, content, examples, created_at, updated_at`

const insertTheoryQuery = `INSERT INTO theories (id, category_id, title, content, examples, created_at, updated_at)
    VALUES (:id, :category_id, :title, :content, :examples, :created_at, :updated_at)`

// TheoryRepository persists theory articles.
type TheoryRepository struct {
	db *sqlx.DB
}

// NewTheoryRepository constructs a TheoryRepository.
func NewTheoryRepository(db *sqlx.DB) *TheoryRepository {
	return &TheoryRepository{db: db}
}

// ListByCategory returns the theory of a category.
func (r *TheoryRepository) ListByCategory(ctx context.Context, categoryID string) ([]models.Theory, error) {
	var theories []models.Theory
	query := "SELECT " + theoryColumns + " FROM theories WHERE category_id = $1 ORDER BY created_at ASC"
	if err := r.db.SelectContext(ctx, &theories, query, categoryID); err != nil {
		return nil, fmt.Errorf("list theories: %w", err)
	}
	return theories, nil
}

// FindByID fetches a theory article.
func (r *TheoryRepository) FindByID(ctx context.Context, id string) (*models.Theory, error) {
	var theory models.Theory
	if err := r.db.GetContext(ctx, &theory, "SELECT "+theoryColumns+" FROM theories WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &theory, nil
}

// Create inserts a theory article.
func (r *TheoryRepository) Create(ctx context.Context, theory *models.Theory) error {
	return insertTheory(ctx, r.db, theory)
}

// Update modifies a theory article.
func (r *TheoryRepository) Update(ctx context.Context, theory *models.Theory) error {
	theory.UpdatedAt = time.Now().UTC()
	if theory.Examples == nil {
		theory.Examples = pq.StringArray{}
	}
	const query = `UPDATE theories SET category_id = :category_id, title = :title, content = :content, examples = :examples, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, theory); err != nil {
		return fmt.Errorf("update theory: %w", err)
	}
	return nil
}

// Delete removes a theory article.
func (r *TheoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM theories WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete theory: %w", err)
	}
	return expectAffected(res)
}

func insertTheory(ctx context.Context, exec sqlx.ExtContext, theory *models.Theory) error {
	if theory.ID == "" {
		theory.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if theory.CreatedAt.IsZero() {
		theory.CreatedAt = now
	}
	if theory.UpdatedAt.IsZero() {
		theory.UpdatedAt = now
	}
	if theory.Examples == nil {
		theory.Examples = pq.StringArray{}
	}
	if _, err := sqlx.NamedExecContext(ctx, exec, insertTheoryQuery, theory); err != nil {
		return fmt.Errorf("insert theory: %w", err)
	}
	return nil
}
