package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
)

const categoryColumns = `id, name, subject, parent_id, description, sort_order, created_at, updated_at`

const insertCategoryQuery = `INSERT INTO material_categories (id, name, subject, parent_id, description, sort_order, created_at, updated_at)
    VALUES (:id, :name, :subject, :parent_id, :description, :sort_order, :created_at, :updated_at)`

// CategoryRepository persists the material category tree.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository constructs a CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// ListBySubject returns every category of a subject, roots first, each level by order.
func (r *CategoryRepository) ListBySubject(ctx context.Context, subject models.Subject) ([]models.MaterialCategory, error) {
	var categories []models.MaterialCategory
	query := "SELECT " + categoryColumns + " FROM material_categories WHERE subject = $1 ORDER BY parent_id NULLS FIRST, sort_order ASC, name ASC"
	if err := r.db.SelectContext(ctx, &categories, query, subject); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// ListChildren returns the direct subcategories of parentID ordered by sort order.
func (r *CategoryRepository) ListChildren(ctx context.Context, parentID string) ([]models.MaterialCategory, error) {
	var categories []models.MaterialCategory
	query := "SELECT " + categoryColumns + " FROM material_categories WHERE parent_id = $1 ORDER BY sort_order ASC, name ASC"
	if err := r.db.SelectContext(ctx, &categories, query, parentID); err != nil {
		return nil, fmt.Errorf("list child categories: %w", err)
	}
	return categories, nil
}

// FindByID fetches a category.
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*models.MaterialCategory, error) {
	var category models.MaterialCategory
	if err := r.db.GetContext(ctx, &category, "SELECT "+categoryColumns+" FROM material_categories WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &category, nil
}

// Count returns the number of stored categories.
func (r *CategoryRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM material_categories"); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return total, nil
}

// Create inserts a category.
func (r *CategoryRepository) Create(ctx context.Context, category *models.MaterialCategory) error {
	stampCategory(category)
	if _, err := r.db.NamedExecContext(ctx, insertCategoryQuery, category); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// Update modifies a category.
func (r *CategoryRepository) Update(ctx context.Context, category *models.MaterialCategory) error {
	category.UpdatedAt = time.Now().UTC()
	const query = `UPDATE material_categories SET name = :name, subject = :subject, parent_id = :parent_id, description = :description,
        sort_order = :sort_order, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// Delete removes a category together with its subcategories, problems and theory.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM material_categories WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return expectAffected(res)
}

// Seed inserts a starter bank of categories and problems in one transaction.
func (r *CategoryRepository) Seed(ctx context.Context, categories []models.MaterialCategory, problems []models.Problem) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed materials: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := range categories {
		if err = insertCategory(ctx, tx, &categories[i]); err != nil {
			return err
		}
	}
	for i := range problems {
		if err = insertProblem(ctx, tx, &problems[i]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit seed materials: %w", err)
	}
	return nil
}

func stampCategory(category *models.MaterialCategory) {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if category.CreatedAt.IsZero() {
		category.CreatedAt = now
	}
	if category.UpdatedAt.IsZero() {
		category.UpdatedAt = now
	}
}

func insertCategory(ctx context.Context, exec sqlx.ExtContext, category *models.MaterialCategory) error {
	stampCategory(category)
	if _, err := sqlx.NamedExecContext(ctx, exec, insertCategoryQuery, category); err != nil {
		return fmt.Errorf("insert category %s: %w", category.Name, err)
	}
	return nil
}
