package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
)

const variantColumns = `id, name, subject, problems, total_points, created_at`

const insertVariantQuery = `INSERT INTO variants (id, name, subject, problems, total_points, created_at)
    VALUES (:id, :name, :subject, :problems, :total_points, :created_at)`

// VariantRepository persists generated test variants.
type VariantRepository struct {
	db *sqlx.DB
}

// NewVariantRepository constructs a VariantRepository.
func NewVariantRepository(db *sqlx.DB) *VariantRepository {
	return &VariantRepository{db: db}
}

// List returns saved variants, newest first, optionally for one subject.
func (r *VariantRepository) List(ctx context.Context, subject models.Subject) ([]models.GeneratedVariant, error) {
	var variants []models.GeneratedVariant
	var err error
	if subject == "" {
		err = r.db.SelectContext(ctx, &variants, "SELECT "+variantColumns+" FROM variants ORDER BY created_at DESC")
	} else {
		err = r.db.SelectContext(ctx, &variants, "SELECT "+variantColumns+" FROM variants WHERE subject = $1 ORDER BY created_at DESC", subject)
	}
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	return variants, nil
}

// FindByID fetches a variant.
func (r *VariantRepository) FindByID(ctx context.Context, id string) (*models.GeneratedVariant, error) {
	var variant models.GeneratedVariant
	if err := r.db.GetContext(ctx, &variant, "SELECT "+variantColumns+" FROM variants WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &variant, nil
}

// Create stores a variant snapshot.
func (r *VariantRepository) Create(ctx context.Context, variant *models.GeneratedVariant) error {
	return insertVariant(ctx, r.db, variant)
}

// Delete removes a variant.
func (r *VariantRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM variants WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete variant: %w", err)
	}
	return expectAffected(res)
}

func insertVariant(ctx context.Context, exec sqlx.ExtContext, variant *models.GeneratedVariant) error {
	if variant.ID == "" {
		variant.ID = uuid.NewString()
	}
	if variant.CreatedAt.IsZero() {
		variant.CreatedAt = time.Now().UTC()
	}
	if _, err := sqlx.NamedExecContext(ctx, exec, insertVariantQuery, variant); err != nil {
		return fmt.Errorf("insert variant: %w", err)
	}
	return nil
}
