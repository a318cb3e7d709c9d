package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
)

// AuthRepository reads and writes the single-row passphrase store.
type AuthRepository struct {
	db *sqlx.DB
}

// NewAuthRepository creates a new instance of AuthRepository.
func NewAuthRepository(db *sqlx.DB) *AuthRepository {
	return &AuthRepository{db: db}
}

// Get returns the stored auth settings.
func (r *AuthRepository) Get(ctx context.Context) (*models.AuthSettings, error) {
	const query = `SELECT passphrase_hash, token_version, updated_at FROM auth_settings WHERE id = 1`
	var settings models.AuthSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("get auth settings: %w", err)
	}
	return &settings, nil
}

// Initialize stores the first passphrase hash. It reports false when a hash already exists.
func (r *AuthRepository) Initialize(ctx context.Context, hash string, ts time.Time) (bool, error) {
	const query = `UPDATE auth_settings SET passphrase_hash = $1, updated_at = $2 WHERE id = 1 AND passphrase_hash IS NULL`
	res, err := r.db.ExecContext(ctx, query, hash, ts)
	if err != nil {
		return false, fmt.Errorf("initialize passphrase: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

// SetPassphrase overwrites the hash and invalidates every issued token.
func (r *AuthRepository) SetPassphrase(ctx context.Context, hash string, ts time.Time) error {
	const query = `INSERT INTO auth_settings (id, passphrase_hash, token_version, updated_at) VALUES (1, $1, 1, $2)
ON CONFLICT (id) DO UPDATE SET passphrase_hash = EXCLUDED.passphrase_hash, token_version = auth_settings.token_version + 1, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, hash, ts); err != nil {
		return fmt.Errorf("set passphrase: %w", err)
	}
	return nil
}

// BumpTokenVersion invalidates every issued token.
func (r *AuthRepository) BumpTokenVersion(ctx context.Context, ts time.Time) error {
	const query = `UPDATE auth_settings SET token_version = token_version + 1, updated_at = $1 WHERE id = 1`
	if _, err := r.db.ExecContext(ctx, query, ts); err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	return nil
}
