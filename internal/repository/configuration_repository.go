package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
)

// ConfigurationRepository persists master_configs entries.
type ConfigurationRepository struct {
	db *sqlx.DB
}

// NewConfigurationRepository constructs the repository.
func NewConfigurationRepository(db *sqlx.DB) *ConfigurationRepository {
	return &ConfigurationRepository{db: db}
}

// List returns every stored configuration ordered by key.
func (r *ConfigurationRepository) List(ctx context.Context) ([]models.Configuration, error) {
	const query = `SELECT key, value, description, updated_by, updated_at FROM master_configs ORDER BY key ASC`
	var configs []models.Configuration
	if err := r.db.SelectContext(ctx, &configs, query); err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	return configs, nil
}

// Get fetches a single configuration by key.
func (r *ConfigurationRepository) Get(ctx context.Context, key string) (*models.Configuration, error) {
	const query = `SELECT key, value, description, updated_by, updated_at FROM master_configs WHERE key = $1`
	var cfg models.Configuration
	if err := r.db.GetContext(ctx, &cfg, query, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get configuration: %w", err)
	}
	return &cfg, nil
}

// Upsert inserts or updates a configuration entry.
func (r *ConfigurationRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, cfg *models.Configuration) error {
	if exec == nil {
		exec = r.db
	}
	const query = `INSERT INTO master_configs (key, value, description, updated_by, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, description = COALESCE(EXCLUDED.description, master_configs.description),
              updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	cfg.UpdatedAt = time.Now().UTC()
	if _, err := exec.ExecContext(ctx, query, cfg.Key, cfg.Value, cfg.Description, cfg.UpdatedBy, cfg.UpdatedAt); err != nil {
		return fmt.Errorf("upsert configuration: %w", err)
	}
	return nil
}
