package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/obe-portal-api/internal/models"
)

// SettingsRepository reads and writes the single-row system settings table.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new instance of SettingsRepository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the stored settings row, or sql.ErrNoRows when the table was
// never seeded.
func (r *SettingsRepository) Get(ctx context.Context) (*models.SystemSettings, error) {
	const query = `SELECT default_co_target, default_attainment_level3, default_attainment_level2, default_attainment_level1, default_weight_direct, default_weight_indirect FROM system_settings LIMIT 1`
	var settings models.SystemSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("load system settings: %w", err)
	}
	return &settings, nil
}

// Upsert replaces the singleton settings row, creating it on first write.
func (r *SettingsRepository) Upsert(ctx context.Context, settings *models.SystemSettings) error {
	const query = `INSERT INTO system_settings (id, default_co_target, default_attainment_level3, default_attainment_level2, default_attainment_level1, default_weight_direct, default_weight_indirect)
VALUES (1, :default_co_target, :default_attainment_level3, :default_attainment_level2, :default_attainment_level1, :default_weight_direct, :default_weight_indirect)
ON CONFLICT (id) DO UPDATE SET
	default_co_target = EXCLUDED.default_co_target,
	default_attainment_level3 = EXCLUDED.default_attainment_level3,
	default_attainment_level2 = EXCLUDED.default_attainment_level2,
	default_attainment_level1 = EXCLUDED.default_attainment_level1,
	default_weight_direct = EXCLUDED.default_weight_direct,
	default_weight_indirect = EXCLUDED.default_weight_indirect`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("upsert system settings: %w", err)
	}
	return nil
}
