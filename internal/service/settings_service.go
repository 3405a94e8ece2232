package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/obe-portal-api/internal/models"
	appErrors "github.com/noah-isme/obe-portal-api/pkg/errors"
)

type settingsStore interface {
	Get(ctx context.Context) (*models.SystemSettings, error)
	Upsert(ctx context.Context, settings *models.SystemSettings) error
}

// UpdateSettingsRequest carries institution-wide defaults. Thresholds are
// stored exactly as entered; no ordering between the three levels is
// enforced.
type UpdateSettingsRequest struct {
	DefaultCOTarget         int `json:"default_co_target" validate:"min=0,max=100"`
	DefaultAttainmentLevel3 int `json:"default_attainment_level3" validate:"min=0,max=100"`
	DefaultAttainmentLevel2 int `json:"default_attainment_level2" validate:"min=0,max=100"`
	DefaultAttainmentLevel1 int `json:"default_attainment_level1" validate:"min=0,max=100"`
	DefaultWeightDirect     int `json:"default_weight_direct" validate:"min=0,max=100"`
	DefaultWeightIndirect   int `json:"default_weight_indirect" validate:"min=0,max=100"`
}

// SettingsService serves the singleton system settings row.
type SettingsService struct {
	repo      settingsStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

const settingsCacheKey = "settings:system"

// NewSettingsService constructs the service.
func NewSettingsService(repo settingsStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SettingsService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Get returns the current settings, falling back to seed defaults when the
// table was never written.
func (s *SettingsService) Get(ctx context.Context) (*models.SystemSettings, error) {
	var cached models.SystemSettings
	if hit, err := s.cache.Get(ctx, settingsCacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			settings = defaultSettings()
		} else {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
		}
	}

	if err := s.cache.Set(ctx, settingsCacheKey, settings, time.Hour); err != nil {
		s.logger.Warn("failed to cache settings", zap.Error(err))
	}
	return settings, nil
}

// Update replaces the settings row and drops the cached copy.
func (s *SettingsService) Update(ctx context.Context, req UpdateSettingsRequest) (*models.SystemSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}

	settings := &models.SystemSettings{
		DefaultCOTarget:         req.DefaultCOTarget,
		DefaultAttainmentLevel3: req.DefaultAttainmentLevel3,
		DefaultAttainmentLevel2: req.DefaultAttainmentLevel2,
		DefaultAttainmentLevel1: req.DefaultAttainmentLevel1,
		DefaultWeightDirect:     req.DefaultWeightDirect,
		DefaultWeightIndirect:   req.DefaultWeightIndirect,
	}
	if err := s.repo.Upsert(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store settings")
	}

	if err := s.cache.Invalidate(ctx, settingsCacheKey); err != nil {
		s.logger.Warn("failed to invalidate settings cache", zap.Error(err))
	}
	return settings, nil
}

func defaultSettings() *models.SystemSettings {
	return &models.SystemSettings{
		DefaultCOTarget:         60,
		DefaultAttainmentLevel3: 80,
		DefaultAttainmentLevel2: 70,
		DefaultAttainmentLevel1: 60,
		DefaultWeightDirect:     80,
		DefaultWeightIndirect:   20,
	}
}
