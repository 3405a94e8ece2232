package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/obe-portal-api/internal/models"
	appErrors "github.com/noah-isme/obe-portal-api/pkg/errors"
)

type fakeSettingsStore struct {
	settings *models.SystemSettings
	getErr   error
}

func (f *fakeSettingsStore) Get(ctx context.Context) (*models.SystemSettings, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.settings, nil
}

func (f *fakeSettingsStore) Upsert(ctx context.Context, settings *models.SystemSettings) error {
	f.settings = settings
	return nil
}

func TestSettingsServiceGetFallsBackToDefaults(t *testing.T) {
	store := &fakeSettingsStore{getErr: sql.ErrNoRows}
	svc := NewSettingsService(store, disabledCache(), validator.New(), zap.NewNop())

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 60, settings.DefaultCOTarget)
	assert.Equal(t, 80, settings.DefaultAttainmentLevel3)
}

func TestSettingsServiceGetStored(t *testing.T) {
	store := &fakeSettingsStore{settings: &models.SystemSettings{DefaultCOTarget: 55}}
	svc := NewSettingsService(store, disabledCache(), validator.New(), zap.NewNop())

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 55, settings.DefaultCOTarget)
}

func TestSettingsServiceUpdate(t *testing.T) {
	store := &fakeSettingsStore{}
	svc := NewSettingsService(store, disabledCache(), validator.New(), zap.NewNop())

	// Level ordering is intentionally not validated; inverted thresholds
	// are stored as entered.
	settings, err := svc.Update(context.Background(), UpdateSettingsRequest{
		DefaultCOTarget:         65,
		DefaultAttainmentLevel3: 50,
		DefaultAttainmentLevel2: 70,
		DefaultAttainmentLevel1: 80,
		DefaultWeightDirect:     90,
		DefaultWeightIndirect:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, settings.DefaultAttainmentLevel3)
	assert.Equal(t, 65, store.settings.DefaultCOTarget)
}

func TestSettingsServiceUpdateRejectsOutOfRange(t *testing.T) {
	svc := NewSettingsService(&fakeSettingsStore{}, disabledCache(), validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), UpdateSettingsRequest{DefaultCOTarget: 150})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
