package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/obe-portal-api/internal/models"
)

func TestSettingsRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	rows := sqlmock.NewRows([]string{"default_co_target", "default_attainment_level3", "default_attainment_level2", "default_attainment_level1", "default_weight_direct", "default_weight_indirect"}).
		AddRow(60, 80, 70, 50, 80, 20)
	mock.ExpectQuery(regexp.QuoteMeta("FROM system_settings LIMIT 1")).
		WillReturnRows(rows)

	settings, err := repo.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 60, settings.DefaultCOTarget)
	require.Equal(t, 80, settings.DefaultAttainmentLevel3)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepositoryGetUnseeded(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM system_settings LIMIT 1")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSettingsRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO system_settings")).
		WithArgs(60, 80, 70, 50, 80, 20).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), &models.SystemSettings{
		DefaultCOTarget:         60,
		DefaultAttainmentLevel3: 80,
		DefaultAttainmentLevel2: 70,
		DefaultAttainmentLevel1: 50,
		DefaultWeightDirect:     80,
		DefaultWeightIndirect:   20,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
