package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
	"github.com/zatekoja/healthcarecommons/internal/domain/repositories"
	"github.com/zatekoja/healthcarecommons/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/healthcarecommons/pkg/errors"
)

var columnNames = []string{
	"id", "name", "specialty", "location", "pincode",
	"latitude", "longitude", "rating", "languages", "is_multi_specialty",
	"availability_days", "available_slots", "next_available",
	"created_at", "updated_at",
}

func setupMockAdapter(t *testing.T) (*ProviderAdapter, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewProviderAdapter(postgres.NewClientFromDB(db)), mock
}

func TestProviderAdapter_ListProviders_PushesDownPincode(t *testing.T) {
	adapter, mock := setupMockAdapter(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	rows := sqlmock.NewRows(columnNames).
		AddRow("p1", "Dr. Priya Sharma", "Cardiologist", "Fort, Mumbai", "400001",
			18.9322, 72.8351, 4.8, "{English,Hindi}", false,
			"{Mon,Tue}", 4, "Today 17:00", created, created).
		AddRow("p2", "Fort Clinic", "Multi-specialty Clinic", "Fort, Mumbai", "400001",
			nil, nil, nil, "{}", true,
			"{}", 0, nil, created, created)

	mock.ExpectQuery(`SELECT .+ FROM "providers" WHERE .*"pincode" = \$1.* ORDER BY "created_at" ASC, "id" ASC`).
		WithArgs("400001").
		WillReturnRows(rows)

	providers, err := adapter.ListProviders(context.Background(), repositories.ProviderFilter{PincodeEquals: "400001"})
	require.NoError(t, err)
	require.Len(t, providers, 2)

	first := providers[0]
	assert.Equal(t, "p1", first.ID)
	require.NotNil(t, first.Coordinates)
	assert.Equal(t, 18.9322, first.Coordinates.Latitude)
	require.NotNil(t, first.Rating)
	assert.Equal(t, 4.8, *first.Rating)
	assert.Equal(t, []string{"English", "Hindi"}, first.Languages)
	assert.Equal(t, []string{"Mon", "Tue"}, first.Availability.Days)
	assert.Equal(t, "Today 17:00", first.Availability.NextAvailable)

	second := providers[1]
	assert.Nil(t, second.Coordinates)
	assert.Nil(t, second.Rating)
	assert.True(t, second.MultiSpecialty)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderAdapter_ListProviders_SpecialtyKeepsMultiSpecialty(t *testing.T) {
	adapter, mock := setupMockAdapter(t)

	mock.ExpectQuery(`regexp_replace\(LOWER\(TRIM\("specialty"\)\).+IN .+"is_multi_specialty" IS TRUE`).
		WillReturnRows(sqlmock.NewRows(columnNames))

	providers, err := adapter.ListProviders(context.Background(), repositories.ProviderFilter{
		SpecialtyIn: []string{"Cardiologist"},
	})
	require.NoError(t, err)
	assert.NotNil(t, providers)
	assert.Empty(t, providers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderAdapter_ListProviders_EscapesNameLike(t *testing.T) {
	adapter, mock := setupMockAdapter(t)

	mock.ExpectQuery(`"name" ILIKE \$1\) OR \("specialty" ILIKE \$2`).
		WithArgs(`%50\%%`, `%50\%%`).
		WillReturnRows(sqlmock.NewRows(columnNames))

	_, err := adapter.ListProviders(context.Background(), repositories.ProviderFilter{NameLike: "50%"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderAdapter_ListProviders_WrapsDriverErrors(t *testing.T) {
	adapter, mock := setupMockAdapter(t)

	mock.ExpectQuery(`SELECT`).WillReturnError(sql.ErrConnDone)

	_, err := adapter.ListProviders(context.Background(), repositories.ProviderFilter{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestProviderAdapter_GetByID_NotFound(t *testing.T) {
	adapter, mock := setupMockAdapter(t)

	mock.ExpectQuery(`FROM "providers" WHERE \("id" = \$1\)`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columnNames))

	_, err := adapter.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestProviderAdapter_GetByIDs_Empty(t *testing.T) {
	adapter, mock := setupMockAdapter(t)

	providers, err := adapter.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, providers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderAdapter_Upsert(t *testing.T) {
	adapter, mock := setupMockAdapter(t)
	rating := 4.1
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO "providers" .+ ON CONFLICT \(id\) DO UPDATE SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.Upsert(context.Background(), &entities.Provider{
		ID:          "p9",
		Name:        "Dr. Kavya Iyer",
		Specialty:   "Neurologist",
		Pincode:     "600001",
		Coordinates: &entities.Coordinate{Latitude: 13.08, Longitude: 80.27},
		Rating:      &rating,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderAdapter_Delete(t *testing.T) {
	adapter, mock := setupMockAdapter(t)

	mock.ExpectExec(`DELETE FROM "providers" WHERE \("id" = \$1\)`).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "providers"`).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, adapter.Delete(context.Background(), "p1"))

	err := adapter.Delete(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
}
