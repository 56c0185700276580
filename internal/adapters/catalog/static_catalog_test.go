package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
	"github.com/zatekoja/healthcarecommons/internal/domain/repositories"
	apperrors "github.com/zatekoja/healthcarecommons/pkg/errors"
)

const sampleJSON = `[
  {"id": "a", "name": "Dr. A", "specialty": "Cardiologist", "pincode": "400001",
   "coordinates": {"latitude": 19.0, "longitude": 72.8}, "rating": 4.5, "languages": ["English"]},
  {"id": "b", "name": "Clinic B", "specialty": "Multi-specialty Clinic", "pincode": "400002", "multi_specialty": true},
  {"id": "a", "name": "Dr. A (copy)", "specialty": "Cardiologist", "pincode": "400001"}
]`

func TestParseStaticCatalog(t *testing.T) {
	catalog, err := ParseStaticCatalog([]byte(sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, 3, catalog.Len())

	all, err := catalog.ListProviders(context.Background(), repositories.ProviderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	require.NotNil(t, all[0].Coordinates)
	assert.Equal(t, 19.0, all[0].Coordinates.Latitude)
	assert.True(t, all[1].MultiSpecialty)
}

func TestParseStaticCatalog_RejectsInvalidDocuments(t *testing.T) {
	tests := map[string]string{
		"not an array":     `{"id": "a"}`,
		"missing name":     `[{"id": "a", "specialty": "x"}]`,
		"rating too high":  `[{"id": "a", "name": "n", "specialty": "x", "rating": 7}]`,
		"latitude invalid": `[{"id": "a", "name": "n", "specialty": "x", "coordinates": {"latitude": 95, "longitude": 0}}]`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseStaticCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestStaticCatalog_PincodePushdown(t *testing.T) {
	catalog, err := ParseStaticCatalog([]byte(sampleJSON))
	require.NoError(t, err)

	got, err := catalog.ListProviders(context.Background(), repositories.ProviderFilter{
		PincodeEquals: "400002",
		SpecialtyIn:   []string{"Dermatologist"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestStaticCatalog_ReturnsCopies(t *testing.T) {
	catalog, err := ParseStaticCatalog([]byte(sampleJSON))
	require.NoError(t, err)

	first, err := catalog.ListProviders(context.Background(), repositories.ProviderFilter{})
	require.NoError(t, err)
	first[0].Name = "changed"
	first[0].Languages[0] = "changed"
	*first[0].Rating = 0

	again, err := catalog.GetByID(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "Dr. A", again.Name)
	assert.Equal(t, []string{"English"}, again.Languages)
	assert.Equal(t, 4.5, *again.Rating)
}

func TestStaticCatalog_Lookups(t *testing.T) {
	catalog := NewStaticCatalog([]entities.Provider{
		{ID: "x", Name: "X"},
		{ID: "y", Name: "Y"},
		{ID: "x", Name: "X duplicate"},
	})

	p, err := catalog.GetByID(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "X", p.Name)

	_, err = catalog.GetByID(context.Background(), "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	many, err := catalog.GetByIDs(context.Background(), []string{"y", "missing", "x"})
	require.NoError(t, err)
	require.Len(t, many, 2)
	assert.Equal(t, "y", many[0].ID)
	assert.Equal(t, "x", many[1].ID)
}

func TestLoadStaticCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o600))

	catalog, err := LoadStaticCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 3, catalog.Len())

	_, err = LoadStaticCatalog(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadStaticCatalog_BundledSnapshot(t *testing.T) {
	catalog, err := LoadStaticCatalog(filepath.Join("..", "..", "..", "data", "providers.json"))
	require.NoError(t, err)
	assert.Equal(t, 5, catalog.Len())
}
