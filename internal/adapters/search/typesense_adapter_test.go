package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
	"github.com/zatekoja/healthcarecommons/internal/domain/repositories"
	tsclient "github.com/zatekoja/healthcarecommons/internal/infrastructure/clients/typesense"
)

func TestBuildFilterBy(t *testing.T) {
	assert.Empty(t, buildFilterBy(repositories.ProviderFilter{NameLike: "apollo", NameContains: "sharma"}))

	assert.Equal(t, "pincode:=`400001`", buildFilterBy(repositories.ProviderFilter{PincodeEquals: "400001"}))

	got := buildFilterBy(repositories.ProviderFilter{
		PincodeEquals: "4000`01",
		SpecialtyIn:   []string{"Cardiologist", " Emergency  Medicine "},
	})
	assert.Contains(t, got, "pincode:=`400001` && (")
	assert.Contains(t, got, "specialty_lc:=[`cardiologist`,`emergency medicine`]")
	assert.Contains(t, got, "is_multi_specialty:=true")
	assert.Contains(t, got, "`multi-specialty clinic`")
}

func TestProviderDocumentRoundTrip(t *testing.T) {
	rating := 4.5
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	provider := &entities.Provider{
		ID:             "prov-1",
		Name:           "Dr. Anita Rao",
		Specialty:      "Pediatrician",
		Location:       "Indiranagar, Bengaluru",
		Pincode:        "560038",
		Coordinates:    &entities.Coordinate{Latitude: 12.9784, Longitude: 77.6408},
		Rating:         &rating,
		Languages:      []string{"English", "Kannada"},
		MultiSpecialty: false,
		Availability: entities.Availability{
			Days:           []string{"Mon", "Wed"},
			AvailableSlots: 3,
			NextAvailable:  "Tomorrow 10:00",
		},
		CreatedAt: created,
		UpdatedAt: created,
	}

	// documents come back from Typesense as decoded JSON
	raw, err := json.Marshal(providerDocument(provider))
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.Equal(t, "pediatrician", doc["specialty_lc"])
	assert.Equal(t, provider, providerFromDocument(doc))
}

func TestProviderDocument_OmitsUnknownFields(t *testing.T) {
	doc := providerDocument(&entities.Provider{ID: "x", Name: "Clinic"})

	assert.NotContains(t, doc, "coordinates")
	assert.NotContains(t, doc, "rating")
	assert.NotContains(t, doc, "languages")

	p := providerFromDocument(map[string]interface{}{"id": "x", "name": "Clinic"})
	assert.Nil(t, p.Coordinates)
	assert.Nil(t, p.Rating)
}

func TestListProviders_PagesThroughResults(t *testing.T) {
	var filters []string
	total := maxPerPage + 2

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/providers/documents/search", r.URL.Path)
		filters = append(filters, r.URL.Query().Get("filter_by"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		start := (page - 1) * maxPerPage
		end := start + maxPerPage
		if end > total {
			end = total
		}

		hits := make([]map[string]interface{}, 0)
		for i := start; i < end; i++ {
			hits = append(hits, map[string]interface{}{
				"document": map[string]interface{}{
					"id":        "p" + strconv.Itoa(i),
					"name":      "Provider " + strconv.Itoa(i),
					"specialty": "Cardiologist",
					"pincode":   "400001",
				},
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"found":          total,
			"out_of":         total,
			"page":           page,
			"search_time_ms": 1,
			"hits":           hits,
		})
	}))
	defer server.Close()

	client := tsclient.NewClientFromTypesense(typesense.NewClient(
		typesense.WithServer(server.URL),
		typesense.WithAPIKey("test"),
	))
	adapter := NewTypesenseAdapter(client)

	providers, err := adapter.ListProviders(context.Background(), repositories.ProviderFilter{PincodeEquals: "400001"})
	require.NoError(t, err)

	assert.Len(t, providers, total)
	assert.Equal(t, "p0", providers[0].ID)
	require.Len(t, filters, 2)
	assert.Equal(t, "pincode:=`400001`", filters[0])
}

func TestListProviders_PropagatesErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}))
	defer server.Close()

	client := tsclient.NewClientFromTypesense(typesense.NewClient(
		typesense.WithServer(server.URL),
		typesense.WithAPIKey("test"),
	))

	_, err := NewTypesenseAdapter(client).ListProviders(context.Background(), repositories.ProviderFilter{})
	assert.Error(t, err)
}
