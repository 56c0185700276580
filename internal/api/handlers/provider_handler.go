package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/zatekoja/healthcarecommons/internal/api/loaders"
	"github.com/zatekoja/healthcarecommons/internal/application/services"
	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
	"github.com/zatekoja/healthcarecommons/internal/domain/repositories"
	"github.com/zatekoja/healthcarecommons/pkg/config"
)

// maxProviderBodyBytes bounds POST /api/providers payloads
const maxProviderBodyBytes = 1 << 20

// ProviderSearcher runs provider searches
type ProviderSearcher interface {
	Search(ctx context.Context, criteria entities.SearchCriteria) (*entities.SearchResponse, error)
}

// ProviderWriter stores and removes directory entries
type ProviderWriter interface {
	Upsert(ctx context.Context, provider *entities.Provider) (*entities.Provider, error)
	Delete(ctx context.Context, id string) error
}

// ProviderHandler handles provider-related HTTP requests
type ProviderHandler struct {
	searcher ProviderSearcher
	reader   repositories.ProviderReader
	writer   ProviderWriter
	limits   config.SearchConfig
}

// NewProviderHandler creates a new provider handler.
// writer may be nil when the catalog is read-only.
func NewProviderHandler(searcher ProviderSearcher, reader repositories.ProviderReader, writer ProviderWriter, limits config.SearchConfig) *ProviderHandler {
	return &ProviderHandler{
		searcher: searcher,
		reader:   reader,
		writer:   writer,
		limits:   limits,
	}
}

// Writable reports whether create and delete are available
func (h *ProviderHandler) Writable() bool {
	return h.writer != nil
}

// SearchProviders handles GET /api/providers/search
func (h *ProviderHandler) SearchProviders(w http.ResponseWriter, r *http.Request) {
	criteria := h.parseCriteria(r)

	resp, err := h.searcher.Search(r.Context(), criteria)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	results := make([]entities.RankedResult, len(resp.Results))
	for i, result := range resp.Results {
		// one decimal for display; ranking already used full precision
		if result.DistanceKm != nil {
			rounded := services.RoundDistanceKm(*result.DistanceKm)
			result.DistanceKm = &rounded
		}
		results[i] = result
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"providers":               results,
		"count":                   len(results),
		"recommended_specialties": resp.RecommendedSpecialties,
	})
}

// GetProvider handles GET /api/providers/{id}
func (h *ProviderHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	providerID := strings.TrimSpace(r.PathValue("id"))
	if providerID == "" {
		respondWithError(w, http.StatusBadRequest, "provider ID is required")
		return
	}

	thunk := h.loadersFor(r.Context()).ProviderLoader.Load(r.Context(), providerID)
	provider, err := thunk()
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, provider)
}

// ListProviders handles GET /api/providers?ids=a,b
func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	ids := splitParam(r.URL.Query()["ids"])
	if len(ids) == 0 {
		respondWithError(w, http.StatusBadRequest, "ids query parameter is required")
		return
	}

	providers, err := h.loadersFor(r.Context()).LoadProviders(r.Context(), ids)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"providers": providers,
		"count":     len(providers),
	})
}

// CreateProvider handles POST /api/providers
func (h *ProviderHandler) CreateProvider(w http.ResponseWriter, r *http.Request) {
	if h.writer == nil {
		respondWithError(w, http.StatusMethodNotAllowed, "provider catalog is read-only")
		return
	}

	var provider entities.Provider
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProviderBodyBytes)).Decode(&provider); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stored, err := h.writer.Upsert(r.Context(), &provider)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, stored)
}

// DeleteProvider handles DELETE /api/providers/{id}
func (h *ProviderHandler) DeleteProvider(w http.ResponseWriter, r *http.Request) {
	if h.writer == nil {
		respondWithError(w, http.StatusMethodNotAllowed, "provider catalog is read-only")
		return
	}

	if err := h.writer.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProviderHandler) loadersFor(ctx context.Context) *loaders.Loaders {
	if l := loaders.For(ctx); l != nil {
		return l
	}
	return loaders.NewLoaders(h.reader)
}

// parseCriteria reads search criteria from the query string. Malformed
// optional values are dropped rather than rejected.
func (h *ProviderHandler) parseCriteria(r *http.Request) entities.SearchCriteria {
	q := r.URL.Query()

	criteria := entities.SearchCriteria{
		FreeTextSymptoms: q.Get("q"),
		SelectedSymptoms: splitParam(q["symptom"]),
		LocationQuery:    q.Get("location"),
		NameFilter:       q.Get("name"),
		SpecialtyFilter:  q.Get("specialty"),
		PincodeFilter:    q.Get("pincode"),
		Limit:            h.limits.DefaultLimit,
	}

	if lat, lon := q.Get("lat"), q.Get("lon"); lat != "" && lon != "" {
		latitude, latErr := strconv.ParseFloat(lat, 64)
		longitude, lonErr := strconv.ParseFloat(lon, 64)
		origin := entities.Coordinate{Latitude: latitude, Longitude: longitude}
		if latErr == nil && lonErr == nil && origin.InRange() {
			criteria.Origin = &origin
		}
	}

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit != 0 {
			criteria.Limit = limit
		}
	}
	if h.limits.MaxLimit > 0 && criteria.Limit > h.limits.MaxLimit {
		criteria.Limit = h.limits.MaxLimit
	}

	return criteria
}

// splitParam flattens repeated and comma-separated query values, dropping blanks.
func splitParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
