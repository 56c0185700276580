package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
	"github.com/zatekoja/healthcarecommons/internal/domain/providers"
	"github.com/zatekoja/healthcarecommons/internal/domain/repositories"
	"github.com/zatekoja/healthcarecommons/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/healthcarecommons/pkg/errors"
)

// ProviderSearchService runs the criteria → plan → execute pipeline against a catalog
type ProviderSearchService struct {
	taxonomy      *SymptomTaxonomy
	planner       *QueryPlanner
	engine        *MatchingEngine
	catalog       repositories.ProviderCatalog
	catalogSource string
	geocoder      providers.GeolocationProvider
	metrics       *observability.Metrics
	searchMetrics *observability.SearchMetrics
}

// NewProviderSearchService creates a new provider search service.
// catalogSource labels catalog metrics (postgres, typesense, static).
func NewProviderSearchService(taxonomy *SymptomTaxonomy, catalog repositories.ProviderCatalog, catalogSource string) *ProviderSearchService {
	if taxonomy == nil {
		taxonomy = NewSymptomTaxonomy()
	}
	return &ProviderSearchService{
		taxonomy:      taxonomy,
		planner:       NewQueryPlanner(taxonomy),
		engine:        NewMatchingEngine(),
		catalog:       catalog,
		catalogSource: catalogSource,
	}
}

// SetGeocoder enables resolution of free-text locations to a search origin.
func (s *ProviderSearchService) SetGeocoder(geocoder providers.GeolocationProvider) {
	s.geocoder = geocoder
}

// SetMetrics sets the metric instruments. Either may be nil.
func (s *ProviderSearchService) SetMetrics(metrics *observability.Metrics, searchMetrics *observability.SearchMetrics) {
	s.metrics = metrics
	s.searchMetrics = searchMetrics
}

// Taxonomy returns the symptom taxonomy used for planning
func (s *ProviderSearchService) Taxonomy() *SymptomTaxonomy {
	return s.taxonomy
}

// Search plans the criteria, fetches candidates from the catalog and ranks them.
func (s *ProviderSearchService) Search(ctx context.Context, criteria entities.SearchCriteria) (*entities.SearchResponse, error) {
	ctx, span := observability.StartSpan(ctx, "ProviderSearchService.Search")
	defer span.End()
	start := time.Now()

	if s.catalog == nil {
		err := apperrors.NewConfigurationError("provider search has no catalog")
		observability.RecordError(span, err)
		return nil, err
	}
	if criteria.Limit < 0 {
		return nil, apperrors.NewValidationError("limit must not be negative")
	}

	logger := observability.LoggerFromContext(ctx)

	plan, unmapped := s.planner.PlanWithUnmapped(criteria)
	if plan.Origin == nil {
		plan.Origin = s.geocodeOrigin(ctx, criteria.LocationQuery)
	}
	s.recordUnmapped(ctx, unmapped)

	observability.SetSpanAttributes(span,
		attribute.Int("search.specialties", len(plan.SpecialtyIn)),
		attribute.Bool("search.has_origin", plan.Origin != nil),
		attribute.Bool("search.has_pincode", plan.PincodeEquals != ""),
		attribute.Int("search.limit", plan.Limit),
	)

	candidates, err := s.fetchCandidates(ctx, plan)
	if err != nil {
		observability.RecordError(span, err)
		logger.Error().Err(err).Str("catalog", s.catalogSource).Msg("catalog fetch failed")
		return nil, apperrors.NewExternalError("failed to load provider catalog", err)
	}

	results := s.engine.Search(plan, candidates)

	recommended := s.planner.InferSpecialties(criteria)
	if recommended == nil {
		recommended = []string{}
	}

	s.recordSearch(ctx, len(results), time.Since(start))
	logger.Debug().
		Int("candidates", len(candidates)).
		Int("results", len(results)).
		Strs("specialties", plan.SpecialtyIn).
		Msg("provider search completed")

	return &entities.SearchResponse{
		Results:                results,
		RecommendedSpecialties: recommended,
		Plan:                   plan,
	}, nil
}

// Diagnose returns the recommended specialties for the given symptoms
func (s *ProviderSearchService) Diagnose(symptoms []string) entities.Diagnosis {
	return s.taxonomy.Diagnose(symptoms)
}

// CommonSymptoms returns the symptoms offered for quick selection
func (s *ProviderSearchService) CommonSymptoms() []string {
	return s.taxonomy.CommonSymptoms()
}

func (s *ProviderSearchService) fetchCandidates(ctx context.Context, plan entities.SearchPlan) ([]*entities.Provider, error) {
	ctx, span := observability.StartSpan(ctx, "ProviderCatalog.ListProviders")
	defer span.End()
	span.SetAttributes(attribute.String("catalog.source", s.catalogSource))

	start := time.Now()
	candidates, err := s.catalog.ListProviders(ctx, repositories.FilterFromPlan(plan))
	observability.RecordCatalogMetric(ctx, s.metrics, s.catalogSource, time.Since(start))
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("catalog.candidates", len(candidates)))
	return candidates, nil
}

// geocodeOrigin resolves a free-text location through the geocoder.
// Any failure leaves the origin undefined; the search still runs.
func (s *ProviderSearchService) geocodeOrigin(ctx context.Context, location string) *entities.Coordinate {
	location = strings.TrimSpace(location)
	if s.geocoder == nil || location == "" {
		return nil
	}

	ctx, span := observability.StartSpan(ctx, "GeolocationProvider.Geocode")
	defer span.End()

	address, err := s.geocoder.Geocode(ctx, location)
	if err != nil {
		observability.RecordError(span, err)
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("location", location).
			Msg("geocoding failed, searching without distance")
		return nil
	}
	if address == nil || !address.Coordinates.InRange() {
		return nil
	}
	origin := address.Coordinates
	return &origin
}

func (s *ProviderSearchService) recordUnmapped(ctx context.Context, unmapped []string) {
	if len(unmapped) == 0 || s.searchMetrics == nil {
		return
	}
	for _, term := range unmapped {
		s.searchMetrics.UnmappedSymptoms.Add(ctx, 1,
			metric.WithAttributes(attribute.String("search.term", term)))
	}
}

func (s *ProviderSearchService) recordSearch(ctx context.Context, results int, duration time.Duration) {
	if s.searchMetrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("catalog.source", s.catalogSource))
	s.searchMetrics.SearchCount.Add(ctx, 1, attrs)
	s.searchMetrics.SearchDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	s.searchMetrics.ResultCount.Record(ctx, int64(results), attrs)
}
