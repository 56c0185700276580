package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
	"github.com/zatekoja/healthcarecommons/internal/domain/repositories"
	tsclient "github.com/zatekoja/healthcarecommons/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/healthcarecommons/pkg/utils"
)

const (
	collectionName = tsclient.ProvidersCollection
	maxPerPage     = 250
)

// TypesenseAdapter serves the provider catalog from a Typesense index
type TypesenseAdapter struct {
	client *tsclient.Client
}

// Ensure TypesenseAdapter implements ProviderSearchIndex
var _ repositories.ProviderSearchIndex = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// InitSchema ensures the collection exists
func (a *TypesenseAdapter) InitSchema(ctx context.Context) error {
	return a.client.InitSchema(ctx)
}

// Reset drops and recreates the collection
func (a *TypesenseAdapter) Reset(ctx context.Context) error {
	if err := a.client.DropCollection(ctx); err != nil {
		// a missing collection is already reset
		if !strings.Contains(err.Error(), "404") {
			return err
		}
	}
	return a.client.InitSchema(ctx)
}

// Index upserts a provider document
func (a *TypesenseAdapter) Index(ctx context.Context, provider *entities.Provider) error {
	_, err := a.client.Client().Collection(collectionName).Documents().Upsert(ctx, providerDocument(provider))
	if err != nil {
		return fmt.Errorf("failed to index provider: %w", err)
	}
	return nil
}

// Delete removes a provider from the index
func (a *TypesenseAdapter) Delete(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(collectionName).Document(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete provider from index: %w", err)
	}
	return nil
}

// ListProviders pages through every document matching the pushdown filter.
// Name predicates are not pushed down: Typesense tokenizes text, which would
// not preserve substring semantics.
func (a *TypesenseAdapter) ListProviders(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error) {
	filterBy := buildFilterBy(filter)
	providers := make([]*entities.Provider, 0)

	for page := 1; ; page++ {
		params := &api.SearchCollectionParams{
			Q:       pointer.String("*"),
			QueryBy: pointer.String("name"),
			SortBy:  pointer.String("created_at:asc"),
			Page:    pointer.Int(page),
			PerPage: pointer.Int(maxPerPage),
		}
		if filterBy != "" {
			params.FilterBy = pointer.String(filterBy)
		}

		result, err := a.client.Client().Collection(collectionName).Documents().Search(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to search providers: %w", err)
		}
		if result.Hits == nil || len(*result.Hits) == 0 {
			break
		}

		for _, hit := range *result.Hits {
			if hit.Document == nil {
				continue
			}
			providers = append(providers, providerFromDocument(*hit.Document))
		}

		if result.Found == nil || len(providers) >= *result.Found || len(*result.Hits) < maxPerPage {
			break
		}
	}

	return providers, nil
}

// buildFilterBy renders the pushdown filter as a Typesense filter_by expression.
func buildFilterBy(filter repositories.ProviderFilter) string {
	var clauses []string

	if filter.PincodeEquals != "" {
		clauses = append(clauses, fmt.Sprintf("pincode:=%s", quote(filter.PincodeEquals)))
	}

	if len(filter.SpecialtyIn) > 0 {
		specialties := make([]string, 0, len(filter.SpecialtyIn))
		for _, s := range filter.SpecialtyIn {
			if n := utils.NormalizePhrase(s); n != "" {
				specialties = append(specialties, quote(n))
			}
		}
		labels := entities.MultiSpecialtyLabels()
		sort.Strings(labels)
		for i, l := range labels {
			labels[i] = quote(l)
		}
		alternatives := []string{"is_multi_specialty:=true", fmt.Sprintf("specialty_lc:=[%s]", strings.Join(labels, ","))}
		if len(specialties) > 0 {
			alternatives = append([]string{fmt.Sprintf("specialty_lc:=[%s]", strings.Join(specialties, ","))}, alternatives...)
		}
		clauses = append(clauses, "("+strings.Join(alternatives, " || ")+")")
	}

	return strings.Join(clauses, " && ")
}

// quote wraps a value in backticks. Typesense has no escape for backticks
// inside a quoted value, so they are removed.
func quote(v string) string {
	return "`" + strings.ReplaceAll(v, "`", "") + "`"
}

func providerDocument(p *entities.Provider) map[string]interface{} {
	doc := map[string]interface{}{
		"id":                 p.ID,
		"name":               p.Name,
		"specialty":          p.Specialty,
		"specialty_lc":       utils.NormalizePhrase(p.Specialty),
		"location":           p.Location,
		"pincode":            p.Pincode,
		"is_multi_specialty": p.MultiSpecialty,
		"available_slots":    p.Availability.AvailableSlots,
		"created_at":         p.CreatedAt.Unix(),
		"updated_at":         p.UpdatedAt.Unix(),
	}
	if p.Coordinates != nil && p.Coordinates.InRange() {
		doc["coordinates"] = []float64{p.Coordinates.Latitude, p.Coordinates.Longitude}
	}
	if p.Rating != nil {
		doc["rating"] = *p.Rating
	}
	if len(p.Languages) > 0 {
		doc["languages"] = p.Languages
	}
	if len(p.Availability.Days) > 0 {
		doc["availability_days"] = p.Availability.Days
	}
	if p.Availability.NextAvailable != "" {
		doc["next_available"] = p.Availability.NextAvailable
	}
	return doc
}

func providerFromDocument(doc map[string]interface{}) *entities.Provider {
	p := &entities.Provider{
		ID:             stringField(doc, "id"),
		Name:           stringField(doc, "name"),
		Specialty:      stringField(doc, "specialty"),
		Location:       stringField(doc, "location"),
		Pincode:        stringField(doc, "pincode"),
		Languages:      stringsField(doc, "languages"),
		MultiSpecialty: boolField(doc, "is_multi_specialty"),
		Availability: entities.Availability{
			Days:          stringsField(doc, "availability_days"),
			NextAvailable: stringField(doc, "next_available"),
		},
	}

	if coords, ok := doc["coordinates"].([]interface{}); ok && len(coords) == 2 {
		lat, latOK := coords[0].(float64)
		lon, lonOK := coords[1].(float64)
		if latOK && lonOK {
			p.Coordinates = &entities.Coordinate{Latitude: lat, Longitude: lon}
		}
	}
	if rating, ok := doc["rating"].(float64); ok {
		p.Rating = &rating
	}
	if slots, ok := doc["available_slots"].(float64); ok {
		p.Availability.AvailableSlots = int(slots)
	}
	if ts, ok := doc["created_at"].(float64); ok {
		p.CreatedAt = time.Unix(int64(ts), 0).UTC()
	}
	if ts, ok := doc["updated_at"].(float64); ok {
		p.UpdatedAt = time.Unix(int64(ts), 0).UTC()
	}

	return p
}

func stringField(doc map[string]interface{}, key string) string {
	v, _ := doc[key].(string)
	return v
}

func boolField(doc map[string]interface{}, key string) bool {
	v, _ := doc[key].(bool)
	return v
}

func stringsField(doc map[string]interface{}, key string) []string {
	raw, ok := doc[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
