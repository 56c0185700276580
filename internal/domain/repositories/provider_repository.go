package repositories

import (
	"context"

	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
)

// ProviderCatalog is the read side of the provider directory consumed by search.
// Implementations may push the filter down, but must return a superset of the
// providers the matching engine would keep; the engine re-applies every predicate.
// Results are returned in stable catalog order.
type ProviderCatalog interface {
	ListProviders(ctx context.Context, filter ProviderFilter) ([]*entities.Provider, error)
}

// ProviderReader adds lookups by identity to the catalog
type ProviderReader interface {
	ProviderCatalog

	// GetByID retrieves a provider by ID
	GetByID(ctx context.Context, id string) (*entities.Provider, error)

	// GetByIDs retrieves multiple providers by their IDs.
	// Unknown IDs are omitted rather than reported.
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Provider, error)
}

// ProviderRepository defines the interface for provider data operations
type ProviderRepository interface {
	ProviderReader

	// Upsert creates or replaces a provider
	Upsert(ctx context.Context, provider *entities.Provider) error

	// Delete removes a provider
	Delete(ctx context.Context, id string) error
}

// ProviderSearchIndex defines the interface for a provider search index (e.g. Typesense)
type ProviderSearchIndex interface {
	ProviderCatalog

	// InitSchema ensures the index exists
	InitSchema(ctx context.Context) error

	// Index indexes a provider
	Index(ctx context.Context, provider *entities.Provider) error

	// Delete removes a provider from the index
	Delete(ctx context.Context, id string) error

	// Reset drops the index
	Reset(ctx context.Context) error
}

// ProviderFilter carries the pushdown part of a search plan
type ProviderFilter struct {
	PincodeEquals string
	SpecialtyIn   []string
	NameLike      string
	NameContains  string
}

// FilterFromPlan builds the pushdown filter for a search plan
func FilterFromPlan(plan entities.SearchPlan) ProviderFilter {
	return ProviderFilter{
		PincodeEquals: plan.PincodeEquals,
		SpecialtyIn:   plan.SpecialtyIn,
		NameLike:      plan.NameLike,
		NameContains:  plan.NameContains,
	}
}
