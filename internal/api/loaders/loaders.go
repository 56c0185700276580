package loaders

import (
	"context"
	"net/http"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
	"github.com/zatekoja/healthcarecommons/internal/domain/repositories"
	apperrors "github.com/zatekoja/healthcarecommons/pkg/errors"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// Loaders contains the per-request dataloaders
type Loaders struct {
	ProviderLoader *dataloader.Loader[string, *entities.Provider]
}

// NewLoaders creates a new instance of Loaders
func NewLoaders(providerRepo repositories.ProviderReader) *Loaders {
	return &Loaders{
		ProviderLoader: dataloader.NewBatchedLoader(func(ctx context.Context, keys []string) []*dataloader.Result[*entities.Provider] {
			results := make([]*dataloader.Result[*entities.Provider], len(keys))
			found, err := providerRepo.GetByIDs(ctx, keys)

			providerMap := make(map[string]*entities.Provider, len(found))
			if err == nil {
				for _, p := range found {
					if p != nil {
						providerMap[p.ID] = p
					}
				}
			}

			for i, key := range keys {
				if err != nil {
					results[i] = &dataloader.Result[*entities.Provider]{Error: err}
				} else if p, ok := providerMap[key]; ok {
					results[i] = &dataloader.Result[*entities.Provider]{Data: p}
				} else {
					results[i] = &dataloader.Result[*entities.Provider]{Error: apperrors.NewNotFoundError("provider " + key + " not found")}
				}
			}
			return results
		}),
	}
}

// LoadProviders resolves ids through the provider loader in request order.
// Unknown IDs are skipped; any other failure is returned.
func (l *Loaders) LoadProviders(ctx context.Context, ids []string) ([]*entities.Provider, error) {
	thunks := make([]dataloader.Thunk[*entities.Provider], len(ids))
	for i, id := range ids {
		thunks[i] = l.ProviderLoader.Load(ctx, id)
	}

	providers := make([]*entities.Provider, 0, len(ids))
	for _, thunk := range thunks {
		p, err := thunk()
		if err != nil {
			if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
				continue
			}
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}

// For returns the loaders for a given context, or nil when none are attached
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// Middleware attaches fresh loaders to every request so batching and
// caching never outlive it.
func Middleware(providerRepo repositories.ProviderReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLoaders(r.Context(), NewLoaders(providerRepo))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
