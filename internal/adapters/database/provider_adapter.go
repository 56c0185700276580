package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"
	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
	"github.com/zatekoja/healthcarecommons/internal/domain/repositories"
	"github.com/zatekoja/healthcarecommons/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/healthcarecommons/pkg/errors"
	"github.com/zatekoja/healthcarecommons/pkg/utils"
)

const providersTable = "providers"

var providerColumns = []interface{}{
	"id", "name", "specialty", "location", "pincode",
	"latitude", "longitude", "rating", "languages", "is_multi_specialty",
	"availability_days", "available_slots", "next_available",
	"created_at", "updated_at",
}

// normalizedSpecialty mirrors utils.NormalizePhrase in SQL so pushdown
// compares the same keys the matching engine does.
var normalizedSpecialty = goqu.L(`regexp_replace(LOWER(TRIM("specialty")), '\s+', ' ', 'g')`)

// ProviderAdapter implements ProviderRepository on PostgreSQL
type ProviderAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// Ensure ProviderAdapter implements ProviderRepository
var _ repositories.ProviderRepository = (*ProviderAdapter)(nil)

// NewProviderAdapter creates a new provider adapter
func NewProviderAdapter(client *postgres.Client) *ProviderAdapter {
	return &ProviderAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// ListProviders returns providers matching the pushdown filter in catalog
// (creation) order. Name predicates and the multi-specialty escape hatch are
// pushed down so the result is a superset of what the engine keeps.
func (a *ProviderAdapter) ListProviders(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error) {
	ds := a.db.From(providersTable).
		Prepared(true).
		Select(providerColumns...).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc())

	if conds := filterExpressions(filter); len(conds) > 0 {
		ds = ds.Where(conds...)
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.query(ctx, query, args...)
}

// GetByID retrieves a provider by ID
func (a *ProviderAdapter) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	query, args, err := a.db.From(providersTable).
		Prepared(true).
		Select(providerColumns...).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	provider, err := scanProvider(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get provider", err)
	}
	return provider, nil
}

// GetByIDs retrieves multiple providers by their IDs
func (a *ProviderAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Provider, error) {
	if len(ids) == 0 {
		return []*entities.Provider{}, nil
	}

	query, args, err := a.db.From(providersTable).
		Prepared(true).
		Select(providerColumns...).
		Where(goqu.C("id").In(ids)).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.query(ctx, query, args...)
}

// Upsert creates or replaces a provider. CreatedAt is preserved on conflict.
func (a *ProviderAdapter) Upsert(ctx context.Context, provider *entities.Provider) error {
	record := goqu.Record{
		"id":                 provider.ID,
		"name":               provider.Name,
		"specialty":          provider.Specialty,
		"location":           provider.Location,
		"pincode":            provider.Pincode,
		"latitude":           sql.NullFloat64{},
		"longitude":          sql.NullFloat64{},
		"rating":             sql.NullFloat64{},
		"languages":          pq.Array(nonNil(provider.Languages)),
		"is_multi_specialty": provider.MultiSpecialty,
		"availability_days":  pq.Array(nonNil(provider.Availability.Days)),
		"available_slots":    provider.Availability.AvailableSlots,
		"next_available":     sql.NullString{String: provider.Availability.NextAvailable, Valid: provider.Availability.NextAvailable != ""},
		"created_at":         provider.CreatedAt,
		"updated_at":         provider.UpdatedAt,
	}
	if provider.Coordinates != nil {
		record["latitude"] = sql.NullFloat64{Float64: provider.Coordinates.Latitude, Valid: true}
		record["longitude"] = sql.NullFloat64{Float64: provider.Coordinates.Longitude, Valid: true}
	}
	if provider.Rating != nil {
		record["rating"] = sql.NullFloat64{Float64: *provider.Rating, Valid: true}
	}

	update := goqu.Record{}
	for col := range record {
		if col != "id" && col != "created_at" {
			update[col] = goqu.I("EXCLUDED." + col)
		}
	}

	query, args, err := a.db.Insert(providersTable).
		Prepared(true).
		Rows(record).
		OnConflict(goqu.DoUpdate("id", update)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to upsert provider", err)
	}
	return nil
}

// Delete removes a provider
func (a *ProviderAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(providersTable).
		Prepared(true).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete provider", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", id))
	}
	return nil
}

func (a *ProviderAdapter) query(ctx context.Context, query string, args ...interface{}) ([]*entities.Provider, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list providers", err)
	}
	defer rows.Close()

	providers := make([]*entities.Provider, 0)
	for rows.Next() {
		provider, err := scanProvider(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan provider", err)
		}
		providers = append(providers, provider)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate providers", err)
	}
	return providers, nil
}

func filterExpressions(filter repositories.ProviderFilter) []exp.Expression {
	var conds []exp.Expression

	if filter.PincodeEquals != "" {
		conds = append(conds, goqu.C("pincode").Eq(filter.PincodeEquals))
	}

	if len(filter.SpecialtyIn) > 0 {
		keys := make([]string, 0, len(filter.SpecialtyIn))
		for _, s := range filter.SpecialtyIn {
			if k := utils.NormalizePhrase(s); k != "" {
				keys = append(keys, k)
			}
		}
		conds = append(conds, goqu.Or(
			normalizedSpecialty.In(keys),
			goqu.C("is_multi_specialty").IsTrue(),
			normalizedSpecialty.In(entities.MultiSpecialtyLabels()),
		))
	}

	if filter.NameLike != "" {
		pattern := "%" + escapeLike(filter.NameLike) + "%"
		conds = append(conds, goqu.Or(
			goqu.C("name").ILike(pattern),
			goqu.C("specialty").ILike(pattern),
		))
	}

	if filter.NameContains != "" {
		conds = append(conds, goqu.C("name").ILike("%"+escapeLike(filter.NameContains)+"%"))
	}

	return conds
}

// escapeLike escapes LIKE metacharacters using the default backslash escape
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProvider(row rowScanner) (*entities.Provider, error) {
	var (
		p             entities.Provider
		lat, lon      sql.NullFloat64
		rating        sql.NullFloat64
		nextAvailable sql.NullString
		createdAt     time.Time
		updatedAt     time.Time
	)

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Specialty,
		&p.Location,
		&p.Pincode,
		&lat,
		&lon,
		&rating,
		pq.Array(&p.Languages),
		&p.MultiSpecialty,
		pq.Array(&p.Availability.Days),
		&p.Availability.AvailableSlots,
		&nextAvailable,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid && lon.Valid {
		p.Coordinates = &entities.Coordinate{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	if rating.Valid {
		r := rating.Float64
		p.Rating = &r
	}
	p.Availability.NextAvailable = nextAvailable.String
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt

	return &p, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
