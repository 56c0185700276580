package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
	"github.com/zatekoja/healthcarecommons/internal/domain/repositories"
	apperrors "github.com/zatekoja/healthcarecommons/pkg/errors"
)

const providerListSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "name", "specialty"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "name": {"type": "string", "minLength": 1},
      "specialty": {"type": "string", "minLength": 1},
      "location": {"type": "string"},
      "pincode": {"type": "string"},
      "coordinates": {
        "type": "object",
        "required": ["latitude", "longitude"],
        "properties": {
          "latitude": {"type": "number", "minimum": -90, "maximum": 90},
          "longitude": {"type": "number", "minimum": -180, "maximum": 180}
        }
      },
      "rating": {"type": "number", "minimum": 0, "maximum": 5},
      "languages": {"type": "array", "items": {"type": "string"}},
      "multi_specialty": {"type": "boolean"},
      "availability": {
        "type": "object",
        "properties": {
          "days": {"type": "array", "items": {"type": "string"}},
          "available_slots": {"type": "integer", "minimum": 0},
          "next_available": {"type": "string"}
        }
      }
    }
  }
}`

// StaticCatalog is an immutable, file-backed provider snapshot.
// Every read returns copies, so callers can never alter the snapshot.
type StaticCatalog struct {
	providers []entities.Provider
	byID      map[string]int
}

// Ensure StaticCatalog implements ProviderReader
var _ repositories.ProviderReader = (*StaticCatalog)(nil)

// LoadStaticCatalog reads and validates a JSON array of providers
func LoadStaticCatalog(path string) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseStaticCatalog(data)
}

// ParseStaticCatalog validates and parses a JSON array of providers
func ParseStaticCatalog(data []byte) (*StaticCatalog, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(providerListSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate catalog: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("invalid catalog: %s", strings.Join(msgs, "; "))
	}

	var providers []entities.Provider
	if err := json.Unmarshal(data, &providers); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return NewStaticCatalog(providers), nil
}

// NewStaticCatalog builds a snapshot from providers, copying each record.
// Duplicate IDs are kept in order; lookups by ID resolve to the first.
func NewStaticCatalog(providers []entities.Provider) *StaticCatalog {
	c := &StaticCatalog{
		providers: make([]entities.Provider, 0, len(providers)),
		byID:      make(map[string]int, len(providers)),
	}
	for i := range providers {
		p := providers[i].Clone()
		if _, exists := c.byID[p.ID]; !exists {
			c.byID[p.ID] = len(c.providers)
		}
		c.providers = append(c.providers, p)
	}
	return c
}

// ListProviders returns the snapshot in file order. Only the pincode is
// applied here; the matching engine evaluates the rest.
func (c *StaticCatalog) ListProviders(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error) {
	out := make([]*entities.Provider, 0, len(c.providers))
	for i := range c.providers {
		if filter.PincodeEquals != "" && c.providers[i].Pincode != filter.PincodeEquals {
			continue
		}
		p := c.providers[i].Clone()
		out = append(out, &p)
	}
	return out, nil
}

// GetByID retrieves a provider by ID
func (c *StaticCatalog) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	idx, ok := c.byID[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", id))
	}
	p := c.providers[idx].Clone()
	return &p, nil
}

// GetByIDs retrieves the known providers among ids, in request order
func (c *StaticCatalog) GetByIDs(ctx context.Context, ids []string) ([]*entities.Provider, error) {
	out := make([]*entities.Provider, 0, len(ids))
	for _, id := range ids {
		if idx, ok := c.byID[id]; ok {
			p := c.providers[idx].Clone()
			out = append(out, &p)
		}
	}
	return out, nil
}

// Len returns the number of records in the snapshot
func (c *StaticCatalog) Len() int {
	return len(c.providers)
}
