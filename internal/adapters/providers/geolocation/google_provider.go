package geolocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
	"github.com/zatekoja/healthcarecommons/internal/domain/providers"
	"github.com/zatekoja/healthcarecommons/internal/infrastructure/observability"
)

const (
	googleGeocodeURL       = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultGeocodeCacheTTL = 60 * 60 * 24 * 30
	defaultHTTPTimeout     = 8 * time.Second
)

// ErrNoResults is returned when the geocoder knows no place for the query
var ErrNoResults = providers.ErrNoGeocodeResults

// GoogleGeolocationProvider implements the GeolocationProvider using the Google Geocoding API.
type GoogleGeolocationProvider struct {
	apiKey     string
	region     string
	httpClient *http.Client
	cache      providers.CacheProvider
	baseURL    string
}

// Ensure GoogleGeolocationProvider implements GeolocationProvider
var _ providers.GeolocationProvider = (*GoogleGeolocationProvider)(nil)

// NewGoogleGeolocationProvider creates a new Google geolocation provider.
// region biases results toward a country (ccTLD, e.g. "in").
func NewGoogleGeolocationProvider(apiKey, region string, cache providers.CacheProvider) *GoogleGeolocationProvider {
	return NewGoogleGeolocationProviderWithOptions(apiKey, region, cache, googleGeocodeURL, nil)
}

// NewGoogleGeolocationProviderWithOptions allows overriding base URL and HTTP client (used for tests).
func NewGoogleGeolocationProviderWithOptions(apiKey, region string, cache providers.CacheProvider, baseURL string, httpClient *http.Client) *GoogleGeolocationProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = googleGeocodeURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &GoogleGeolocationProvider{
		apiKey:     apiKey,
		region:     region,
		httpClient: httpClient,
		cache:      cache,
		baseURL:    baseURL,
	}
}

// Geocode resolves a free-text location or a bare pincode. Results, including
// pincode lookups, are cached per region.
func (g *GoogleGeolocationProvider) Geocode(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	query := strings.Join(strings.Fields(address), " ")
	if query == "" {
		return nil, fmt.Errorf("address is required")
	}

	cacheKey := "geo:v2:" + hashKey(g.region+"|"+strings.ToLower(query))
	if addr, ok := g.cached(ctx, cacheKey); ok {
		return addr, nil
	}

	ctx, span := observability.StartSpan(ctx, "GoogleGeolocationProvider.Geocode")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.Bool("geocode.pincode", isPincode(query)))

	resp, err := g.doGeocodeRequest(ctx, g.queryParams(query))
	if err != nil {
		if !errors.Is(err, ErrNoResults) {
			observability.RecordError(span, err)
		}
		return nil, err
	}

	addr := toGeocodedAddress(resp.Results[0])
	g.store(ctx, cacheKey, addr)
	return addr, nil
}

// queryParams searches bare pincodes through the postal_code component filter
// so that "411001" is never matched as a street number.
func (g *GoogleGeolocationProvider) queryParams(query string) url.Values {
	params := url.Values{}
	if isPincode(query) {
		filter := "postal_code:" + query
		if g.region != "" {
			filter += "|country:" + strings.ToUpper(g.region)
		}
		params.Set("components", filter)
	} else {
		params.Set("address", query)
	}
	if g.region != "" {
		params.Set("region", g.region)
	}
	return params
}

func (g *GoogleGeolocationProvider) cached(ctx context.Context, key string) (*providers.GeocodedAddress, bool) {
	if g.cache == nil {
		return nil, false
	}
	payload, err := g.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			log.Ctx(ctx).Warn().Err(err).Msg("Geocode cache read failed")
		}
		return nil, false
	}
	var addr providers.GeocodedAddress
	if len(payload) == 0 || json.Unmarshal(payload, &addr) != nil {
		return nil, false
	}
	return &addr, true
}

func (g *GoogleGeolocationProvider) store(ctx context.Context, key string, addr *providers.GeocodedAddress) {
	if g.cache == nil {
		return
	}
	payload, err := json.Marshal(addr)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, key, payload, defaultGeocodeCacheTTL); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Geocode cache write failed")
	}
}

func toGeocodedAddress(result googleGeocodeResult) *providers.GeocodedAddress {
	return &providers.GeocodedAddress{
		FormattedAddress: result.FormattedAddress,
		City:             component(result.AddressComponents, "locality", "administrative_area_level_2"),
		State:            component(result.AddressComponents, "administrative_area_level_1"),
		Pincode:          component(result.AddressComponents, "postal_code"),
		Country:          component(result.AddressComponents, "country"),
		Coordinates: entities.Coordinate{
			Latitude:  result.Geometry.Location.Lat,
			Longitude: result.Geometry.Location.Lng,
		},
	}
}

func (g *GoogleGeolocationProvider) doGeocodeRequest(ctx context.Context, params url.Values) (*googleGeocodeResponse, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("google maps api key is required")
	}

	params.Set("key", g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("geocode request returned status %d", resp.StatusCode)
	}

	var payload googleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}

	switch {
	case payload.Status == "ZERO_RESULTS", payload.Status == "OK" && len(payload.Results) == 0:
		return nil, ErrNoResults
	case payload.Status != "OK" && payload.ErrorMessage != "":
		return nil, fmt.Errorf("geocode request failed: %s - %s", payload.Status, payload.ErrorMessage)
	case payload.Status != "OK":
		return nil, fmt.Errorf("geocode request failed: %s", payload.Status)
	}
	return &payload, nil
}

// isPincode reports whether s is a bare postal code (4 to 10 digits).
func isPincode(s string) bool {
	if len(s) < 4 || len(s) > 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// component returns the long name of the first component carrying one of the
// types, tried in order.
func component(components []googleAddressComponent, types ...string) string {
	for _, want := range types {
		for _, comp := range components {
			if slices.Contains(comp.Types, want) {
				return comp.LongName
			}
		}
	}
	return ""
}

type googleGeocodeResponse struct {
	Status       string                `json:"status"`
	ErrorMessage string                `json:"error_message,omitempty"`
	Results      []googleGeocodeResult `json:"results"`
}

type googleGeocodeResult struct {
	FormattedAddress  string                   `json:"formatted_address"`
	AddressComponents []googleAddressComponent `json:"address_components"`
	Geometry          googleGeometry           `json:"geometry"`
}

type googleAddressComponent struct {
	LongName string   `json:"long_name"`
	Types    []string `json:"types"`
}

type googleGeometry struct {
	Location googleLocation `json:"location"`
}

type googleLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
