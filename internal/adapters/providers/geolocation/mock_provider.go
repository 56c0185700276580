package geolocation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
	"github.com/zatekoja/healthcarecommons/internal/domain/providers"
)

// mockPlaces are the locations the mock geocoder knows, keyed by lowercase
// city name or pincode.
var mockPlaces = map[string]providers.GeocodedAddress{
	"mumbai":    {FormattedAddress: "Mumbai, Maharashtra, India", City: "Mumbai", State: "Maharashtra", Country: "India", Coordinates: entities.Coordinate{Latitude: 19.0760, Longitude: 72.8777}},
	"pune":      {FormattedAddress: "Pune, Maharashtra, India", City: "Pune", State: "Maharashtra", Country: "India", Coordinates: entities.Coordinate{Latitude: 18.5204, Longitude: 73.8567}},
	"delhi":     {FormattedAddress: "New Delhi, Delhi, India", City: "New Delhi", State: "Delhi", Country: "India", Coordinates: entities.Coordinate{Latitude: 28.6139, Longitude: 77.2090}},
	"bengaluru": {FormattedAddress: "Bengaluru, Karnataka, India", City: "Bengaluru", State: "Karnataka", Country: "India", Coordinates: entities.Coordinate{Latitude: 12.9716, Longitude: 77.5946}},
	"chennai":   {FormattedAddress: "Chennai, Tamil Nadu, India", City: "Chennai", State: "Tamil Nadu", Country: "India", Coordinates: entities.Coordinate{Latitude: 13.0827, Longitude: 80.2707}},
	"400001":    {FormattedAddress: "Fort, Mumbai 400001, India", City: "Mumbai", State: "Maharashtra", Pincode: "400001", Country: "India", Coordinates: entities.Coordinate{Latitude: 18.9322, Longitude: 72.8351}},
	"400053":    {FormattedAddress: "Andheri West, Mumbai 400053, India", City: "Mumbai", State: "Maharashtra", Pincode: "400053", Country: "India", Coordinates: entities.Coordinate{Latitude: 19.1364, Longitude: 72.8296}},
	"411001":    {FormattedAddress: "Pune 411001, India", City: "Pune", State: "Maharashtra", Pincode: "411001", Country: "India", Coordinates: entities.Coordinate{Latitude: 18.5314, Longitude: 73.8446}},
}

// MockGeolocationProvider resolves a fixed set of cities and pincodes
type MockGeolocationProvider struct{}

// Ensure MockGeolocationProvider implements GeolocationProvider
var _ providers.GeolocationProvider = (*MockGeolocationProvider)(nil)

// NewMockGeolocationProvider creates a new mock geolocation provider
func NewMockGeolocationProvider() *MockGeolocationProvider {
	return &MockGeolocationProvider{}
}

// Geocode matches the address exactly, then by contained city name.
// Unknown places return ErrNoResults rather than a made-up coordinate.
func (m *MockGeolocationProvider) Geocode(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	key := strings.ToLower(strings.TrimSpace(address))
	if key == "" {
		return nil, fmt.Errorf("address is required")
	}

	if place, ok := mockPlaces[key]; ok {
		return &place, nil
	}
	// sorted keys put pincodes ahead of city names
	names := make([]string, 0, len(mockPlaces))
	for name := range mockPlaces {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.Contains(key, name) {
			place := mockPlaces[name]
			return &place, nil
		}
	}
	return nil, ErrNoResults
}
