package providers

import (
	"context"
	"errors"

	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
)

// ErrNoGeocodeResults is returned when no place matches the query
var ErrNoGeocodeResults = errors.New("no geocoding results")

// GeolocationProvider resolves free-text locations (addresses, pincodes) to coordinates
type GeolocationProvider interface {
	// Geocode converts an address or pincode to a geocoded address
	Geocode(ctx context.Context, address string) (*GeocodedAddress, error)
}

// GeocodedAddress represents a geocoded address
type GeocodedAddress struct {
	FormattedAddress string              `json:"formatted_address"`
	City             string              `json:"city,omitempty"`
	State            string              `json:"state,omitempty"`
	Pincode          string              `json:"pincode,omitempty"`
	Country          string              `json:"country,omitempty"`
	Coordinates      entities.Coordinate `json:"coordinates"`
}
