package services

import (
	"errors"
	"math"

	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// ErrNonFiniteCoordinate is returned when a coordinate holds NaN or an infinity.
var ErrNonFiniteCoordinate = errors.New("coordinate is not finite")

// DistanceKm returns the haversine great-circle distance between a and b in kilometres.
// Out-of-range but finite values are passed through the formula unchanged.
func DistanceKm(a, b entities.Coordinate) (float64, error) {
	if !a.IsFinite() || !b.IsFinite() {
		return 0, ErrNonFiniteCoordinate
	}
	if a == b {
		return 0, nil
	}

	lat1 := degreesToRadians(a.Latitude)
	lat2 := degreesToRadians(b.Latitude)
	dLat := degreesToRadians(b.Latitude - a.Latitude)
	dLon := degreesToRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h a hair outside [0,1] for antipodal points
	h = math.Min(math.Max(h, 0), 1)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c, nil
}

// RoundDistanceKm rounds a distance to one decimal place for display.
func RoundDistanceKm(d float64) float64 {
	return math.Round(d*10) / 10
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
