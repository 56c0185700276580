package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/zatekoja/healthcarecommons/internal/domain/providers"
	"github.com/zatekoja/healthcarecommons/internal/infrastructure/observability"
)

// GeolocationHandler handles geolocation endpoints.
type GeolocationHandler struct {
	provider providers.GeolocationProvider
}

// NewGeolocationHandler creates a new geolocation handler.
func NewGeolocationHandler(provider providers.GeolocationProvider) *GeolocationHandler {
	return &GeolocationHandler{provider: provider}
}

// Geocode handles GET /api/geocode?address=...
func (h *GeolocationHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		respondWithError(w, http.StatusBadRequest, "address parameter is required")
		return
	}

	geocoded, err := h.provider.Geocode(r.Context(), address)
	if errors.Is(err, providers.ErrNoGeocodeResults) {
		respondWithError(w, http.StatusNotFound, "no location found for address")
		return
	}
	if err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Str("address", address).Msg("geocode failed")
		respondWithError(w, http.StatusBadGateway, "failed to geocode address")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"address":           address,
		"formatted_address": geocoded.FormattedAddress,
		"pincode":           geocoded.Pincode,
		"lat":               geocoded.Coordinates.Latitude,
		"lon":               geocoded.Coordinates.Longitude,
	})
}
