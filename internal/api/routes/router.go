package routes

import (
	"net/http"

	"github.com/zatekoja/healthcarecommons/internal/api/handlers"
	"github.com/zatekoja/healthcarecommons/internal/api/loaders"
	"github.com/zatekoja/healthcarecommons/internal/api/middleware"
	"github.com/zatekoja/healthcarecommons/internal/domain/repositories"
	"github.com/zatekoja/healthcarecommons/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	providerHandler    *handlers.ProviderHandler
	diagnosisHandler   *handlers.DiagnosisHandler
	geolocationHandler *handlers.GeolocationHandler

	providerReader repositories.ProviderReader
	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router. geolocationHandler may be nil.
func NewRouter(
	providerHandler *handlers.ProviderHandler,
	diagnosisHandler *handlers.DiagnosisHandler,
	geolocationHandler *handlers.GeolocationHandler,
	providerReader repositories.ProviderReader,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		providerHandler:    providerHandler,
		diagnosisHandler:   diagnosisHandler,
		geolocationHandler: geolocationHandler,
		providerReader:     providerReader,
		allowedOrigins:     allowedOrigins,
		metrics:            metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Provider endpoints
	r.mux.HandleFunc("GET /api/providers/search", r.providerHandler.SearchProviders)
	r.mux.HandleFunc("GET /api/providers", r.providerHandler.ListProviders)
	r.mux.HandleFunc("GET /api/providers/{id}", r.providerHandler.GetProvider)
	if r.providerHandler.Writable() {
		r.mux.HandleFunc("POST /api/providers", r.providerHandler.CreateProvider)
		r.mux.HandleFunc("DELETE /api/providers/{id}", r.providerHandler.DeleteProvider)
	}

	// Diagnosis endpoints
	r.mux.HandleFunc("GET /api/diagnosis", r.diagnosisHandler.Diagnose)
	r.mux.HandleFunc("GET /api/symptoms", r.diagnosisHandler.ListSymptoms)

	// Geolocation endpoints
	if r.geolocationHandler != nil {
		r.mux.HandleFunc("GET /api/geocode", r.geolocationHandler.Geocode)
	}

	// Observability wraps the mux directly so it can read the matched pattern.
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = loaders.Middleware(r.providerReader)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)
	handler = middleware.RequestIDMiddleware(handler)

	return handler
}
