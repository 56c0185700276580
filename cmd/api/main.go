package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/healthcarecommons/internal/adapters/cache"
	"github.com/zatekoja/healthcarecommons/internal/adapters/catalog"
	"github.com/zatekoja/healthcarecommons/internal/adapters/database"
	"github.com/zatekoja/healthcarecommons/internal/adapters/events"
	"github.com/zatekoja/healthcarecommons/internal/adapters/providers/geolocation"
	"github.com/zatekoja/healthcarecommons/internal/adapters/search"
	"github.com/zatekoja/healthcarecommons/internal/api/handlers"
	"github.com/zatekoja/healthcarecommons/internal/api/routes"
	"github.com/zatekoja/healthcarecommons/internal/application/services"
	"github.com/zatekoja/healthcarecommons/internal/domain/providers"
	"github.com/zatekoja/healthcarecommons/internal/domain/repositories"
	"github.com/zatekoja/healthcarecommons/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/healthcarecommons/internal/infrastructure/clients/redis"
	"github.com/zatekoja/healthcarecommons/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/healthcarecommons/internal/infrastructure/observability"
	"github.com/zatekoja/healthcarecommons/pkg/config"
)

// catalogDeps are the provider stores selected by catalog.source
type catalogDeps struct {
	catalog repositories.ProviderCatalog
	reader  repositories.ProviderReader
	repo    repositories.ProviderRepository
	closers []func() error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	var hooks []zerolog.Hook
	if cfg.OTEL.Enabled {
		hooks = append(hooks, observability.NewOTelHook())
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env, cfg.Log.Level, hooks...)

	// Set up context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}
	searchMetrics, err := observability.InitSearchMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize search metrics")
	}

	taxonomy := services.NewSymptomTaxonomy()
	if cfg.Catalog.TaxonomyPath != "" {
		taxonomy, err = services.LoadSymptomTaxonomy(cfg.Catalog.TaxonomyPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Catalog.TaxonomyPath).Msg("failed to load symptom taxonomy")
		}
	}
	log.Info().Int("symptoms", taxonomy.Size()).Msg("symptom taxonomy loaded")

	// Redis backs the geocode cache and the provider event bus; both are optional
	var (
		geoCache providers.CacheProvider
		eventBus providers.EventBus
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without cache and events")
		} else {
			defer redisClient.Close()
			redisCache := cache.NewRedisAdapter(redisClient, "geocode:")
			redisCache.SetMetrics(metrics, "geocode")
			geoCache = redisCache

			bus := events.NewRedisEventBus(redisClient)
			defer bus.Close()
			eventBus = bus
		}
	}

	deps, err := buildCatalog(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("source", cfg.Catalog.Source).Msg("failed to initialize provider catalog")
	}
	defer func() {
		for _, closeFn := range deps.closers {
			if err := closeFn(); err != nil {
				log.Warn().Err(err).Msg("error closing catalog client")
			}
		}
	}()

	var geocoder providers.GeolocationProvider
	switch cfg.Geolocation.Provider {
	case "google":
		if cfg.Geolocation.APIKey == "" {
			log.Fatal().Msg("GEOLOCATION_API_KEY is required for the google geolocation provider")
		}
		geocoder = geolocation.NewGoogleGeolocationProvider(cfg.Geolocation.APIKey, cfg.Geolocation.Region, geoCache)
	case "none":
	default:
		geocoder = geolocation.NewMockGeolocationProvider()
	}

	// Initialize services
	searchService := services.NewProviderSearchService(taxonomy, deps.catalog, cfg.Catalog.Source)
	searchService.SetMetrics(metrics, searchMetrics)
	if geocoder != nil {
		searchService.SetGeocoder(geocoder)
	}

	var writer handlers.ProviderWriter
	if deps.repo != nil {
		writer = services.NewProviderIngestionService(deps.repo, eventBus)
	}

	// Initialize handlers
	var geolocationHandler *handlers.GeolocationHandler
	if geocoder != nil {
		geolocationHandler = handlers.NewGeolocationHandler(geocoder)
	}
	router := routes.NewRouter(
		handlers.NewProviderHandler(searchService, deps.reader, writer, cfg.Search),
		handlers.NewDiagnosisHandler(taxonomy),
		geolocationHandler,
		deps.reader,
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("catalog", cfg.Catalog.Source).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}
	log.Info().Msg("server stopped")
}

// buildCatalog opens the stores for the configured catalog source. Lookups
// and writes always go to Postgres unless the catalog is a static snapshot.
func buildCatalog(ctx context.Context, cfg *config.Config) (*catalogDeps, error) {
	if cfg.Catalog.Source == config.CatalogSourceStatic {
		static, err := catalog.LoadStaticCatalog(cfg.Catalog.StaticPath)
		if err != nil {
			return nil, err
		}
		log.Info().Int("providers", static.Len()).Str("path", cfg.Catalog.StaticPath).Msg("static catalog loaded")
		return &catalogDeps{catalog: static, reader: static}, nil
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	providerRepo := database.NewProviderAdapter(pgClient)
	deps := &catalogDeps{
		catalog: providerRepo,
		reader:  providerRepo,
		repo:    providerRepo,
		closers: []func() error{pgClient.Close},
	}

	if cfg.Catalog.Source == config.CatalogSourceTypesense {
		tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			pgClient.Close()
			return nil, err
		}
		index := search.NewTypesenseAdapter(tsClient)
		if err := index.InitSchema(ctx); err != nil {
			pgClient.Close()
			return nil, err
		}
		deps.catalog = index
	}

	return deps, nil
}

func init() {
	// keep startup failures readable before the configured logger exists
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
