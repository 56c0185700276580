package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/healthcarecommons/internal/adapters/catalog"
	"github.com/zatekoja/healthcarecommons/internal/adapters/database"
	"github.com/zatekoja/healthcarecommons/internal/application/services"
	"github.com/zatekoja/healthcarecommons/internal/domain/repositories"
	"github.com/zatekoja/healthcarecommons/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/healthcarecommons/internal/infrastructure/observability"
	"github.com/zatekoja/healthcarecommons/pkg/config"
)

const (
	defaultSeedPath   = "data/providers.json"
	defaultSchemaPath = "migrations/001_create_providers.sql"
)

func main() {
	observability.InitLogger("healthcare-commons-seed", "development", os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to DB")
	}
	defer pgClient.Close()

	schemaPath := envOr("SCHEMA_PATH", defaultSchemaPath)
	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", schemaPath).Msg("failed to read schema")
	}
	if _, err := pgClient.DB().ExecContext(ctx, string(schema)); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating providers before seeding")
		if _, err := pgClient.DB().ExecContext(ctx, `TRUNCATE TABLE providers`); err != nil {
			log.Fatal().Err(err).Msg("failed to reset providers")
		}
	}

	seedPath := envOr("SEED_PATH", defaultSeedPath)
	snapshot, err := catalog.LoadStaticCatalog(seedPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", seedPath).Msg("failed to load seed providers")
	}

	seeds, err := snapshot.ListProviders(ctx, repositories.ProviderFilter{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list seed providers")
	}

	// events are not published; run the indexer sync afterwards
	ingestion := services.NewProviderIngestionService(database.NewProviderAdapter(pgClient), nil)

	seeded := 0
	for _, p := range seeds {
		if _, err := ingestion.Upsert(ctx, p); err != nil {
			log.Error().Err(err).Str("provider", p.Name).Msg("failed to seed provider")
			continue
		}
		seeded++
	}

	log.Info().Int("seeded", seeded).Int("total", len(seeds)).Msg("seeding complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
