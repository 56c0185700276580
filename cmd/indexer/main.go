package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zatekoja/healthcarecommons/internal/adapters/database"
	"github.com/zatekoja/healthcarecommons/internal/adapters/events"
	"github.com/zatekoja/healthcarecommons/internal/adapters/search"
	"github.com/zatekoja/healthcarecommons/internal/application/services"
	"github.com/zatekoja/healthcarecommons/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/healthcarecommons/internal/infrastructure/clients/redis"
	"github.com/zatekoja/healthcarecommons/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/healthcarecommons/internal/infrastructure/observability"
	"github.com/zatekoja/healthcarecommons/pkg/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "indexer",
	Short: "Keep the Typesense provider index in sync with Postgres",
	Long: `indexer copies the provider directory from Postgres into the Typesense
search index (sync) and applies live provider changes from the Redis
event bus (watch).`,
	SilenceUsage: true,
}

func newSyncCommand() *cobra.Command {
	var (
		reset    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reindex every provider, optionally on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("interval") {
				if value := strings.TrimSpace(os.Getenv("REINDEX_INTERVAL")); value != "" {
					parsed, err := time.ParseDuration(value)
					if err != nil {
						return fmt.Errorf("invalid REINDEX_INTERVAL %q: %w", value, err)
					}
					interval = parsed
				}
			}
			if interval < 0 {
				return fmt.Errorf("interval must not be negative")
			}
			if os.Getenv("RESET_TYPESENSE") == "true" {
				reset = true
			}
			return runSync(cmd.Context(), reset, interval)
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "drop the provider collection before the first run")
	cmd.Flags().DurationVar(&interval, "interval", 0, "repeat interval for reindexing (e.g. 6h, 30m); 0 runs once")
	return cmd
}

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Apply provider events from the event bus to the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context())
		},
	}
}

func runSync(ctx context.Context, reset bool, interval time.Duration) error {
	for {
		if err := syncOnce(ctx, reset); err != nil {
			if interval <= 0 {
				return err
			}
			log.Error().Err(err).Msg("reindex failed")
		}

		if interval <= 0 {
			return nil
		}

		reset = false
		log.Info().Dur("interval", interval).Msg("reindex complete, waiting for next run")

		select {
		case <-ctx.Done():
			log.Info().Msg("reindexer shutting down")
			return nil
		case <-time.After(interval):
		}
	}
}

func syncOnce(ctx context.Context, reset bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
	if err != nil {
		return err
	}

	syncer := services.NewIndexSyncService(database.NewProviderAdapter(pgClient), search.NewTypesenseAdapter(tsClient), nil)
	indexed, err := syncer.Sync(ctx, reset)
	log.Info().Int("indexed", indexed).Msg("provider index synced")
	return err
}

func runWatch(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
	if err != nil {
		return err
	}
	index := search.NewTypesenseAdapter(tsClient)
	if err := index.InitSchema(ctx); err != nil {
		return err
	}

	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	bus := events.NewRedisEventBus(redisClient)
	defer bus.Close()

	return services.NewIndexSyncService(nil, index, bus).Watch(ctx)
}

func main() {
	observability.InitLogger("healthcare-commons-indexer", os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))

	rootCmd.AddCommand(newSyncCommand(), newWatchCommand())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("indexer failed")
		os.Exit(1)
	}
}
