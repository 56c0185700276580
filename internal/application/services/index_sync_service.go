package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
	"github.com/zatekoja/healthcarecommons/internal/domain/providers"
	"github.com/zatekoja/healthcarecommons/internal/domain/repositories"
	"github.com/zatekoja/healthcarecommons/internal/infrastructure/observability"
)

// eventTimeout bounds the index write for a single provider event
const eventTimeout = 5 * time.Second

// IndexSyncService keeps the provider search index in line with the primary catalog
type IndexSyncService struct {
	source   repositories.ProviderCatalog
	index    repositories.ProviderSearchIndex
	eventBus providers.EventBus
}

// NewIndexSyncService creates a new index sync service. eventBus is only needed for Watch.
func NewIndexSyncService(source repositories.ProviderCatalog, index repositories.ProviderSearchIndex, eventBus providers.EventBus) *IndexSyncService {
	return &IndexSyncService{
		source:   source,
		index:    index,
		eventBus: eventBus,
	}
}

// Sync copies every provider from the source into the index and returns the
// number indexed. With reset the index is dropped and recreated first.
func (s *IndexSyncService) Sync(ctx context.Context, reset bool) (int, error) {
	if reset {
		log.Info().Msg("resetting provider index")
		if err := s.index.Reset(ctx); err != nil {
			return 0, fmt.Errorf("failed to reset index: %w", err)
		}
	} else if err := s.index.InitSchema(ctx); err != nil {
		return 0, fmt.Errorf("failed to init index schema: %w", err)
	}

	all, err := s.source.ListProviders(ctx, repositories.ProviderFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to list providers: %w", err)
	}

	log.Info().Int("providers", len(all)).Msg("indexing providers")

	indexed, failed := 0, 0
	for _, p := range all {
		if p == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		if err := s.index.Index(ctx, p); err != nil {
			failed++
			log.Warn().Err(err).Str("provider_id", p.ID).Msg("failed to index provider")
			continue
		}
		indexed++
	}

	if failed > 0 {
		return indexed, fmt.Errorf("%d of %d providers failed to index", failed, indexed+failed)
	}
	return indexed, nil
}

// Watch applies provider events to the index until ctx is cancelled or the
// subscription closes.
func (s *IndexSyncService) Watch(ctx context.Context) error {
	if s.eventBus == nil {
		return fmt.Errorf("index watch requires an event bus")
	}

	events, err := s.eventBus.Subscribe(ctx, providers.EventChannelProviderUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to provider updates: %w", err)
	}
	log.Info().Str("channel", providers.EventChannelProviderUpdates).Msg("watching provider events")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event == nil {
				continue
			}
			if err := s.HandleEvent(ctx, event); err != nil {
				log.Warn().Err(err).
					Str("event_id", event.ID).
					Str("provider_id", event.ProviderID).
					Msg("failed to apply provider event")
			}
		}
	}
}

// HandleEvent applies a single provider event to the index
func (s *IndexSyncService) HandleEvent(ctx context.Context, event *entities.ProviderEvent) error {
	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	ctx, span := observability.StartSpan(observability.ExtractTraceContext(ctx, event.TraceContext), "IndexSyncService.HandleEvent")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("event.type", string(event.EventType)),
		attribute.String("provider.id", event.ProviderID),
	)

	var err error
	switch event.EventType {
	case entities.ProviderEventTypeUpserted:
		if event.Provider == nil {
			err = fmt.Errorf("upsert event %s carries no provider", event.ID)
			break
		}
		err = s.index.Index(ctx, event.Provider)
	case entities.ProviderEventTypeDeleted:
		err = s.index.Delete(ctx, event.ProviderID)
	default:
		err = fmt.Errorf("unknown provider event type %q", event.EventType)
	}
	if err != nil {
		observability.RecordError(span, err)
	}
	return err
}
