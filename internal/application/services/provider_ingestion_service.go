package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
	"github.com/zatekoja/healthcarecommons/internal/domain/providers"
	"github.com/zatekoja/healthcarecommons/internal/domain/repositories"
	"github.com/zatekoja/healthcarecommons/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/healthcarecommons/pkg/errors"
)

// MaxRating is the top of the provider rating scale
const MaxRating = 5.0

// ProviderIngestionService validates and stores directory entries and
// announces every change on the event bus.
type ProviderIngestionService struct {
	repo     repositories.ProviderRepository
	eventBus providers.EventBus
	now      func() time.Time
}

// NewProviderIngestionService creates a new provider ingestion service.
// eventBus may be nil, in which case changes are not announced.
func NewProviderIngestionService(repo repositories.ProviderRepository, eventBus providers.EventBus) *ProviderIngestionService {
	return &ProviderIngestionService{
		repo:     repo,
		eventBus: eventBus,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetByID retrieves a provider by ID
func (s *ProviderIngestionService) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByIDs retrieves providers by ID; unknown IDs are omitted
func (s *ProviderIngestionService) GetByIDs(ctx context.Context, ids []string) ([]*entities.Provider, error) {
	return s.repo.GetByIDs(ctx, ids)
}

// Upsert validates and stores a provider, then publishes provider.upserted.
// A missing ID is generated; the stored provider is returned.
func (s *ProviderIngestionService) Upsert(ctx context.Context, provider *entities.Provider) (*entities.Provider, error) {
	if provider == nil {
		return nil, apperrors.NewValidationError("provider is required")
	}
	p := provider.Clone()
	if err := normalizeProvider(&p); err != nil {
		return nil, err
	}

	now := s.now()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	if err := s.repo.Upsert(ctx, &p); err != nil {
		return nil, err
	}

	s.publish(ctx, entities.NewProviderEvent(p.ID, entities.ProviderEventTypeUpserted, &p))
	return &p, nil
}

// Delete removes a provider and publishes provider.deleted
func (s *ProviderIngestionService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperrors.NewValidationError("provider id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, entities.NewProviderEvent(id, entities.ProviderEventTypeDeleted, nil))
	return nil
}

// publish announces a change. Failures are logged; the store is the source of truth.
func (s *ProviderIngestionService) publish(ctx context.Context, event *entities.ProviderEvent) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, providers.EventChannelProviderUpdates, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("provider_id", event.ProviderID).
			Str("event_type", string(event.EventType)).
			Msg("failed to publish provider event")
	}
}

func normalizeProvider(p *entities.Provider) error {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.Specialty = strings.TrimSpace(p.Specialty)
	p.Location = strings.TrimSpace(p.Location)
	p.Pincode = strings.TrimSpace(p.Pincode)

	if p.Name == "" {
		return apperrors.NewValidationError("provider name is required")
	}
	if p.Specialty == "" {
		return apperrors.NewValidationError("provider specialty is required")
	}
	if p.Rating != nil {
		r := *p.Rating
		if math.IsNaN(r) || r < 0 || r > MaxRating {
			return apperrors.NewValidationError(fmt.Sprintf("rating must be between 0 and %.0f", MaxRating))
		}
	}
	if p.Coordinates != nil && !p.Coordinates.InRange() {
		return apperrors.NewValidationError("coordinates are out of range")
	}
	if p.Availability.AvailableSlots < 0 {
		return apperrors.NewValidationError("available slots must not be negative")
	}
	if entities.IsMultiSpecialtyLabel(p.Specialty) {
		p.MultiSpecialty = true
	}
	if p.Languages == nil {
		p.Languages = []string{}
	}
	return nil
}
