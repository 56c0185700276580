package entities

import (
	"time"

	"github.com/google/uuid"
)

// ProviderEventType represents the type of catalog change
type ProviderEventType string

const (
	ProviderEventTypeUpserted ProviderEventType = "provider.upserted"
	ProviderEventTypeDeleted  ProviderEventType = "provider.deleted"
)

// ProviderEvent announces a change to a catalog entry
type ProviderEvent struct {
	ID         string            `json:"id"`
	ProviderID string            `json:"provider_id"`
	EventType  ProviderEventType `json:"event_type"`
	Timestamp  time.Time         `json:"timestamp"`
	Provider   *Provider         `json:"provider,omitempty"`

	// TraceContext carries the W3C trace headers of the publishing request
	TraceContext map[string]string `json:"trace_context,omitempty"`
}

// NewProviderEvent creates a new provider event
func NewProviderEvent(providerID string, eventType ProviderEventType, provider *Provider) *ProviderEvent {
	return &ProviderEvent{
		ID:         uuid.New().String(),
		ProviderID: providerID,
		EventType:  eventType,
		Timestamp:  time.Now().UTC(),
		Provider:   provider,
	}
}
