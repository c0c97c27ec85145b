package application

import (
	"context"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// DefaultTicketRetention is how long a processed delivery id is remembered
const DefaultTicketRetention = 30 * 24 * time.Hour

// IdempotencyTracker remembers which webhook deliveries have been applied.
// Both operations degrade instead of failing: a lookup error counts as
// "not processed" and a write error is only logged.
type IdempotencyTracker struct {
	store     ports.TicketStore
	retention time.Duration
	logger    zerolog.Logger
	nowFunc   func() time.Time
}

// NewIdempotencyTracker creates a tracker over a ticket store
func NewIdempotencyTracker(store ports.TicketStore, retention time.Duration, logger zerolog.Logger) *IdempotencyTracker {
	if retention <= 0 {
		retention = DefaultTicketRetention
	}
	return &IdempotencyTracker{
		store:     store,
		retention: retention,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// HasProcessed reports whether the delivery id already has a ticket
func (t *IdempotencyTracker) HasProcessed(ctx context.Context, deliveryID string) bool {
	if deliveryID == "" {
		return false
	}

	processed, err := t.store.IsProcessed(ctx, deliveryID)
	if err != nil {
		t.logger.Warn().Err(err).Str("deliveryId", deliveryID).Msg("Ticket lookup failed, treating delivery as new")
		return false
	}
	return processed
}

// MarkProcessed records a ticket for the delivery id
func (t *IdempotencyTracker) MarkProcessed(ctx context.Context, deliveryID string, topic domain.Topic, entityID, tenantID string) {
	if deliveryID == "" {
		return
	}

	ticket := &domain.ProcessedWebhookTicket{
		DeliveryID:  deliveryID,
		Topic:       topic,
		EntityID:    entityID,
		TenantID:    tenantID,
		ProcessedAt: t.nowFunc().UTC(),
	}

	isNew, err := t.store.MarkProcessed(ctx, ticket, t.retention)
	if err != nil {
		t.logger.Error().Err(err).
			Str("deliveryId", deliveryID).
			Str("topic", topic.String()).
			Str("tenantId", tenantID).
			Msg("Failed to record processed webhook ticket")
		return
	}
	if !isNew {
		t.logger.Debug().Str("deliveryId", deliveryID).Msg("Webhook ticket already recorded")
	}
}
