package ports

import (
	"context"
	"time"

	"archie-core-shopify-sync/internal/domain"
)

// TicketStore keeps processed-webhook tickets for a retention window
type TicketStore interface {
	// MarkProcessed stores the ticket unless one exists. It reports whether the ticket was new.
	MarkProcessed(ctx context.Context, ticket *domain.ProcessedWebhookTicket, ttl time.Duration) (bool, error)

	// IsProcessed reports whether a ticket exists for the delivery id
	IsProcessed(ctx context.Context, deliveryID string) (bool, error)
}
