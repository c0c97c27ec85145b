package webhook_handlers

import (
	"context"

	"archie-core-shopify-sync/internal/application"
	"archie-core-shopify-sync/internal/domain"

	"github.com/rs/zerolog"
)

// OrderHandler handles order-related webhook events
type OrderHandler struct {
	reconciler *application.Reconciler
	logger     zerolog.Logger
}

// NewOrderHandler creates a new order webhook handler
func NewOrderHandler(reconciler *application.Reconciler, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *OrderHandler) CanHandle(topic domain.Topic) bool {
	return handlesKind(topic, domain.KindOrder)
}

// Handle reconciles the order carried by the event
func (h *OrderHandler) Handle(ctx context.Context, event *domain.WebhookEvent) (domain.Outcome, error) {
	outcome, err := h.reconciler.Apply(ctx, observe(domain.KindOrder, event))
	if err != nil {
		return domain.Outcome{}, err
	}

	if outcome.Ignored() {
		return outcome, nil
	}
	switch event.Topic {
	case domain.TopicOrdersCreate:
		h.logger.Info().Str("tenantId", event.TenantID).Str("orderId", outcome.UpstreamID).Msg("New order received")
	case domain.TopicOrdersPaid:
		h.logger.Info().Str("tenantId", event.TenantID).Str("orderId", outcome.UpstreamID).Msg("Order paid")
	case domain.TopicOrdersFulfilled, domain.TopicOrdersPartiallyFulfilled:
		h.logger.Info().Str("tenantId", event.TenantID).Str("orderId", outcome.UpstreamID).Msg("Order fulfilled")
	case domain.TopicOrdersCancelled:
		h.logger.Info().Str("tenantId", event.TenantID).Str("orderId", outcome.UpstreamID).Msg("Order cancelled")
	}
	return outcome, nil
}
