package webhook_handlers

import (
	"context"

	"archie-core-shopify-sync/internal/application"
	"archie-core-shopify-sync/internal/domain"

	"github.com/rs/zerolog"
)

// CustomerHandler handles customer-related webhook events
type CustomerHandler struct {
	reconciler *application.Reconciler
	logger     zerolog.Logger
}

// NewCustomerHandler creates a new customer webhook handler
func NewCustomerHandler(reconciler *application.Reconciler, logger zerolog.Logger) *CustomerHandler {
	return &CustomerHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *CustomerHandler) CanHandle(topic domain.Topic) bool {
	return handlesKind(topic, domain.KindCustomer)
}

// Handle reconciles the customer carried by the event
func (h *CustomerHandler) Handle(ctx context.Context, event *domain.WebhookEvent) (domain.Outcome, error) {
	outcome, err := h.reconciler.Apply(ctx, observe(domain.KindCustomer, event))
	if err != nil {
		return domain.Outcome{}, err
	}

	if event.Topic == domain.TopicCustomersDisable && !outcome.Ignored() {
		h.logger.Info().Str("tenantId", event.TenantID).Str("customerId", outcome.UpstreamID).Msg("Customer account disabled")
	}
	return outcome, nil
}
