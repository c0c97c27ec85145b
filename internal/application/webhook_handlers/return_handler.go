package webhook_handlers

import (
	"context"

	"archie-core-shopify-sync/internal/application"
	"archie-core-shopify-sync/internal/domain"

	"github.com/rs/zerolog"
)

// ReturnHandler handles return-related webhook events
type ReturnHandler struct {
	reconciler *application.Reconciler
	logger     zerolog.Logger
}

// NewReturnHandler creates a new return webhook handler
func NewReturnHandler(reconciler *application.Reconciler, logger zerolog.Logger) *ReturnHandler {
	return &ReturnHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *ReturnHandler) CanHandle(topic domain.Topic) bool {
	return handlesKind(topic, domain.KindReturn)
}

// Handle reconciles the return carried by the event
func (h *ReturnHandler) Handle(ctx context.Context, event *domain.WebhookEvent) (domain.Outcome, error) {
	outcome, err := h.reconciler.Apply(ctx, observe(domain.KindReturn, event))
	if err != nil {
		return domain.Outcome{}, err
	}

	if event.Topic == domain.TopicReturnsRequest && outcome.Kind == domain.OutcomeCreated {
		h.logger.Info().Str("tenantId", event.TenantID).Str("returnId", outcome.UpstreamID).Msg("Return requested")
	}
	return outcome, nil
}
