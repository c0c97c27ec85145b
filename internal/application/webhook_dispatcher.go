package application

import (
	"context"

	"archie-core-shopify-sync/internal/domain"

	"github.com/rs/zerolog"
)

// WebhookHandler processes the webhook topics it claims
type WebhookHandler interface {
	CanHandle(topic domain.Topic) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) (domain.Outcome, error)
}

// WebhookDispatcher routes verified webhook events to the first handler that claims the topic
type WebhookDispatcher struct {
	handlers []WebhookHandler
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates an empty dispatcher
func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{logger: logger}
}

// RegisterHandler adds a handler
func (d *WebhookDispatcher) RegisterHandler(handler WebhookHandler) {
	d.handlers = append(d.handlers, handler)
}

// Dispatch hands the event to its handler. A topic nobody handles is ignored, not an error.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) (domain.Outcome, error) {
	for _, h := range d.handlers {
		if h.CanHandle(event.Topic) {
			return h.Handle(ctx, event)
		}
	}

	d.logger.Debug().Str("topic", event.RawTopic).Str("tenantId", event.TenantID).Msg("No handler for webhook topic")
	return domain.Outcome{Kind: domain.OutcomeIgnored, Reason: domain.IgnoreUnsupported}, nil
}
