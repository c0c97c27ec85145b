package webhook_handlers

import (
	"archie-core-shopify-sync/internal/domain"
)

// observe wraps a webhook event as a reconciliation input
func observe(kind domain.ResourceKind, event *domain.WebhookEvent) domain.Observation {
	return domain.Observation{
		TenantID: event.TenantID,
		Kind:     kind,
		Source:   domain.SourceWebhook,
		Payload:  event.Payload,
		Delivery: &domain.Delivery{
			Topic:      event.Topic,
			DeliveryID: event.DeliveryID,
			ReceivedAt: event.ReceivedAt,
		},
	}
}

func handlesKind(topic domain.Topic, want domain.ResourceKind) bool {
	kind, ok := topic.ResourceKind()
	return ok && kind == want
}
