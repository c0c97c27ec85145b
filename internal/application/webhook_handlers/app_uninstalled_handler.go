package webhook_handlers

import (
	"context"
	"fmt"

	"archie-core-shopify-sync/internal/application"
	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler handles app uninstalled webhook events
type AppUninstalledHandler struct {
	integrationRepo ports.IntegrationRepository
	subscriptions   *application.SubscriptionManager
	tracker         *application.IdempotencyTracker
	logger          zerolog.Logger
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(
	integrationRepo ports.IntegrationRepository,
	subscriptions *application.SubscriptionManager,
	tracker *application.IdempotencyTracker,
	logger zerolog.Logger,
) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		integrationRepo: integrationRepo,
		subscriptions:   subscriptions,
		tracker:         tracker,
		logger:          logger,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic domain.Topic) bool {
	return topic == domain.TopicAppUninstalled
}

// Handle marks the integration uninstalled and drops its local subscription
// records. The access token is already revoked, so nothing is deleted upstream.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) (domain.Outcome, error) {
	if h.tracker.HasProcessed(ctx, event.DeliveryID) {
		return domain.Outcome{Kind: domain.OutcomeIgnored, Reason: domain.IgnoreDuplicate}, nil
	}

	if err := h.integrationRepo.UpdateStatus(ctx, event.TenantID, domain.IntegrationStatusUninstalled); err != nil {
		return domain.Outcome{}, fmt.Errorf("failed to mark integration uninstalled: %w", err)
	}

	removed, err := h.subscriptions.Forget(ctx, event.TenantID)
	if err != nil {
		h.logger.Warn().Err(err).Str("tenantId", event.TenantID).Msg("Failed to drop local webhook subscriptions")
	}

	h.logger.Info().
		Str("tenantId", event.TenantID).
		Str("shop", event.ShopDomain).
		Int64("subscriptionsDropped", removed).
		Msg("App uninstalled - cleanup completed")

	h.tracker.MarkProcessed(ctx, event.DeliveryID, event.Topic, event.ShopDomain, event.TenantID)
	return domain.Outcome{Kind: domain.OutcomeUpdated}, nil
}
