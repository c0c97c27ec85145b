package ports

import (
	"context"

	"archie-core-shopify-sync/internal/domain"
)

// ShopifyClient defines the interface for Shopify Admin API operations
type ShopifyClient interface {
	// Resource listing
	BuildPageRequest(kind domain.ResourceKind, cursor string, limit int) domain.PageRequest
	FetchPage(ctx context.Context, creds *domain.Credentials, req domain.PageRequest) (*domain.Page, error)

	// Webhook API
	ListWebhooks(ctx context.Context, creds *domain.Credentials) ([]domain.UpstreamWebhook, error)
	CreateWebhook(ctx context.Context, creds *domain.Credentials, topic domain.Topic, address string) (*domain.UpstreamWebhook, error)
	DeleteWebhook(ctx context.Context, creds *domain.Credentials, webhookID int64) error
}

// WebhookVerifier authenticates an inbound webhook body against its signature header
type WebhookVerifier interface {
	Verify(body []byte, signature string, secret string) error
}
