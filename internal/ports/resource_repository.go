package ports

import (
	"context"

	"archie-core-shopify-sync/internal/domain"
)

// ResourceRepository persists processed records and raw snapshots.
// Upsert must be atomic per (tenant, kind, upstream id): of two concurrent
// first writes exactly one reports WriteCreated.
type ResourceRepository interface {
	Get(ctx context.Context, tenantID string, kind domain.ResourceKind, upstreamID string) (*domain.Record, error)
	Upsert(ctx context.Context, record *domain.Record) (domain.WriteResult, error)
	SaveSnapshot(ctx context.Context, snapshot *domain.RawSnapshot) error
	Delete(ctx context.Context, tenantID string, kind domain.ResourceKind, upstreamID string) (bool, error)
}

// WebhookSubscriptionRepository defines the interface for local subscription records
type WebhookSubscriptionRepository interface {
	Save(ctx context.Context, subscription *domain.WebhookSubscription) error
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.WebhookSubscription, error)
	DeleteByWebhookID(ctx context.Context, tenantID string, webhookID int64) error
	DeleteByTenant(ctx context.Context, tenantID string) (int64, error)
}

// AnalyticsRefresher recomputes tenant-level aggregates after a comprehensive sync
type AnalyticsRefresher interface {
	Refresh(ctx context.Context, tenantID string) (*domain.TenantAnalytics, error)
}
