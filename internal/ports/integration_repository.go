package ports

import (
	"context"
	"time"

	"archie-core-shopify-sync/internal/domain"
)

// IntegrationRepository defines the interface for integration persistence
type IntegrationRepository interface {
	// Create creates a new integration and fills in its ID
	Create(ctx context.Context, integration *domain.Integration) error

	// GetByID retrieves an integration by its tenant ID
	GetByID(ctx context.Context, tenantID string) (*domain.Integration, error)

	// GetByShopDomain retrieves the integration connected to a shop
	GetByShopDomain(ctx context.Context, shopDomain string) (*domain.Integration, error)

	// UpdateCredentials replaces the stored credentials
	UpdateCredentials(ctx context.Context, tenantID string, creds domain.Credentials) error

	// UpdateStatus sets the lifecycle status
	UpdateStatus(ctx context.Context, tenantID string, status domain.IntegrationStatus) error

	// SetLastSyncAt records the completion time of a bulk sync per kind
	SetLastSyncAt(ctx context.Context, tenantID string, at map[domain.ResourceKind]time.Time) error
}
