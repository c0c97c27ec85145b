package domain

import "time"

// IntegrationStatus is the lifecycle state of a connected shop
type IntegrationStatus string

const (
	IntegrationStatusActive      IntegrationStatus = "active"
	IntegrationStatusInactive    IntegrationStatus = "inactive"
	IntegrationStatusError       IntegrationStatus = "error"
	IntegrationStatusUninstalled IntegrationStatus = "uninstalled"
)

// IsValid returns true if the status is one of the known lifecycle states
func (s IntegrationStatus) IsValid() bool {
	switch s {
	case IntegrationStatusActive, IntegrationStatusInactive, IntegrationStatusError, IntegrationStatusUninstalled:
		return true
	default:
		return false
	}
}

// Integration represents one connected Shopify shop belonging to one company (the tenant)
type Integration struct {
	ID          string                     `json:"id"`
	CompanyID   string                     `json:"company_id"`
	ShopDomain  string                     `json:"shop_domain"`
	Credentials Credentials                `json:"-"`
	Settings    IntegrationSettings        `json:"settings"`
	Status      IntegrationStatus          `json:"status"`
	LastSyncAt  map[ResourceKind]time.Time `json:"last_sync_at,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

// IntegrationSettings holds the per-tenant feature switches
type IntegrationSettings struct {
	SyncOrders      bool `json:"sync_orders"`
	SyncCustomers   bool `json:"sync_customers"`
	SyncReturns     bool `json:"sync_returns"`
	AutoFulfillment bool `json:"auto_fulfillment"`
}

// EnabledKinds returns the resource kinds this tenant has opted into, in canonical order
func (s IntegrationSettings) EnabledKinds() []ResourceKind {
	var kinds []ResourceKind
	if s.SyncOrders {
		kinds = append(kinds, KindOrder)
	}
	if s.SyncCustomers {
		kinds = append(kinds, KindCustomer)
	}
	if s.SyncReturns {
		kinds = append(kinds, KindReturn)
	}
	return kinds
}

// Credentials are the platform API credentials of a tenant.
// The validate tags drive the per-caller completeness check in CredentialsService.
type Credentials struct {
	ShopDomain    string `json:"shop_domain" validate:"required"`
	APIKey        string `json:"api_key" validate:"required"`
	APISecret     string `json:"api_secret" validate:"required"`
	AccessToken   string `json:"access_token" validate:"required"`
	APIVersion    string `json:"api_version" validate:"required"`
	WebhookSecret string `json:"webhook_secret" validate:"required"`
}

// CredentialField names one field of Credentials
type CredentialField string

const (
	CredentialShopDomain    CredentialField = "ShopDomain"
	CredentialAPIKey        CredentialField = "APIKey"
	CredentialAPISecret     CredentialField = "APISecret"
	CredentialAccessToken   CredentialField = "AccessToken"
	CredentialAPIVersion    CredentialField = "APIVersion"
	CredentialWebhookSecret CredentialField = "WebhookSecret"
)

var (
	// SubscriptionCredentialFields is what webhook subscription management needs
	SubscriptionCredentialFields = []CredentialField{CredentialAccessToken, CredentialShopDomain}

	// WebhookCredentialFields is what inbound webhook verification needs
	WebhookCredentialFields = []CredentialField{CredentialWebhookSecret}

	// SyncCredentialFields is the complete set required by a bulk sync
	SyncCredentialFields = []CredentialField{
		CredentialShopDomain,
		CredentialAPIKey,
		CredentialAPISecret,
		CredentialAccessToken,
		CredentialAPIVersion,
		CredentialWebhookSecret,
	}
)
