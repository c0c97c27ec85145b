package domain

import "time"

// WebhookSubscription is one (topic, address) registration on the platform for a tenant
type WebhookSubscription struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	ShopDomain string    `json:"shop_domain"`
	WebhookID  int64     `json:"webhook_id"`
	Topic      Topic     `json:"topic"`
	Address    string    `json:"address"`
	Format     string    `json:"format"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UpstreamWebhook is a subscription as reported by the platform itself
type UpstreamWebhook struct {
	ID        int64     `json:"id"`
	Topic     string    `json:"topic"`
	Address   string    `json:"address"`
	Format    string    `json:"format"`
	CreatedAt time.Time `json:"created_at"`
}

// CleanupResult reports what CleanupDuplicates kept and removed
type CleanupResult struct {
	Kept    []UpstreamWebhook     `json:"kept"`
	Deleted []UpstreamWebhook     `json:"deleted"`
	Failed  []SubscriptionFailure `json:"failed,omitempty"`
}

// SubscriptionFailure records one subscription that could not be removed
type SubscriptionFailure struct {
	WebhookID int64  `json:"webhook_id"`
	Topic     string `json:"topic"`
	Error     string `json:"error"`
}

// RemovalResult reports the outcome of removing all subscriptions of a tenant
type RemovalResult struct {
	Removed  []int64               `json:"removed"`
	Failures []SubscriptionFailure `json:"failures,omitempty"`
}

// Complete reports whether every subscription was removed
func (r *RemovalResult) Complete() bool {
	return len(r.Failures) == 0
}

// SubscriptionStatus summarises the platform-side subscription state of a tenant
type SubscriptionStatus struct {
	TenantID   string         `json:"tenant_id"`
	Address    string         `json:"address"`
	Topics     map[string]int `json:"topics"`
	Duplicates []string       `json:"duplicates,omitempty"`
	Missing    []Topic        `json:"missing,omitempty"`
	Foreign    int            `json:"foreign"`
}
