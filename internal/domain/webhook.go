package domain

import "time"

// WebhookEvent is one verified inbound push notification
type WebhookEvent struct {
	Topic      Topic
	RawTopic   string
	ShopDomain string
	TenantID   string
	DeliveryID string
	Payload    []byte
	ReceivedAt time.Time
}

// ProcessedWebhookTicket records that a delivery id has been applied
type ProcessedWebhookTicket struct {
	DeliveryID  string    `json:"delivery_id"`
	Topic       Topic     `json:"topic"`
	EntityID    string    `json:"entity_id"`
	TenantID    string    `json:"tenant_id"`
	ProcessedAt time.Time `json:"processed_at"`
}

// IngestResult is what the ingestion endpoint acknowledges
type IngestResult struct {
	Topic      string  `json:"topic"`
	DeliveryID string  `json:"delivery_id,omitempty"`
	Outcome    Outcome `json:"result"`
}
