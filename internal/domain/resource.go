package domain

import (
	"fmt"
	"time"
)

// ResourceKind is one of the three mirrored upstream entity kinds
type ResourceKind string

const (
	KindOrder    ResourceKind = "orders"
	KindCustomer ResourceKind = "customers"
	KindReturn   ResourceKind = "returns"
)

// AllKinds lists every resource kind in canonical order
var AllKinds = []ResourceKind{KindOrder, KindCustomer, KindReturn}

// IsValid returns true if the kind is known
func (k ResourceKind) IsValid() bool {
	switch k {
	case KindOrder, KindCustomer, KindReturn:
		return true
	default:
		return false
	}
}

// String returns the string representation of ResourceKind
func (k ResourceKind) String() string {
	return string(k)
}

// ParseResourceKind accepts the plural collection name as well as the singular form
func ParseResourceKind(s string) (ResourceKind, error) {
	switch s {
	case "orders", "order":
		return KindOrder, nil
	case "customers", "customer":
		return KindCustomer, nil
	case "returns", "return":
		return KindReturn, nil
	default:
		return "", fmt.Errorf("unknown resource kind %q", s)
	}
}

// DataSource records which writer produced the current state of a record
type DataSource string

const (
	SourceWebhook DataSource = "webhook"
	SourceSync    DataSource = "sync"
	SourceManual  DataSource = "manual"
)

// IsValid returns true if the source is known
func (s DataSource) IsValid() bool {
	switch s {
	case SourceWebhook, SourceSync, SourceManual:
		return true
	default:
		return false
	}
}

// Provenance is the metadata that says who last wrote a record and when
type Provenance struct {
	DataSource    DataSource `json:"data_source"`
	LastWebhookAt *time.Time `json:"last_webhook_at,omitempty"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
}

// Record is the locally persisted, processed representation of one upstream entity.
// Exactly one of Order, Customer, Return is set, matching Kind.
// UpdatedAt is the upstream entity's own last-modified time.
type Record struct {
	Kind       ResourceKind `json:"kind"`
	TenantID   string       `json:"tenant_id"`
	UpstreamID string       `json:"upstream_id"`
	Provenance Provenance   `json:"provenance"`
	UpdatedAt  time.Time    `json:"updated_at"`
	CreatedAt  time.Time    `json:"created_at"`

	Order    *Order    `json:"order,omitempty"`
	Customer *Customer `json:"customer,omitempty"`
	Return   *Return   `json:"return,omitempty"`
}

// RawSnapshot is the unprocessed copy of the last payload observed for a record
type RawSnapshot struct {
	Kind       ResourceKind `json:"kind"`
	TenantID   string       `json:"tenant_id"`
	UpstreamID string       `json:"upstream_id"`
	DataSource DataSource   `json:"data_source"`
	Topic      Topic        `json:"topic,omitempty"`
	DeliveryID string       `json:"delivery_id,omitempty"`
	Payload    []byte       `json:"payload"`
	ReceivedAt time.Time    `json:"received_at"`
}

// WriteResult is what the store reports for an atomic conditional upsert.
// WriteStale means the stored record is strictly newer than the candidate.
type WriteResult string

const (
	WriteCreated WriteResult = "created"
	WriteUpdated WriteResult = "updated"
	WriteStale   WriteResult = "stale"
)

// OutcomeKind classifies what the reconciliation engine did with an observation
type OutcomeKind string

const (
	OutcomeCreated OutcomeKind = "created"
	OutcomeUpdated OutcomeKind = "updated"
	OutcomeIgnored OutcomeKind = "ignored"
)

// IgnoreReason explains an ignored outcome. Ignoring is never an error.
type IgnoreReason string

const (
	IgnoreDuplicate   IgnoreReason = "duplicate"
	IgnoreSuperseded  IgnoreReason = "superseded by newer sync"
	IgnoreOlderData   IgnoreReason = "older data"
	IgnoreUnsupported IgnoreReason = "unsupported topic"
)

// Outcome is the result of applying one observation.
// Cascaded holds outcomes of embedded entities, e.g. an order's customer.
type Outcome struct {
	Kind       OutcomeKind  `json:"outcome"`
	Reason     IgnoreReason `json:"reason,omitempty"`
	Resource   ResourceKind `json:"resource,omitempty"`
	UpstreamID string       `json:"upstream_id,omitempty"`
	Cascaded   []Outcome    `json:"cascaded,omitempty"`
}

// Ignored reports whether the observation was left unapplied
func (o Outcome) Ignored() bool {
	return o.Kind == OutcomeIgnored
}

// Label renders the outcome the way it is reported to callers and metrics
func (o Outcome) Label() string {
	if o.Kind == OutcomeIgnored && o.Reason != "" {
		return string(o.Kind) + ": " + string(o.Reason)
	}
	return string(o.Kind)
}

// Delivery is the webhook metadata that accompanies a pushed payload
type Delivery struct {
	Topic      Topic
	DeliveryID string
	ReceivedAt time.Time
}

// Observation is one resource payload seen from either source
type Observation struct {
	TenantID string
	Kind     ResourceKind
	Source   DataSource
	Payload  []byte
	// Delivery is set only for webhook observations
	Delivery *Delivery
}
