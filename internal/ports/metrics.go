package ports

import "time"

// Metrics receives the counters and timings the services emit
type Metrics interface {
	ReconcileOutcome(kind, source, outcome string)
	WebhookRequest(result string)
	BulkItems(kind string, n int)
	BulkRunDuration(kind string, d time.Duration)
	SubscriptionOperation(operation, result string)
}
