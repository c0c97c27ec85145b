package application

import (
	"time"

	"archie-core-shopify-sync/internal/ports"
)

type nopMetrics struct{}

func (nopMetrics) ReconcileOutcome(string, string, string) {}
func (nopMetrics) WebhookRequest(string)                   {}
func (nopMetrics) BulkItems(string, int)                   {}
func (nopMetrics) BulkRunDuration(string, time.Duration)   {}
func (nopMetrics) SubscriptionOperation(string, string)    {}

func metricsOrNop(m ports.Metrics) ports.Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
