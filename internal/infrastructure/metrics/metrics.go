package metrics

import (
	"net/http"
	"time"

	"archie-core-shopify-sync/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shopify_sync"

// Prometheus implements ports.Metrics on its own registry
type Prometheus struct {
	registry *prometheus.Registry

	reconcileOutcomes *prometheus.CounterVec
	webhookRequests   *prometheus.CounterVec
	bulkItems         *prometheus.CounterVec
	bulkRunDuration   *prometheus.HistogramVec
	subscriptionOps   *prometheus.CounterVec
}

// NewPrometheus registers the service metrics plus the Go and process collectors
func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Prometheus{
		registry: registry,
		reconcileOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_outcomes_total",
			Help:      "Observations applied by the reconciliation engine, by outcome.",
		}, []string{"kind", "source", "outcome"}),
		webhookRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_requests_total",
			Help:      "Inbound webhook calls by result.",
		}, []string{"result"}),
		bulkItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_items_total",
			Help:      "Items processed by bulk sync runs.",
		}, []string{"kind"}),
		bulkRunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bulk_run_duration_seconds",
			Help:      "Duration of one resource kind within a bulk sync run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"kind"}),
		subscriptionOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_operations_total",
			Help:      "Webhook subscription operations by result.",
		}, []string{"operation", "result"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) ReconcileOutcome(kind, source, outcome string) {
	p.reconcileOutcomes.WithLabelValues(kind, source, outcome).Inc()
}

func (p *Prometheus) WebhookRequest(result string) {
	p.webhookRequests.WithLabelValues(result).Inc()
}

func (p *Prometheus) BulkItems(kind string, n int) {
	p.bulkItems.WithLabelValues(kind).Add(float64(n))
}

func (p *Prometheus) BulkRunDuration(kind string, d time.Duration) {
	p.bulkRunDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *Prometheus) SubscriptionOperation(operation, result string) {
	p.subscriptionOps.WithLabelValues(operation, result).Inc()
}

var _ ports.Metrics = (*Prometheus)(nil)
