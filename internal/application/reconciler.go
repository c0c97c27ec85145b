package application

import (
	"context"
	"fmt"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// Reconciler is the only writer of resource state. Webhooks and bulk sync both
// feed observations into Apply, and the stored record converges on the payload
// with the latest upstream updated_at regardless of arrival order.
type Reconciler struct {
	resources ports.ResourceRepository
	tracker   *IdempotencyTracker
	metrics   ports.Metrics
	logger    zerolog.Logger
	nowFunc   func() time.Time
}

// NewReconciler creates a new reconciliation engine
func NewReconciler(
	resources ports.ResourceRepository,
	tracker *IdempotencyTracker,
	metrics ports.Metrics,
	logger zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		resources: resources,
		tracker:   tracker,
		metrics:   metricsOrNop(metrics),
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// Apply decides whether an observation creates, updates or is ignored, and writes it
func (r *Reconciler) Apply(ctx context.Context, obs domain.Observation) (domain.Outcome, error) {
	if !obs.Kind.IsValid() {
		return domain.Outcome{}, fmt.Errorf("unknown resource kind %q: %w", obs.Kind, domain.ErrInvalidPayload)
	}
	if !obs.Source.IsValid() {
		return domain.Outcome{}, fmt.Errorf("unknown data source %q", obs.Source)
	}

	webhook := obs.Source == domain.SourceWebhook && obs.Delivery != nil

	if webhook && r.tracker.HasProcessed(ctx, obs.Delivery.DeliveryID) {
		outcome := domain.Outcome{
			Kind:       domain.OutcomeIgnored,
			Reason:     domain.IgnoreDuplicate,
			Resource:   obs.Kind,
			UpstreamID: peekUpstreamID(obs.Payload),
		}
		r.record(obs, outcome)
		return outcome, nil
	}

	now := r.nowFunc().UTC()
	observedAt := now
	if webhook && !obs.Delivery.ReceivedAt.IsZero() {
		observedAt = obs.Delivery.ReceivedAt.UTC()
	}

	n, err := normalize(obs.Kind, obs.Payload, observedAt)
	if err != nil {
		return domain.Outcome{}, err
	}

	if webhook {
		existing, err := r.resources.Get(ctx, obs.TenantID, obs.Kind, n.record.UpstreamID)
		if err != nil {
			return domain.Outcome{}, fmt.Errorf("failed to load existing %s %s: %w", obs.Kind, n.record.UpstreamID, err)
		}
		// Any record a bulk import has touched is authoritative for older webhooks
		if existing != nil &&
			existing.Provenance.LastSyncAt != nil &&
			existing.UpdatedAt.After(n.record.UpdatedAt) {
			outcome := domain.Outcome{
				Kind:       domain.OutcomeIgnored,
				Reason:     domain.IgnoreSuperseded,
				Resource:   obs.Kind,
				UpstreamID: n.record.UpstreamID,
			}
			r.record(obs, outcome)
			return outcome, nil
		}
	}

	outcome, err := r.write(ctx, obs, n.record, obs.Payload, now, observedAt)
	if err != nil {
		return domain.Outcome{}, err
	}

	for _, e := range n.embedded {
		sub, err := normalize(e.kind, e.payload, observedAt)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("tenantId", obs.TenantID).
				Str("parent", n.record.UpstreamID).
				Str("kind", e.kind.String()).
				Msg("Skipping embedded entity")
			continue
		}
		cascaded, err := r.write(ctx, obs, sub.record, e.payload, now, observedAt)
		if err != nil {
			return domain.Outcome{}, fmt.Errorf("failed to apply embedded %s of %s %s: %w", e.kind, obs.Kind, n.record.UpstreamID, err)
		}
		outcome.Cascaded = append(outcome.Cascaded, cascaded)
	}

	if webhook && !outcome.Ignored() {
		r.tracker.MarkProcessed(ctx, obs.Delivery.DeliveryID, obs.Delivery.Topic, n.record.UpstreamID, obs.TenantID)
	}

	return outcome, nil
}

// write stores the raw snapshot and then the record through the atomic conditional upsert
func (r *Reconciler) write(ctx context.Context, obs domain.Observation, rec *domain.Record, payload []byte, now, observedAt time.Time) (domain.Outcome, error) {
	rec.TenantID = obs.TenantID
	rec.Provenance = domain.Provenance{DataSource: obs.Source}
	switch obs.Source {
	case domain.SourceWebhook:
		rec.Provenance.LastWebhookAt = &now
	case domain.SourceSync:
		rec.Provenance.LastSyncAt = &now
	}

	snapshot := &domain.RawSnapshot{
		Kind:       rec.Kind,
		TenantID:   obs.TenantID,
		UpstreamID: rec.UpstreamID,
		DataSource: obs.Source,
		Payload:    payload,
		ReceivedAt: observedAt,
	}
	if obs.Delivery != nil {
		snapshot.Topic = obs.Delivery.Topic
		snapshot.DeliveryID = obs.Delivery.DeliveryID
	}
	if err := r.resources.SaveSnapshot(ctx, snapshot); err != nil {
		return domain.Outcome{}, fmt.Errorf("failed to save raw snapshot: %w", err)
	}

	result, err := r.resources.Upsert(ctx, rec)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("failed to upsert %s %s: %w", rec.Kind, rec.UpstreamID, err)
	}

	outcome := domain.Outcome{Resource: rec.Kind, UpstreamID: rec.UpstreamID}
	switch result {
	case domain.WriteCreated:
		outcome.Kind = domain.OutcomeCreated
	case domain.WriteUpdated:
		outcome.Kind = domain.OutcomeUpdated
	case domain.WriteStale:
		outcome.Kind = domain.OutcomeIgnored
		outcome.Reason = domain.IgnoreOlderData
	default:
		return domain.Outcome{}, fmt.Errorf("unexpected write result %q", result)
	}

	r.record(domain.Observation{TenantID: obs.TenantID, Kind: rec.Kind, Source: obs.Source}, outcome)
	return outcome, nil
}

func (r *Reconciler) record(obs domain.Observation, outcome domain.Outcome) {
	r.metrics.ReconcileOutcome(obs.Kind.String(), string(obs.Source), outcome.Label())
	r.logger.Debug().
		Str("tenantId", obs.TenantID).
		Str("kind", obs.Kind.String()).
		Str("source", string(obs.Source)).
		Str("upstreamId", outcome.UpstreamID).
		Str("outcome", outcome.Label()).
		Msg("Observation reconciled")
}

// Delete removes a record on explicit request
func (r *Reconciler) Delete(ctx context.Context, tenantID string, kind domain.ResourceKind, upstreamID string) error {
	if !kind.IsValid() {
		return fmt.Errorf("unknown resource kind %q: %w", kind, domain.ErrInvalidPayload)
	}

	deleted, err := r.resources.Delete(ctx, tenantID, kind, upstreamID)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, upstreamID, err)
	}
	if !deleted {
		return fmt.Errorf("%s %s: %w", kind, upstreamID, domain.ErrNotFound)
	}

	r.logger.Info().Str("tenantId", tenantID).Str("kind", kind.String()).Str("upstreamId", upstreamID).Msg("Record deleted")
	return nil
}
