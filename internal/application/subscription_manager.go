package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// SubscriptionManager keeps the platform-side webhook subscriptions of a tenant
// pointing at our single ingestion address, one per topic.
type SubscriptionManager struct {
	credentials *CredentialsService
	client      ports.ShopifyClient
	subRepo     ports.WebhookSubscriptionRepository
	metrics     ports.Metrics
	address     string
	logger      zerolog.Logger
	nowFunc     func() time.Time
}

// NewSubscriptionManager creates a new subscription manager. address is the
// fixed ingestion URL every subscription is registered with.
func NewSubscriptionManager(
	credentials *CredentialsService,
	client ports.ShopifyClient,
	subRepo ports.WebhookSubscriptionRepository,
	metrics ports.Metrics,
	address string,
	logger zerolog.Logger,
) *SubscriptionManager {
	return &SubscriptionManager{
		credentials: credentials,
		client:      client,
		subRepo:     subRepo,
		metrics:     metricsOrNop(metrics),
		address:     address,
		logger:      logger,
		nowFunc:     time.Now,
	}
}

// Setup makes sure one subscription exists per topic. Existing subscriptions
// to our address are reused, so calling it repeatedly creates nothing new.
func (m *SubscriptionManager) Setup(ctx context.Context, tenantID string, topics []domain.Topic) ([]*domain.WebhookSubscription, error) {
	creds, err := m.credentials.GetCredentials(ctx, tenantID, domain.SubscriptionCredentialFields...)
	if err != nil {
		return nil, err
	}

	if len(topics) == 0 {
		topics = domain.DefaultTopics
	}
	topics, err = uniqueTopics(topics)
	if err != nil {
		return nil, err
	}

	upstream, err := m.client.ListWebhooks(ctx, creds)
	if err != nil {
		m.metrics.SubscriptionOperation("setup", "failed")
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}

	ours := make(map[string]domain.UpstreamWebhook)
	for _, w := range upstream {
		if w.Address != m.address {
			continue
		}
		if current, ok := ours[w.Topic]; !ok || newer(w, current) {
			ours[w.Topic] = w
		}
	}

	var subs []*domain.WebhookSubscription
	var errs []error
	for _, topic := range topics {
		w, exists := ours[topic.String()]
		if exists {
			m.metrics.SubscriptionOperation("setup", "reused")
			m.logger.Debug().Str("tenantId", tenantID).Str("topic", topic.String()).Int64("webhookId", w.ID).Msg("Webhook subscription already exists")
		} else {
			created, err := m.client.CreateWebhook(ctx, creds, topic, m.address)
			if err != nil {
				m.metrics.SubscriptionOperation("setup", "failed")
				m.logger.Error().Err(err).Str("tenantId", tenantID).Str("topic", topic.String()).Msg("Failed to create webhook subscription")
				errs = append(errs, fmt.Errorf("topic %s: %w", topic, err))
				continue
			}
			w = *created
			m.metrics.SubscriptionOperation("setup", "created")
			m.logger.Info().Str("tenantId", tenantID).Str("topic", topic.String()).Int64("webhookId", w.ID).Msg("Webhook subscription created")
		}

		sub := m.toSubscription(tenantID, creds.ShopDomain, topic, w)
		if err := m.subRepo.Save(ctx, sub); err != nil {
			errs = append(errs, fmt.Errorf("failed to record subscription %s: %w", topic, err))
			continue
		}
		subs = append(subs, sub)
	}

	return subs, errors.Join(errs...)
}

// CleanupDuplicates keeps the most recently created subscription per topic
// and deletes the rest. Equal creation times keep the higher id.
func (m *SubscriptionManager) CleanupDuplicates(ctx context.Context, tenantID string) (*domain.CleanupResult, error) {
	creds, err := m.credentials.GetCredentials(ctx, tenantID, domain.SubscriptionCredentialFields...)
	if err != nil {
		return nil, err
	}

	upstream, err := m.client.ListWebhooks(ctx, creds)
	if err != nil {
		m.metrics.SubscriptionOperation("cleanup", "failed")
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}

	byTopic := make(map[string][]domain.UpstreamWebhook)
	var order []string
	for _, w := range upstream {
		if _, ok := byTopic[w.Topic]; !ok {
			order = append(order, w.Topic)
		}
		byTopic[w.Topic] = append(byTopic[w.Topic], w)
	}

	result := &domain.CleanupResult{
		Kept:    []domain.UpstreamWebhook{},
		Deleted: []domain.UpstreamWebhook{},
	}
	for _, topic := range order {
		group := byTopic[topic]
		sort.Slice(group, func(i, j int) bool { return newer(group[i], group[j]) })
		result.Kept = append(result.Kept, group[0])

		for _, dup := range group[1:] {
			if err := m.client.DeleteWebhook(ctx, creds, dup.ID); err != nil {
				m.metrics.SubscriptionOperation("cleanup", "failed")
				m.logger.Error().Err(err).Str("tenantId", tenantID).Str("topic", topic).Int64("webhookId", dup.ID).Msg("Failed to delete duplicate webhook")
				result.Failed = append(result.Failed, domain.SubscriptionFailure{WebhookID: dup.ID, Topic: topic, Error: err.Error()})
				continue
			}
			if err := m.subRepo.DeleteByWebhookID(ctx, tenantID, dup.ID); err != nil {
				m.logger.Warn().Err(err).Int64("webhookId", dup.ID).Msg("Failed to delete local subscription record")
			}
			m.metrics.SubscriptionOperation("cleanup", "deleted")
			result.Deleted = append(result.Deleted, dup)
		}
	}

	m.logger.Info().
		Str("tenantId", tenantID).
		Int("kept", len(result.Kept)).
		Int("deleted", len(result.Deleted)).
		Int("failed", len(result.Failed)).
		Msg("Duplicate webhook cleanup finished")

	return result, nil
}

// Remove deletes every subscription of the tenant. Individual failures are
// collected in the result instead of aborting the rest.
func (m *SubscriptionManager) Remove(ctx context.Context, tenantID string) (*domain.RemovalResult, error) {
	creds, err := m.credentials.GetCredentials(ctx, tenantID, domain.SubscriptionCredentialFields...)
	if err != nil {
		return nil, err
	}

	upstream, err := m.client.ListWebhooks(ctx, creds)
	if err != nil {
		m.metrics.SubscriptionOperation("remove", "failed")
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}

	result := &domain.RemovalResult{Removed: []int64{}}
	for _, w := range upstream {
		if err := m.client.DeleteWebhook(ctx, creds, w.ID); err != nil && !errors.Is(err, domain.ErrUpstreamNotFound) {
			m.metrics.SubscriptionOperation("remove", "failed")
			result.Failures = append(result.Failures, domain.SubscriptionFailure{WebhookID: w.ID, Topic: w.Topic, Error: err.Error()})
			continue
		}
		if err := m.subRepo.DeleteByWebhookID(ctx, tenantID, w.ID); err != nil {
			m.logger.Warn().Err(err).Int64("webhookId", w.ID).Msg("Failed to delete local subscription record")
		}
		m.metrics.SubscriptionOperation("remove", "deleted")
		result.Removed = append(result.Removed, w.ID)
	}

	if result.Complete() {
		if _, err := m.subRepo.DeleteByTenant(ctx, tenantID); err != nil {
			m.logger.Warn().Err(err).Str("tenantId", tenantID).Msg("Failed to clear local subscription records")
		}
	}

	m.logger.Info().
		Str("tenantId", tenantID).
		Int("removed", len(result.Removed)).
		Int("failures", len(result.Failures)).
		Msg("Webhook subscriptions removed")

	return result, nil
}

// Status reports per-topic counts, duplicated topics and default topics with no subscription
func (m *SubscriptionManager) Status(ctx context.Context, tenantID string) (*domain.SubscriptionStatus, error) {
	creds, err := m.credentials.GetCredentials(ctx, tenantID, domain.SubscriptionCredentialFields...)
	if err != nil {
		return nil, err
	}

	upstream, err := m.client.ListWebhooks(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}

	status := &domain.SubscriptionStatus{
		TenantID: tenantID,
		Address:  m.address,
		Topics:   make(map[string]int),
	}
	for _, w := range upstream {
		if w.Address != m.address {
			status.Foreign++
			continue
		}
		status.Topics[w.Topic]++
	}
	for topic, count := range status.Topics {
		if count > 1 {
			status.Duplicates = append(status.Duplicates, topic)
		}
	}
	sort.Strings(status.Duplicates)
	for _, topic := range domain.DefaultTopics {
		if status.Topics[topic.String()] == 0 {
			status.Missing = append(status.Missing, topic)
		}
	}

	return status, nil
}

// List returns the subscriptions recorded locally for a tenant
func (m *SubscriptionManager) List(ctx context.Context, tenantID string) ([]*domain.WebhookSubscription, error) {
	subs, err := m.subRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list local subscriptions: %w", err)
	}
	return subs, nil
}

// Forget drops the local subscription records of a tenant without calling the platform
func (m *SubscriptionManager) Forget(ctx context.Context, tenantID string) (int64, error) {
	n, err := m.subRepo.DeleteByTenant(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete local subscriptions: %w", err)
	}
	return n, nil
}

func (m *SubscriptionManager) toSubscription(tenantID, shopDomain string, topic domain.Topic, w domain.UpstreamWebhook) *domain.WebhookSubscription {
	now := m.nowFunc().UTC()
	createdAt := w.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return &domain.WebhookSubscription{
		TenantID:   tenantID,
		ShopDomain: shopDomain,
		WebhookID:  w.ID,
		Topic:      topic,
		Address:    w.Address,
		Format:     w.Format,
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	}
}

// newer orders subscriptions latest-created first, breaking ties on the higher id
func newer(a, b domain.UpstreamWebhook) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func uniqueTopics(topics []domain.Topic) ([]domain.Topic, error) {
	seen := make(map[domain.Topic]bool, len(topics))
	out := make([]domain.Topic, 0, len(topics))
	for _, t := range topics {
		if !t.IsValid() {
			return nil, fmt.Errorf("unsupported topic %q: %w", t, domain.ErrInvalidPayload)
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}
