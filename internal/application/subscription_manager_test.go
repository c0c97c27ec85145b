package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"archie-core-shopify-sync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upstreamHook(id int64, topic domain.Topic, address string, createdAt time.Time) domain.UpstreamWebhook {
	return domain.UpstreamWebhook{ID: id, Topic: topic.String(), Address: address, Format: "json", CreatedAt: createdAt}
}

func webhookIDs(hooks []domain.UpstreamWebhook) []int64 {
	ids := make([]int64, len(hooks))
	for i, w := range hooks {
		ids[i] = w.ID
	}
	return ids
}

func TestSubscriptionManager_SetupIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	subs, err := h.subscriptions.Setup(ctx, testTenant, nil)
	require.NoError(t, err)
	assert.Len(t, subs, len(domain.DefaultTopics))
	assert.Len(t, h.client.created, len(domain.DefaultTopics))
	for _, s := range subs {
		assert.Equal(t, testAddr, s.Address)
		assert.Equal(t, testShop, s.ShopDomain)
		assert.NotEmpty(t, s.ID)
	}

	subs, err = h.subscriptions.Setup(ctx, testTenant, nil)
	require.NoError(t, err)
	assert.Len(t, subs, len(domain.DefaultTopics))
	assert.Len(t, h.client.created, len(domain.DefaultTopics), "second setup must not create anything")
	assert.Len(t, h.client.webhooks, len(domain.DefaultTopics))

	local, err := h.subscriptions.List(ctx, testTenant)
	require.NoError(t, err)
	assert.Len(t, local, len(domain.DefaultTopics))
}

func TestSubscriptionManager_SetupReusesOwnSubscription(t *testing.T) {
	h := newHarness(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.client.webhooks = []domain.UpstreamWebhook{
		upstreamHook(5, domain.TopicOrdersCreate, testAddr, created),
		upstreamHook(6, domain.TopicCustomersCreate, "https://other.example.com/hooks", created),
	}

	subs, err := h.subscriptions.Setup(context.Background(), testTenant,
		[]domain.Topic{domain.TopicOrdersCreate, domain.TopicCustomersCreate, domain.TopicOrdersCreate})
	require.NoError(t, err)

	require.Len(t, subs, 2)
	assert.Equal(t, int64(5), subs[0].WebhookID)
	assert.Equal(t, created, subs[0].CreatedAt)
	assert.Equal(t, []domain.Topic{domain.TopicCustomersCreate}, h.client.created)
	assert.NotEqual(t, int64(6), subs[1].WebhookID)
}

func TestSubscriptionManager_SetupPartialFailure(t *testing.T) {
	h := newHarness(t)
	h.client.createErr[domain.TopicCustomersCreate] = &domain.UpstreamError{Status: 422, Message: "address taken"}

	subs, err := h.subscriptions.Setup(context.Background(), testTenant,
		[]domain.Topic{domain.TopicOrdersCreate, domain.TopicCustomersCreate})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "customers/create")
	require.Len(t, subs, 1)
	assert.Equal(t, domain.TopicOrdersCreate, subs[0].Topic)
}

func TestSubscriptionManager_SetupErrors(t *testing.T) {
	t.Run("list failure", func(t *testing.T) {
		h := newHarness(t)
		h.client.listErr = domain.ErrUpstreamUnauthorized

		_, err := h.subscriptions.Setup(context.Background(), testTenant, nil)
		assert.ErrorIs(t, err, domain.ErrUpstreamUnauthorized)
		assert.Empty(t, h.client.created)
	})

	t.Run("missing access token", func(t *testing.T) {
		h := newHarness(t)
		h.integrations.integrations[testTenant].Credentials.AccessToken = ""
		h.integrations.integrations[testTenant].Credentials.APISecret = ""

		_, err := h.subscriptions.Setup(context.Background(), testTenant, nil)

		var incomplete *domain.IncompleteCredentialsError
		require.ErrorAs(t, err, &incomplete)
		assert.Equal(t, []domain.CredentialField{domain.CredentialAccessToken}, incomplete.Missing)
	})

	t.Run("unsupported topic", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.subscriptions.Setup(context.Background(), testTenant, []domain.Topic{"products/create"})
		assert.ErrorIs(t, err, domain.ErrInvalidPayload)
	})
}

func TestSubscriptionManager_CleanupDuplicates(t *testing.T) {
	h := newHarness(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.client.webhooks = []domain.UpstreamWebhook{
		upstreamHook(1, domain.TopicOrdersCreate, testAddr, base),
		upstreamHook(3, domain.TopicOrdersCreate, testAddr, base.Add(2*time.Hour)),
		upstreamHook(2, domain.TopicOrdersCreate, testAddr, base.Add(time.Hour)),
		upstreamHook(7, domain.TopicCustomersCreate, testAddr, base),
		upstreamHook(8, domain.TopicCustomersCreate, testAddr, base),
		upstreamHook(9, domain.TopicAppUninstalled, testAddr, base),
	}

	result, err := h.subscriptions.CleanupDuplicates(context.Background(), testTenant)
	require.NoError(t, err)

	assert.Equal(t, []int64{3, 8, 9}, webhookIDs(result.Kept))
	assert.Equal(t, []int64{2, 1, 7}, webhookIDs(result.Deleted))
	assert.Empty(t, result.Failed)
	assert.ElementsMatch(t, []int64{3, 8, 9}, webhookIDs(h.client.webhooks))
}

func TestSubscriptionManager_CleanupReportsDeleteFailures(t *testing.T) {
	h := newHarness(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.client.webhooks = []domain.UpstreamWebhook{
		upstreamHook(1, domain.TopicOrdersCreate, testAddr, base),
		upstreamHook(2, domain.TopicOrdersCreate, testAddr, base.Add(time.Hour)),
		upstreamHook(3, domain.TopicOrdersCreate, testAddr, base.Add(2*time.Hour)),
	}
	h.client.deleteErr[1] = &domain.UpstreamError{Status: 500}

	result, err := h.subscriptions.CleanupDuplicates(context.Background(), testTenant)
	require.NoError(t, err)

	assert.Equal(t, []int64{3}, webhookIDs(result.Kept))
	assert.Equal(t, []int64{2}, webhookIDs(result.Deleted))
	require.Len(t, result.Failed, 1)
	assert.Equal(t, int64(1), result.Failed[0].WebhookID)
}

func TestSubscriptionManager_Remove(t *testing.T) {
	t.Run("collects failures", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		_, err := h.subscriptions.Setup(ctx, testTenant, []domain.Topic{domain.TopicOrdersCreate, domain.TopicOrdersUpdated, domain.TopicAppUninstalled})
		require.NoError(t, err)
		failing := h.client.webhooks[1].ID
		h.client.deleteErr[failing] = fmt.Errorf("delete: %w", &domain.UpstreamError{Status: 500})

		result, err := h.subscriptions.Remove(ctx, testTenant)
		require.NoError(t, err)

		assert.False(t, result.Complete())
		assert.Len(t, result.Removed, 2)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, failing, result.Failures[0].WebhookID)

		local, err := h.subscriptions.List(ctx, testTenant)
		require.NoError(t, err)
		require.Len(t, local, 1)
		assert.Equal(t, failing, local[0].WebhookID)
	})

	t.Run("already gone upstream counts as removed", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		_, err := h.subscriptions.Setup(ctx, testTenant, []domain.Topic{domain.TopicOrdersCreate})
		require.NoError(t, err)
		h.client.deleteErr[h.client.webhooks[0].ID] = domain.ErrUpstreamNotFound

		result, err := h.subscriptions.Remove(ctx, testTenant)
		require.NoError(t, err)

		assert.True(t, result.Complete())
		assert.Len(t, result.Removed, 1)
		assert.Empty(t, h.subRepo.subs)
	})
}

func TestSubscriptionManager_Status(t *testing.T) {
	h := newHarness(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.client.webhooks = []domain.UpstreamWebhook{
		upstreamHook(1, domain.TopicOrdersCreate, testAddr, base),
		upstreamHook(2, domain.TopicOrdersCreate, testAddr, base),
		upstreamHook(3, domain.TopicOrdersUpdated, testAddr, base),
		upstreamHook(4, domain.TopicOrdersUpdated, "https://other.example.com", base),
	}

	status, err := h.subscriptions.Status(context.Background(), testTenant)
	require.NoError(t, err)

	assert.Equal(t, testAddr, status.Address)
	assert.Equal(t, map[string]int{"orders/create": 2, "orders/updated": 1}, status.Topics)
	assert.Equal(t, []string{"orders/create"}, status.Duplicates)
	assert.Equal(t, 1, status.Foreign)
	assert.NotContains(t, status.Missing, domain.TopicOrdersCreate)
	assert.Contains(t, status.Missing, domain.TopicCustomersCreate)
	assert.Len(t, status.Missing, len(domain.DefaultTopics)-2)
}
