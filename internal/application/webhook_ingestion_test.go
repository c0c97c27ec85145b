package application

import (
	"context"
	"testing"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/infrastructure/shopify"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	topics  []domain.Topic
	events  []*domain.WebhookEvent
	outcome domain.Outcome
	err     error
}

func (h *recordingHandler) CanHandle(topic domain.Topic) bool {
	for _, t := range h.topics {
		if t == topic {
			return true
		}
	}
	return false
}

func (h *recordingHandler) Handle(_ context.Context, event *domain.WebhookEvent) (domain.Outcome, error) {
	h.events = append(h.events, event)
	return h.outcome, h.err
}

func newIngestion(t *testing.T) (*harness, *WebhookIngestionService, *recordingHandler) {
	t.Helper()
	h := newHarness(t)
	handler := &recordingHandler{
		topics:  []domain.Topic{domain.TopicOrdersUpdated},
		outcome: domain.Outcome{Kind: domain.OutcomeUpdated, Resource: domain.KindOrder, UpstreamID: "1001"},
	}
	dispatcher := NewWebhookDispatcher(zerolog.Nop())
	dispatcher.RegisterHandler(handler)
	return h, NewWebhookIngestionService(h.credentials, shopify.NewWebhookVerifier(), dispatcher, zerolog.Nop()), handler
}

func signedRequest(topic, body string) IngestRequest {
	return IngestRequest{
		Topic:      topic,
		ShopDomain: testShop,
		DeliveryID: "delivery-1",
		Signature:  shopify.Sign([]byte(body), testSecret),
		Body:       []byte(body),
		ReceivedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600)),
	}
}

func TestWebhookIngestion_Dispatches(t *testing.T) {
	_, svc, handler := newIngestion(t)
	req := signedRequest("orders/updated", orderJSON(1001, "2024-01-01T10:00:00Z"))
	req.ShopDomain = " ACME.myshopify.com"

	result, err := svc.Ingest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "orders/updated", result.Topic)
	assert.Equal(t, "delivery-1", result.DeliveryID)
	assert.Equal(t, domain.OutcomeUpdated, result.Outcome.Kind)

	require.Len(t, handler.events, 1)
	event := handler.events[0]
	assert.Equal(t, domain.TopicOrdersUpdated, event.Topic)
	assert.Equal(t, testTenant, event.TenantID)
	assert.Equal(t, testShop, event.ShopDomain)
	assert.Equal(t, time.UTC, event.ReceivedAt.Location())
	assert.Equal(t, 11, event.ReceivedAt.Hour())
}

func TestWebhookIngestion_Rejections(t *testing.T) {
	t.Run("unknown shop", func(t *testing.T) {
		_, svc, handler := newIngestion(t)
		req := signedRequest("orders/updated", `{"id":1}`)
		req.ShopDomain = "other.myshopify.com"

		_, err := svc.Ingest(context.Background(), req)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Empty(t, handler.events)
	})

	t.Run("bad signature", func(t *testing.T) {
		_, svc, handler := newIngestion(t)
		req := signedRequest("orders/updated", `{"id":1}`)
		req.Body = []byte(`{"id":2}`)

		_, err := svc.Ingest(context.Background(), req)
		assert.ErrorIs(t, err, domain.ErrVerificationFailed)
		assert.Empty(t, handler.events)
	})

	t.Run("no webhook secret configured", func(t *testing.T) {
		h, svc, _ := newIngestion(t)
		h.integrations.integrations[testTenant].Credentials.WebhookSecret = ""

		_, err := svc.Ingest(context.Background(), signedRequest("orders/updated", `{"id":1}`))
		assert.ErrorIs(t, err, domain.ErrVerificationFailed)
	})

	t.Run("handler failure", func(t *testing.T) {
		_, svc, handler := newIngestion(t)
		handler.err = domain.ErrInvalidPayload

		_, err := svc.Ingest(context.Background(), signedRequest("orders/updated", `{}`))
		assert.ErrorIs(t, err, domain.ErrInvalidPayload)
	})
}

func TestWebhookIngestion_UnsupportedTopicsAreAcknowledged(t *testing.T) {
	_, svc, handler := newIngestion(t)

	result, err := svc.Ingest(context.Background(), signedRequest("products/create", `{"id":1}`))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeIgnored, result.Outcome.Kind)
	assert.Equal(t, domain.IgnoreUnsupported, result.Outcome.Reason)

	// supported topic without a registered handler
	result, err = svc.Ingest(context.Background(), signedRequest("customers/create", `{"id":1}`))
	require.NoError(t, err)
	assert.Equal(t, domain.IgnoreUnsupported, result.Outcome.Reason)
	assert.Empty(t, handler.events)
}

func TestCredentialsService_GetCredentials(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.integrations.integrations[testTenant].Credentials.ShopDomain = ""

	creds, err := h.credentials.GetCredentials(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, testShop, creds.ShopDomain)

	h.integrations.integrations[testTenant].Credentials = domain.Credentials{AccessToken: "tok"}
	creds, err = h.credentials.GetCredentials(ctx, testTenant, domain.SubscriptionCredentialFields...)
	require.NoError(t, err)
	assert.Equal(t, "tok", creds.AccessToken)

	_, err = h.credentials.GetCredentials(ctx, testTenant)
	var incomplete *domain.IncompleteCredentialsError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []domain.CredentialField{
		domain.CredentialAPIKey,
		domain.CredentialAPISecret,
		domain.CredentialAPIVersion,
		domain.CredentialWebhookSecret,
	}, incomplete.Missing)

	_, err = h.credentials.GetCredentials(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCredentialsService_RotateCredentials(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	next := testIntegration().Credentials
	next.AccessToken = "shpat_rotated"
	next.ShopDomain = ""

	require.NoError(t, h.credentials.RotateCredentials(ctx, testTenant, next))
	stored := h.integrations.integrations[testTenant].Credentials
	assert.Equal(t, "shpat_rotated", stored.AccessToken)
	assert.Equal(t, testShop, stored.ShopDomain)

	err := h.credentials.RotateCredentials(ctx, testTenant, domain.Credentials{AccessToken: "only"})
	var incomplete *domain.IncompleteCredentialsError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, "shpat_rotated", h.integrations.integrations[testTenant].Credentials.AccessToken)
}

func TestIdempotencyTracker(t *testing.T) {
	store := newFakeTicketStore()
	tracker := NewIdempotencyTracker(store, time.Hour, zerolog.Nop())
	ctx := context.Background()

	assert.False(t, tracker.HasProcessed(ctx, "d1"))
	tracker.MarkProcessed(ctx, "d1", domain.TopicOrdersCreate, "1001", testTenant)
	assert.True(t, tracker.HasProcessed(ctx, "d1"))

	// empty delivery ids are never tracked
	tracker.MarkProcessed(ctx, "", domain.TopicOrdersCreate, "1001", testTenant)
	assert.False(t, tracker.HasProcessed(ctx, ""))
	assert.Len(t, store.tickets, 1)

	store.err = errBoom
	assert.False(t, tracker.HasProcessed(ctx, "d1"))
	tracker.MarkProcessed(ctx, "d2", domain.TopicOrdersCreate, "1002", testTenant)
}
