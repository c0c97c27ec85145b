package application

import (
	"context"
	"fmt"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// IngestRequest is one inbound webhook call as received
type IngestRequest struct {
	Topic      string
	ShopDomain string
	DeliveryID string
	Signature  string
	Body       []byte
	ReceivedAt time.Time
}

// WebhookIngestionService takes an inbound delivery through
// resolve tenant, verify, dispatch and acknowledge
type WebhookIngestionService struct {
	credentials *CredentialsService
	verifier    ports.WebhookVerifier
	dispatcher  *WebhookDispatcher
	logger      zerolog.Logger
	nowFunc     func() time.Time
}

// NewWebhookIngestionService creates a new ingestion service
func NewWebhookIngestionService(
	credentials *CredentialsService,
	verifier ports.WebhookVerifier,
	dispatcher *WebhookDispatcher,
	logger zerolog.Logger,
) *WebhookIngestionService {
	return &WebhookIngestionService{
		credentials: credentials,
		verifier:    verifier,
		dispatcher:  dispatcher,
		logger:      logger,
		nowFunc:     time.Now,
	}
}

// Ingest processes one delivery. It fails with domain.ErrNotFound when the shop
// is unknown and domain.ErrVerificationFailed when the signature does not match.
// Every ignored outcome is a success.
func (s *WebhookIngestionService) Ingest(ctx context.Context, req IngestRequest) (*domain.IngestResult, error) {
	integration, err := s.credentials.ResolveByShopDomain(ctx, req.ShopDomain)
	if err != nil {
		return nil, err
	}
	tenantID := integration.ID

	creds, err := s.credentials.GetCredentials(ctx, tenantID, domain.WebhookCredentialFields...)
	if err != nil {
		s.logger.Warn().Err(err).Str("tenantId", tenantID).Msg("Webhook secret not configured")
		return nil, fmt.Errorf("%w: %v", domain.ErrVerificationFailed, err)
	}
	if err := s.verifier.Verify(req.Body, req.Signature, creds.WebhookSecret); err != nil {
		s.logger.Warn().Err(err).Str("tenantId", tenantID).Str("topic", req.Topic).Msg("Webhook signature verification failed")
		return nil, err
	}

	result := &domain.IngestResult{Topic: req.Topic, DeliveryID: req.DeliveryID}

	topic, ok := domain.ParseTopic(req.Topic)
	if !ok {
		result.Outcome = domain.Outcome{Kind: domain.OutcomeIgnored, Reason: domain.IgnoreUnsupported}
		s.logger.Info().Str("tenantId", tenantID).Str("topic", req.Topic).Msg("Ignoring unsupported webhook topic")
		return result, nil
	}

	receivedAt := req.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.nowFunc()
	}
	event := &domain.WebhookEvent{
		Topic:      topic,
		RawTopic:   req.Topic,
		ShopDomain: integration.ShopDomain,
		TenantID:   tenantID,
		DeliveryID: req.DeliveryID,
		Payload:    req.Body,
		ReceivedAt: receivedAt.UTC(),
	}

	outcome, err := s.dispatcher.Dispatch(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to process %s webhook: %w", topic, err)
	}
	result.Outcome = outcome

	s.logger.Info().
		Str("tenantId", tenantID).
		Str("topic", topic.String()).
		Str("deliveryId", req.DeliveryID).
		Str("upstreamId", outcome.UpstreamID).
		Str("result", outcome.Label()).
		Msg("Webhook processed")

	return result, nil
}
