package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"archie-core-shopify-sync/internal/application"
	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// Shopify webhook headers
const (
	HeaderTopic      = "X-Shopify-Topic"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderWebhookID  = "X-Shopify-Webhook-Id"
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
)

const maxWebhookBody = 5 << 20

// WebhookIngester processes one inbound delivery
type WebhookIngester interface {
	Ingest(ctx context.Context, req application.IngestRequest) (*domain.IngestResult, error)
}

// WebhookHandler is the single ingestion endpoint every subscription points at
type WebhookHandler struct {
	ingester WebhookIngester
	metrics  ports.Metrics
	logger   zerolog.Logger
	nowFunc  func() time.Time
}

// NewWebhookHandler creates a new webhook ingestion handler
func NewWebhookHandler(ingester WebhookIngester, metrics ports.Metrics, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		ingester: ingester,
		metrics:  metrics,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	receivedAt := h.nowFunc().UTC()

	// signature covers the exact raw bytes
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.observe("invalid")
		badRequest(w, "failed to read request body")
		return
	}

	req := application.IngestRequest{
		Topic:      r.Header.Get(HeaderTopic),
		ShopDomain: r.Header.Get(HeaderShopDomain),
		DeliveryID: r.Header.Get(HeaderWebhookID),
		Signature:  r.Header.Get(HeaderHmac),
		Body:       body,
		ReceivedAt: receivedAt,
	}

	result, err := h.ingester.Ingest(r.Context(), req)
	if err != nil {
		status, code := statusFor(err)
		h.observe(code)

		logEvent := h.logger.Warn()
		if status >= http.StatusInternalServerError {
			logEvent = h.logger.Error()
		}
		logEvent.Err(err).
			Str("topic", req.Topic).
			Str("shop", req.ShopDomain).
			Str("deliveryId", req.DeliveryID).
			Int("status", status).
			Msg("Webhook rejected")

		writeJSON(w, status, errorResponse{Error: code})
		return
	}

	h.observe(string(result.Outcome.Kind))
	writeJSON(w, http.StatusOK, result)
}

func (h *WebhookHandler) observe(result string) {
	if h.metrics != nil {
		h.metrics.WebhookRequest(result)
	}
}
