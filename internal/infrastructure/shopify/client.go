package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// MaxPageSize is the largest page the Admin REST API returns
const MaxPageSize = 250

var resourcePaths = map[domain.ResourceKind]string{
	domain.KindOrder:    "orders.json",
	domain.KindCustomer: "customers.json",
	domain.KindReturn:   "returns.json",
}

// pageOptions is encoded into the query string by go-shopify.
// The API rejects filters next to page_info, so Status is only sent on the first page.
type pageOptions struct {
	PageInfo string `url:"page_info,omitempty"`
	Limit    int    `url:"limit,omitempty"`
	Status   string `url:"status,omitempty"`
}

type webhookListOptions struct {
	Limit int `url:"limit,omitempty"`
}

type client struct {
	apiVersion string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a Shopify Admin API adapter. apiVersion is used for
// tenants whose credentials carry none; httpClient may be nil.
func NewClient(apiVersion string, httpClient *http.Client, logger zerolog.Logger) ports.ShopifyClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &client{
		apiVersion: apiVersion,
		httpClient: httpClient,
		logger:     logger,
	}
}

// createClient is a helper to create a goshopify client for one tenant
func (c *client) createClient(creds *domain.Credentials) (*goshopify.Client, error) {
	app := goshopify.App{
		ApiKey:    creds.APIKey,
		ApiSecret: creds.APISecret,
	}
	version := creds.APIVersion
	if version == "" {
		version = c.apiVersion
	}

	client, err := goshopify.NewClient(app, creds.ShopDomain, creds.AccessToken, goshopify.WithVersion(version))
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	client.Client = c.httpClient
	return client, nil
}

// Resource listing

func (c *client) BuildPageRequest(kind domain.ResourceKind, cursor string, limit int) domain.PageRequest {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	return domain.PageRequest{
		Kind:   kind,
		Path:   resourcePaths[kind],
		Cursor: cursor,
		Limit:  limit,
	}
}

func (c *client) FetchPage(ctx context.Context, creds *domain.Credentials, req domain.PageRequest) (*domain.Page, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("no listing path for resource kind %q", req.Kind)
	}
	client, err := c.createClient(creds)
	if err != nil {
		return nil, err
	}

	opts := pageOptions{PageInfo: req.Cursor, Limit: req.Limit}
	if req.Cursor == "" {
		opts.Status = "any"
	}

	body := map[string][]json.RawMessage{}
	pagination, err := client.ListWithPagination(ctx, req.Path, &body, opts)
	if err != nil {
		return nil, mapError(err)
	}

	raw := body[req.Kind.String()]
	page := &domain.Page{Items: make([][]byte, 0, len(raw))}
	for _, item := range raw {
		page.Items = append(page.Items, []byte(item))
	}
	if pagination != nil && pagination.NextPageOptions != nil {
		page.NextCursor = pagination.NextPageOptions.PageInfo
	}

	c.logger.Debug().
		Str("shop", creds.ShopDomain).
		Str("kind", req.Kind.String()).
		Int("items", len(page.Items)).
		Bool("hasNext", page.HasNext()).
		Msg("Fetched page")

	return page, nil
}

// Webhook API

func (c *client) ListWebhooks(ctx context.Context, creds *domain.Credentials) ([]domain.UpstreamWebhook, error) {
	client, err := c.createClient(creds)
	if err != nil {
		return nil, err
	}
	webhooks, err := client.Webhook.List(ctx, webhookListOptions{Limit: MaxPageSize})
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", mapError(err))
	}

	out := make([]domain.UpstreamWebhook, 0, len(webhooks))
	for _, w := range webhooks {
		out = append(out, toUpstreamWebhook(w))
	}
	return out, nil
}

func (c *client) CreateWebhook(ctx context.Context, creds *domain.Credentials, topic domain.Topic, address string) (*domain.UpstreamWebhook, error) {
	client, err := c.createClient(creds)
	if err != nil {
		return nil, err
	}
	webhook := goshopify.Webhook{
		Topic:   topic.String(),
		Address: address,
		Format:  "json",
	}
	created, err := client.Webhook.Create(ctx, webhook)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", mapError(err))
	}
	w := toUpstreamWebhook(*created)
	return &w, nil
}

func (c *client) DeleteWebhook(ctx context.Context, creds *domain.Credentials, webhookID int64) error {
	client, err := c.createClient(creds)
	if err != nil {
		return err
	}
	if err := client.Webhook.Delete(ctx, uint64(webhookID)); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", mapError(err))
	}
	return nil
}

func toUpstreamWebhook(w goshopify.Webhook) domain.UpstreamWebhook {
	out := domain.UpstreamWebhook{
		ID:      int64(w.Id),
		Topic:   w.Topic,
		Address: w.Address,
		Format:  w.Format,
	}
	if w.CreatedAt != nil {
		out.CreatedAt = w.CreatedAt.UTC()
	}
	return out
}

// mapError translates go-shopify response errors into domain errors
func mapError(err error) error {
	if rl, ok := asRateLimit(err); ok {
		return &domain.RateLimitError{RetryAfter: rl.RetryAfter}
	}

	re, ok := asResponseError(err)
	if !ok {
		return &domain.UpstreamError{Message: err.Error()}
	}

	switch re.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUpstreamUnauthorized, re.Error())
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrUpstreamNotFound, re.Error())
	case http.StatusTooManyRequests:
		return &domain.RateLimitError{}
	default:
		return &domain.UpstreamError{Status: re.Status, Message: re.Error()}
	}
}

func asRateLimit(err error) (goshopify.RateLimitError, bool) {
	var value goshopify.RateLimitError
	if errors.As(err, &value) {
		return value, true
	}
	var ptr *goshopify.RateLimitError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return goshopify.RateLimitError{}, false
}

func asResponseError(err error) (goshopify.ResponseError, bool) {
	var value goshopify.ResponseError
	if errors.As(err, &value) {
		return value, true
	}
	var ptr *goshopify.ResponseError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return goshopify.ResponseError{}, false
}
