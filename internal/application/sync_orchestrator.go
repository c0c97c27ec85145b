package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SyncConfig bounds a bulk sync run. MaxItems caps the items fetched across
// every kind of one run.
type SyncConfig struct {
	PageSize         int
	PageDelay        time.Duration
	MaxItems         int
	RateLimitRetries int
}

// DefaultSyncConfig returns the limits used when none are configured
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		PageSize:         250,
		PageDelay:        500 * time.Millisecond,
		MaxItems:         10000,
		RateLimitRetries: 5,
	}
}

// SyncOrchestrator pages through every requested resource kind and feeds
// each item to the Reconciler. Kinds run concurrently and fail independently.
type SyncOrchestrator struct {
	credentials     *CredentialsService
	integrationRepo ports.IntegrationRepository
	client          ports.ShopifyClient
	reconciler      *Reconciler
	analytics       ports.AnalyticsRefresher
	metrics         ports.Metrics
	cfg             SyncConfig
	logger          zerolog.Logger
	nowFunc         func() time.Time
	sleep           func(ctx context.Context, d time.Duration) error
}

// NewSyncOrchestrator creates a new bulk sync orchestrator
func NewSyncOrchestrator(
	credentials *CredentialsService,
	integrationRepo ports.IntegrationRepository,
	client ports.ShopifyClient,
	reconciler *Reconciler,
	analytics ports.AnalyticsRefresher,
	metrics ports.Metrics,
	cfg SyncConfig,
	logger zerolog.Logger,
) *SyncOrchestrator {
	def := DefaultSyncConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = def.MaxItems
	}
	if cfg.RateLimitRetries < 0 {
		cfg.RateLimitRetries = 0
	}
	return &SyncOrchestrator{
		credentials:     credentials,
		integrationRepo: integrationRepo,
		client:          client,
		reconciler:      reconciler,
		analytics:       analytics,
		metrics:         metricsOrNop(metrics),
		cfg:             cfg,
		logger:          logger,
		nowFunc:         time.Now,
		sleep:           sleepContext,
	}
}

// RunSync imports the given kinds for a tenant. No kinds means every kind
// enabled in the integration settings. A failed kind reports 0 processed.
func (o *SyncOrchestrator) RunSync(ctx context.Context, tenantID string, kinds []domain.ResourceKind) (*domain.SyncSummary, error) {
	integration, err := o.credentials.GetIntegration(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	creds, err := o.credentials.GetCredentials(ctx, tenantID, domain.SyncCredentialFields...)
	if err != nil {
		return nil, err
	}

	if len(kinds) == 0 {
		kinds = integration.Settings.EnabledKinds()
	}
	kinds, err = uniqueKinds(kinds)
	if err != nil {
		return nil, err
	}

	summary := &domain.SyncSummary{
		RunID:     uuid.NewString(),
		TenantID:  tenantID,
		StartedAt: o.nowFunc().UTC(),
		Counts:    make(map[domain.ResourceKind]int, len(kinds)),
		Details:   make(map[domain.ResourceKind]*domain.KindSyncResult, len(kinds)),
	}
	for _, kind := range kinds {
		summary.Details[kind] = &domain.KindSyncResult{}
	}

	logger := o.logger.With().Str("tenantId", tenantID).Str("runId", summary.RunID).Logger()
	logger.Info().Interface("kinds", kinds).Msg("Starting bulk sync")

	var unauthorized atomic.Bool
	var budget atomic.Int64
	budget.Store(int64(o.cfg.MaxItems))
	var g errgroup.Group
	for _, kind := range kinds {
		kind := kind
		res := summary.Details[kind]
		g.Go(func() error {
			started := time.Now()
			err := o.syncKind(ctx, logger, tenantID, creds, kind, res, &budget)
			o.metrics.BulkRunDuration(kind.String(), time.Since(started))
			o.metrics.BulkItems(kind.String(), res.Processed)
			if err != nil {
				res.Error = err.Error()
				if errors.Is(err, domain.ErrUpstreamUnauthorized) {
					unauthorized.Store(true)
				}
				logger.Error().Err(err).Str("kind", kind.String()).Int("processed", res.Processed).Msg("Bulk sync failed for kind")
				return nil
			}
			logger.Info().
				Str("kind", kind.String()).
				Int("processed", res.Processed).
				Int("created", res.Created).
				Int("updated", res.Updated).
				Int("ignored", res.Ignored).
				Int("failed", res.Failed).
				Int("pages", res.Pages).
				Msg("Bulk sync finished for kind")
			return nil
		})
	}
	_ = g.Wait()

	summary.FinishedAt = o.nowFunc().UTC()

	synced := make(map[domain.ResourceKind]time.Time, len(kinds))
	for _, kind := range kinds {
		res := summary.Details[kind]
		if res.Error != "" {
			summary.Counts[kind] = 0
			continue
		}
		summary.Counts[kind] = res.Processed
		synced[kind] = summary.FinishedAt
	}

	if len(synced) > 0 {
		if err := o.integrationRepo.SetLastSyncAt(ctx, tenantID, synced); err != nil {
			logger.Error().Err(err).Msg("Failed to update last sync timestamps")
		}
	}
	if unauthorized.Load() {
		o.flagAuthFailure(ctx, logger, tenantID)
	}

	return summary, nil
}

// flagAuthFailure marks the integration as error unless the app was uninstalled
// meanwhile, which also explains the rejected credentials.
func (o *SyncOrchestrator) flagAuthFailure(ctx context.Context, logger zerolog.Logger, tenantID string) {
	current, err := o.integrationRepo.GetByID(ctx, tenantID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to reload integration after upstream auth failure")
		return
	}
	if current == nil || current.Status == domain.IntegrationStatusUninstalled {
		return
	}
	if err := o.integrationRepo.UpdateStatus(ctx, tenantID, domain.IntegrationStatusError); err != nil {
		logger.Error().Err(err).Msg("Failed to flag integration after upstream auth failure")
		return
	}
	logger.Warn().Msg("Upstream rejected credentials, integration marked as error")
}

// RunComprehensiveSync syncs every enabled kind and then refreshes tenant
// analytics. An analytics failure is reported in the summary, not returned.
func (o *SyncOrchestrator) RunComprehensiveSync(ctx context.Context, tenantID string) (*domain.SyncSummary, error) {
	summary, err := o.RunSync(ctx, tenantID, nil)
	if err != nil {
		return nil, err
	}
	summary.Comprehensive = true

	if o.analytics == nil {
		return summary, nil
	}
	if _, err := o.analytics.Refresh(ctx, tenantID); err != nil {
		summary.AnalyticsError = err.Error()
		o.logger.Error().Err(err).Str("tenantId", tenantID).Str("runId", summary.RunID).Msg("Analytics refresh failed")
	}
	return summary, nil
}

func (o *SyncOrchestrator) syncKind(
	ctx context.Context,
	logger zerolog.Logger,
	tenantID string,
	creds *domain.Credentials,
	kind domain.ResourceKind,
	res *domain.KindSyncResult,
	budget *atomic.Int64,
) error {
	cursor := ""
	for {
		req := o.client.BuildPageRequest(kind, cursor, o.cfg.PageSize)
		page, err := o.fetchPage(ctx, logger, creds, req)
		if err != nil {
			var upstream *domain.UpstreamError
			if res.Pages > 0 && errors.As(err, &upstream) {
				res.Interrupted = fmt.Sprintf("page %d: %v", res.Pages+1, err)
				logger.Warn().Err(err).Str("kind", kind.String()).Int("page", res.Pages+1).Msg("Stopping pagination after upstream error")
				return nil
			}
			return fmt.Errorf("failed to fetch %s page %d: %w", kind, res.Pages+1, err)
		}
		res.Pages++

		for _, item := range page.Items {
			if budget.Add(-1) < 0 {
				res.Truncated = true
				return nil
			}
			outcome, err := o.reconciler.Apply(ctx, domain.Observation{
				TenantID: tenantID,
				Kind:     kind,
				Source:   domain.SourceSync,
				Payload:  item,
			})
			if err != nil {
				res.Failed++
				logger.Warn().Err(err).Str("kind", kind.String()).Str("upstreamId", peekUpstreamID(item)).Msg("Skipping item")
				continue
			}
			res.Record(outcome)
		}

		if !page.HasNext() {
			return nil
		}
		if budget.Load() <= 0 {
			res.Truncated = true
			return nil
		}
		cursor = page.NextCursor

		if err := o.sleep(ctx, o.cfg.PageDelay); err != nil {
			return err
		}
	}
}

// fetchPage retries the same page while the upstream rate limits us
func (o *SyncOrchestrator) fetchPage(ctx context.Context, logger zerolog.Logger, creds *domain.Credentials, req domain.PageRequest) (*domain.Page, error) {
	for attempt := 0; ; attempt++ {
		page, err := o.client.FetchPage(ctx, creds, req)
		if err == nil {
			return page, nil
		}

		var limited *domain.RateLimitError
		if !errors.As(err, &limited) || attempt >= o.cfg.RateLimitRetries {
			return nil, err
		}

		wait := time.Duration(limited.RetryAfter) * time.Second
		if wait <= 0 {
			wait = time.Second
		}
		logger.Warn().Str("kind", req.Kind.String()).Dur("retryAfter", wait).Int("attempt", attempt+1).Msg("Rate limited, pausing")
		if err := o.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func uniqueKinds(kinds []domain.ResourceKind) ([]domain.ResourceKind, error) {
	seen := make(map[domain.ResourceKind]bool, len(kinds))
	out := make([]domain.ResourceKind, 0, len(kinds))
	for _, k := range kinds {
		if !k.IsValid() {
			return nil, fmt.Errorf("unknown resource kind %q: %w", k, domain.ErrInvalidPayload)
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
