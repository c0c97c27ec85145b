package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"archie-core-shopify-sync/internal/domain"

	"github.com/rs/zerolog"
)

const (
	testTenant = "64b7f0c2a1e4d3b2c1a09f8e"
	testShop   = "acme.myshopify.com"
	testSecret = "whsec"
	testAddr   = "https://sync.example.com/webhooks/shopify"
)

func testIntegration() *domain.Integration {
	return &domain.Integration{
		ID:         testTenant,
		ShopDomain: testShop,
		Credentials: domain.Credentials{
			ShopDomain:    testShop,
			APIKey:        "key",
			APISecret:     "secret",
			AccessToken:   "shpat_token",
			APIVersion:    "2024-10",
			WebhookSecret: testSecret,
		},
		Settings: domain.IntegrationSettings{SyncOrders: true, SyncCustomers: true, SyncReturns: true},
		Status:   domain.IntegrationStatusActive,
	}
}

// fakeIntegrationRepo keeps integrations in memory
type fakeIntegrationRepo struct {
	mu           sync.Mutex
	integrations map[string]*domain.Integration
	lastSync     map[domain.ResourceKind]time.Time
	getErr       error
	// preempt is stored just before Create fails on the unique shop index
	preempt      *domain.Integration
}

func newFakeIntegrationRepo(integrations ...*domain.Integration) *fakeIntegrationRepo {
	r := &fakeIntegrationRepo{
		integrations: make(map[string]*domain.Integration),
		lastSync:     make(map[domain.ResourceKind]time.Time),
	}
	for _, i := range integrations {
		r.integrations[i.ID] = i
	}
	return r
}

func (r *fakeIntegrationRepo) Create(_ context.Context, integration *domain.Integration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.preempt != nil {
		r.integrations[r.preempt.ID] = r.preempt
		r.preempt = nil
		return fmt.Errorf("shop %s: %w", integration.ShopDomain, domain.ErrAlreadyExists)
	}
	if integration.ID == "" {
		integration.ID = fmt.Sprintf("tenant-%d", len(r.integrations)+1)
	}
	r.integrations[integration.ID] = integration
	return nil
}

func (r *fakeIntegrationRepo) GetByID(_ context.Context, tenantID string) (*domain.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	i, ok := r.integrations[tenantID]
	if !ok {
		return nil, nil
	}
	cp := *i
	return &cp, nil
}

func (r *fakeIntegrationRepo) GetByShopDomain(_ context.Context, shopDomain string) (*domain.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.integrations {
		if i.ShopDomain == shopDomain {
			cp := *i
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeIntegrationRepo) UpdateCredentials(_ context.Context, tenantID string, creds domain.Credentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.integrations[tenantID]
	if !ok {
		return domain.ErrNotFound
	}
	i.Credentials = creds
	return nil
}

func (r *fakeIntegrationRepo) UpdateStatus(_ context.Context, tenantID string, status domain.IntegrationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.integrations[tenantID]
	if !ok {
		return domain.ErrNotFound
	}
	i.Status = status
	return nil
}

func (r *fakeIntegrationRepo) SetLastSyncAt(_ context.Context, _ string, at map[domain.ResourceKind]time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range at {
		r.lastSync[k] = v
	}
	return nil
}

func (r *fakeIntegrationRepo) status(tenantID string) domain.IntegrationStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.integrations[tenantID].Status
}

type recordKey struct {
	tenant string
	kind   domain.ResourceKind
	id     string
}

// fakeResourceRepo implements the conditional upsert under a mutex, merging
// provenance the way the MongoDB $set does
type fakeResourceRepo struct {
	mu        sync.Mutex
	records   map[recordKey]*domain.Record
	snapshots []*domain.RawSnapshot
	upsertErr error
}

func newFakeResourceRepo() *fakeResourceRepo {
	return &fakeResourceRepo{records: make(map[recordKey]*domain.Record)}
}

func (r *fakeResourceRepo) Get(_ context.Context, tenantID string, kind domain.ResourceKind, upstreamID string) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[recordKey{tenantID, kind, upstreamID}]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeResourceRepo) Upsert(_ context.Context, record *domain.Record) (domain.WriteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return "", r.upsertErr
	}
	key := recordKey{record.TenantID, record.Kind, record.UpstreamID}
	cp := *record
	existing, ok := r.records[key]
	if !ok {
		r.records[key] = &cp
		return domain.WriteCreated, nil
	}
	if existing.UpdatedAt.After(record.UpdatedAt) {
		return domain.WriteStale, nil
	}
	// $set leaves fields the candidate omits untouched
	cp.CreatedAt = existing.CreatedAt
	if cp.Provenance.LastSyncAt == nil {
		cp.Provenance.LastSyncAt = existing.Provenance.LastSyncAt
	}
	if cp.Provenance.LastWebhookAt == nil {
		cp.Provenance.LastWebhookAt = existing.Provenance.LastWebhookAt
	}
	r.records[key] = &cp
	return domain.WriteUpdated, nil
}

func (r *fakeResourceRepo) SaveSnapshot(_ context.Context, snapshot *domain.RawSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, snapshot)
	return nil
}

func (r *fakeResourceRepo) Delete(_ context.Context, tenantID string, kind domain.ResourceKind, upstreamID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := recordKey{tenantID, kind, upstreamID}
	if _, ok := r.records[key]; !ok {
		return false, nil
	}
	delete(r.records, key)
	return true, nil
}

func (r *fakeResourceRepo) get(kind domain.ResourceKind, id string) *domain.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[recordKey{testTenant, kind, id}]
}

func (r *fakeResourceRepo) count(kind domain.ResourceKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.records {
		if k.kind == kind {
			n++
		}
	}
	return n
}

// fakeTicketStore keeps tickets in a map and can be told to fail
type fakeTicketStore struct {
	mu      sync.Mutex
	tickets map[string]*domain.ProcessedWebhookTicket
	err     error
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{tickets: make(map[string]*domain.ProcessedWebhookTicket)}
}

func (s *fakeTicketStore) MarkProcessed(_ context.Context, ticket *domain.ProcessedWebhookTicket, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if _, ok := s.tickets[ticket.DeliveryID]; ok {
		return false, nil
	}
	s.tickets[ticket.DeliveryID] = ticket
	return true, nil
}

func (s *fakeTicketStore) IsProcessed(_ context.Context, deliveryID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.tickets[deliveryID]
	return ok, nil
}

// fakePage is one scripted page. err is returned instead of the items.
type fakePage struct {
	items []string
	err   error
}

// fakeShopifyClient serves scripted pages and an in-memory webhook list
type fakeShopifyClient struct {
	mu sync.Mutex

	pages      map[domain.ResourceKind][]fakePage
	rateLimits map[domain.ResourceKind]int
	fetches    map[domain.ResourceKind][]string

	webhooks  []domain.UpstreamWebhook
	nextID    int64
	listErr   error
	createErr map[domain.Topic]error
	deleteErr map[int64]error
	deleted   []int64
	created   []domain.Topic
}

func newFakeShopifyClient() *fakeShopifyClient {
	return &fakeShopifyClient{
		pages:      make(map[domain.ResourceKind][]fakePage),
		rateLimits: make(map[domain.ResourceKind]int),
		fetches:    make(map[domain.ResourceKind][]string),
		createErr:  make(map[domain.Topic]error),
		deleteErr:  make(map[int64]error),
		nextID:     1000,
	}
}

func (c *fakeShopifyClient) BuildPageRequest(kind domain.ResourceKind, cursor string, limit int) domain.PageRequest {
	return domain.PageRequest{Kind: kind, Path: kind.String() + ".json", Cursor: cursor, Limit: limit}
}

func (c *fakeShopifyClient) FetchPage(_ context.Context, _ *domain.Credentials, req domain.PageRequest) (*domain.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetches[req.Kind] = append(c.fetches[req.Kind], req.Cursor)

	if c.rateLimits[req.Kind] > 0 {
		c.rateLimits[req.Kind]--
		return nil, &domain.RateLimitError{RetryAfter: 2}
	}

	idx := 0
	if req.Cursor != "" {
		n, err := strconv.Atoi(req.Cursor)
		if err != nil {
			return nil, fmt.Errorf("bad cursor %q", req.Cursor)
		}
		idx = n
	}
	pages := c.pages[req.Kind]
	if idx >= len(pages) {
		return &domain.Page{}, nil
	}
	p := pages[idx]
	if p.err != nil {
		return nil, p.err
	}

	page := &domain.Page{}
	for _, item := range p.items {
		page.Items = append(page.Items, []byte(item))
	}
	if idx+1 < len(pages) {
		page.NextCursor = strconv.Itoa(idx + 1)
	}
	return page, nil
}

func (c *fakeShopifyClient) ListWebhooks(context.Context, *domain.Credentials) ([]domain.UpstreamWebhook, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	out := make([]domain.UpstreamWebhook, len(c.webhooks))
	copy(out, c.webhooks)
	return out, nil
}

func (c *fakeShopifyClient) CreateWebhook(_ context.Context, _ *domain.Credentials, topic domain.Topic, address string) (*domain.UpstreamWebhook, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.createErr[topic]; err != nil {
		return nil, err
	}
	c.nextID++
	w := domain.UpstreamWebhook{
		ID:        c.nextID,
		Topic:     topic.String(),
		Address:   address,
		Format:    "json",
		CreatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	c.webhooks = append(c.webhooks, w)
	c.created = append(c.created, topic)
	return &w, nil
}

func (c *fakeShopifyClient) DeleteWebhook(_ context.Context, _ *domain.Credentials, webhookID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.deleteErr[webhookID]; err != nil {
		return err
	}
	for i, w := range c.webhooks {
		if w.ID == webhookID {
			c.webhooks = append(c.webhooks[:i], c.webhooks[i+1:]...)
			c.deleted = append(c.deleted, webhookID)
			return nil
		}
	}
	return domain.ErrUpstreamNotFound
}

// fakeSubscriptionRepo keys local records by (tenant, topic)
type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[string]*domain.WebhookSubscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[string]*domain.WebhookSubscription)}
}

func (r *fakeSubscriptionRepo) Save(_ context.Context, sub *domain.WebhookSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := sub.TenantID + "|" + sub.Topic.String()
	sub.ID = key
	cp := *sub
	r.subs[key] = &cp
	return nil
}

func (r *fakeSubscriptionRepo) ListByTenant(_ context.Context, tenantID string) ([]*domain.WebhookSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.WebhookSubscription
	for _, s := range r.subs {
		if s.TenantID == tenantID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) DeleteByWebhookID(_ context.Context, tenantID string, webhookID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, s := range r.subs {
		if s.TenantID == tenantID && s.WebhookID == webhookID {
			delete(r.subs, k)
		}
	}
	return nil
}

func (r *fakeSubscriptionRepo) DeleteByTenant(_ context.Context, tenantID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, s := range r.subs {
		if s.TenantID == tenantID {
			delete(r.subs, k)
			n++
		}
	}
	return n, nil
}

type fakeAnalytics struct {
	calls int
	err   error
}

func (a *fakeAnalytics) Refresh(_ context.Context, tenantID string) (*domain.TenantAnalytics, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return &domain.TenantAnalytics{TenantID: tenantID}, nil
}

// harness wires every service over the fakes
type harness struct {
	integrations  *fakeIntegrationRepo
	resources     *fakeResourceRepo
	tickets       *fakeTicketStore
	client        *fakeShopifyClient
	subRepo       *fakeSubscriptionRepo
	analytics     *fakeAnalytics
	credentials   *CredentialsService
	tracker       *IdempotencyTracker
	reconciler    *Reconciler
	orchestrator  *SyncOrchestrator
	subscriptions *SubscriptionManager
	sleeps        []time.Duration
	sleepMu       sync.Mutex
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zerolog.Nop()
	h := &harness{
		integrations: newFakeIntegrationRepo(testIntegration()),
		resources:    newFakeResourceRepo(),
		tickets:      newFakeTicketStore(),
		client:       newFakeShopifyClient(),
		subRepo:      newFakeSubscriptionRepo(),
		analytics:    &fakeAnalytics{},
	}
	h.credentials = NewCredentialsService(h.integrations, logger)
	h.tracker = NewIdempotencyTracker(h.tickets, 0, logger)
	h.reconciler = NewReconciler(h.resources, h.tracker, nil, logger)
	h.orchestrator = NewSyncOrchestrator(h.credentials, h.integrations, h.client, h.reconciler, h.analytics, nil,
		SyncConfig{PageSize: 2, PageDelay: 500 * time.Millisecond, MaxItems: 100, RateLimitRetries: 3}, logger)
	h.orchestrator.sleep = func(ctx context.Context, d time.Duration) error {
		h.sleepMu.Lock()
		defer h.sleepMu.Unlock()
		h.sleeps = append(h.sleeps, d)
		return ctx.Err()
	}
	h.subscriptions = NewSubscriptionManager(h.credentials, h.client, h.subRepo, nil, testAddr, logger)
	return h
}

func orderJSON(id int, updatedAt string) string {
	return fmt.Sprintf(`{"id":%d,"name":"#%d","currency":"EUR","total_price":"10.00","updated_at":%q}`, id, id, updatedAt)
}

func customerJSON(id int, updatedAt string) string {
	return fmt.Sprintf(`{"id":%d,"email":"c%d@example.com","updated_at":%q}`, id, id, updatedAt)
}

func webhookObs(kind domain.ResourceKind, deliveryID string, payload string) domain.Observation {
	return domain.Observation{
		TenantID: testTenant,
		Kind:     kind,
		Source:   domain.SourceWebhook,
		Payload:  []byte(payload),
		Delivery: &domain.Delivery{
			Topic:      domain.TopicOrdersUpdated,
			DeliveryID: deliveryID,
			ReceivedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
	}
}

func syncObs(kind domain.ResourceKind, payload string) domain.Observation {
	return domain.Observation{
		TenantID: testTenant,
		Kind:     kind,
		Source:   domain.SourceSync,
		Payload:  []byte(payload),
	}
}

var errBoom = errors.New("boom")
