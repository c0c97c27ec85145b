package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"archie-core-shopify-sync/internal/application"
	"archie-core-shopify-sync/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// IntegrationRegistrar connects shops as tenants
type IntegrationRegistrar interface {
	CreateIntegration(ctx context.Context, input application.CreateIntegrationInput) (*domain.Integration, error)
	GetIntegration(ctx context.Context, tenantID string) (*domain.Integration, error)
}

// SyncRunner starts bulk imports
type SyncRunner interface {
	RunSync(ctx context.Context, tenantID string, kinds []domain.ResourceKind) (*domain.SyncSummary, error)
	RunComprehensiveSync(ctx context.Context, tenantID string) (*domain.SyncSummary, error)
}

// SubscriptionService manages platform-side webhook subscriptions
type SubscriptionService interface {
	Setup(ctx context.Context, tenantID string, topics []domain.Topic) ([]*domain.WebhookSubscription, error)
	CleanupDuplicates(ctx context.Context, tenantID string) (*domain.CleanupResult, error)
	Remove(ctx context.Context, tenantID string) (*domain.RemovalResult, error)
	Status(ctx context.Context, tenantID string) (*domain.SubscriptionStatus, error)
	List(ctx context.Context, tenantID string) ([]*domain.WebhookSubscription, error)
}

// CredentialRotator replaces stored tenant credentials
type CredentialRotator interface {
	RotateCredentials(ctx context.Context, tenantID string, creds domain.Credentials) error
}

// RecordDeleter removes a mirrored record
type RecordDeleter interface {
	Delete(ctx context.Context, tenantID string, kind domain.ResourceKind, upstreamID string) error
}

// AdminHandler exposes the triggering interface used by the admin layer
type AdminHandler struct {
	integrations  IntegrationRegistrar
	sync          SyncRunner
	subscriptions SubscriptionService
	credentials   CredentialRotator
	records       RecordDeleter
	logger        zerolog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	integrations IntegrationRegistrar,
	sync SyncRunner,
	subscriptions SubscriptionService,
	credentials CredentialRotator,
	records RecordDeleter,
	logger zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		integrations:  integrations,
		sync:          sync,
		subscriptions: subscriptions,
		credentials:   credentials,
		records:       records,
		logger:        logger,
	}
}

// Routes registers the admin endpoints under /integrations
func (h *AdminHandler) Routes(r chi.Router) {
	r.Post("/integrations", h.createIntegration)

	r.Route("/integrations/{tenantId}", func(r chi.Router) {
		r.Get("/", h.getIntegration)

		r.Post("/sync", h.runSync)

		r.Get("/subscriptions", h.subscriptionStatus)
		r.Post("/subscriptions", h.setupSubscriptions)
		r.Delete("/subscriptions", h.removeSubscriptions)
		r.Post("/subscriptions/cleanup", h.cleanupSubscriptions)

		r.Put("/credentials", h.rotateCredentials)

		r.Delete("/resources/{kind}/{upstreamId}", h.deleteRecord)
	})
}

type syncRequest struct {
	Kinds         []string `json:"kinds"`
	Comprehensive bool     `json:"comprehensive"`
}

type setupRequest struct {
	Topics []string `json:"topics"`
}

type setupResponse struct {
	Subscriptions []*domain.WebhookSubscription `json:"subscriptions"`
	Errors        []string                      `json:"errors,omitempty"`
}

type subscriptionsResponse struct {
	Status *domain.SubscriptionStatus    `json:"status"`
	Local  []*domain.WebhookSubscription `json:"local"`
}

func (h *AdminHandler) createIntegration(w http.ResponseWriter, r *http.Request) {
	var input application.CreateIntegrationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	integration, err := h.integrations.CreateIntegration(r.Context(), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, integration)
}

func (h *AdminHandler) getIntegration(w http.ResponseWriter, r *http.Request) {
	integration, err := h.integrations.GetIntegration(r.Context(), chi.URLParam(r, "tenantId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, integration)
}

func (h *AdminHandler) runSync(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")

	var req syncRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	var summary *domain.SyncSummary
	var err error
	if req.Comprehensive {
		summary, err = h.sync.RunComprehensiveSync(r.Context(), tenantID)
	} else {
		kinds := make([]domain.ResourceKind, 0, len(req.Kinds))
		for _, k := range req.Kinds {
			kind, perr := domain.ParseResourceKind(k)
			if perr != nil {
				badRequest(w, perr.Error())
				return
			}
			kinds = append(kinds, kind)
		}
		summary, err = h.sync.RunSync(r.Context(), tenantID, kinds)
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *AdminHandler) subscriptionStatus(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")

	status, err := h.subscriptions.Status(r.Context(), tenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	local, err := h.subscriptions.List(r.Context(), tenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, subscriptionsResponse{Status: status, Local: local})
}

func (h *AdminHandler) setupSubscriptions(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")

	var req setupRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	topics := make([]domain.Topic, 0, len(req.Topics))
	for _, t := range req.Topics {
		topic, ok := domain.ParseTopic(t)
		if !ok {
			badRequest(w, "unsupported topic "+t)
			return
		}
		topics = append(topics, topic)
	}

	subs, err := h.subscriptions.Setup(r.Context(), tenantID, topics)
	if err != nil && len(subs) == 0 {
		writeError(w, h.logger, err)
		return
	}

	resp := setupResponse{Subscriptions: subs}
	if err != nil {
		resp.Errors = errorMessages(err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) removeSubscriptions(w http.ResponseWriter, r *http.Request) {
	result, err := h.subscriptions.Remove(r.Context(), chi.URLParam(r, "tenantId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) cleanupSubscriptions(w http.ResponseWriter, r *http.Request) {
	result, err := h.subscriptions.CleanupDuplicates(r.Context(), chi.URLParam(r, "tenantId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) rotateCredentials(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")

	var creds domain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	if err := h.credentials.RotateCredentials(r.Context(), tenantID, creds); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")
	kind, err := domain.ParseResourceKind(chi.URLParam(r, "kind"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.records.Delete(r.Context(), tenantID, kind, chi.URLParam(r, "upstreamId")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeOptional decodes a JSON body, treating an empty body as the zero value
func decodeOptional(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid request body")
		return false
	}
	return true
}

func errorMessages(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
