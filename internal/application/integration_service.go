package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
)

// IntegrationService handles tenant registration
type IntegrationService struct {
	integrationRepo ports.IntegrationRepository
	credentials     *CredentialsService
	logger          zerolog.Logger
}

// NewIntegrationService creates a new integration service
func NewIntegrationService(
	integrationRepo ports.IntegrationRepository,
	credentials *CredentialsService,
	logger zerolog.Logger,
) *IntegrationService {
	return &IntegrationService{
		integrationRepo: integrationRepo,
		credentials:     credentials,
		logger:          logger,
	}
}

// CreateIntegrationInput represents input for connecting a shop
type CreateIntegrationInput struct {
	CompanyID   string                     `json:"company_id"`
	ShopDomain  string                     `json:"shop_domain"`
	Credentials domain.Credentials         `json:"credentials"`
	Settings    domain.IntegrationSettings `json:"settings"`
}

// CreateIntegration connects a shop as a new tenant. A shop that is already
// connected returns the existing integration unchanged; an uninstalled or
// failed one is reconnected with the new credentials.
func (s *IntegrationService) CreateIntegration(ctx context.Context, input CreateIntegrationInput) (*domain.Integration, error) {
	shopDomain := strings.ToLower(strings.TrimSpace(input.ShopDomain))
	if shopDomain == "" {
		return nil, fmt.Errorf("shop domain is required: %w", domain.ErrInvalidPayload)
	}

	existing, err := s.integrationRepo.GetByShopDomain(ctx, shopDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing integration: %w", err)
	}
	if existing != nil && existing.Status == domain.IntegrationStatusActive {
		s.logger.Info().
			Str("tenantId", existing.ID).
			Str("shop", shopDomain).
			Msg("Integration already exists, returning existing tenant")
		return existing, nil
	}

	creds := input.Credentials
	creds.ShopDomain = shopDomain
	if err := s.credentials.checkFields(shopDomain, &creds, domain.SyncCredentialFields); err != nil {
		return nil, err
	}

	if existing != nil {
		return s.reconnect(ctx, existing, creds)
	}

	settings := input.Settings
	if settings == (domain.IntegrationSettings{}) {
		settings = domain.IntegrationSettings{SyncOrders: true, SyncCustomers: true, SyncReturns: true}
	}

	integration := &domain.Integration{
		CompanyID:   input.CompanyID,
		ShopDomain:  shopDomain,
		Credentials: creds,
		Settings:    settings,
		Status:      domain.IntegrationStatusActive,
	}
	if err := s.integrationRepo.Create(ctx, integration); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// A concurrent request connected the shop first
			winner, getErr := s.integrationRepo.GetByShopDomain(ctx, shopDomain)
			if getErr == nil && winner != nil {
				return winner, nil
			}
		}
		s.logger.Error().Err(err).Str("shop", shopDomain).Msg("Failed to create integration")
		return nil, fmt.Errorf("failed to create integration: %w", err)
	}

	s.logger.Info().
		Str("tenantId", integration.ID).
		Str("companyId", integration.CompanyID).
		Str("shop", shopDomain).
		Msg("Created new integration")

	return integration, nil
}

// reconnect reuses the tenant of a shop that reinstalled the app, so its
// mirrored records stay attached to the same tenant ID
func (s *IntegrationService) reconnect(ctx context.Context, existing *domain.Integration, creds domain.Credentials) (*domain.Integration, error) {
	if err := s.integrationRepo.UpdateCredentials(ctx, existing.ID, creds); err != nil {
		return nil, fmt.Errorf("failed to update credentials: %w", err)
	}
	if err := s.integrationRepo.UpdateStatus(ctx, existing.ID, domain.IntegrationStatusActive); err != nil {
		return nil, fmt.Errorf("failed to reactivate integration: %w", err)
	}

	s.logger.Info().
		Str("tenantId", existing.ID).
		Str("shop", existing.ShopDomain).
		Str("previousStatus", string(existing.Status)).
		Msg("Reconnected integration")

	existing.Credentials = creds
	existing.Status = domain.IntegrationStatusActive
	return existing, nil
}

// GetIntegration retrieves an integration by tenant ID
func (s *IntegrationService) GetIntegration(ctx context.Context, tenantID string) (*domain.Integration, error) {
	return s.credentials.GetIntegration(ctx, tenantID)
}
