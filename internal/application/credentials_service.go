package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// CredentialsService resolves tenants to their Shopify credentials
type CredentialsService struct {
	integrationRepo ports.IntegrationRepository
	validate        *validator.Validate
	logger          zerolog.Logger
}

// NewCredentialsService creates a new credentials service
func NewCredentialsService(
	integrationRepo ports.IntegrationRepository,
	logger zerolog.Logger,
) *CredentialsService {
	return &CredentialsService{
		integrationRepo: integrationRepo,
		validate:        validator.New(),
		logger:          logger,
	}
}

// GetIntegration loads the integration for a tenant
func (s *CredentialsService) GetIntegration(ctx context.Context, tenantID string) (*domain.Integration, error) {
	integration, err := s.integrationRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}
	if integration == nil {
		return nil, fmt.Errorf("integration %s: %w", tenantID, domain.ErrNotFound)
	}
	return integration, nil
}

// GetCredentials returns the tenant's credentials after checking that every
// field the caller needs is present. No fields means the complete set.
func (s *CredentialsService) GetCredentials(ctx context.Context, tenantID string, required ...domain.CredentialField) (*domain.Credentials, error) {
	integration, err := s.GetIntegration(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	creds := integration.Credentials
	if creds.ShopDomain == "" {
		creds.ShopDomain = integration.ShopDomain
	}

	if len(required) == 0 {
		required = domain.SyncCredentialFields
	}
	if err := s.checkFields(tenantID, &creds, required); err != nil {
		return nil, err
	}

	return &creds, nil
}

// ResolveByShopDomain finds the tenant connected to a shop address
func (s *CredentialsService) ResolveByShopDomain(ctx context.Context, shopDomain string) (*domain.Integration, error) {
	shopDomain = strings.ToLower(strings.TrimSpace(shopDomain))
	if shopDomain == "" {
		return nil, fmt.Errorf("empty shop domain: %w", domain.ErrNotFound)
	}

	integration, err := s.integrationRepo.GetByShopDomain(ctx, shopDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve shop: %w", err)
	}
	if integration == nil {
		return nil, fmt.Errorf("shop %s: %w", shopDomain, domain.ErrNotFound)
	}
	return integration, nil
}

// RotateCredentials replaces a tenant's credentials. This is the only write path for them.
// A tenant left in error or uninstalled becomes active again.
func (s *CredentialsService) RotateCredentials(ctx context.Context, tenantID string, creds domain.Credentials) error {
	integration, err := s.GetIntegration(ctx, tenantID)
	if err != nil {
		return err
	}

	creds.ShopDomain = strings.ToLower(strings.TrimSpace(creds.ShopDomain))
	if creds.ShopDomain == "" {
		creds.ShopDomain = integration.ShopDomain
	}
	if err := s.checkFields(tenantID, &creds, domain.SyncCredentialFields); err != nil {
		return err
	}

	if err := s.integrationRepo.UpdateCredentials(ctx, tenantID, creds); err != nil {
		s.logger.Error().Err(err).Str("tenantId", tenantID).Msg("Failed to rotate credentials")
		return fmt.Errorf("failed to rotate credentials: %w", err)
	}

	if integration.Status != domain.IntegrationStatusActive {
		if err := s.integrationRepo.UpdateStatus(ctx, tenantID, domain.IntegrationStatusActive); err != nil {
			return fmt.Errorf("failed to reactivate integration: %w", err)
		}
	}

	s.logger.Info().
		Str("tenantId", tenantID).
		Str("shop", creds.ShopDomain).
		Str("previousStatus", string(integration.Status)).
		Msg("Credentials rotated")
	return nil
}

func (s *CredentialsService) checkFields(tenantID string, creds *domain.Credentials, required []domain.CredentialField) error {
	fields := make([]string, len(required))
	for i, f := range required {
		fields[i] = string(f)
	}

	err := s.validate.StructPartial(creds, fields...)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate credentials: %w", err)
	}

	failed := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		failed[fe.StructField()] = true
	}
	missing := make([]domain.CredentialField, 0, len(verrs))
	for _, f := range required {
		if failed[string(f)] {
			missing = append(missing, f)
		}
	}
	return &domain.IncompleteCredentialsError{TenantID: tenantID, Missing: missing}
}
