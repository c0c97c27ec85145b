package application

import (
	"context"
	"testing"

	"archie-core-shopify-sync/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrationService_CreateIntegration(t *testing.T) {
	h := newHarness(t)
	svc := NewIntegrationService(h.integrations, h.credentials, zerolog.Nop())
	ctx := context.Background()

	creds := testIntegration().Credentials
	created, err := svc.CreateIntegration(ctx, CreateIntegrationInput{
		CompanyID:   "company-1",
		ShopDomain:  " New-Shop.myshopify.com ",
		Credentials: creds,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "new-shop.myshopify.com", created.ShopDomain)
	assert.Equal(t, "new-shop.myshopify.com", created.Credentials.ShopDomain)
	assert.Equal(t, []domain.ResourceKind{domain.KindOrder, domain.KindCustomer, domain.KindReturn}, created.Settings.EnabledKinds())

	got, err := svc.GetIntegration(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "company-1", got.CompanyID)

	again, err := svc.CreateIntegration(ctx, CreateIntegrationInput{ShopDomain: "new-shop.myshopify.com"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
}

func TestIntegrationService_CreateIntegrationValidation(t *testing.T) {
	h := newHarness(t)
	svc := NewIntegrationService(h.integrations, h.credentials, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.CreateIntegration(ctx, CreateIntegrationInput{ShopDomain: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = svc.CreateIntegration(ctx, CreateIntegrationInput{
		ShopDomain:  "other.myshopify.com",
		Credentials: domain.Credentials{AccessToken: "tok", APIKey: "key"},
		Settings:    domain.IntegrationSettings{SyncOrders: true},
	})
	var incomplete *domain.IncompleteCredentialsError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []domain.CredentialField{
		domain.CredentialAPISecret,
		domain.CredentialAPIVersion,
		domain.CredentialWebhookSecret,
	}, incomplete.Missing)
	assert.Len(t, h.integrations.integrations, 1)
}

func TestIntegrationService_ReconnectsUninstalledShop(t *testing.T) {
	h := newHarness(t)
	svc := NewIntegrationService(h.integrations, h.credentials, zerolog.Nop())
	ctx := context.Background()
	h.integrations.integrations[testTenant].Status = domain.IntegrationStatusUninstalled

	creds := testIntegration().Credentials
	creds.AccessToken = "shpat_reinstalled"
	got, err := svc.CreateIntegration(ctx, CreateIntegrationInput{ShopDomain: testShop, Credentials: creds})
	require.NoError(t, err)

	assert.Equal(t, testTenant, got.ID)
	assert.Equal(t, domain.IntegrationStatusActive, got.Status)
	assert.Equal(t, domain.IntegrationStatusActive, h.integrations.status(testTenant))
	assert.Equal(t, "shpat_reinstalled", h.integrations.integrations[testTenant].Credentials.AccessToken)
	assert.Len(t, h.integrations.integrations, 1)

	h.integrations.integrations[testTenant].Status = domain.IntegrationStatusUninstalled
	_, err = svc.CreateIntegration(ctx, CreateIntegrationInput{ShopDomain: testShop})
	var incomplete *domain.IncompleteCredentialsError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, domain.IntegrationStatusUninstalled, h.integrations.status(testTenant))
}

func TestCredentialsService_RotateReactivates(t *testing.T) {
	for _, status := range []domain.IntegrationStatus{domain.IntegrationStatusError, domain.IntegrationStatusUninstalled} {
		t.Run(string(status), func(t *testing.T) {
			h := newHarness(t)
			h.integrations.integrations[testTenant].Status = status

			creds := testIntegration().Credentials
			creds.AccessToken = "shpat_rotated"
			require.NoError(t, h.credentials.RotateCredentials(context.Background(), testTenant, creds))

			assert.Equal(t, domain.IntegrationStatusActive, h.integrations.status(testTenant))
			assert.Equal(t, "shpat_rotated", h.integrations.integrations[testTenant].Credentials.AccessToken)
		})
	}
}

func TestIntegrationService_ConcurrentConnectReturnsWinner(t *testing.T) {
	h := newHarness(t)
	svc := NewIntegrationService(h.integrations, h.credentials, zerolog.Nop())

	winner := testIntegration()
	winner.ID = "tenant-winner"
	winner.ShopDomain = "race.myshopify.com"
	h.integrations.preempt = winner

	got, err := svc.CreateIntegration(context.Background(), CreateIntegrationInput{
		ShopDomain:  "race.myshopify.com",
		Credentials: testIntegration().Credentials,
	})
	require.NoError(t, err)
	assert.Equal(t, "tenant-winner", got.ID)
	assert.Len(t, h.integrations.integrations, 2)
}
