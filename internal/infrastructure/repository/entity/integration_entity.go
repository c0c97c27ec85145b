package entity

import (
	"time"

	"archie-core-shopify-sync/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoIntegrationDoc represents an integration in MongoDB
type MongoIntegrationDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	CompanyID   string               `bson:"companyId"`
	ShopDomain  string               `bson:"shopDomain"`
	Credentials MongoCredentialsDoc  `bson:"credentials"`
	Settings    MongoSettingsDoc     `bson:"settings"`
	Status      string               `bson:"status"`
	LastSyncAt  map[string]time.Time `bson:"lastSyncAt,omitempty"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

// MongoCredentialsDoc is the embedded platform credentials block
type MongoCredentialsDoc struct {
	APIKey        string `bson:"apiKey"`
	APISecret     string `bson:"apiSecret"`
	AccessToken   string `bson:"accessToken"`
	APIVersion    string `bson:"apiVersion"`
	WebhookSecret string `bson:"webhookSecret"`
	ShopDomain    string `bson:"shopDomain,omitempty"`
}

// MongoSettingsDoc is the embedded feature settings block
type MongoSettingsDoc struct {
	SyncOrders      bool `bson:"syncOrders"`
	SyncCustomers   bool `bson:"syncCustomers"`
	SyncReturns     bool `bson:"syncReturns"`
	AutoFulfillment bool `bson:"autoFulfillment"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoIntegrationDoc) ToDomain() *domain.Integration {
	integration := &domain.Integration{
		ID:         d.ID.Hex(),
		CompanyID:  d.CompanyID,
		ShopDomain: d.ShopDomain,
		Credentials: domain.Credentials{
			ShopDomain:    d.Credentials.ShopDomain,
			APIKey:        d.Credentials.APIKey,
			APISecret:     d.Credentials.APISecret,
			AccessToken:   d.Credentials.AccessToken,
			APIVersion:    d.Credentials.APIVersion,
			WebhookSecret: d.Credentials.WebhookSecret,
		},
		Settings: domain.IntegrationSettings{
			SyncOrders:      d.Settings.SyncOrders,
			SyncCustomers:   d.Settings.SyncCustomers,
			SyncReturns:     d.Settings.SyncReturns,
			AutoFulfillment: d.Settings.AutoFulfillment,
		},
		Status:    domain.IntegrationStatus(d.Status),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}

	if len(d.LastSyncAt) > 0 {
		integration.LastSyncAt = make(map[domain.ResourceKind]time.Time, len(d.LastSyncAt))
		for kind, at := range d.LastSyncAt {
			integration.LastSyncAt[domain.ResourceKind(kind)] = at
		}
	}

	return integration
}

// MongoIntegrationDocFromDomain converts a domain entity to a MongoDB document
func MongoIntegrationDocFromDomain(integration *domain.Integration) *MongoIntegrationDoc {
	doc := &MongoIntegrationDoc{
		CompanyID:   integration.CompanyID,
		ShopDomain:  integration.ShopDomain,
		Credentials: MongoCredentialsDocFromDomain(integration.Credentials),
		Settings: MongoSettingsDoc{
			SyncOrders:      integration.Settings.SyncOrders,
			SyncCustomers:   integration.Settings.SyncCustomers,
			SyncReturns:     integration.Settings.SyncReturns,
			AutoFulfillment: integration.Settings.AutoFulfillment,
		},
		Status:    string(integration.Status),
		CreatedAt: integration.CreatedAt,
		UpdatedAt: integration.UpdatedAt,
	}

	if len(integration.LastSyncAt) > 0 {
		doc.LastSyncAt = make(map[string]time.Time, len(integration.LastSyncAt))
		for kind, at := range integration.LastSyncAt {
			doc.LastSyncAt[kind.String()] = at
		}
	}

	if integration.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(integration.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}

// MongoCredentialsDocFromDomain converts credentials to their embedded document
func MongoCredentialsDocFromDomain(creds domain.Credentials) MongoCredentialsDoc {
	return MongoCredentialsDoc{
		APIKey:        creds.APIKey,
		APISecret:     creds.APISecret,
		AccessToken:   creds.AccessToken,
		APIVersion:    creds.APIVersion,
		WebhookSecret: creds.WebhookSecret,
		ShopDomain:    creds.ShopDomain,
	}
}
