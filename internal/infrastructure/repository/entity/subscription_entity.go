package entity

import (
	"time"

	"archie-core-shopify-sync/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoSubscriptionDoc represents a local webhook subscription record
type MongoSubscriptionDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	TenantID   string             `bson:"tenantId"`
	ShopDomain string             `bson:"shopDomain"`
	WebhookID  int64              `bson:"webhookId"`
	Topic      string             `bson:"topic"`
	Address    string             `bson:"address"`
	Format     string             `bson:"format"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoSubscriptionDoc) ToDomain() *domain.WebhookSubscription {
	return &domain.WebhookSubscription{
		ID:         d.ID.Hex(),
		TenantID:   d.TenantID,
		ShopDomain: d.ShopDomain,
		WebhookID:  d.WebhookID,
		Topic:      domain.Topic(d.Topic),
		Address:    d.Address,
		Format:     d.Format,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
}

// MongoSubscriptionDocFromDomain converts a domain entity to a MongoDB document
func MongoSubscriptionDocFromDomain(sub *domain.WebhookSubscription) *MongoSubscriptionDoc {
	doc := &MongoSubscriptionDoc{
		TenantID:   sub.TenantID,
		ShopDomain: sub.ShopDomain,
		WebhookID:  sub.WebhookID,
		Topic:      sub.Topic.String(),
		Address:    sub.Address,
		Format:     sub.Format,
		CreatedAt:  sub.CreatedAt,
		UpdatedAt:  sub.UpdatedAt,
	}

	if sub.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(sub.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}

// MongoAnalyticsDoc is the per-tenant aggregate row in tenant_analytics
type MongoAnalyticsDoc struct {
	TenantID          string            `bson:"tenantId"`
	OrderCount        int64             `bson:"orderCount"`
	CustomerCount     int64             `bson:"customerCount"`
	ReturnCount       int64             `bson:"returnCount"`
	RevenueByCurrency map[string]string `bson:"revenueByCurrency"`
	RefreshedAt       time.Time         `bson:"refreshedAt"`
}

// MongoAnalyticsDocFromDomain converts tenant analytics to a MongoDB document
func MongoAnalyticsDocFromDomain(a *domain.TenantAnalytics) *MongoAnalyticsDoc {
	return &MongoAnalyticsDoc{
		TenantID:          a.TenantID,
		OrderCount:        a.OrderCount,
		CustomerCount:     a.CustomerCount,
		ReturnCount:       a.ReturnCount,
		RevenueByCurrency: a.RevenueByCurrency,
		RefreshedAt:       a.RefreshedAt,
	}
}
