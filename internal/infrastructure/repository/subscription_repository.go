package repository

import (
	"context"
	"fmt"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/infrastructure/repository/entity"
	"archie-core-shopify-sync/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSubscriptionRepository implements WebhookSubscriptionRepository using MongoDB.
// Records are keyed by (tenantId, topic), so saving a topic again replaces its record.
type MongoSubscriptionRepository struct {
	collection *mongo.Collection
}

// NewMongoSubscriptionRepository creates a new MongoDB subscription repository
func NewMongoSubscriptionRepository(db *mongo.Database) *MongoSubscriptionRepository {
	return &MongoSubscriptionRepository{
		collection: db.Collection("webhook_subscriptions"),
	}
}

var _ ports.WebhookSubscriptionRepository = (*MongoSubscriptionRepository)(nil)

// EnsureIndexes creates the unique (tenantId, topic) index Save upserts on
func (r *MongoSubscriptionRepository) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "topic", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create webhook_subscriptions index: %w", err)
	}
	return nil
}

// Save upserts the local record of a subscription and fills in its ID
func (r *MongoSubscriptionRepository) Save(ctx context.Context, sub *domain.WebhookSubscription) error {
	doc := entity.MongoSubscriptionDocFromDomain(sub)
	doc.ID = primitive.NilObjectID
	doc.UpdatedAt = time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}

	filter := bson.M{"tenantId": sub.TenantID, "topic": sub.Topic.String()}
	update := bson.M{"$set": doc}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var saved entity.MongoSubscriptionDoc
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved); err != nil {
		return fmt.Errorf("failed to save webhook subscription: %w", err)
	}

	sub.ID = saved.ID.Hex()
	sub.CreatedAt = saved.CreatedAt.UTC()
	sub.UpdatedAt = saved.UpdatedAt.UTC()
	return nil
}

// ListByTenant retrieves every local subscription record of a tenant
func (r *MongoSubscriptionRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.WebhookSubscription, error) {
	opts := options.Find().SetSort(bson.D{{Key: "topic", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"tenantId": tenantID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook subscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	var subs []*domain.WebhookSubscription
	for cursor.Next(ctx) {
		var doc entity.MongoSubscriptionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode webhook subscription: %w", err)
		}
		subs = append(subs, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return subs, nil
}

// DeleteByWebhookID removes the record of one platform subscription
func (r *MongoSubscriptionRepository) DeleteByWebhookID(ctx context.Context, tenantID string, webhookID int64) error {
	filter := bson.M{"tenantId": tenantID, "webhookId": webhookID}
	if _, err := r.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete webhook subscription: %w", err)
	}
	return nil
}

// DeleteByTenant removes every record of a tenant and reports how many were removed
func (r *MongoSubscriptionRepository) DeleteByTenant(ctx context.Context, tenantID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"tenantId": tenantID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete webhook subscriptions: %w", err)
	}
	return result.DeletedCount, nil
}
