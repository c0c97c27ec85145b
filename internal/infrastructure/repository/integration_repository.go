package repository

import (
	"context"
	"errors"
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

// MongoIntegrationRepository implements IntegrationRepository using MongoDB
type MongoIntegrationRepository struct {
	collection *mongo.Collection
}

// NewMongoIntegrationRepository creates a new MongoDB integration repository
func NewMongoIntegrationRepository(db *mongo.Database) *MongoIntegrationRepository {
	return &MongoIntegrationRepository{
		collection: db.Collection("integrations"),
	}
}

var _ ports.IntegrationRepository = (*MongoIntegrationRepository)(nil)

// EnsureIndexes creates the unique shopDomain index, so a shop maps to one tenant
func (r *MongoIntegrationRepository) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "shopDomain", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create integrations index: %w", err)
	}
	return nil
}

// Create creates a new integration and fills in its ID
func (r *MongoIntegrationRepository) Create(ctx context.Context, integration *domain.Integration) error {
	doc := entity.MongoIntegrationDocFromDomain(integration)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	doc.UpdatedAt = time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}
	if doc.Status == "" {
		doc.Status = string(domain.IntegrationStatusActive)
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("shop %s: %w", doc.ShopDomain, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create integration: %w", err)
	}

	integration.ID = doc.ID.Hex()
	integration.Status = domain.IntegrationStatus(doc.Status)
	integration.CreatedAt = doc.CreatedAt
	integration.UpdatedAt = doc.UpdatedAt
	return nil
}

// GetByID retrieves an integration by its tenant ID
func (r *MongoIntegrationRepository) GetByID(ctx context.Context, tenantID string) (*domain.Integration, error) {
	objID, err := primitive.ObjectIDFromHex(tenantID)
	if err != nil {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": objID})
}

// GetByShopDomain retrieves the integration connected to a shop
func (r *MongoIntegrationRepository) GetByShopDomain(ctx context.Context, shopDomain string) (*domain.Integration, error) {
	return r.findOne(ctx, bson.M{"shopDomain": shopDomain})
}

func (r *MongoIntegrationRepository) findOne(ctx context.Context, filter bson.M) (*domain.Integration, error) {
	var doc entity.MongoIntegrationDoc
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}

	return doc.ToDomain(), nil
}

// UpdateCredentials replaces the stored credentials
func (r *MongoIntegrationRepository) UpdateCredentials(ctx context.Context, tenantID string, creds domain.Credentials) error {
	update := bson.M{
		"$set": bson.M{
			"credentials": entity.MongoCredentialsDocFromDomain(creds),
			"updatedAt":   time.Now().UTC(),
		},
	}
	return r.updateByID(ctx, tenantID, update, "credentials")
}

// UpdateStatus sets the lifecycle status
func (r *MongoIntegrationRepository) UpdateStatus(ctx context.Context, tenantID string, status domain.IntegrationStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid integration status %q", status)
	}
	update := bson.M{
		"$set": bson.M{
			"status":    string(status),
			"updatedAt": time.Now().UTC(),
		},
	}
	return r.updateByID(ctx, tenantID, update, "status")
}

// SetLastSyncAt records the completion time of a bulk sync per kind
func (r *MongoIntegrationRepository) SetLastSyncAt(ctx context.Context, tenantID string, at map[domain.ResourceKind]time.Time) error {
	if len(at) == 0 {
		return nil
	}
	set := bson.M{"updatedAt": time.Now().UTC()}
	for kind, t := range at {
		set["lastSyncAt."+kind.String()] = t
	}
	return r.updateByID(ctx, tenantID, bson.M{"$set": set}, "last sync timestamps")
}

func (r *MongoIntegrationRepository) updateByID(ctx context.Context, tenantID string, update bson.M, what string) error {
	objID, err := primitive.ObjectIDFromHex(tenantID)
	if err != nil {
		return fmt.Errorf("integration %s: %w", tenantID, domain.ErrNotFound)
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("failed to update integration %s: %w", what, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("integration %s: %w", tenantID, domain.ErrNotFound)
	}
	return nil
}
