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
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoResourceRepository implements ResourceRepository using MongoDB.
// Each resource kind has its own collection plus a raw_ collection for snapshots.
type MongoResourceRepository struct {
	records   map[domain.ResourceKind]*mongo.Collection
	snapshots map[domain.ResourceKind]*mongo.Collection
}

// NewMongoResourceRepository creates a new MongoDB resource repository
func NewMongoResourceRepository(db *mongo.Database) *MongoResourceRepository {
	r := &MongoResourceRepository{
		records:   make(map[domain.ResourceKind]*mongo.Collection, len(domain.AllKinds)),
		snapshots: make(map[domain.ResourceKind]*mongo.Collection, len(domain.AllKinds)),
	}
	for _, kind := range domain.AllKinds {
		r.records[kind] = db.Collection(kind.String())
		r.snapshots[kind] = db.Collection("raw_" + kind.String())
	}
	return r
}

var _ ports.ResourceRepository = (*MongoResourceRepository)(nil)

// EnsureIndexes creates the unique (tenantId, upstreamId) index the conditional upsert relies on
func (r *MongoResourceRepository) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "upstreamId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	for _, kind := range domain.AllKinds {
		if _, err := r.records[kind].Indexes().CreateOne(ctx, indexModel); err != nil {
			return fmt.Errorf("failed to create %s index: %w", kind, err)
		}
		if _, err := r.snapshots[kind].Indexes().CreateOne(ctx, indexModel); err != nil {
			return fmt.Errorf("failed to create raw_%s index: %w", kind, err)
		}
	}
	return nil
}

// Get retrieves a record by its upstream id
func (r *MongoResourceRepository) Get(ctx context.Context, tenantID string, kind domain.ResourceKind, upstreamID string) (*domain.Record, error) {
	coll, err := r.collection(r.records, kind)
	if err != nil {
		return nil, err
	}

	var doc entity.MongoRecordDoc
	err = coll.FindOne(ctx, recordKey(tenantID, upstreamID)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", kind, err)
	}

	return doc.ToDomain(), nil
}

// Upsert writes the record only if no stored record has a strictly newer
// upstream updatedAt. The comparison and the write happen in one UpdateOne.
func (r *MongoResourceRepository) Upsert(ctx context.Context, record *domain.Record) (domain.WriteResult, error) {
	coll, err := r.collection(r.records, record.Kind)
	if err != nil {
		return "", err
	}

	doc := entity.MongoRecordDocFromDomain(record)
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	doc.CreatedAt = time.Time{}

	filter := recordKey(record.TenantID, record.UpstreamID)
	filter["updatedAt"] = bson.M{"$lte": record.UpdatedAt}
	update := bson.M{
		"$set":         doc,
		"$setOnInsert": bson.M{"createdAt": createdAt},
	}

	result, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err == nil {
		if result.UpsertedCount > 0 {
			return domain.WriteCreated, nil
		}
		return domain.WriteUpdated, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return "", fmt.Errorf("failed to upsert %s: %w", record.Kind, err)
	}

	// A stored record exists and is newer, or a concurrent insert won the race.
	// Either way it now exists, so retry as a plain conditional update.
	result, err = coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", record.Kind, err)
	}
	if result.MatchedCount == 0 {
		return domain.WriteStale, nil
	}
	return domain.WriteUpdated, nil
}

// SaveSnapshot overwrites the raw payload kept for a record
func (r *MongoResourceRepository) SaveSnapshot(ctx context.Context, snapshot *domain.RawSnapshot) error {
	coll, err := r.collection(r.snapshots, snapshot.Kind)
	if err != nil {
		return err
	}

	doc := entity.MongoSnapshotDocFromDomain(snapshot)
	opts := options.Replace().SetUpsert(true)
	if _, err := coll.ReplaceOne(ctx, recordKey(snapshot.TenantID, snapshot.UpstreamID), doc, opts); err != nil {
		return fmt.Errorf("failed to save %s snapshot: %w", snapshot.Kind, err)
	}
	return nil
}

// Delete removes a record and its snapshot. It reports whether a record existed.
func (r *MongoResourceRepository) Delete(ctx context.Context, tenantID string, kind domain.ResourceKind, upstreamID string) (bool, error) {
	coll, err := r.collection(r.records, kind)
	if err != nil {
		return false, err
	}

	result, err := coll.DeleteOne(ctx, recordKey(tenantID, upstreamID))
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	if _, err := r.snapshots[kind].DeleteOne(ctx, recordKey(tenantID, upstreamID)); err != nil {
		return false, fmt.Errorf("failed to delete %s snapshot: %w", kind, err)
	}

	return result.DeletedCount > 0, nil
}

func (r *MongoResourceRepository) collection(set map[domain.ResourceKind]*mongo.Collection, kind domain.ResourceKind) (*mongo.Collection, error) {
	coll, ok := set[kind]
	if !ok {
		return nil, fmt.Errorf("unknown resource kind %q: %w", kind, domain.ErrInvalidPayload)
	}
	return coll, nil
}

func recordKey(tenantID, upstreamID string) bson.M {
	return bson.M{"tenantId": tenantID, "upstreamId": upstreamID}
}
