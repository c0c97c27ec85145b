package repository

import (
	"context"
	"fmt"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/infrastructure/repository/entity"
	"archie-core-shopify-sync/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAnalyticsRefresher recomputes per-tenant aggregates from the mirrored
// collections and stores them in tenant_analytics.
type MongoAnalyticsRefresher struct {
	orders    *mongo.Collection
	customers *mongo.Collection
	returns   *mongo.Collection
	analytics *mongo.Collection
	logger    zerolog.Logger
}

// NewMongoAnalyticsRefresher creates a new analytics refresher
func NewMongoAnalyticsRefresher(db *mongo.Database, logger zerolog.Logger) ports.AnalyticsRefresher {
	return &MongoAnalyticsRefresher{
		orders:    db.Collection(domain.KindOrder.String()),
		customers: db.Collection(domain.KindCustomer.String()),
		returns:   db.Collection(domain.KindReturn.String()),
		analytics: db.Collection("tenant_analytics"),
		logger:    logger,
	}
}

type revenueRow struct {
	Currency string               `bson:"_id"`
	Total    primitive.Decimal128 `bson:"total"`
}

// Refresh counts the tenant's records, sums order revenue per currency and stores the result
func (r *MongoAnalyticsRefresher) Refresh(ctx context.Context, tenantID string) (*domain.TenantAnalytics, error) {
	filter := bson.M{"tenantId": tenantID}

	orderCount, err := r.orders.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	customerCount, err := r.customers.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	returnCount, err := r.returns.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count returns: %w", err)
	}

	revenue, err := r.revenueByCurrency(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	result := &domain.TenantAnalytics{
		TenantID:          tenantID,
		OrderCount:        orderCount,
		CustomerCount:     customerCount,
		ReturnCount:       returnCount,
		RevenueByCurrency: revenue,
		RefreshedAt:       time.Now().UTC(),
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := r.analytics.ReplaceOne(ctx, filter, entity.MongoAnalyticsDocFromDomain(result), opts); err != nil {
		return nil, fmt.Errorf("failed to save tenant analytics: %w", err)
	}

	r.logger.Info().
		Str("tenantId", tenantID).
		Int64("orders", orderCount).
		Int64("customers", customerCount).
		Int64("returns", returnCount).
		Msg("Tenant analytics refreshed")

	return result, nil
}

// revenueByCurrency sums totalPrice of non-cancelled orders. Prices are stored
// as strings, so they are converted with $toDecimal inside the pipeline.
func (r *MongoAnalyticsRefresher) revenueByCurrency(ctx context.Context, tenantID string) (map[string]string, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tenantId": tenantID, "order.cancelledAt": nil}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$order.currency",
			"total": bson.M{"$sum": bson.M{"$toDecimal": "$order.totalPrice"}},
		}}},
	}

	cursor, err := r.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []revenueRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode revenue: %w", err)
	}

	revenue := make(map[string]string, len(rows))
	for _, row := range rows {
		total, err := decimal.NewFromString(row.Total.String())
		if err != nil {
			return nil, fmt.Errorf("failed to parse revenue for %s: %w", row.Currency, err)
		}
		revenue[row.Currency] = total.String()
	}
	return revenue, nil
}
