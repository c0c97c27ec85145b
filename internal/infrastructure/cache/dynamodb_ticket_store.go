package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// DynamoDBAPI is the subset of the DynamoDB client the ticket store uses
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error)
	GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error)
}

// ticketItem is the DynamoDB representation of a ticket.
// expires_at is the table's TTL attribute, in epoch seconds.
type ticketItem struct {
	DeliveryID  string `dynamodbav:"delivery_id"`
	Topic       string `dynamodbav:"topic"`
	EntityID    string `dynamodbav:"entity_id"`
	TenantID    string `dynamodbav:"tenant_id"`
	ProcessedAt string `dynamodbav:"processed_at"`
	ExpiresAt   int64  `dynamodbav:"expires_at"`
}

// markCondition lets an expired ticket that TTL has not swept yet be replaced
const markCondition = "attribute_not_exists(delivery_id) OR expires_at < :now"

// DynamoDBTicketStore implements TicketStore with conditional writes on a DynamoDB table
type DynamoDBTicketStore struct {
	client    DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewDynamoDBTicketStore returns a store bound to a table keyed by delivery_id
func NewDynamoDBTicketStore(client DynamoDBAPI, tableName string) *DynamoDBTicketStore {
	return &DynamoDBTicketStore{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// MarkProcessed puts the ticket if no live one exists.
// Returns (false, nil) when the conditional check fails.
func (s *DynamoDBTicketStore) MarkProcessed(ctx context.Context, ticket *domain.ProcessedWebhookTicket, ttl time.Duration) (bool, error) {
	now := s.nowFunc()
	item, err := attributevalue.MarshalMap(ticketItem{
		DeliveryID:  ticket.DeliveryID,
		Topic:       ticket.Topic.String(),
		EntityID:    ticket.EntityID,
		TenantID:    ticket.TenantID,
		ProcessedAt: ticket.ProcessedAt.Format(time.RFC3339),
		ExpiresAt:   now.Add(ttl).Unix(),
	})
	if err != nil {
		return false, fmt.Errorf("marshal ticket: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String(markCondition),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
		},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException" {
			return false, nil
		}
		return false, fmt.Errorf("put ticket: %w", err)
	}
	return true, nil
}

// IsProcessed reads the ticket and treats an expired one as absent
func (s *DynamoDBTicketStore) IsProcessed(ctx context.Context, deliveryID string) (bool, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"delivery_id": &types.AttributeValueMemberS{Value: deliveryID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("get ticket: %w", err)
	}
	if len(out.Item) == 0 {
		return false, nil
	}

	var item ticketItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return false, fmt.Errorf("unmarshal ticket: %w", err)
	}
	return item.ExpiresAt > s.nowFunc().Unix(), nil
}

var _ ports.TicketStore = (*DynamoDBTicketStore)(nil)
