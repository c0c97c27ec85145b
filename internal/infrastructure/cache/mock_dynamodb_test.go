package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ticketTableMock is a tiny in-memory stand-in for a DynamoDB table keyed by delivery_id.
// It understands only the condition expression the ticket store sends.
type ticketTableMock struct {
	mu       sync.Mutex
	table    map[string]map[string]types.AttributeValue
	putCalls int
	getCalls int
	failWith error
}

func newTicketTableMock() *ticketTableMock {
	return &ticketTableMock{
		table: map[string]map[string]types.AttributeValue{},
	}
}

func (m *ticketTableMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.failWith != nil {
		return nil, m.failWith
	}

	keyAttr, ok := params.Item["delivery_id"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("missing key")
	}

	if params.ConditionExpression != nil && *params.ConditionExpression == markCondition {
		if existing, ok := m.table[keyAttr.Value]; ok {
			now, _ := strconv.ParseInt(params.ExpressionAttributeValues[":now"].(*types.AttributeValueMemberN).Value, 10, 64)
			expires, _ := strconv.ParseInt(existing["expires_at"].(*types.AttributeValueMemberN).Value, 10, 64)
			if expires >= now {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
	}

	m.table[keyAttr.Value] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *ticketTableMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.failWith != nil {
		return nil, m.failWith
	}

	keyAttr, ok := params.Key["delivery_id"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("missing key")
	}
	item, ok := m.table[keyAttr.Value]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}
