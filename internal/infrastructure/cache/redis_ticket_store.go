package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"

	"github.com/redis/go-redis/v9"
)

const defaultTicketKeyPrefix = "shopify:webhook:ticket:"

// RedisTicketStore implements TicketStore using Redis.
// Tickets are shared by every instance and expire through the key TTL.
type RedisTicketStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisTicketStore connects to the Redis URL and checks the connection
func NewRedisTicketStore(ctx context.Context, redisURL string) (*RedisTicketStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisTicketStoreWithClient(client, defaultTicketKeyPrefix), nil
}

// NewRedisTicketStoreWithClient creates a store with an existing Redis client
func NewRedisTicketStoreWithClient(client *redis.Client, keyPrefix string) *RedisTicketStore {
	if keyPrefix == "" {
		keyPrefix = defaultTicketKeyPrefix
	}
	return &RedisTicketStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkProcessed stores the ticket with SET NX and the retention as TTL.
// Returns true if the ticket was newly stored.
func (s *RedisTicketStore) MarkProcessed(ctx context.Context, ticket *domain.ProcessedWebhookTicket, ttl time.Duration) (bool, error) {
	value, err := json.Marshal(ticket)
	if err != nil {
		return false, fmt.Errorf("failed to encode ticket: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.keyPrefix+ticket.DeliveryID, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark delivery as processed: %w", err)
	}
	return ok, nil
}

// IsProcessed checks whether a ticket exists for the delivery id
func (s *RedisTicketStore) IsProcessed(ctx context.Context, deliveryID string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.keyPrefix+deliveryID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check delivery: %w", err)
	}
	return exists > 0, nil
}

// Close closes the Redis client
func (s *RedisTicketStore) Close() error {
	return s.client.Close()
}

var _ ports.TicketStore = (*RedisTicketStore)(nil)
