package cache

import (
	"context"
	"fmt"
	"io"

	"archie-core-shopify-sync/internal/config"
	"archie-core-shopify-sync/internal/ports"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewTicketStore builds the ticket store selected by TICKET_BACKEND.
// The returned closer releases its connections.
func NewTicketStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (ports.TicketStore, io.Closer, error) {
	switch cfg.TicketBackend {
	case config.TicketBackendRedis:
		store, err := NewRedisTicketStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Msg("Using Redis webhook ticket store")
		return store, store, nil

	case config.TicketBackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		logger.Info().Str("table", cfg.DynamoDBTicketTable).Msg("Using DynamoDB webhook ticket store")
		return NewDynamoDBTicketStore(dyn.NewFromConfig(awsCfg), cfg.DynamoDBTicketTable), nopCloser{}, nil

	case config.TicketBackendMemory:
		logger.Warn().Msg("Using in-memory webhook ticket store; deliveries are not deduplicated across instances")
		store := NewInMemoryTicketStore()
		return store, store, nil

	default:
		return nil, nil, fmt.Errorf("unknown ticket backend %q", cfg.TicketBackend)
	}
}
