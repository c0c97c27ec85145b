package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Ticket store backends
const (
	TicketBackendRedis    = "redis"
	TicketBackendDynamoDB = "dynamodb"
	TicketBackendMemory   = "memory"
)

// Config holds everything the service reads from the environment
type Config struct {
	Port     string
	AppURL   string
	LogLevel zerolog.Level

	MongoURI      string
	MongoDatabase string

	RedisURL            string
	TicketBackend       string
	DynamoDBTicketTable string
	TicketRetention     time.Duration

	ShopifyAPIVersion string

	SyncPageSize         int
	SyncPageDelay        time.Duration
	SyncMaxItems         int
	SyncRateLimitRetries int
}

// WebhookAddress is the fixed ingestion address every subscription points at
func (c *Config) WebhookAddress() string {
	return strings.TrimRight(c.AppURL, "/") + "/webhooks/shopify"
}

// Load reads an optional .env file and then the process environment
func Load() (*Config, bool, error) {
	dotenv := godotenv.Load() == nil
	cfg, err := FromEnv(os.Getenv)
	return cfg, dotenv, err
}

// FromEnv builds a Config from a lookup function, applying defaults for unset values
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:                env("PORT", "8080"),
		AppURL:              env("APP_URL", "http://localhost:8080"),
		MongoURI:            env("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:       env("MONGODB_DATABASE", "shopify_sync"),
		RedisURL:            env("REDIS_URL", "redis://localhost:6379/0"),
		TicketBackend:       strings.ToLower(env("TICKET_BACKEND", TicketBackendRedis)),
		DynamoDBTicketTable: env("DYNAMODB_TICKET_TABLE", "shopify_webhook_tickets"),
		ShopifyAPIVersion:   env("SHOPIFY_API_VERSION", "2024-10"),
	}

	level, err := zerolog.ParseLevel(strings.ToLower(env("LOG_LEVEL", "info")))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	switch cfg.TicketBackend {
	case TicketBackendRedis, TicketBackendDynamoDB, TicketBackendMemory:
	default:
		return nil, fmt.Errorf("invalid TICKET_BACKEND %q", cfg.TicketBackend)
	}

	if cfg.TicketRetention, err = parseDuration(env("TICKET_RETENTION", "720h"), "TICKET_RETENTION"); err != nil {
		return nil, err
	}
	if cfg.SyncPageDelay, err = parseDuration(env("SYNC_PAGE_DELAY", "500ms"), "SYNC_PAGE_DELAY"); err != nil {
		return nil, err
	}
	if cfg.SyncPageSize, err = parseInt(env("SYNC_PAGE_SIZE", "250"), "SYNC_PAGE_SIZE", 1); err != nil {
		return nil, err
	}
	if cfg.SyncMaxItems, err = parseInt(env("SYNC_MAX_ITEMS", "10000"), "SYNC_MAX_ITEMS", 1); err != nil {
		return nil, err
	}
	if cfg.SyncRateLimitRetries, err = parseInt(env("SYNC_RATE_LIMIT_RETRIES", "5"), "SYNC_RATE_LIMIT_RETRIES", 0); err != nil {
		return nil, err
	}
	if cfg.SyncPageSize > 250 {
		cfg.SyncPageSize = 250
	}

	return cfg, nil
}

func parseDuration(v, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func parseInt(v, key string, min int) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < min {
		return 0, fmt.Errorf("invalid %s: must be at least %d", key, min)
	}
	return n, nil
}
