package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"archie-core-shopify-sync/internal/application"
	"archie-core-shopify-sync/internal/application/webhook_handlers"
	"archie-core-shopify-sync/internal/config"
	apiinfra "archie-core-shopify-sync/internal/infrastructure/api"
	"archie-core-shopify-sync/internal/infrastructure/cache"
	"archie-core-shopify-sync/internal/infrastructure/metrics"
	"archie-core-shopify-sync/internal/infrastructure/repository"
	shopifyinfra "archie-core-shopify-sync/internal/infrastructure/shopify"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, dotenv, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	if !dotenv {
		logger.Warn().Msg(".env file not found, using process environment")
	}
	logger = logger.Level(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error().Err(err).Msg("Failed to disconnect from MongoDB")
		}
	}()

	db := client.Database(cfg.MongoDatabase)

	// Initialize repositories
	integrationRepo := repository.NewMongoIntegrationRepository(db)
	resourceRepo := repository.NewMongoResourceRepository(db)
	subscriptionRepo := repository.NewMongoSubscriptionRepository(db)
	analytics := repository.NewMongoAnalyticsRefresher(db, logger)

	if err := integrationRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create integration indexes")
	}
	if err := resourceRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create resource indexes")
	}
	if err := subscriptionRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create subscription indexes")
	}

	ticketStore, ticketCloser, err := cache.NewTicketStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize webhook ticket store")
	}
	defer ticketCloser.Close()

	promMetrics := metrics.NewPrometheus()

	// Initialize infrastructure (implementations)
	shopifyClient := shopifyinfra.NewClient(cfg.ShopifyAPIVersion, nil, logger)
	verifier := shopifyinfra.NewWebhookVerifier()

	// Initialize application services
	credentialsService := application.NewCredentialsService(integrationRepo, logger)
	integrationService := application.NewIntegrationService(integrationRepo, credentialsService, logger)
	tracker := application.NewIdempotencyTracker(ticketStore, cfg.TicketRetention, logger)
	reconciler := application.NewReconciler(resourceRepo, tracker, promMetrics, logger)

	orchestrator := application.NewSyncOrchestrator(
		credentialsService,
		integrationRepo,
		shopifyClient,
		reconciler,
		analytics,
		promMetrics,
		application.SyncConfig{
			PageSize:         cfg.SyncPageSize,
			PageDelay:        cfg.SyncPageDelay,
			MaxItems:         cfg.SyncMaxItems,
			RateLimitRetries: cfg.SyncRateLimitRetries,
		},
		logger,
	)

	subscriptionManager := application.NewSubscriptionManager(
		credentialsService,
		shopifyClient,
		subscriptionRepo,
		promMetrics,
		cfg.WebhookAddress(),
		logger,
	)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewOrderHandler(reconciler, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewCustomerHandler(reconciler, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewReturnHandler(reconciler, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(integrationRepo, subscriptionManager, tracker, logger))

	ingestion := application.NewWebhookIngestionService(credentialsService, verifier, webhookDispatcher, logger)

	router := apiinfra.NewRouter(apiinfra.RouterConfig{
		Webhooks:    apiinfra.NewWebhookHandler(ingestion, promMetrics, logger),
		Admin:       apiinfra.NewAdminHandler(integrationService, orchestrator, subscriptionManager, credentialsService, reconciler, logger),
		Metrics:     promMetrics.Handler(),
		SwaggerFile: "./docs/swagger.json",
		Logger:      logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("webhookAddress", cfg.WebhookAddress()).
			Str("ticketBackend", cfg.TicketBackend).
			Msg("Starting API server")
		logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
