package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cobrify/stock-service/internal/application"
	"github.com/cobrify/stock-service/internal/config"
	"github.com/cobrify/stock-service/internal/infrastructure/cache"
	"github.com/cobrify/stock-service/internal/infrastructure/messaging"
	mongoRepo "github.com/cobrify/stock-service/internal/infrastructure/mongodb"
	"github.com/cobrify/stock-service/pkg/cloudevents"
	"github.com/cobrify/stock-service/pkg/kafka"
	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/cobrify/stock-service/pkg/metrics"
	"github.com/cobrify/stock-service/pkg/mongodb"
	"github.com/cobrify/stock-service/pkg/outbox"
	"github.com/cobrify/stock-service/pkg/tracing"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LoggingConfig())
	logger.SetDefault()
	logger.Info("Starting stock-service API", "version", cfg.Version, "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := tracing.Initialize(ctx, cfg.Tracing)
	if err != nil {
		// tracing is optional
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", cfg.Tracing.OTLPEndpoint)
	}

	m := metrics.New(metrics.DefaultConfig(cfg.ServiceName))

	mongoClient, err := mongodb.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Close(closeCtx)
	}()
	logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)

	inst := mongodb.NewInstrumentation(cfg.MongoDB.Database, m, logger)
	repos := mongoRepo.NewRepositories(mongoClient, cloudevents.NewEventFactory(cloudevents.SourceStock), inst)
	if err := repos.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("Failed to ensure indexes")
	}

	var warehouseCache application.WarehouseCache
	if cfg.Redis.Enabled() {
		redisCache, err := cache.NewWarehouseCache(ctx, cfg.Redis)
		if err != nil {
			logger.WithError(err).Warn("Warehouse cache unavailable, reading warehouses from MongoDB")
		} else {
			defer redisCache.Close()
			warehouseCache = redisCache
			logger.Info("Warehouse cache enabled", "ttl", cfg.Redis.TTL)
		}
	}

	store := application.StockStore{
		Ingredients: repos.Ingredients,
		Products:    repos.Products,
		Movements:   repos.Movements,
		Tx:          mongoClient,
	}
	recipeService := application.NewRecipeService(repos.Recipes, store, logger, m)
	svc := services{
		ingredients: application.NewIngredientService(store, repos.Purchases, logger, m),
		recipes:     recipeService,
		productions: application.NewProductionService(store, repos.Recipes, repos.Productions, recipeService, logger, m),
		warehouses:  application.NewWarehouseService(repos.Warehouses, store, warehouseCache, logger, m),
	}

	producer := kafka.NewProductionProducer(cfg.Kafka, m, logger)
	defer producer.Close()

	outboxPublisher := outbox.NewPublisher(repos.Outbox, producer, logger, m, &outbox.PublisherConfig{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
	})
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()

	consumer := kafka.NewProductionConsumer(cfg.Kafka, m, logger)
	defer consumer.Close()
	messaging.NewSaleEventHandler(svc.recipes, svc.ingredients, logger).Register(consumer)
	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("Sale event consumer stopped")
		}
	}()
	logger.Info("Sale event consumer started", "topic", kafka.Topics.SalesEvents)

	router := newRouter(svc, routerConfig{
		serviceName:    cfg.ServiceName,
		logger:         logger.Logger,
		metrics:        m,
		requestTimeout: cfg.HTTP.RequestTimeout,
		corsOrigins:    cfg.HTTP.CORSOrigins,
		ready:          mongoClient.HealthCheck,
		status: func() gin.H {
			return gin.H{
				"service":  cfg.ServiceName,
				"version":  cfg.Version,
				"outbox":   outboxPublisher.Stats(),
				"producer": producer.Status(),
			}
		},
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			stop()
		}
	}()
	logger.Info("Server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	logger.Info("Server exited")
}
