package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"marketplace-admin-svc/cache"
	"marketplace-admin-svc/catalog"
	"marketplace-admin-svc/database"
	"marketplace-admin-svc/handlers"
	"marketplace-admin-svc/kafka"
	"marketplace-admin-svc/marketplace"
	"marketplace-admin-svc/middleware"
	"marketplace-admin-svc/orders"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := database.InitDB(logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis cache
	redisClient, err := cache.InitRedis(logger)
	if err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Initialize Kafka producer
	producer, err := kafka.InitProducer(logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	// Initialize Kafka consumer (mirror repair worker)
	consumer, err := kafka.InitConsumer(logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	// Initialize OpenTelemetry
	shutdownTracing, err := middleware.InitTracing("marketplace-admin-service")
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	events := kafka.NewProducer(producer, logger)
	synchronizer := marketplace.NewSynchronizer(redisClient, logger)
	catalogManager := catalog.NewManager(db, synchronizer, events, logger)
	orderManager := orders.NewManager(db, events, logger)

	// Backfill the marketplace mirror from the catalog on boot. Failures are
	// logged, not fatal; the resync endpoint repairs drift on demand.
	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 2*time.Minute)
	if _, err := synchronizer.ResyncAll(bootCtx, db); err != nil {
		logger.Error("Failed to resync marketplace mirror on startup", zap.Error(err))
	}
	cancelBoot()

	// Start mirror repair consumer in background
	go func() {
		if err := kafka.StartConsumer(consumer, db, synchronizer, logger); err != nil {
			logger.Error("Kafka consumer error", zap.Error(err))
		}
	}()

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	// OpenTelemetry middleware must be first to extract trace context
	router.Use(otelgin.Middleware("marketplace-admin-service"))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	// Health check endpoint
	router.GET("/health", handlers.HealthCheck)

	// Metrics endpoint
	router.GET("/metrics", middleware.PrometheusHandler())

	// Customer-facing marketplace endpoints
	marketplaceHandler := handlers.NewMarketplaceHandler(db, redisClient, logger)
	router.GET("/marketplace/items", marketplaceHandler.ListItems)
	router.GET("/marketplace/items/:productId", marketplaceHandler.GetItem)

	// Admin endpoints
	admin := router.Group("/admin", middleware.AdminAuthMiddleware())

	catalogHandler := handlers.NewCatalogHandler(catalogManager, logger)
	admin.POST("/products", catalogHandler.CreateProduct)
	admin.GET("/products", catalogHandler.ListProducts)
	admin.GET("/products/:id", catalogHandler.GetProduct)
	admin.PUT("/products/:id", catalogHandler.UpdateProduct)
	admin.PATCH("/products/:id/status", catalogHandler.UpdateProductStatus)
	admin.PATCH("/products/:id/inventory", catalogHandler.UpdateProductInventory)
	admin.DELETE("/products/:id", catalogHandler.DeleteProduct)
	admin.POST("/catalog/resync", catalogHandler.ResyncMirror)

	orderHandler := handlers.NewOrderHandler(orderManager, logger)
	admin.POST("/orders", orderHandler.CreateOrder)
	admin.GET("/orders", orderHandler.ListOrders)
	admin.GET("/orders/:id", orderHandler.GetOrder)
	admin.GET("/orders/reference/:reference", orderHandler.GetOrderByReference)
	admin.PUT("/orders/:id", orderHandler.UpdateOrder)
	admin.PATCH("/orders/:id/status", orderHandler.UpdateOrderStatus)
	admin.PATCH("/orders/:id/payment-status", orderHandler.UpdatePaymentStatus)
	admin.PATCH("/orders/:id/tracking", orderHandler.AddTracking)
	admin.DELETE("/orders/:id", orderHandler.DeleteOrder)
	admin.GET("/orders/:id/items", orderHandler.GetOrderLineItems)
	admin.GET("/analytics/revenue", orderHandler.GetRevenue)
	admin.GET("/analytics/orders-count", orderHandler.GetOrdersCount)
	admin.GET("/analytics/average-order-value", orderHandler.GetAverageOrderValue)
	admin.GET("/analytics/top-products", orderHandler.GetTopSellingProducts)

	// Start server
	srv := &http.Server{
		Addr:    ":" + getEnv("PORT", "8086"),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Marketplace Admin Service started", zap.String("addr", srv.Addr))

	gracefulShutdown(srv, db, redisClient, producer, consumer, shutdownTracing, logger)
}

// gracefulShutdown handles SIGINT/SIGTERM and shuts down all services gracefully
func gracefulShutdown(
	srv *http.Server,
	db *sql.DB,
	redisClient *redis.Client,
	producer sarama.SyncProducer,
	consumer sarama.Consumer,
	shutdownTracing func(),
	logger *zap.Logger,
) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received. Exiting...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server forced to shutdown", zap.Error(err))
	} else {
		logger.Info("HTTP server stopped gracefully")
	}

	if err := consumer.Close(); err != nil {
		logger.Error("Failed to close Kafka consumer", zap.Error(err))
	} else {
		logger.Info("Kafka consumer closed gracefully")
	}

	if err := producer.Close(); err != nil {
		logger.Error("Failed to close Kafka producer", zap.Error(err))
	} else {
		logger.Info("Kafka producer closed gracefully")
	}

	if err := db.Close(); err != nil {
		logger.Error("Failed to close database", zap.Error(err))
	} else {
		logger.Info("Database connection closed gracefully")
	}

	if err := redisClient.Close(); err != nil {
		logger.Error("Failed to close Redis cache", zap.Error(err))
	} else {
		logger.Info("Redis cache closed gracefully")
	}

	shutdownTracing()
	logger.Info("Marketplace Admin Service exited gracefully")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
