package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"marketplace-admin-svc/cache"
	"marketplace-admin-svc/circuitbreaker"
	"marketplace-admin-svc/marketplace"
	"marketplace-admin-svc/models"
)

const itemCacheTTL = 5 * time.Minute

// MarketplaceHandler serves the customer-facing read view. Single-item
// lookups go cache first, then the database behind a circuit breaker.
type MarketplaceHandler struct {
	db             *sql.DB
	redisClient    *redis.Client
	logger         *zap.Logger
	circuitBreaker *circuitbreaker.CircuitBreaker
}

func NewMarketplaceHandler(db *sql.DB, redisClient *redis.Client, logger *zap.Logger) *MarketplaceHandler {
	return &MarketplaceHandler{
		db:             db,
		redisClient:    redisClient,
		logger:         logger,
		circuitBreaker: circuitbreaker.NewCircuitBreaker(5, 30*time.Second),
	}
}

func (h *MarketplaceHandler) ListItems(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "ListMarketplaceItems")
	defer span.End()

	items, err := marketplace.ListActive(ctx, h.db)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	span.SetAttributes(attribute.Int("items.count", len(items)))
	c.JSON(http.StatusOK, items)
}

func (h *MarketplaceHandler) GetItem(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "GetMarketplaceItem")
	defer span.End()

	productID, ok := parseProductID(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("product.id", productID))

	// Try to get from cache first
	if h.redisClient != nil {
		cachedData, err := cache.GetItem(ctx, h.redisClient, productID)
		if err == nil {
			var item models.MarketplaceItem
			if err := json.Unmarshal(cachedData, &item); err == nil {
				span.SetAttributes(attribute.Bool("cache.hit", true))
				c.JSON(http.StatusOK, item)
				return
			}
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	var item models.MarketplaceItem
	dbErr := h.circuitBreaker.Execute(ctx, func() error {
		var err error
		item, err = marketplace.GetByProductID(ctx, h.db, productID)
		return err
	})
	if dbErr != nil {
		if dbErr == circuitbreaker.ErrCircuitOpen {
			span.SetAttributes(attribute.String("circuit.state", "open"))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
			return
		}
		span.RecordError(dbErr)
		respondError(c, h.logger, dbErr)
		return
	}

	if h.redisClient != nil {
		if err := cache.SetItem(ctx, h.redisClient, productID, item, itemCacheTTL); err != nil {
			h.logger.Warn("Failed to cache marketplace item",
				zap.Int64("product_id", productID), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, item)
}

func parseProductID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return 0, false
	}
	return id, true
}
