package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"marketplace-admin-svc/catalog"
	"marketplace-admin-svc/models"
)

type CatalogHandler struct {
	manager *catalog.Manager
	logger  *zap.Logger
}

func NewCatalogHandler(manager *catalog.Manager, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		manager: manager,
		logger:  logger,
	}
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "CreateProduct")
	defer span.End()

	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.manager.Create(ctx, req)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	span.SetAttributes(attribute.Int64("product.id", product.ID))
	c.JSON(http.StatusCreated, product)
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "GetProduct")
	defer span.End()

	id, ok := parseID(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("product.id", id))

	product, err := h.manager.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "ListProducts")
	defer span.End()

	filter := models.ProductFilter{
		Status:   models.ProductStatus(c.Query("status")),
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
	}
	if v := c.Query("featured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid featured flag"})
			return
		}
		filter.Featured = &featured
	}
	if v := c.Query("min_price"); v != "" {
		minPrice, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid min_price"})
			return
		}
		filter.MinPrice = &minPrice
	}
	if v := c.Query("max_price"); v != "" {
		maxPrice, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid max_price"})
			return
		}
		filter.MaxPrice = &maxPrice
	}
	if v := c.Query("low_stock"); v != "" {
		threshold, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid low_stock threshold"})
			return
		}
		filter.LowStockThreshold = &threshold
	}

	products, err := h.manager.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	span.SetAttributes(attribute.Int("products.count", len(products)))
	c.JSON(http.StatusOK, products)
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "UpdateProduct")
	defer span.End()

	id, ok := parseID(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("product.id", id))

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.manager.Update(ctx, id, req)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) UpdateProductStatus(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "UpdateProductStatus")
	defer span.End()

	id, ok := parseID(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("product.id", id))

	var req struct {
		Status models.ProductStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.manager.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) UpdateProductInventory(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "UpdateProductInventory")
	defer span.End()

	id, ok := parseID(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("product.id", id))

	var req struct {
		Inventory *int `json:"inventory" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.manager.UpdateInventory(ctx, id, *req.Inventory)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "DeleteProduct")
	defer span.End()

	id, ok := parseID(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("product.id", id))

	if err := h.manager.Delete(ctx, id); err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

func (h *CatalogHandler) ResyncMirror(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "ResyncMirror")
	defer span.End()

	synced, err := h.manager.ResyncMirror(ctx)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	span.SetAttributes(attribute.Int("products.synced", synced))
	c.JSON(http.StatusOK, gin.H{"synced": synced})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}
