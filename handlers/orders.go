package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"marketplace-admin-svc/models"
	"marketplace-admin-svc/orders"
)

type OrderHandler struct {
	manager *orders.Manager
	logger  *zap.Logger
}

func NewOrderHandler(manager *orders.Manager, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		manager: manager,
		logger:  logger,
	}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "CreateOrder")
	defer span.End()

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.manager.Create(ctx, req)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	span.SetAttributes(
		attribute.Int64("order.id", order.ID),
		attribute.String("order.reference", order.Reference),
	)
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "GetOrder")
	defer span.End()

	id, ok := parseID(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("order.id", id))

	order, err := h.manager.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetOrderByReference(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "GetOrderByReference")
	defer span.End()

	reference := c.Param("reference")
	span.SetAttributes(attribute.String("order.reference", reference))

	order, err := h.manager.GetByReference(ctx, reference)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "ListOrders")
	defer span.End()

	filter := models.OrderFilter{
		Status:        models.OrderStatus(c.Query("status")),
		PaymentStatus: models.PaymentStatus(c.Query("payment_status")),
		Search:        c.Query("search"),
	}
	if v := c.Query("start"); v != "" {
		start, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date"})
			return
		}
		filter.Start = &start
	}
	if v := c.Query("end"); v != "" {
		end, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date"})
			return
		}
		filter.End = &end
	}
	if v := c.Query("min_amount"); v != "" {
		minAmount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid min_amount"})
			return
		}
		filter.MinAmount = &minAmount
	}
	if v := c.Query("max_amount"); v != "" {
		maxAmount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid max_amount"})
			return
		}
		filter.MaxAmount = &maxAmount
	}

	orderList, err := h.manager.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	span.SetAttributes(attribute.Int("orders.count", len(orderList)))
	c.JSON(http.StatusOK, orderList)
}

func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "UpdateOrder")
	defer span.End()

	id, ok := parseID(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("order.id", id))

	var req models.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.manager.Update(ctx, id, req)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "UpdateOrderStatus")
	defer span.End()

	id, ok := parseID(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("order.id", id))

	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.manager.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) UpdatePaymentStatus(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "UpdatePaymentStatus")
	defer span.End()

	id, ok := parseID(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("order.id", id))

	var req struct {
		PaymentStatus models.PaymentStatus `json:"payment_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.manager.UpdatePaymentStatus(ctx, id, req.PaymentStatus)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) AddTracking(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "AddTracking")
	defer span.End()

	id, ok := parseID(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("order.id", id))

	var req struct {
		TrackingNumber string `json:"tracking_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.manager.AddTracking(ctx, id, req.TrackingNumber)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "DeleteOrder")
	defer span.End()

	id, ok := parseID(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("order.id", id))

	if err := h.manager.Delete(ctx, id); err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order deleted successfully"})
}

func (h *OrderHandler) GetOrderLineItems(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "GetOrderLineItems")
	defer span.End()

	id, ok := parseID(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("order.id", id))

	items, err := h.manager.GetLineItems(ctx, id)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

func (h *OrderHandler) GetRevenue(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "GetRevenue")
	defer span.End()

	start, end, ok := parseDateRange(c)
	if !ok {
		return
	}

	revenue, err := h.manager.Revenue(ctx, start, end)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"revenue": revenue})
}

func (h *OrderHandler) GetOrdersCount(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "GetOrdersCount")
	defer span.End()

	since, err := time.Parse(time.RFC3339, c.Query("since"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since date"})
		return
	}

	count, err := h.manager.Count(ctx, since)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *OrderHandler) GetAverageOrderValue(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "GetAverageOrderValue")
	defer span.End()

	avg, err := h.manager.AverageOrderValue(ctx)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"average_order_value": avg})
}

func (h *OrderHandler) GetTopSellingProducts(c *gin.Context) {
	ctx, span := otel.Tracer("marketplace-admin-service").Start(c.Request.Context(), "GetTopSellingProducts")
	defer span.End()

	start, end, ok := parseDateRange(c)
	if !ok {
		return
	}

	products, err := h.manager.TopSellingProducts(ctx, start, end)
	if err != nil {
		span.RecordError(err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

func parseDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date"})
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date"})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
