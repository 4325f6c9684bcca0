// Package orders owns the order ledger: order lifecycle, line-item
// snapshots, reference generation and aggregate analytics. Orders reference
// catalog products but never mutate them.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"marketplace-admin-svc/database"
	"marketplace-admin-svc/errs"
	"marketplace-admin-svc/middleware"
	"marketplace-admin-svc/models"
)

const orderColumns = `id, order_reference, customer_name, customer_email, total, subtotal, tax,
	shipping, status, payment_status, shipping_line1, shipping_line2, shipping_city,
	shipping_state, shipping_postal_code, shipping_country, tracking_number,
	cancellation_reason, admin_notes, created_at, updated_at, completed_at`

const lineItemColumns = `id, order_id, product_id, quantity, unit_price, line_total,
	name_snapshot, description_snapshot, discount, fulfillment_status, created_at`

// maxReferenceAttempts bounds reference regeneration on collision. The 32-bit
// keyspace makes collisions rare enough that hitting the bound means something
// is wrong with the store, not with luck.
const maxReferenceAttempts = 5

var referencePattern = regexp.MustCompile(`^ORD-[0-9A-F]{8}$`)

// EventPublisher emits order change events after the write commits.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

type Manager struct {
	db     *sql.DB
	events EventPublisher
	logger *zap.Logger
}

// NewManager builds an order Manager. events may be nil; change events are
// then not emitted.
func NewManager(db *sql.DB, events EventPublisher, logger *zap.Logger) *Manager {
	return &Manager{
		db:     db,
		events: events,
		logger: logger,
	}
}

// Create persists an order and its line items in one transaction. Each line
// item snapshots the product's name, description and unit price at this
// moment; later catalog edits never touch them.
func (m *Manager) Create(ctx context.Context, req models.CreateOrderRequest) (models.Order, error) {
	var order models.Order

	if req.Total < 0 || req.Subtotal < 0 || req.Tax < 0 || req.Shipping < 0 {
		return order, errs.Validationf("order amounts must not be negative")
	}
	status := req.Status
	if status == "" {
		status = models.OrderStatusPendingConfirmation
	}
	if !status.Valid() {
		return order, errs.Validationf("unknown order status %q", status)
	}
	paymentStatus := req.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = models.PaymentStatusPending
	}
	if !paymentStatus.Valid() {
		return order, errs.Validationf("unknown payment status %q", paymentStatus)
	}
	if req.Reference != "" && !referencePattern.MatchString(req.Reference) {
		return order, errs.Validationf("order reference %q does not match ORD-XXXXXXXX", req.Reference)
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return order, errs.Validationf("quantity must be at least 1 for product %d", item.ProductID)
		}
		if item.Discount < 0 {
			return order, errs.Validationf("discount must not be negative for product %d", item.ProductID)
		}
	}

	var err error
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		order, err = m.createOrder(ctx, req, status, paymentStatus)
		if !isReferenceViolation(err) {
			break
		}
		// A concurrent create claimed the reference between the
		// pre-insert check and the insert itself.
		if req.Reference != "" {
			return models.Order{}, errs.Conflictf("order reference %s already exists", req.Reference)
		}
	}
	if isReferenceViolation(err) {
		return models.Order{}, errs.Conflictf("could not generate a unique order reference after %d attempts", maxReferenceAttempts)
	}
	if err != nil {
		return models.Order{}, err
	}

	middleware.RecordOrderCreated(string(order.PaymentStatus))
	m.publish(ctx, models.OrderEvent{
		OrderID:       order.ID,
		Reference:     order.Reference,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Total:         order.Total,
		EventType:     "order_created",
	})
	m.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("reference", order.Reference))
	return order, nil
}

// createOrder runs one insert attempt in its own transaction. A reference
// unique violation comes back unwrapped so Create can roll the whole attempt
// back and retry with a fresh reference.
func (m *Manager) createOrder(ctx context.Context, req models.CreateOrderRequest, status models.OrderStatus, paymentStatus models.PaymentStatus) (models.Order, error) {
	var order models.Order
	err := database.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		reference, err := m.resolveReference(ctx, tx, req.Reference)
		if err != nil {
			return err
		}

		row := tx.QueryRowContext(ctx,
			`INSERT INTO orders
				(order_reference, customer_name, customer_email, total, subtotal, tax, shipping,
				 status, payment_status, shipping_line1, shipping_line2, shipping_city,
				 shipping_state, shipping_postal_code, shipping_country, admin_notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			RETURNING `+orderColumns,
			reference, req.CustomerName, req.CustomerEmail, req.Total, req.Subtotal,
			req.Tax, req.Shipping, status, paymentStatus, req.ShippingLine1, req.ShippingLine2,
			req.ShippingCity, req.ShippingState, req.ShippingPostalCode, req.ShippingCountry,
			req.AdminNotes,
		)
		order, err = scanOrderRow(row)
		if isReferenceViolation(err) {
			return err
		}
		if err != nil {
			return errs.Storef("insert order: %v", err)
		}

		for _, item := range req.Items {
			lineItem, err := m.insertLineItem(ctx, tx, order.ID, item)
			if err != nil {
				return err
			}
			order.Items = append(order.Items, lineItem)
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}

// isReferenceViolation reports whether err is the store's unique violation
// raised when an insert loses the race for a reference that passed the
// pre-insert check. The reference key is the only unique index the orders
// insert can hit.
func isReferenceViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (m *Manager) resolveReference(ctx context.Context, tx *sql.Tx, supplied string) (string, error) {
	if supplied != "" {
		taken, err := m.referenceTaken(ctx, tx, supplied)
		if err != nil {
			return "", err
		}
		if taken {
			return "", errs.Conflictf("order reference %s already exists", supplied)
		}
		return supplied, nil
	}

	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		reference := generateReference()
		taken, err := m.referenceTaken(ctx, tx, reference)
		if err != nil {
			return "", err
		}
		if !taken {
			return reference, nil
		}
	}
	return "", errs.Conflictf("could not generate a unique order reference after %d attempts", maxReferenceAttempts)
}

func (m *Manager) referenceTaken(ctx context.Context, tx *sql.Tx, reference string) (bool, error) {
	var taken bool
	err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM orders WHERE order_reference = $1)", reference,
	).Scan(&taken)
	if err != nil {
		return false, errs.Storef("check order reference %s: %v", reference, err)
	}
	return taken, nil
}

func generateReference() string {
	id := uuid.New()
	return fmt.Sprintf("ORD-%X", id[:4])
}

func (m *Manager) insertLineItem(ctx context.Context, tx *sql.Tx, orderID int64, req models.CreateOrderItemRequest) (models.OrderLineItem, error) {
	var lineItem models.OrderLineItem

	var name, description string
	var unitPrice float64
	err := tx.QueryRowContext(ctx,
		"SELECT name, description, price FROM products WHERE id = $1", req.ProductID,
	).Scan(&name, &description, &unitPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return lineItem, errs.NotFoundf("product %d", req.ProductID)
	}
	if err != nil {
		return lineItem, errs.Storef("snapshot product %d: %v", req.ProductID, err)
	}

	lineTotal := unitPrice*float64(req.Quantity) - req.Discount
	if lineTotal < 0 {
		return lineItem, errs.Validationf("discount %v exceeds line amount for product %d", req.Discount, req.ProductID)
	}

	row := tx.QueryRowContext(ctx,
		`INSERT INTO order_line_items
			(order_id, product_id, quantity, unit_price, line_total, name_snapshot,
			 description_snapshot, discount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+lineItemColumns,
		orderID, req.ProductID, req.Quantity, unitPrice, lineTotal, name, description, req.Discount,
	)
	if err := row.Scan(
		&lineItem.ID, &lineItem.OrderID, &lineItem.ProductID, &lineItem.Quantity,
		&lineItem.UnitPrice, &lineItem.LineTotal, &lineItem.NameSnapshot,
		&lineItem.DescriptionSnapshot, &lineItem.Discount, &lineItem.FulfillmentStatus,
		&lineItem.CreatedAt,
	); err != nil {
		return lineItem, errs.Storef("insert line item for product %d: %v", req.ProductID, err)
	}
	return lineItem, nil
}

func (m *Manager) Get(ctx context.Context, id int64) (models.Order, error) {
	row := m.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	order, err := scanOrderRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order, errs.NotFoundf("order %d", id)
	}
	if err != nil {
		return order, errs.Storef("get order %d: %v", id, err)
	}

	order.Items, err = m.lineItems(ctx, order.ID)
	if err != nil {
		return order, err
	}
	return order, nil
}

func (m *Manager) GetByReference(ctx context.Context, reference string) (models.Order, error) {
	row := m.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE order_reference = $1", reference)
	order, err := scanOrderRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order, errs.NotFoundf("order with reference %s", reference)
	}
	if err != nil {
		return order, errs.Storef("get order by reference %s: %v", reference, err)
	}

	order.Items, err = m.lineItems(ctx, order.ID)
	if err != nil {
		return order, err
	}
	return order, nil
}

// List applies the filter's constraints; search matches the reference and
// the customer's name and email, range bounds are inclusive. Newest first.
func (m *Manager) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE 1=1"
	args := []interface{}{}
	argPos := 1

	if filter.Status != "" {
		query += " AND status = $" + strconv.Itoa(argPos)
		args = append(args, filter.Status)
		argPos++
	}
	if filter.PaymentStatus != "" {
		query += " AND payment_status = $" + strconv.Itoa(argPos)
		args = append(args, filter.PaymentStatus)
		argPos++
	}
	if filter.Start != nil {
		query += " AND created_at >= $" + strconv.Itoa(argPos)
		args = append(args, *filter.Start)
		argPos++
	}
	if filter.End != nil {
		query += " AND created_at <= $" + strconv.Itoa(argPos)
		args = append(args, *filter.End)
		argPos++
	}
	if filter.MinAmount != nil {
		query += " AND total >= $" + strconv.Itoa(argPos)
		args = append(args, *filter.MinAmount)
		argPos++
	}
	if filter.MaxAmount != nil {
		query += " AND total <= $" + strconv.Itoa(argPos)
		args = append(args, *filter.MaxAmount)
		argPos++
	}
	if filter.Search != "" {
		query += " AND (order_reference LIKE $" + strconv.Itoa(argPos) +
			" OR LOWER(customer_name) LIKE LOWER($" + strconv.Itoa(argPos) +
			") OR LOWER(customer_email) LIKE LOWER($" + strconv.Itoa(argPos) + "))"
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	query += " ORDER BY created_at DESC"

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Storef("list orders: %v", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(
			&o.ID, &o.Reference, &o.CustomerName, &o.CustomerEmail, &o.Total, &o.Subtotal,
			&o.Tax, &o.Shipping, &o.Status, &o.PaymentStatus, &o.ShippingLine1, &o.ShippingLine2,
			&o.ShippingCity, &o.ShippingState, &o.ShippingPostalCode, &o.ShippingCountry,
			&o.TrackingNumber, &o.CancellationReason, &o.AdminNotes, &o.CreatedAt, &o.UpdatedAt,
			&o.CompletedAt,
		); err != nil {
			return nil, errs.Storef("scan order: %v", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storef("iterate orders: %v", err)
	}
	return orders, nil
}

// Update mutates the constrained admin-editable field set; nil fields are
// left untouched.
func (m *Manager) Update(ctx context.Context, id int64, req models.UpdateOrderRequest) (models.Order, error) {
	if req.Status != nil && !req.Status.Valid() {
		return models.Order{}, errs.Validationf("unknown order status %q", *req.Status)
	}
	if req.PaymentStatus != nil && !req.PaymentStatus.Valid() {
		return models.Order{}, errs.Validationf("unknown payment status %q", *req.PaymentStatus)
	}

	query := "UPDATE orders SET updated_at = CURRENT_TIMESTAMP"
	args := []interface{}{}
	argPos := 1

	appendField := func(column string, value interface{}) {
		query += ", " + column + " = $" + strconv.Itoa(argPos)
		args = append(args, value)
		argPos++
	}
	if req.Status != nil {
		appendField("status", *req.Status)
		if *req.Status == models.OrderStatusDelivered {
			query += ", completed_at = CURRENT_TIMESTAMP"
		}
	}
	if req.PaymentStatus != nil {
		appendField("payment_status", *req.PaymentStatus)
	}
	if req.ShippingLine1 != nil {
		appendField("shipping_line1", *req.ShippingLine1)
	}
	if req.ShippingCity != nil {
		appendField("shipping_city", *req.ShippingCity)
	}
	if req.TrackingNumber != nil {
		appendField("tracking_number", *req.TrackingNumber)
	}
	if req.AdminNotes != nil {
		appendField("admin_notes", *req.AdminNotes)
	}

	query += " WHERE id = $" + strconv.Itoa(argPos) + " RETURNING " + orderColumns
	args = append(args, id)

	row := m.db.QueryRowContext(ctx, query, args...)
	order, err := scanOrderRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order, errs.NotFoundf("order %d", id)
	}
	if err != nil {
		return order, errs.Storef("update order %d: %v", id, err)
	}

	m.publishUpdated(ctx, order)
	m.logger.Info("Order updated", zap.Int64("order_id", id))
	return order, nil
}

// UpdateStatus assigns the status unconditionally. There is no transition
// table: admins correct orders out of band (DELIVERED to RETURNED to
// REFUNDED and the like), so callers are trusted not to request transitions
// that make no business sense.
func (m *Manager) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) (models.Order, error) {
	if !status.Valid() {
		return models.Order{}, errs.Validationf("unknown order status %q", status)
	}

	query := `UPDATE orders SET status = $1, updated_at = CURRENT_TIMESTAMP,
		completed_at = CASE WHEN $1 = 'DELIVERED' THEN CURRENT_TIMESTAMP ELSE completed_at END
		WHERE id = $2 RETURNING ` + orderColumns

	row := m.db.QueryRowContext(ctx, query, status, id)
	order, err := scanOrderRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order, errs.NotFoundf("order %d", id)
	}
	if err != nil {
		return order, errs.Storef("update order %d status: %v", id, err)
	}

	m.publishUpdated(ctx, order)
	m.logger.Info("Order status updated",
		zap.Int64("order_id", id), zap.String("status", string(status)))
	return order, nil
}

// UpdatePaymentStatus assigns the payment status unconditionally; see
// UpdateStatus for why there is no transition table.
func (m *Manager) UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) (models.Order, error) {
	if !status.Valid() {
		return models.Order{}, errs.Validationf("unknown payment status %q", status)
	}

	row := m.db.QueryRowContext(ctx,
		"UPDATE orders SET payment_status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 RETURNING "+orderColumns,
		status, id)
	order, err := scanOrderRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order, errs.NotFoundf("order %d", id)
	}
	if err != nil {
		return order, errs.Storef("update order %d payment status: %v", id, err)
	}

	m.publishUpdated(ctx, order)
	m.logger.Info("Order payment status updated",
		zap.Int64("order_id", id), zap.String("payment_status", string(status)))
	return order, nil
}

func (m *Manager) AddTracking(ctx context.Context, id int64, trackingNumber string) (models.Order, error) {
	if trackingNumber == "" {
		return models.Order{}, errs.Validationf("tracking number must not be empty")
	}

	row := m.db.QueryRowContext(ctx,
		"UPDATE orders SET tracking_number = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 RETURNING "+orderColumns,
		trackingNumber, id)
	order, err := scanOrderRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order, errs.NotFoundf("order %d", id)
	}
	if err != nil {
		return order, errs.Storef("add tracking to order %d: %v", id, err)
	}

	m.publishUpdated(ctx, order)
	m.logger.Info("Tracking number added",
		zap.Int64("order_id", id), zap.String("tracking_number", trackingNumber))
	return order, nil
}

// Delete removes the order; line items go with it via the store's cascade.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	result, err := m.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return errs.Storef("delete order %d: %v", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errs.Storef("delete order %d: %v", id, err)
	}
	if rowsAffected == 0 {
		return errs.NotFoundf("order %d", id)
	}

	m.publish(ctx, models.OrderEvent{OrderID: id, EventType: "order_deleted"})
	m.logger.Info("Order deleted", zap.Int64("order_id", id))
	return nil
}

func (m *Manager) GetLineItems(ctx context.Context, orderID int64) ([]models.OrderLineItem, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)", orderID,
	).Scan(&exists)
	if err != nil {
		return nil, errs.Storef("check order %d: %v", orderID, err)
	}
	if !exists {
		return nil, errs.NotFoundf("order %d", orderID)
	}
	return m.lineItems(ctx, orderID)
}

func (m *Manager) lineItems(ctx context.Context, orderID int64) ([]models.OrderLineItem, error) {
	rows, err := m.db.QueryContext(ctx,
		"SELECT "+lineItemColumns+" FROM order_line_items WHERE order_id = $1 ORDER BY id", orderID)
	if err != nil {
		return nil, errs.Storef("list line items for order %d: %v", orderID, err)
	}
	defer rows.Close()

	var items []models.OrderLineItem
	for rows.Next() {
		var item models.OrderLineItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice,
			&item.LineTotal, &item.NameSnapshot, &item.DescriptionSnapshot, &item.Discount,
			&item.FulfillmentStatus, &item.CreatedAt,
		); err != nil {
			return nil, errs.Storef("scan line item: %v", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storef("iterate line items: %v", err)
	}
	return items, nil
}

// Revenue sums totals of captured orders created in [start, end]. Zero when
// nothing matches, never an error.
func (m *Manager) Revenue(ctx context.Context, start, end time.Time) (float64, error) {
	var revenue float64
	err := m.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total), 0) FROM orders
		WHERE payment_status = $1 AND created_at BETWEEN $2 AND $3`,
		models.PaymentStatusCaptured, start, end,
	).Scan(&revenue)
	if err != nil {
		return 0, errs.Storef("calculate revenue: %v", err)
	}
	return revenue, nil
}

// Count counts orders created at or after since.
func (m *Manager) Count(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := m.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders WHERE created_at >= $1", since,
	).Scan(&count)
	if err != nil {
		return 0, errs.Storef("count orders: %v", err)
	}
	return count, nil
}

// AverageOrderValue averages totals over all captured orders, zero when none.
func (m *Manager) AverageOrderValue(ctx context.Context) (float64, error) {
	var avg float64
	err := m.db.QueryRowContext(ctx,
		"SELECT COALESCE(AVG(total), 0) FROM orders WHERE payment_status = $1",
		models.PaymentStatusCaptured,
	).Scan(&avg)
	if err != nil {
		return 0, errs.Storef("calculate average order value: %v", err)
	}
	return avg, nil
}

// TopSellingProducts groups line items by product over orders created in
// [start, end], most units sold first.
func (m *Manager) TopSellingProducts(ctx context.Context, start, end time.Time) ([]models.TopSellingProduct, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT oli.product_id, MAX(oli.name_snapshot), SUM(oli.quantity), SUM(oli.line_total)
		FROM order_line_items oli
		JOIN orders o ON o.id = oli.order_id
		WHERE o.created_at BETWEEN $1 AND $2
		GROUP BY oli.product_id
		ORDER BY SUM(oli.quantity) DESC`,
		start, end)
	if err != nil {
		return nil, errs.Storef("query top selling products: %v", err)
	}
	defer rows.Close()

	var products []models.TopSellingProduct
	for rows.Next() {
		var p models.TopSellingProduct
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.QuantitySold, &p.Revenue); err != nil {
			return nil, errs.Storef("scan top selling product: %v", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storef("iterate top selling products: %v", err)
	}
	return products, nil
}

func (m *Manager) publishUpdated(ctx context.Context, order models.Order) {
	m.publish(ctx, models.OrderEvent{
		OrderID:       order.ID,
		Reference:     order.Reference,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Total:         order.Total,
		EventType:     "order_updated",
	})
}

func (m *Manager) publish(ctx context.Context, event models.OrderEvent) {
	if m.events == nil {
		return
	}
	if err := m.events.PublishOrderEvent(ctx, event); err != nil {
		m.logger.Error("Failed to publish order event",
			zap.Int64("order_id", event.OrderID),
			zap.String("event_type", event.EventType),
			zap.Error(err))
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrderRow(row rowScanner) (models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID, &o.Reference, &o.CustomerName, &o.CustomerEmail, &o.Total, &o.Subtotal,
		&o.Tax, &o.Shipping, &o.Status, &o.PaymentStatus, &o.ShippingLine1, &o.ShippingLine2,
		&o.ShippingCity, &o.ShippingState, &o.ShippingPostalCode, &o.ShippingCountry,
		&o.TrackingNumber, &o.CancellationReason, &o.AdminNotes, &o.CreatedAt, &o.UpdatedAt,
		&o.CompletedAt,
	)
	return o, err
}
