// Package catalog enforces the admin product catalog invariants. Every
// mutation that can change a mirror-visible field re-synchronizes the
// marketplace read view inside the same transaction.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"marketplace-admin-svc/database"
	"marketplace-admin-svc/errs"
	"marketplace-admin-svc/marketplace"
	"marketplace-admin-svc/models"
)

const productColumns = `id, name, description, price, category, inventory, image_path, status,
	carbon_offset, vendor_name, admin_notes, featured, weight_grams, sustainability_rating,
	created_at, updated_at`

// EventPublisher emits catalog change events after the transaction commits.
type EventPublisher interface {
	PublishCatalogEvent(ctx context.Context, event models.CatalogEvent) error
}

type Manager struct {
	db     *sql.DB
	sync   *marketplace.Synchronizer
	events EventPublisher
	logger *zap.Logger
}

// NewManager builds a catalog Manager. events may be nil; change events are
// then not emitted.
func NewManager(db *sql.DB, sync *marketplace.Synchronizer, events EventPublisher, logger *zap.Logger) *Manager {
	return &Manager{
		db:     db,
		sync:   sync,
		events: events,
		logger: logger,
	}
}

func (m *Manager) Create(ctx context.Context, req models.CreateProductRequest) (models.Product, error) {
	var product models.Product

	if req.Price < 0 {
		return product, errs.Validationf("price must not be negative, got %v", req.Price)
	}
	if req.Inventory < 0 {
		return product, errs.Validationf("inventory must not be negative, got %d", req.Inventory)
	}
	status := req.Status
	if status == "" {
		status = models.ProductStatusActive
	}
	if !status.Valid() {
		return product, errs.Validationf("unknown product status %q", status)
	}

	err := database.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`INSERT INTO products
				(name, description, price, category, inventory, image_path, status,
				 carbon_offset, vendor_name, admin_notes, featured, weight_grams, sustainability_rating)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING `+productColumns,
			req.Name, req.Description, req.Price, req.Category, req.Inventory,
			req.ImagePath, status, req.CarbonOffset, req.VendorName, req.AdminNotes,
			req.Featured, req.WeightGrams, req.SustainabilityRating,
		)
		var scanErr error
		product, scanErr = scanProductRow(row)
		if scanErr != nil {
			return errs.Storef("insert product: %v", scanErr)
		}
		return m.sync.Upsert(ctx, tx, product)
	})
	if err != nil {
		return models.Product{}, err
	}

	m.sync.Invalidate(ctx, product.ID)
	m.publish(ctx, models.CatalogEvent{ProductID: product.ID, EventType: "product_created"})
	m.logger.Info("Product created", zap.Int64("product_id", product.ID))
	return product, nil
}

func (m *Manager) Get(ctx context.Context, id int64) (models.Product, error) {
	row := m.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id)
	product, err := scanProductRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return product, errs.NotFoundf("product %d", id)
	}
	if err != nil {
		return product, errs.Storef("get product %d: %v", id, err)
	}
	return product, nil
}

// List applies the filter's constraints; search matches name and description
// case-insensitively, range bounds are inclusive.
func (m *Manager) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE 1=1"
	args := []interface{}{}
	argPos := 1

	if filter.Status != "" {
		query += " AND status = $" + strconv.Itoa(argPos)
		args = append(args, filter.Status)
		argPos++
	}
	if filter.Category != "" {
		query += " AND category = $" + strconv.Itoa(argPos)
		args = append(args, filter.Category)
		argPos++
	}
	if filter.Featured != nil {
		query += " AND featured = $" + strconv.Itoa(argPos)
		args = append(args, *filter.Featured)
		argPos++
	}
	if filter.MinPrice != nil {
		query += " AND price >= $" + strconv.Itoa(argPos)
		args = append(args, *filter.MinPrice)
		argPos++
	}
	if filter.MaxPrice != nil {
		query += " AND price <= $" + strconv.Itoa(argPos)
		args = append(args, *filter.MaxPrice)
		argPos++
	}
	if filter.Search != "" {
		query += " AND (LOWER(name) LIKE LOWER($" + strconv.Itoa(argPos) +
			") OR LOWER(description) LIKE LOWER($" + strconv.Itoa(argPos) + "))"
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}
	if filter.LowStockThreshold != nil {
		query += " AND inventory <= $" + strconv.Itoa(argPos)
		args = append(args, *filter.LowStockThreshold)
		argPos++
	}

	switch filter.Sort {
	case "price_asc":
		query += " ORDER BY price ASC"
	case "price_desc":
		query += " ORDER BY price DESC"
	default:
		query += " ORDER BY created_at DESC"
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Storef("list products: %v", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Inventory,
			&p.ImagePath, &p.Status, &p.CarbonOffset, &p.VendorName, &p.AdminNotes,
			&p.Featured, &p.WeightGrams, &p.SustainabilityRating, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, errs.Storef("scan product: %v", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storef("iterate products: %v", err)
	}
	return products, nil
}

func (m *Manager) Update(ctx context.Context, id int64, req models.UpdateProductRequest) (models.Product, error) {
	var product models.Product

	if req.Price != nil && *req.Price < 0 {
		return product, errs.Validationf("price must not be negative, got %v", *req.Price)
	}
	if req.Inventory != nil && *req.Inventory < 0 {
		return product, errs.Validationf("inventory must not be negative, got %d", *req.Inventory)
	}
	if req.Status != nil && !req.Status.Valid() {
		return product, errs.Validationf("unknown product status %q", *req.Status)
	}

	query := "UPDATE products SET updated_at = CURRENT_TIMESTAMP"
	args := []interface{}{}
	argPos := 1

	appendField := func(column string, value interface{}) {
		query += ", " + column + " = $" + strconv.Itoa(argPos)
		args = append(args, value)
		argPos++
	}
	if req.Name != nil {
		appendField("name", *req.Name)
	}
	if req.Description != nil {
		appendField("description", *req.Description)
	}
	if req.Price != nil {
		appendField("price", *req.Price)
	}
	if req.Category != nil {
		appendField("category", *req.Category)
	}
	if req.Inventory != nil {
		appendField("inventory", *req.Inventory)
	}
	if req.ImagePath != nil {
		appendField("image_path", *req.ImagePath)
	}
	if req.Status != nil {
		appendField("status", *req.Status)
	}
	if req.CarbonOffset != nil {
		appendField("carbon_offset", *req.CarbonOffset)
	}
	if req.VendorName != nil {
		appendField("vendor_name", *req.VendorName)
	}
	if req.AdminNotes != nil {
		appendField("admin_notes", *req.AdminNotes)
	}
	if req.Featured != nil {
		appendField("featured", *req.Featured)
	}
	if req.WeightGrams != nil {
		appendField("weight_grams", *req.WeightGrams)
	}
	if req.SustainabilityRating != nil {
		appendField("sustainability_rating", *req.SustainabilityRating)
	}

	query += " WHERE id = $" + strconv.Itoa(argPos) + " RETURNING " + productColumns
	args = append(args, id)

	err := database.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, query, args...)
		var scanErr error
		product, scanErr = scanProductRow(row)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return errs.NotFoundf("product %d", id)
		}
		if scanErr != nil {
			return errs.Storef("update product %d: %v", id, scanErr)
		}
		return m.sync.Upsert(ctx, tx, product)
	})
	if err != nil {
		return models.Product{}, err
	}

	m.sync.Invalidate(ctx, id)
	m.publish(ctx, models.CatalogEvent{ProductID: id, EventType: "product_updated"})
	m.logger.Info("Product updated", zap.Int64("product_id", id))
	return product, nil
}

func (m *Manager) UpdateStatus(ctx context.Context, id int64, status models.ProductStatus) (models.Product, error) {
	if !status.Valid() {
		return models.Product{}, errs.Validationf("unknown product status %q", status)
	}
	return m.applyAndSync(ctx, id,
		"UPDATE products SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 RETURNING "+productColumns,
		status)
}

func (m *Manager) UpdateInventory(ctx context.Context, id int64, count int) (models.Product, error) {
	if count < 0 {
		return models.Product{}, errs.Validationf("inventory must not be negative, got %d", count)
	}
	return m.applyAndSync(ctx, id,
		"UPDATE products SET inventory = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 RETURNING "+productColumns,
		count)
}

func (m *Manager) applyAndSync(ctx context.Context, id int64, query string, value interface{}) (models.Product, error) {
	var product models.Product
	err := database.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, query, value, id)
		var scanErr error
		product, scanErr = scanProductRow(row)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return errs.NotFoundf("product %d", id)
		}
		if scanErr != nil {
			return errs.Storef("update product %d: %v", id, scanErr)
		}
		return m.sync.Upsert(ctx, tx, product)
	})
	if err != nil {
		return models.Product{}, err
	}

	m.sync.Invalidate(ctx, id)
	m.publish(ctx, models.CatalogEvent{ProductID: id, EventType: "product_updated"})
	m.logger.Info("Product updated", zap.Int64("product_id", id))
	return product, nil
}

// Delete removes the mirror row first, then the product, so the mirror never
// references a product that no longer exists.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	err := database.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		var exists int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM products WHERE id = $1", id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return errs.NotFoundf("product %d", id)
		}
		if err != nil {
			return errs.Storef("check product %d: %v", id, err)
		}

		if err := m.sync.Remove(ctx, tx, id); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id); err != nil {
			return errs.Storef("delete product %d: %v", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.sync.Invalidate(ctx, id)
	m.publish(ctx, models.CatalogEvent{ProductID: id, EventType: "product_deleted"})
	m.logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

// ResyncMirror repairs mirror drift after out-of-band changes. Idempotent;
// running it twice in a row leaves the mirror unchanged.
func (m *Manager) ResyncMirror(ctx context.Context) (int, error) {
	return m.sync.ResyncAll(ctx, m.db)
}

func (m *Manager) publish(ctx context.Context, event models.CatalogEvent) {
	if m.events == nil {
		return
	}
	if err := m.events.PublishCatalogEvent(ctx, event); err != nil {
		m.logger.Error("Failed to publish catalog event",
			zap.Int64("product_id", event.ProductID),
			zap.String("event_type", event.EventType),
			zap.Error(err))
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProductRow(row rowScanner) (models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Inventory,
		&p.ImagePath, &p.Status, &p.CarbonOffset, &p.VendorName, &p.AdminNotes,
		&p.Featured, &p.WeightGrams, &p.SustainabilityRating, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
