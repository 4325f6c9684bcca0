package marketplace

import (
	"context"
	"database/sql"
	"errors"

	"marketplace-admin-svc/database"
	"marketplace-admin-svc/errs"
	"marketplace-admin-svc/models"
)

const itemColumns = `id, product_id, name, description, category, price, carbon_offset,
	image_url, stock, seller, item_type, is_active, created_at, updated_at`

// ListActive returns the purchasable mirror entries, newest first.
func ListActive(ctx context.Context, q database.DBTX) ([]models.MarketplaceItem, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM marketplace_items WHERE is_active = TRUE ORDER BY created_at DESC")
	if err != nil {
		return nil, errs.Storef("list marketplace items: %v", err)
	}
	defer rows.Close()

	var items []models.MarketplaceItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storef("iterate marketplace items: %v", err)
	}
	return items, nil
}

// GetByProductID returns the mirror entry for one product.
func GetByProductID(ctx context.Context, q database.DBTX, productID int64) (models.MarketplaceItem, error) {
	var item models.MarketplaceItem
	err := q.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM marketplace_items WHERE product_id = $1", productID,
	).Scan(
		&item.ID, &item.ProductID, &item.Name, &item.Description, &item.Category,
		&item.Price, &item.CarbonOffset, &item.ImageURL, &item.Stock, &item.Seller,
		&item.ItemType, &item.IsActive, &item.CreatedAt, &item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return item, errs.NotFoundf("marketplace item for product %d", productID)
	}
	if err != nil {
		return item, errs.Storef("get marketplace item for product %d: %v", productID, err)
	}
	return item, nil
}

func scanItem(rows *sql.Rows) (models.MarketplaceItem, error) {
	var item models.MarketplaceItem
	if err := rows.Scan(
		&item.ID, &item.ProductID, &item.Name, &item.Description, &item.Category,
		&item.Price, &item.CarbonOffset, &item.ImageURL, &item.Stock, &item.Seller,
		&item.ItemType, &item.IsActive, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return item, errs.Storef("scan marketplace item: %v", err)
	}
	return item, nil
}
