// Package marketplace keeps the customer-facing marketplace_items read view
// consistent with the admin product catalog. All writes are idempotent
// per-row upserts, so re-running any synchronization is a no-op.
package marketplace

import (
	"context"
	"database/sql"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"marketplace-admin-svc/cache"
	"marketplace-admin-svc/database"
	"marketplace-admin-svc/errs"
	"marketplace-admin-svc/middleware"
	"marketplace-admin-svc/models"
)

const productColumns = `id, name, description, price, category, inventory, image_path, status,
	carbon_offset, vendor_name, admin_notes, featured, weight_grams, sustainability_rating,
	created_at, updated_at`

type Synchronizer struct {
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewSynchronizer builds a Synchronizer. redisClient may be nil; cache
// invalidation is then skipped.
func NewSynchronizer(redisClient *redis.Client, logger *zap.Logger) *Synchronizer {
	return &Synchronizer{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Upsert writes the mirror row for p, creating or overwriting it in place.
// It runs on the caller's transaction so the mirror write commits together
// with the product write.
func (s *Synchronizer) Upsert(ctx context.Context, q database.DBTX, p models.Product) error {
	item := Project(p)

	_, err := q.ExecContext(ctx,
		`INSERT INTO marketplace_items
			(product_id, name, description, category, price, carbon_offset, image_url, stock, seller, item_type, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (product_id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			carbon_offset = EXCLUDED.carbon_offset,
			image_url = EXCLUDED.image_url,
			stock = EXCLUDED.stock,
			seller = EXCLUDED.seller,
			item_type = EXCLUDED.item_type,
			is_active = EXCLUDED.is_active,
			updated_at = CURRENT_TIMESTAMP`,
		item.ProductID, item.Name, item.Description, item.Category, item.Price,
		item.CarbonOffset, item.ImageURL, item.Stock, item.Seller, item.ItemType, item.IsActive,
	)
	if err != nil {
		middleware.RecordMirrorSync("upsert", "error")
		return errs.Storef("upsert marketplace item for product %d: %v", p.ID, err)
	}

	middleware.RecordMirrorSync("upsert", "ok")
	return nil
}

// Remove deletes the mirror row for productID. An absent row is success,
// not an error.
func (s *Synchronizer) Remove(ctx context.Context, q database.DBTX, productID int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM marketplace_items WHERE product_id = $1", productID)
	if err != nil {
		middleware.RecordMirrorSync("remove", "error")
		return errs.Storef("remove marketplace item for product %d: %v", productID, err)
	}

	middleware.RecordMirrorSync("remove", "ok")
	return nil
}

// ResyncProduct re-derives the mirror row for one product id: upsert when
// the product exists, remove when it does not. Safe to call at any time and
// any number of times.
func (s *Synchronizer) ResyncProduct(ctx context.Context, db *sql.DB, productID int64) error {
	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		var p models.Product
		err := tx.QueryRowContext(ctx,
			"SELECT "+productColumns+" FROM products WHERE id = $1", productID,
		).Scan(
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Inventory,
			&p.ImagePath, &p.Status, &p.CarbonOffset, &p.VendorName, &p.AdminNotes,
			&p.Featured, &p.WeightGrams, &p.SustainabilityRating, &p.CreatedAt, &p.UpdatedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return s.Remove(ctx, tx, productID)
		}
		if err != nil {
			return errs.Storef("load product %d for resync: %v", productID, err)
		}
		return s.Upsert(ctx, tx, p)
	})
	if err != nil {
		return err
	}

	s.Invalidate(ctx, productID)
	return nil
}

// ResyncAll prunes mirror rows whose product no longer exists, then walks
// every catalog product and re-synchronizes its row. Synchronization is
// per-row, not a table swap, so it can run concurrently with live traffic.
// Returns the number of products synchronized.
func (s *Synchronizer) ResyncAll(ctx context.Context, db *sql.DB) (int, error) {
	if _, err := db.ExecContext(ctx,
		"DELETE FROM marketplace_items WHERE product_id NOT IN (SELECT id FROM products)",
	); err != nil {
		return 0, errs.Storef("prune orphaned marketplace items: %v", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT id FROM products ORDER BY id")
	if err != nil {
		return 0, errs.Storef("list products for resync: %v", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, errs.Storef("scan product id for resync: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, errs.Storef("iterate products for resync: %v", err)
	}

	synced := 0
	for _, id := range ids {
		if err := s.ResyncProduct(ctx, db, id); err != nil {
			return synced, err
		}
		synced++
	}

	s.logger.Info("Marketplace mirror resynchronized", zap.Int("products", synced))
	return synced, nil
}

// Invalidate drops the cached marketplace entry for productID. Callers must
// invalidate only after their transaction commits; doing it mid-transaction
// lets a concurrent read repopulate the cache with the old row. Cache errors
// are logged, never surfaced, since the entry expires on its own.
func (s *Synchronizer) Invalidate(ctx context.Context, productID int64) {
	if s.redisClient == nil {
		return
	}
	if err := cache.DeleteItem(ctx, s.redisClient, productID); err != nil {
		s.logger.Warn("Failed to invalidate marketplace cache",
			zap.Int64("product_id", productID), zap.Error(err))
	}
}
