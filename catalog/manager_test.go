package catalog

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"marketplace-admin-svc/errs"
	"marketplace-admin-svc/marketplace"
	"marketplace-admin-svc/models"
)

var productTestColumns = []string{
	"id", "name", "description", "price", "category", "inventory", "image_path",
	"status", "carbon_offset", "vendor_name", "admin_notes", "featured",
	"weight_grams", "sustainability_rating", "created_at", "updated_at",
}

func setupManagerTest(t *testing.T) (*Manager, *sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	sync := marketplace.NewSynchronizer(nil, logger)
	manager := NewManager(db, sync, nil, logger)
	return manager, db, mock
}

func TestManager_Create_Success(t *testing.T) {
	manager, db, mock := setupManagerTest(t)
	defer db.Close()

	rows := sqlmock.NewRows(productTestColumns).
		AddRow(1, "Oak Sapling", "One oak tree", 10.00, "tree-planting", 5, "",
			"ACTIVE", "20kg CO2", "GreenRoots", "", false, nil, nil, time.Now(), time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO products").
		WillReturnRows(rows)
	mock.ExpectExec("INSERT INTO marketplace_items").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	product, err := manager.Create(context.Background(), models.CreateProductRequest{
		Name:      "Oak Sapling",
		Price:     10.00,
		Category:  "tree-planting",
		Inventory: 5,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if product.ID != 1 {
		t.Errorf("Expected product id 1, got %d", product.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestManager_Create_NegativePrice(t *testing.T) {
	manager, db, _ := setupManagerTest(t)
	defer db.Close()

	_, err := manager.Create(context.Background(), models.CreateProductRequest{
		Name:     "Bad Product",
		Price:    -1.00,
		Category: "eco_product",
	})
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestManager_Create_NegativeInventory(t *testing.T) {
	manager, db, _ := setupManagerTest(t)
	defer db.Close()

	_, err := manager.Create(context.Background(), models.CreateProductRequest{
		Name:      "Bad Product",
		Price:     1.00,
		Category:  "eco_product",
		Inventory: -5,
	})
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestManager_Create_UnknownStatus(t *testing.T) {
	manager, db, _ := setupManagerTest(t)
	defer db.Close()

	_, err := manager.Create(context.Background(), models.CreateProductRequest{
		Name:     "Bad Product",
		Price:    1.00,
		Category: "eco_product",
		Status:   "SOLD_OUT",
	})
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestManager_UpdateInventory_SyncsMirror(t *testing.T) {
	manager, db, mock := setupManagerTest(t)
	defer db.Close()

	rows := sqlmock.NewRows(productTestColumns).
		AddRow(1, "Oak Sapling", "", 10.00, "tree-planting", 0, "",
			"ACTIVE", "", "", "", false, nil, nil, time.Now(), time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE products SET inventory").
		WithArgs(0, int64(1)).
		WillReturnRows(rows)
	mock.ExpectExec("INSERT INTO marketplace_items").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	product, err := manager.UpdateInventory(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if product.Inventory != 0 {
		t.Errorf("Expected inventory 0, got %d", product.Inventory)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestManager_UpdateInventory_InvalidatesCacheAfterCommit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	sync := marketplace.NewSynchronizer(redisClient, logger)
	manager := NewManager(db, sync, nil, logger)

	rows := sqlmock.NewRows(productTestColumns).
		AddRow(1, "Oak Sapling", "", 10.00, "tree-planting", 0, "",
			"ACTIVE", "", "", "", false, nil, nil, time.Now(), time.Now())

	// The commit is the last database interaction; cache invalidation runs
	// only after it and never blocks the write, even with the cache down.
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE products SET inventory").
		WithArgs(0, int64(1)).
		WillReturnRows(rows)
	mock.ExpectExec("INSERT INTO marketplace_items").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if _, err := manager.UpdateInventory(context.Background(), 1, 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestManager_UpdateInventory_Negative(t *testing.T) {
	manager, db, _ := setupManagerTest(t)
	defer db.Close()

	_, err := manager.UpdateInventory(context.Background(), 1, -1)
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestManager_UpdateStatus_NotFound(t *testing.T) {
	manager, db, mock := setupManagerTest(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE products SET status").
		WithArgs(models.ProductStatusInactive, int64(999)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := manager.UpdateStatus(context.Background(), 999, models.ProductStatusInactive)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected not found error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestManager_Delete_RemovesMirrorFirst(t *testing.T) {
	manager, db, mock := setupManagerTest(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM products WHERE id = \\$1").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	// Mirror row goes before the product row: the mirror must never
	// reference a product that no longer exists.
	mock.ExpectExec("DELETE FROM marketplace_items WHERE product_id = \\$1").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM products WHERE id = \\$1").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := manager.Delete(context.Background(), 1); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestManager_Delete_NotFound(t *testing.T) {
	manager, db, mock := setupManagerTest(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM products WHERE id = \\$1").
		WithArgs(int64(999)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := manager.Delete(context.Background(), 999)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected not found error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestManager_Update_RollsBackOnSyncFailure(t *testing.T) {
	manager, db, mock := setupManagerTest(t)
	defer db.Close()

	rows := sqlmock.NewRows(productTestColumns).
		AddRow(1, "Oak Sapling", "", 12.00, "tree-planting", 5, "",
			"ACTIVE", "", "", "", false, nil, nil, time.Now(), time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE products SET").
		WillReturnRows(rows)
	mock.ExpectExec("INSERT INTO marketplace_items").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	price := 12.00
	_, err := manager.Update(context.Background(), 1, models.UpdateProductRequest{Price: &price})
	if !errors.Is(err, errs.ErrStore) {
		t.Errorf("Expected store error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestManager_Get_NotFound(t *testing.T) {
	manager, db, mock := setupManagerTest(t)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM products WHERE id = \\$1").
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := manager.Get(context.Background(), 404)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestManager_List_Filters(t *testing.T) {
	manager, db, mock := setupManagerTest(t)
	defer db.Close()

	rows := sqlmock.NewRows(productTestColumns).
		AddRow(1, "Oak Sapling", "One oak tree", 10.00, "tree-planting", 5, "",
			"ACTIVE", "", "", "", true, nil, nil, time.Now(), time.Now())

	featured := true
	minPrice := 5.00
	mock.ExpectQuery("SELECT (.+) FROM products WHERE 1=1 AND status = \\$1 AND featured = \\$2 AND price >= \\$3").
		WithArgs(models.ProductStatusActive, true, 5.00).
		WillReturnRows(rows)

	products, err := manager.List(context.Background(), models.ProductFilter{
		Status:   models.ProductStatusActive,
		Featured: &featured,
		MinPrice: &minPrice,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(products) != 1 {
		t.Errorf("Expected 1 product, got %d", len(products))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}
