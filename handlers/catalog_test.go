package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"marketplace-admin-svc/catalog"
	"marketplace-admin-svc/marketplace"
	"marketplace-admin-svc/models"
)

var productTestColumns = []string{
	"id", "name", "description", "price", "category", "inventory", "image_path", "status",
	"carbon_offset", "vendor_name", "admin_notes", "featured", "weight_grams",
	"sustainability_rating", "created_at", "updated_at",
}

func productRow(id int64, name string) *sqlmock.Rows {
	return sqlmock.NewRows(productTestColumns).
		AddRow(id, name, "A tree planted in your name", 10.00, "tree-planting", 25, "",
			"ACTIVE", "20kg CO2", "Green Forest Co", "", false, nil, nil, time.Now(), time.Now())
}

func setupCatalogTest(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *gin.Engine) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	sync := marketplace.NewSynchronizer(nil, logger)
	manager := catalog.NewManager(db, sync, nil, logger)
	handler := NewCatalogHandler(manager, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin/products", handler.ListProducts)
	router.POST("/admin/products", handler.CreateProduct)
	router.GET("/admin/products/:id", handler.GetProduct)
	router.PUT("/admin/products/:id", handler.UpdateProduct)
	router.PATCH("/admin/products/:id/status", handler.UpdateProductStatus)
	router.PATCH("/admin/products/:id/inventory", handler.UpdateProductInventory)
	router.DELETE("/admin/products/:id", handler.DeleteProduct)
	router.POST("/admin/catalog/resync", handler.ResyncMirror)

	return db, mock, router
}

func TestCatalogHandler_CreateProduct_Success(t *testing.T) {
	db, mock, router := setupCatalogTest(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO products").
		WillReturnRows(productRow(1, "Oak Sapling"))
	mock.ExpectExec("INSERT INTO marketplace_items").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	reqBody := models.CreateProductRequest{
		Name:        "Oak Sapling",
		Description: "A tree planted in your name",
		Price:       10.00,
		Category:    "tree-planting",
		Inventory:   25,
	}

	body, _ := json.Marshal(reqBody)
	req := httptest.NewRequest("POST", "/admin/products", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status %d, got %d", http.StatusCreated, w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestCatalogHandler_CreateProduct_NegativePrice(t *testing.T) {
	db, _, router := setupCatalogTest(t)
	defer db.Close()

	body := []byte(`{"name": "Oak Sapling", "price": -5.00, "category": "tree-planting"}`)
	req := httptest.NewRequest("POST", "/admin/products", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestCatalogHandler_GetProduct_Success(t *testing.T) {
	db, mock, router := setupCatalogTest(t)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM products WHERE id = \\$1").
		WithArgs(int64(1)).
		WillReturnRows(productRow(1, "Oak Sapling"))

	req := httptest.NewRequest("GET", "/admin/products/1", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var product models.Product
	if err := json.Unmarshal(w.Body.Bytes(), &product); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if product.Name != "Oak Sapling" {
		t.Errorf("Expected product name %q, got %q", "Oak Sapling", product.Name)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestCatalogHandler_GetProduct_NotFound(t *testing.T) {
	db, mock, router := setupCatalogTest(t)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM products WHERE id = \\$1").
		WithArgs(int64(999)).
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest("GET", "/admin/products/999", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestCatalogHandler_GetProduct_InvalidID(t *testing.T) {
	db, _, router := setupCatalogTest(t)
	defer db.Close()

	req := httptest.NewRequest("GET", "/admin/products/abc", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestCatalogHandler_ListProducts_Success(t *testing.T) {
	db, mock, router := setupCatalogTest(t)
	defer db.Close()

	rows := productRow(1, "Oak Sapling").
		AddRow(2, "Bamboo Toothbrush", "Compostable handle", 3.50, "eco-home", 120, "",
			"ACTIVE", "", "EcoWare", "", true, nil, nil, time.Now(), time.Now())

	mock.ExpectQuery("SELECT (.+) FROM products WHERE 1=1").
		WillReturnRows(rows)

	req := httptest.NewRequest("GET", "/admin/products", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var products []models.Product
	if err := json.Unmarshal(w.Body.Bytes(), &products); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(products) != 2 {
		t.Errorf("Expected 2 products, got %d", len(products))
	}
}

func TestCatalogHandler_ListProducts_BadFeaturedFlag(t *testing.T) {
	db, _, router := setupCatalogTest(t)
	defer db.Close()

	req := httptest.NewRequest("GET", "/admin/products?featured=maybe", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestCatalogHandler_UpdateProductStatus_Success(t *testing.T) {
	db, mock, router := setupCatalogTest(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE products SET status").
		WithArgs(models.ProductStatusArchived, int64(1)).
		WillReturnRows(productRow(1, "Oak Sapling"))
	mock.ExpectExec("INSERT INTO marketplace_items").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	body := []byte(`{"status": "ARCHIVED"}`)
	req := httptest.NewRequest("PATCH", "/admin/products/1/status", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestCatalogHandler_UpdateProductInventory_MissingBody(t *testing.T) {
	db, _, router := setupCatalogTest(t)
	defer db.Close()

	body := []byte(`{}`)
	req := httptest.NewRequest("PATCH", "/admin/products/1/inventory", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestCatalogHandler_DeleteProduct_Success(t *testing.T) {
	db, mock, router := setupCatalogTest(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM products WHERE id = \\$1").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec("DELETE FROM marketplace_items").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM products").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := httptest.NewRequest("DELETE", "/admin/products/1", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestCatalogHandler_DeleteProduct_NotFound(t *testing.T) {
	db, mock, router := setupCatalogTest(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM products WHERE id = \\$1").
		WithArgs(int64(999)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	req := httptest.NewRequest("DELETE", "/admin/products/999", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestCatalogHandler_ResyncMirror_Success(t *testing.T) {
	db, mock, router := setupCatalogTest(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM marketplace_items WHERE product_id NOT IN").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id FROM products ORDER BY id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM products WHERE id = \\$1").
		WithArgs(int64(1)).
		WillReturnRows(productRow(1, "Oak Sapling"))
	mock.ExpectExec("INSERT INTO marketplace_items").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req := httptest.NewRequest("POST", "/admin/catalog/resync", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["synced"] != 1 {
		t.Errorf("Expected 1 synced product, got %d", resp["synced"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}
