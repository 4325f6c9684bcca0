package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"marketplace-admin-svc/errs"
)

func InitDB(logger *zap.Logger) (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	dbname := getEnv("DB_NAME", "marketplacedb")

	psqlInfo := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createSchema(db); err != nil {
		return nil, err
	}

	logger.Info("Database connection established")
	return db, nil
}

func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price DECIMAL(10, 2) NOT NULL,
			category VARCHAR(100) NOT NULL,
			inventory INTEGER NOT NULL DEFAULT 0,
			image_path TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'ACTIVE',
			carbon_offset VARCHAR(50) NOT NULL DEFAULT '',
			vendor_name VARCHAR(100) NOT NULL DEFAULT '',
			admin_notes TEXT NOT NULL DEFAULT '',
			featured BOOLEAN NOT NULL DEFAULT FALSE,
			weight_grams DOUBLE PRECISION,
			sustainability_rating INTEGER,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS marketplace_items (
			id BIGSERIAL PRIMARY KEY,
			product_id BIGINT NOT NULL UNIQUE REFERENCES products(id),
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category VARCHAR(100) NOT NULL,
			price DECIMAL(10, 2) NOT NULL,
			carbon_offset VARCHAR(50) NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			stock INTEGER,
			seller VARCHAR(100) NOT NULL DEFAULT '',
			item_type VARCHAR(20) NOT NULL,
			is_active BOOLEAN NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			order_reference VARCHAR(50) NOT NULL UNIQUE,
			customer_name VARCHAR(255) NOT NULL,
			customer_email VARCHAR(255) NOT NULL,
			total DECIMAL(12, 2) NOT NULL,
			subtotal DECIMAL(12, 2) NOT NULL DEFAULT 0,
			tax DECIMAL(8, 2) NOT NULL DEFAULT 0,
			shipping DECIMAL(8, 2) NOT NULL DEFAULT 0,
			status VARCHAR(30) NOT NULL DEFAULT 'PENDING_CONFIRMATION',
			payment_status VARCHAR(30) NOT NULL DEFAULT 'PAYMENT_PENDING',
			shipping_line1 VARCHAR(255) NOT NULL DEFAULT '',
			shipping_line2 VARCHAR(255) NOT NULL DEFAULT '',
			shipping_city VARCHAR(100) NOT NULL DEFAULT '',
			shipping_state VARCHAR(100) NOT NULL DEFAULT '',
			shipping_postal_code VARCHAR(20) NOT NULL DEFAULT '',
			shipping_country VARCHAR(10) NOT NULL DEFAULT '',
			tracking_number VARCHAR(100) NOT NULL DEFAULT '',
			cancellation_reason TEXT NOT NULL DEFAULT '',
			admin_notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS order_line_items (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_id BIGINT NOT NULL,
			quantity INTEGER NOT NULL,
			unit_price DECIMAL(10, 2) NOT NULL,
			line_total DECIMAL(12, 2) NOT NULL,
			name_snapshot VARCHAR(255) NOT NULL,
			description_snapshot TEXT NOT NULL DEFAULT '',
			discount DECIMAL(8, 2) NOT NULL DEFAULT 0,
			fulfillment_status VARCHAR(30) NOT NULL DEFAULT 'PENDING',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// DBTX is the subset of *sql.DB and *sql.Tx the managers and the
// synchronizer query through, so the mirror write can join the product
// write's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction. The product write and its paired
// mirror write either both commit or both roll back; a partially applied
// mutation is never visible.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Storef("begin transaction: %v", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errs.Storef("rollback after %v: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return errs.Storef("commit transaction: %v", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
