// Package dbtest opens a migrated, empty Postgres database for integration
// tests. Tests are skipped when TEST_DB_DSN is not set.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"souq-orders/internal/migrate"
)

// Pool connects to TEST_DB_DSN, applies migrations and truncates every table.
// The pool is closed when the test finishes.
func Pool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}
	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	Reset(ctx, t, pool)
	return pool
}

// Reset truncates every application table.
func Reset(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE admin_notifications, order_items, orders, product_variants, products, wilayas RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

// InsertProduct inserts a plain product and returns its id.
func InsertProduct(ctx context.Context, t *testing.T, pool *pgxpool.Pool, name, price string) int64 {
	t.Helper()
	var id int64
	if err := pool.QueryRow(ctx, `INSERT INTO products (name, price) VALUES ($1, $2::numeric) RETURNING id`, name, price).Scan(&id); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return id
}

// InsertVariant inserts a variant of productID and returns its id.
func InsertVariant(ctx context.Context, t *testing.T, pool *pgxpool.Pool, productID int64, title, price string, active bool) int64 {
	t.Helper()
	var id int64
	if err := pool.QueryRow(ctx, `INSERT INTO product_variants (product_id, title, price, is_active) VALUES ($1, $2, $3::numeric, $4) RETURNING id`, productID, title, price, active).Scan(&id); err != nil {
		t.Fatalf("insert variant: %v", err)
	}
	return id
}

// InsertWilaya inserts a delivery region and returns its id.
func InsertWilaya(ctx context.Context, t *testing.T, pool *pgxpool.Pool, name, fee string) int64 {
	t.Helper()
	var id int64
	if err := pool.QueryRow(ctx, `INSERT INTO wilayas (name, delivery_fee) VALUES ($1, $2::numeric) RETURNING id`, name, fee).Scan(&id); err != nil {
		t.Fatalf("insert wilaya: %v", err)
	}
	return id
}
