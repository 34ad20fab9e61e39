package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"souq-orders/internal/db"
	"souq-orders/internal/domain"
	"souq-orders/internal/repository/catalog"
	"souq-orders/internal/repository/notification"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const orderColumns = `id, status, full_name, email, phone, wilaya, address, notes, delivery_fee, total_price, created_at, updated_at`

func (r *postgresRepo) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		r.logger.Printf("order repo: begin tx error=%v", err)
		return db.Classify("begin order tx", err)
	}

	if err := fn(&txRepo{tx: tx, logger: r.logger}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.Printf("order repo: rollback error=%v original=%v", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Printf("order repo: commit error=%v", err)
		return db.Classify("commit order tx", err)
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("order repo: get id=%d not found", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: get id=%d error=%v", id, err)
		return nil, db.Classify("get order", err)
	}
	items, err := listItems(ctx, r.pool, id)
	if err != nil {
		r.logger.Printf("order repo: get items order_id=%d error=%v", id, err)
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (r *postgresRepo) List(ctx context.Context, filter ListFilter) ([]domain.Order, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != domain.StatusUnknown {
		args = append(args, filter.Status.Code())
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d OR wilaya ILIKE $%d OR id::text ILIKE $%d)", n, n, n, n, n))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+clause, args...).Scan(&total); err != nil {
		r.logger.Printf("order repo: count error=%v", err)
		return nil, 0, db.Classify("count orders", err)
	}

	q := `SELECT ` + orderColumns + ` FROM orders` + clause + ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Printf("order repo: list error=%v", err)
		return nil, 0, db.Classify("list orders", err)
	}
	defer rows.Close()

	result := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, db.Classify("scan order", err)
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("order repo: list rows error=%v", err)
		return nil, 0, db.Classify("list orders", err)
	}
	r.logger.Printf("order repo: list status=%s search=%q count=%d total=%d", filter.Status, filter.Search, len(result), total)
	return result, total, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	const q = `
UPDATE orders
SET status = $1, updated_at = NOW()
WHERE id = $2
RETURNING ` + orderColumns
	o, err := scanOrder(r.pool.QueryRow(ctx, q, status.Code(), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: update status id=%d error=%v", id, err)
		return nil, db.Classify("update order status", err)
	}
	r.logger.Printf("order repo: update status id=%d status=%s", id, status)
	return o, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		r.logger.Printf("order repo: delete id=%d error=%v", id, err)
		return db.Classify("delete order", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Printf("order repo: delete id=%d", id)
	return nil
}

type txRepo struct {
	tx     pgx.Tx
	logger *log.Logger
}

func (t *txRepo) Catalog() catalog.Repository {
	return catalog.NewPostgres(t.tx, t.logger)
}

func (t *txRepo) Notifications() notification.Repository {
	return notification.NewPostgres(t.tx, t.logger)
}

func (t *txRepo) InsertOrder(ctx context.Context, o *domain.Order) error {
	const q = `
INSERT INTO orders (status, full_name, email, phone, wilaya, address, notes, delivery_fee, total_price)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, created_at, updated_at
`
	if err := t.tx.QueryRow(ctx, q,
		o.Status.Code(), o.FullName, o.Email, o.Phone, o.Wilaya, o.Address, o.Notes, o.DeliveryFee, o.TotalPrice,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		t.logger.Printf("order repo: insert email=%s error=%v", o.Email, err)
		return db.Classify("insert order", err)
	}
	return nil
}

func (t *txRepo) InsertItems(ctx context.Context, orderID int64, items []domain.OrderItem) error {
	const q = `
INSERT INTO order_items (order_id, product_id, variant_id, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`
	for i := range items {
		it := &items[i]
		if err := t.tx.QueryRow(ctx, q, orderID, it.ProductID, it.VariantID, it.Quantity, it.UnitPrice).Scan(&it.ID); err != nil {
			t.logger.Printf("order repo: insert item order_id=%d product_id=%d error=%v", orderID, it.ProductID, err)
			return db.Classify("insert order item", err)
		}
		it.OrderID = orderID
	}
	return nil
}

func (t *txRepo) LockOrder(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		t.logger.Printf("order repo: lock id=%d error=%v", id, err)
		return nil, db.Classify("lock order", err)
	}
	return o, nil
}

func (t *txRepo) ListItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	return listItems(ctx, t.tx, orderID)
}

func (t *txRepo) DeleteItems(ctx context.Context, orderID int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		t.logger.Printf("order repo: delete items order_id=%d error=%v", orderID, err)
		return db.Classify("delete order items", err)
	}
	return nil
}

func (t *txRepo) UpdateOrder(ctx context.Context, o *domain.Order) error {
	const q = `
UPDATE orders
SET full_name = $1, email = $2, phone = $3, wilaya = $4, address = $5, notes = $6,
    delivery_fee = $7, total_price = $8, updated_at = NOW()
WHERE id = $9
RETURNING updated_at
`
	if err := t.tx.QueryRow(ctx, q,
		o.FullName, o.Email, o.Phone, o.Wilaya, o.Address, o.Notes, o.DeliveryFee, o.TotalPrice, o.ID,
	).Scan(&o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		t.logger.Printf("order repo: update id=%d error=%v", o.ID, err)
		return db.Classify("update order", err)
	}
	return nil
}

func listItems(ctx context.Context, q db.Querier, orderID int64) ([]domain.OrderItem, error) {
	const query = `
SELECT oi.id, oi.order_id, oi.product_id, oi.variant_id, oi.quantity, oi.unit_price,
       COALESCE(p.name, ''), COALESCE(v.title, ''), COALESCE(NULLIF(v.image_url, ''), p.image_url, '')
FROM order_items oi
LEFT JOIN products p ON p.id = oi.product_id
LEFT JOIN product_variants v ON v.id = oi.variant_id
WHERE oi.order_id = $1
ORDER BY oi.id
`
	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		return nil, db.Classify("list order items", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID, &it.Quantity, &it.UnitPrice,
			&it.ProductName, &it.VariantTitle, &it.ImageURL); err != nil {
			return nil, db.Classify("scan order item", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify("list order items", err)
	}
	return items, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	if err := row.Scan(&o.ID, &status, &o.FullName, &o.Email, &o.Phone, &o.Wilaya, &o.Address, &o.Notes,
		&o.DeliveryFee, &o.TotalPrice, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	parsed, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	o.Status = parsed
	return &o, nil
}
