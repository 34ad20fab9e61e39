package wilaya

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"souq-orders/internal/db"
	"souq-orders/internal/domain"
)

type postgresRepo struct {
	q      db.Querier
	logger *log.Logger
}

func NewPostgres(q db.Querier, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{q: q, logger: logger}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Wilaya, error) {
	const q = `
SELECT id, name, delivery_fee, created_at
FROM wilayas
ORDER BY id
`
	rows, err := r.q.Query(ctx, q)
	if err != nil {
		r.logger.Printf("wilaya repo: list error=%v", err)
		return nil, db.Classify("list wilayas", err)
	}
	defer rows.Close()

	result := make([]domain.Wilaya, 0)
	for rows.Next() {
		var w domain.Wilaya
		if err := rows.Scan(&w.ID, &w.Name, &w.DeliveryFee, &w.CreatedAt); err != nil {
			return nil, db.Classify("scan wilaya", err)
		}
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("wilaya repo: list rows error=%v", err)
		return nil, db.Classify("list wilayas", err)
	}
	return result, nil
}

func (r *postgresRepo) GetByName(ctx context.Context, name string) (*domain.Wilaya, error) {
	const q = `
SELECT id, name, delivery_fee, created_at
FROM wilayas
WHERE name = $1
`
	var w domain.Wilaya
	if err := r.q.QueryRow(ctx, q, name).Scan(&w.ID, &w.Name, &w.DeliveryFee, &w.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("wilaya repo: get name=%q not found", name)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("wilaya repo: get name=%q error=%v", name, err)
		return nil, db.Classify("get wilaya", err)
	}
	return &w, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, name string, fee decimal.Decimal) (*domain.Wilaya, error) {
	const q = `
INSERT INTO wilayas (name, delivery_fee)
VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET delivery_fee = EXCLUDED.delivery_fee
RETURNING id, name, delivery_fee, created_at
`
	var w domain.Wilaya
	if err := r.q.QueryRow(ctx, q, name, fee).Scan(&w.ID, &w.Name, &w.DeliveryFee, &w.CreatedAt); err != nil {
		r.logger.Printf("wilaya repo: upsert name=%q error=%v", name, err)
		return nil, db.Classify("upsert wilaya", err)
	}
	r.logger.Printf("wilaya repo: upsert name=%q fee=%s id=%d", w.Name, w.DeliveryFee, w.ID)
	return &w, nil
}
