package catalog

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

// NewPostgres builds a catalog reader over q, which may be the pool or an
// open transaction.
func NewPostgres(q db.Querier, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{q: q, logger: logger}
}

const productColumns = `
p.id, NULL::bigint, p.name, p.image_url, p.price, p.discount_price, p.discount_start, p.discount_end,
p.discount_threshold, p.profit, p.discount_percentage, p.has_measure_unit`

const variantColumns = `
p.id, v.id, p.name || ' - ' || v.title, COALESCE(NULLIF(v.image_url, ''), p.image_url), v.price,
v.discount_price, v.discount_start, v.discount_end, v.discount_threshold, v.profit, v.discount_percentage,
p.has_measure_unit`

func (r *postgresRepo) GetProduct(ctx context.Context, id int64) (*domain.CatalogItem, error) {
	q := `SELECT` + productColumns + `
FROM products p
WHERE p.id = $1
`
	item, err := scanItem(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("catalog repo: get product id=%d not found", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("catalog repo: get product id=%d error=%v", id, err)
		return nil, db.Classify("get product", err)
	}
	return item, nil
}

func (r *postgresRepo) GetVariant(ctx context.Context, id, parentID int64) (*domain.CatalogItem, error) {
	q := `SELECT` + variantColumns + `
FROM product_variants v
JOIN products p ON p.id = v.product_id
WHERE v.id = $1 AND v.product_id = $2 AND v.is_active
`
	item, err := scanItem(r.q.QueryRow(ctx, q, id, parentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("catalog repo: get variant id=%d product_id=%d not found", id, parentID)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("catalog repo: get variant id=%d product_id=%d error=%v", id, parentID, err)
		return nil, db.Classify("get variant", err)
	}
	return item, nil
}

func (r *postgresRepo) FindActiveVariant(ctx context.Context, id int64) (*domain.CatalogItem, error) {
	q := `SELECT` + variantColumns + `
FROM product_variants v
JOIN products p ON p.id = v.product_id
WHERE v.id = $1 AND v.is_active
`
	item, err := scanItem(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("catalog repo: find variant id=%d error=%v", id, err)
		return nil, db.Classify("find variant", err)
	}
	return item, nil
}

func scanItem(row pgx.Row) (*domain.CatalogItem, error) {
	var (
		item                                    domain.CatalogItem
		discountPrice, profit, discountPercent decimal.NullDecimal
	)
	if err := row.Scan(
		&item.ProductID,
		&item.VariantID,
		&item.DisplayName,
		&item.ImageURL,
		&item.BasePrice,
		&discountPrice,
		&item.DiscountStart,
		&item.DiscountEnd,
		&item.DiscountThreshold,
		&profit,
		&discountPercent,
		&item.HasMeasureUnit,
	); err != nil {
		return nil, err
	}
	item.DiscountPrice = nullable(discountPrice)
	item.Profit = nullable(profit)
	item.DiscountPercentage = nullable(discountPercent)
	return &item, nil
}

func nullable(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
