package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"souq-orders/internal/repository/wilaya"
)

type wilayaSeed struct {
	Name string
	Fee  int64
}

type variantSeed struct {
	ID       int64
	Title    string
	Price    int64
	Discount *int64
	IsActive bool
}

type productSeed struct {
	ID                 int64
	Name               string
	Price              int64
	DiscountPrice      *int64
	DiscountThreshold  *int
	Profit             *int64
	DiscountPercentage *int64
	HasMeasureUnit     bool
	Variants           []variantSeed
}

var wilayas = []wilayaSeed{
	{Name: "Adrar", Fee: 1200},
	{Name: "Alger", Fee: 400},
	{Name: "Annaba", Fee: 700},
	{Name: "Batna", Fee: 650},
	{Name: "Béjaïa", Fee: 600},
	{Name: "Blida", Fee: 450},
	{Name: "Constantine", Fee: 650},
	{Name: "Oran", Fee: 600},
	{Name: "Sétif", Fee: 600},
	{Name: "Tamanrasset", Fee: 1500},
	{Name: "Tizi Ouzou", Fee: 550},
	{Name: "Tlemcen", Fee: 700},
}

func i64(v int64) *int64 { return &v }
func intp(v int) *int    { return &v }

var products = []productSeed{
	{
		ID:                 1,
		Name:               "Huile d'olive extra vierge 1L",
		Price:              1000,
		DiscountPrice:      i64(800),
		DiscountThreshold:  intp(5),
		Profit:             i64(200),
		DiscountPercentage: i64(50),
	},
	{
		ID:             2,
		Name:           "Dattes Deglet Nour",
		Price:          900,
		HasMeasureUnit: true,
	},
	{
		ID:    3,
		Name:  "Couscous fin",
		Price: 350,
		Variants: []variantSeed{
			{ID: 1, Title: "1kg", Price: 350, IsActive: true},
			{ID: 2, Title: "5kg", Price: 1600, Discount: i64(1450), IsActive: true},
			{ID: 3, Title: "25kg", Price: 7500, IsActive: false},
		},
	},
}

// Summary counts the rows written by Apply.
type Summary struct {
	Wilayas  int
	Products int
	Variants int
}

// Apply inserts demo wilayas and catalog rows for manual testing in one
// transaction. Discount windows open a day before now and close thirty days
// after. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool, now time.Time) (Summary, error) {
	var sum Summary
	start, end := now.Add(-24*time.Hour), now.Add(30*24*time.Hour)
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		regions := wilaya.NewPostgres(tx, nil)
		for _, w := range wilayas {
			if _, err := regions.Upsert(ctx, w.Name, decimal.NewFromInt(w.Fee)); err != nil {
				return fmt.Errorf("upsert wilaya %s: %w", w.Name, err)
			}
			sum.Wilayas++
		}
		for _, p := range products {
			if err := upsertProduct(ctx, tx, p, start, end); err != nil {
				return fmt.Errorf("upsert product %d: %w", p.ID, err)
			}
			sum.Products++
			for _, v := range p.Variants {
				if err := upsertVariant(ctx, tx, p.ID, v, start, end); err != nil {
					return fmt.Errorf("upsert variant %d: %w", v.ID, err)
				}
				sum.Variants++
			}
		}
		for _, table := range []string{"products", "product_variants"} {
			q := fmt.Sprintf(`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), (SELECT MAX(id) FROM %[1]s))`, table)
			if _, err := tx.Exec(ctx, q); err != nil {
				return fmt.Errorf("reset %s sequence: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	return sum, nil
}

func upsertProduct(ctx context.Context, tx pgx.Tx, p productSeed, start, end time.Time) error {
	const q = `
INSERT INTO products (id, name, price, discount_price, discount_start, discount_end,
    discount_threshold, profit, discount_percentage, has_measure_unit)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    price = EXCLUDED.price,
    discount_price = EXCLUDED.discount_price,
    discount_start = EXCLUDED.discount_start,
    discount_end = EXCLUDED.discount_end,
    discount_threshold = EXCLUDED.discount_threshold,
    profit = EXCLUDED.profit,
    discount_percentage = EXCLUDED.discount_percentage,
    has_measure_unit = EXCLUDED.has_measure_unit
`
	from, to := window(p.DiscountPrice, start, end)
	_, err := tx.Exec(ctx, q, p.ID, p.Name, p.Price, p.DiscountPrice, from, to,
		p.DiscountThreshold, p.Profit, p.DiscountPercentage, p.HasMeasureUnit)
	return err
}

func upsertVariant(ctx context.Context, tx pgx.Tx, productID int64, v variantSeed, start, end time.Time) error {
	const q = `
INSERT INTO product_variants (id, product_id, title, price, discount_price, discount_start, discount_end, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE
SET product_id = EXCLUDED.product_id,
    title = EXCLUDED.title,
    price = EXCLUDED.price,
    discount_price = EXCLUDED.discount_price,
    discount_start = EXCLUDED.discount_start,
    discount_end = EXCLUDED.discount_end,
    is_active = EXCLUDED.is_active
`
	from, to := window(v.Discount, start, end)
	_, err := tx.Exec(ctx, q, v.ID, productID, v.Title, v.Price, v.Discount, from, to, v.IsActive)
	return err
}

// window returns the discount bounds, or nils when there is no discount.
func window(discount *int64, start, end time.Time) (*time.Time, *time.Time) {
	if discount == nil {
		return nil, nil
	}
	return &start, &end
}
