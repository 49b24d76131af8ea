package product

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const productColumns = `id::text, name, description, price::text, stock_quantity, COALESCE(category_id::text, ''), image_url, age_range, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, log *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrNop(log)}
}

// List returns every product, newest first.
func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Error("product_list_failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Product, 0)
	for rows.Next() {
		p, err := ScanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("product_list_rows_failed", zap.Error(err))
		return nil, err
	}
	r.logger.Debug("product_list", zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if uuid.Validate(id) != nil {
		return nil, domain.ErrNotFound
	}
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1::uuid`
	p, err := ScanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("product_get_failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	q := `
INSERT INTO products (id, name, description, price, stock_quantity, category_id, image_url, age_range)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4::numeric, $5, NULLIF($6, '')::uuid, $7, $8)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    stock_quantity = EXCLUDED.stock_quantity,
    category_id = EXCLUDED.category_id,
    image_url = EXCLUDED.image_url,
    age_range = EXCLUDED.age_range
RETURNING ` + productColumns
	out, err := ScanProduct(r.pool.QueryRow(ctx, q,
		p.ID,
		p.Name,
		p.Description,
		p.Price.String(),
		p.StockQuantity,
		p.CategoryID,
		p.ImageURL,
		p.AgeRange,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, fmt.Errorf("product %q references unknown category %q: %w", p.Name, p.CategoryID, domain.ErrNotFound)
		}
		r.logger.Error("product_upsert_failed", zap.String("name", p.Name), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("product_upserted", zap.String("id", out.ID), zap.String("name", out.Name))
	return out, nil
}

// ScanProduct reads the productColumns projection. It is shared with the
// cart repository, which selects the same columns through a join.
func ScanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&price,
		&p.StockQuantity,
		&p.CategoryID,
		&p.ImageURL,
		&p.AgeRange,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	money, err := domain.ParseMoney(price)
	if err != nil {
		return nil, err
	}
	p.Price = money
	return &p, nil
}
