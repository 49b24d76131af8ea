package cart

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/logger"
	productrepo "storefront/internal/repository/product"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, log *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrNop(log)}
}

const listLinesQuery = `
SELECT ci.id::text, ci.user_id::text, ci.product_id::text, ci.quantity, ci.created_at,
       p.id::text, p.name, p.description, p.price::text, p.stock_quantity,
       COALESCE(p.category_id::text, ''), p.image_url, p.age_range, p.created_at
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.user_id = $1::uuid
ORDER BY ci.created_at ASC, ci.id ASC
`

// ListLines returns the user's lines joined with their products, oldest first.
func (r *postgresRepo) ListLines(ctx context.Context, userID string) ([]domain.CartLineItem, error) {
	if uuid.Validate(userID) != nil {
		return nil, domain.ErrNotFound
	}
	rows, err := r.pool.Query(ctx, listLinesQuery, userID)
	if err != nil {
		err = mapError(err)
		r.logger.Error("cart_list_failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.CartLineItem, 0)
	for rows.Next() {
		var line domain.CartLineItem
		product, err := productrepo.ScanProduct(lineRow{line: &line, src: rows})
		if err != nil {
			return nil, err
		}
		line.Product = *product
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return lines, nil
}

// InsertLine adds quantity to the user's line for productID, creating it when
// absent. Concurrent inserts for the same pair collapse into one row.
func (r *postgresRepo) InsertLine(ctx context.Context, userID, productID string, quantity int) error {
	const q = `
INSERT INTO cart_items (user_id, product_id, quantity)
VALUES ($1::uuid, $2::uuid, $3)
ON CONFLICT (user_id, product_id) DO UPDATE
SET quantity = cart_items.quantity + EXCLUDED.quantity,
    updated_at = now()
`
	if _, err := r.pool.Exec(ctx, q, userID, productID, quantity); err != nil {
		err = mapError(err)
		r.logger.Warn("cart_insert_failed",
			zap.String("user_id", userID),
			zap.String("product_id", productID),
			zap.Int("quantity", quantity),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *postgresRepo) UpdateLine(ctx context.Context, userID, itemID string, quantity int) error {
	const q = `
UPDATE cart_items
SET quantity = $1, updated_at = now()
WHERE id = $2::uuid AND user_id = $3::uuid
`
	cmd, err := r.pool.Exec(ctx, q, quantity, itemID, userID)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) DeleteLine(ctx context.Context, userID, itemID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1::uuid AND user_id = $2::uuid`, itemID, userID)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) DeleteAllLines(ctx context.Context, userID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1::uuid`, userID)
	if err != nil {
		return mapError(err)
	}
	r.logger.Debug("cart_cleared", zap.String("user_id", userID), zap.Int64("rows", cmd.RowsAffected()))
	return nil
}

// lineRow scans the cart columns into line and forwards the product columns
// to productrepo.ScanProduct.
type lineRow struct {
	line *domain.CartLineItem
	src  interface{ Scan(dest ...any) error }
}

func (l lineRow) Scan(dest ...any) error {
	all := append([]any{
		&l.line.ID,
		&l.line.UserID,
		&l.line.ProductID,
		&l.line.Quantity,
		&l.line.CreatedAt,
	}, dest...)
	return l.src.Scan(all...)
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23503", "22P02":
		return fmt.Errorf("%s: %w", pgErr.Message, domain.ErrNotFound)
	case "23514":
		return fmt.Errorf("%s: %w", pgErr.Message, domain.ErrInvalidQuantity)
	}
	return err
}
