package cart

import (
	"context"

	"storefront/internal/domain"
)

// Repository persists cart lines. Every call is scoped to one user: rows
// belonging to someone else are invisible and cannot be changed.
type Repository interface {
	ListLines(ctx context.Context, userID string) ([]domain.CartLineItem, error)
	InsertLine(ctx context.Context, userID, productID string, quantity int) error
	UpdateLine(ctx context.Context, userID, itemID string, quantity int) error
	DeleteLine(ctx context.Context, userID, itemID string) error
	DeleteAllLines(ctx context.Context, userID string) error
}
