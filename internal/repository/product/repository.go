package product

import (
	"context"

	"storefront/internal/domain"
)

// Repository reads the catalog's products. The storefront never mutates
// products; Upsert exists for the seed and import tooling.
type Repository interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}
