package product

import (
	"context"
	"time"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/logger"
	productrepo "storefront/internal/repository/product"

	"go.uber.org/zap"
)

const listCacheKey = "catalog:products"

// Service serves the product catalog, read-through cached in Redis when a
// cache is configured.
type Service struct {
	repo   productrepo.Repository
	cache  *cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func New(repo productrepo.Repository, c *cache.Cache, ttl time.Duration, log *zap.Logger) *Service {
	return &Service{repo: repo, cache: c, ttl: ttl, logger: logger.OrNop(log)}
}

// List returns every product, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	var cached []domain.Product
	hit, err := s.cache.GetJSON(ctx, listCacheKey, &cached)
	if err != nil {
		s.logger.Warn("product_cache_read_failed", zap.Error(err))
	}
	if hit {
		return cached, nil
	}

	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, listCacheKey, products, s.ttl); err != nil {
		s.logger.Warn("product_cache_write_failed", zap.Error(err))
	}
	return products, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Upsert writes a product and drops the cached list.
func (s *Service) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	saved, err := s.repo.Upsert(ctx, p)
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return saved, nil
}

func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Del(ctx, listCacheKey); err != nil {
		s.logger.Warn("product_cache_invalidate_failed", zap.Error(err))
	}
}
