package category

import (
	"context"
	"time"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/repository/category"

	"go.uber.org/zap"
)

const listCacheKey = "catalog:categories"

type Service struct {
	repo   category.Repository
	cache  *cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func New(repo category.Repository, c *cache.Cache, ttl time.Duration, log *zap.Logger) *Service {
	return &Service{repo: repo, cache: c, ttl: ttl, logger: logger.OrNop(log)}
}

// List returns every category ordered by name.
func (s *Service) List(ctx context.Context) ([]domain.Category, error) {
	var cached []domain.Category
	hit, err := s.cache.GetJSON(ctx, listCacheKey, &cached)
	if err != nil {
		s.logger.Warn("category_cache_read_failed", zap.Error(err))
	}
	if hit {
		return cached, nil
	}

	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, listCacheKey, categories, s.ttl); err != nil {
		s.logger.Warn("category_cache_write_failed", zap.Error(err))
	}
	return categories, nil
}

func (s *Service) Upsert(ctx context.Context, c domain.Category) (*domain.Category, error) {
	saved, err := s.repo.Upsert(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Del(ctx, listCacheKey); err != nil {
		s.logger.Warn("category_cache_invalidate_failed", zap.Error(err))
	}
	return saved, nil
}
