package main

import (
	"context"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logger"
	categoryrepo "storefront/internal/repository/category"
	productrepo "storefront/internal/repository/product"
	"storefront/internal/seed"
	categorysvc "storefront/internal/service/category"
	productsvc "storefront/internal/service/product"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Z().Fatal("load config", zap.Error(err))
	}
	log := logger.Init(cfg.HTTP.Mode, cfg.LoggerOptions()).Named("seed")
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DB.DSN, log)
	if err != nil {
		log.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	redisCache := cache.New(cfg.Redis)
	defer redisCache.Close()

	// Writing through the services drops any cached catalog.
	categories := categorysvc.New(categoryrepo.NewPostgres(pool), redisCache, cfg.CatalogCacheTTL(), log)
	products := productsvc.New(productrepo.NewPostgres(pool, log), redisCache, cfg.CatalogCacheTTL(), log)

	if err := seed.Apply(ctx, categories, products); err != nil {
		log.Fatal("seed apply", zap.Error(err))
	}

	log.Info("seed applied")
}
