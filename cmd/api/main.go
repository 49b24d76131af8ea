package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/httpserver"
	"storefront/internal/logger"
	cartrepo "storefront/internal/repository/cart"
	categoryrepo "storefront/internal/repository/category"
	productrepo "storefront/internal/repository/product"
	tokenrepo "storefront/internal/repository/token"
	userrepo "storefront/internal/repository/user"
	authsvc "storefront/internal/service/auth"
	categorysvc "storefront/internal/service/category"
	productsvc "storefront/internal/service/product"
	"storefront/internal/session"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Z().Fatal("load config", zap.Error(err))
	}
	log := logger.Init(cfg.HTTP.Mode, cfg.LoggerOptions())
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DB.DSN, log)
	if err != nil {
		log.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	redisCache := cache.New(cfg.Redis)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		log.Warn("redis_unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	productService := productsvc.New(productrepo.NewPostgres(dbpool, log), redisCache, cfg.CatalogCacheTTL(), log)
	categoryService := categorysvc.New(categoryrepo.NewPostgres(dbpool), redisCache, cfg.CatalogCacheTTL(), log)
	tokens := tokenrepo.NewPostgres(dbpool)
	authService := authsvc.New(userrepo.NewPostgres(dbpool, log), tokens, authsvc.Options{
		Secret:      cfg.Auth.JWTSecret,
		AccessTTL:   cfg.AccessTTL(),
		PasswordMin: cfg.Auth.PasswordMinLength,
	}, log)

	sessions := session.NewManager(session.Deps{
		Auth:               authService,
		Cart:               cartrepo.NewPostgres(dbpool, log),
		Products:           productService,
		Categories:         categoryService,
		Cache:              redisCache,
		Logger:             log,
		IdleTimeout:        cfg.SessionIdleTimeout(),
		NotificationBuffer: cfg.Session.NotificationBuffer,
		MaxSessions:        cfg.Session.MaxSessions,
	})

	srv, err := httpserver.New(cfg.HTTP.Addr, log, dbpool, httpserver.Deps{
		Sessions:    sessions,
		ProductSvc:  productService,
		CategorySvc: categoryService,
		Cache:       redisCache,
		CORSOrigins: cfg.CORS.AllowedOrigins,
		SignInLimit: httpserver.RateLimitRule{
			Prefix:        "signin",
			WindowSeconds: cfg.RateLimit.SignInWindowSeconds,
			MaxRequests:   cfg.RateLimit.SignInMaxAttempts,
		},
		Mode: ginMode(cfg.HTTP.Mode),
	})
	if err != nil {
		log.Fatal("init server", zap.Error(err))
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweep(sweepCtx, log, sessions, tokens, cfg.SessionSweepInterval())

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		log.Info("shutdown_signal", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	} else {
		log.Info("server stopped")
	}
}

// sweep evicts idle sessions and purges expired tokens until ctx is done.
func sweep(ctx context.Context, log *zap.Logger, sessions *session.Manager, tokens tokenrepo.Repository, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sessions.Sweep(ctx, now)
			n, err := tokens.DeleteExpired(ctx, now)
			if err != nil {
				log.Warn("token_sweep_failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("tokens_swept", zap.Int64("count", n))
			}
		}
	}
}

func ginMode(mode string) string {
	switch mode {
	case "release", "test":
		return mode
	default:
		return "debug"
	}
}
