package httpserver

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// SessionStore is the subset of session.Manager the handlers use.
type SessionStore interface {
	Create() *session.Session
	Detached() *session.Session
	Get(id string) (*session.Session, bool)
	Delete(ctx context.Context, id string)
}

type ProductService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type CategoryService interface {
	List(ctx context.Context) ([]domain.Category, error)
}

// Deps are the collaborators the router needs.
type Deps struct {
	Sessions    SessionStore
	ProductSvc  ProductService
	CategorySvc CategoryService
	Cache       *cache.Cache
	CORSOrigins []string
	SignInLimit RateLimitRule
	Mode        string
}

// buildRouter wires routes for the API.
func buildRouter(log *zap.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.Sessions == nil || deps.ProductSvc == nil || deps.CategorySvc == nil {
		return nil, errors.New("httpserver: sessions, product and category services are required")
	}
	log = logger.OrNop(log)
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	}
	router := gin.New()
	router.Use(
		requestIDMiddleware(),
		loggerMiddleware(log),
		gin.Recovery(),
		corsMiddleware(deps.CORSOrigins),
	)

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db, deps))

	router.GET("/categories", listCategoriesHandler(deps.CategorySvc, log))
	router.GET("/products", listProductsHandler(deps.ProductSvc, log))
	router.GET("/products/:id", getProductHandler(deps.ProductSvc, log))

	// Routes whose outcome the caller reads back later register a session.
	stateful := router.Group("/", sessionMiddleware(deps.Sessions, createSession, log))
	{
		stateful.GET("/catalog", catalogHandler)
		stateful.PUT("/catalog/filter", catalogFilterHandler)
		stateful.POST("/catalog/refresh", catalogRefreshHandler)

		stateful.POST("/auth/signup", signUpHandler)
		stateful.POST("/auth/signin",
			rateLimitMiddleware(deps.Cache, deps.SignInLimit, keyByIPAndJSONField("email"), log),
			signInHandler,
		)

		stateful.POST("/cart/items", addCartItemHandler)
	}

	// Without a session these routes can only answer for a signed-out
	// shopper, so they run on a detached one.
	readonly := router.Group("/", sessionMiddleware(deps.Sessions, detachSession, log))
	{
		readonly.POST("/auth/signout", signOutHandler)
		readonly.GET("/auth/me", meHandler)

		readonly.GET("/cart", cartHandler)
		readonly.POST("/cart/refresh", cartRefreshHandler)
		readonly.PATCH("/cart/items/:id", updateCartItemHandler)
		readonly.DELETE("/cart/items/:id", removeCartItemHandler)
		readonly.DELETE("/cart", clearCartHandler)

		readonly.GET("/notifications", notificationsHandler)
		readonly.GET("/ws", websocketHandler(deps.Cache, log))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody("route not found"))
	})

	return router, nil
}
