package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/storefront/catalog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func listCategoriesHandler(svc CategoryService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := svc.List(c.Request.Context())
		if err != nil {
			logger.Error("categories_list_failed", zap.Error(err))
			abortWithError(c, http.StatusBadGateway, "failed to load categories")
			return
		}
		if categories == nil {
			categories = []domain.Category{}
		}
		c.JSON(http.StatusOK, gin.H{"categories": categories})
	}
}

// listProductsHandler serves the catalog filtered by the optional
// categoryId and q query parameters.
func listProductsHandler(svc ProductService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := svc.List(c.Request.Context())
		if err != nil {
			logger.Error("products_list_failed", zap.Error(err))
			abortWithError(c, http.StatusBadGateway, "failed to load products")
			return
		}

		var categoryID *string
		if raw := strings.TrimSpace(c.Query("categoryId")); raw != "" {
			categoryID = &raw
		}
		filtered := catalog.Filter(products, categoryID, c.Query("q"))
		c.JSON(http.StatusOK, gin.H{
			"products": toProductResponses(filtered),
			"total":    len(filtered),
		})
	}
}

func getProductHandler(svc ProductService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.Get(c.Request.Context(), c.Param("id"))
		if errors.Is(err, domain.ErrNotFound) {
			abortWithError(c, http.StatusNotFound, "product not found")
			return
		}
		if err != nil {
			logger.Error("product_get_failed", zap.String("product_id", c.Param("id")), zap.Error(err))
			abortWithError(c, http.StatusBadGateway, "failed to load product")
			return
		}
		c.JSON(http.StatusOK, toProductResponse(*p))
	}
}

// catalogHandler returns the session's catalog view, loading it on first use.
func catalogHandler(c *gin.Context) {
	sess := currentSession(c)
	if !sess.Catalog.Loaded() {
		_ = sess.Catalog.Refresh(c.Request.Context())
	}
	c.JSON(http.StatusOK, toCatalogResponse(sess.Catalog.State()))
}

type catalogFilterRequest struct {
	CategoryID *string `json:"categoryId"`
	Search     string  `json:"search"`
}

func catalogFilterHandler(c *gin.Context) {
	var req catalogFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	sess := currentSession(c)
	if !sess.Catalog.Loaded() {
		_ = sess.Catalog.Refresh(c.Request.Context())
	}
	sess.Catalog.SelectCategory(req.CategoryID)
	sess.Catalog.Search(req.Search)
	c.JSON(http.StatusOK, toCatalogResponse(sess.Catalog.State()))
}

// catalogRefreshHandler reloads categories and products. Load failures keep
// the previous data and reach the shopper as notifications.
func catalogRefreshHandler(c *gin.Context) {
	sess := currentSession(c)
	_ = sess.Catalog.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, toCatalogResponse(sess.Catalog.State()))
}
