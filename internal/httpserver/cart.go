package httpserver

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/storefront/cart"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type addCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  *int   `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func cartHandler(c *gin.Context) {
	c.JSON(http.StatusOK, toCartResponse(currentSession(c).Cart.State()))
}

func cartRefreshHandler(c *gin.Context) {
	store := currentSession(c).Cart
	if err := store.Refresh(c.Request.Context()); err != nil {
		writeCartError(c, store, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(store.State()))
}

// addCartItemHandler adds one unit unless a quantity is given.
func addCartItemHandler(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "productId is required")
		return
	}
	if err := uuid.Validate(req.ProductID); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid productId")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	store := currentSession(c).Cart
	if err := store.AddToCart(c.Request.Context(), req.ProductID, quantity); err != nil {
		writeCartError(c, store, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(store.State()))
}

func updateCartItemHandler(c *gin.Context) {
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "quantity is required")
		return
	}
	store := currentSession(c).Cart
	if err := store.UpdateQuantity(c.Request.Context(), c.Param("id"), *req.Quantity); err != nil {
		writeCartError(c, store, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(store.State()))
}

func removeCartItemHandler(c *gin.Context) {
	store := currentSession(c).Cart
	if err := store.RemoveFromCart(c.Request.Context(), c.Param("id")); err != nil {
		writeCartError(c, store, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(store.State()))
}

func clearCartHandler(c *gin.Context) {
	store := currentSession(c).Cart
	if err := store.ClearCart(c.Request.Context()); err != nil {
		writeCartError(c, store, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(store.State()))
}

// writeCartError maps a store error to a status and returns the unchanged
// cart alongside it. The store has already notified the shopper.
func writeCartError(c *gin.Context, store *cart.Store, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, cart.ErrNotSignedIn):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidQuantity):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{
		"error": err.Error(),
		"cart":  toCartResponse(store.State()),
	})
}
