package httpserver

import (
	"errors"
	"net/http"

	"storefront/internal/service/auth"
	"storefront/internal/storefront/identity"

	"github.com/gin-gonic/gin"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func signUpHandler(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "email and password are required")
		return
	}
	sess := currentSession(c)
	result, err := sess.Identity.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abortWithError(c, authStatus(err), identity.Message(err))
		return
	}
	c.JSON(http.StatusCreated, authResponse{User: result.User, Token: result.Token, ExpiresAt: &result.ExpiresAt})
}

func signInHandler(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "email and password are required")
		return
	}
	sess := currentSession(c)
	result, err := sess.Identity.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abortWithError(c, authStatus(err), identity.Message(err))
		return
	}
	c.JSON(http.StatusOK, authResponse{User: result.User, Token: result.Token, ExpiresAt: &result.ExpiresAt})
}

// signOutHandler always succeeds locally; a failed remote revocation is
// logged by the identity container.
func signOutHandler(c *gin.Context) {
	sess := currentSession(c)
	_ = sess.Identity.SignOut(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func meHandler(c *gin.Context) {
	u := currentSession(c).Identity.CurrentUser()
	if u == nil {
		abortWithError(c, http.StatusUnauthorized, "not signed in")
		return
	}
	c.JSON(http.StatusOK, authResponse{User: u})
}

func authStatus(err error) int {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, auth.ErrInvalidEmail):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
