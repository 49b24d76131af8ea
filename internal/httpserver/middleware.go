package httpserver

import (
	"strings"
	"time"

	"storefront/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	sessionKey      = "session"
	detachedKey     = "session_detached"
	sessionHeader   = "X-Session-ID"
	sessionQuery    = "session"
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// loggerMiddleware writes one structured line per request.
func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			logger.Error("request", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		logger.Info("request", fields...)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", sessionHeader, requestIDHeader}
	cfg.ExposeHeaders = []string{sessionHeader, requestIDHeader}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// sessionMode says what to do when a request carries no live session.
type sessionMode int

const (
	// createSession registers a new session. Used by routes whose effect must
	// outlive the request.
	createSession sessionMode = iota
	// detachSession serves the request from an unregistered session, so
	// anonymous reads never grow the session manager.
	detachSession
)

// sessionMiddleware resolves the caller's session from the X-Session-ID
// header (or the session query parameter). A bearer token restores the
// signed-in user into a session that does not already carry it; a request
// whose token restores an identity always gets a registered session.
func sessionMiddleware(store SessionStore, mode sessionMode, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(sessionHeader))
		if id == "" {
			id = strings.TrimSpace(c.Query(sessionQuery))
		}

		var sess *session.Session
		if id != "" {
			sess, _ = store.Get(id)
		}
		token := bearerToken(c)
		created := false
		detached := false
		if sess == nil {
			if mode == createSession || token != "" {
				sess = store.Create()
				created = true
			} else {
				sess = store.Detached()
				detached = true
			}
		}

		if token != "" && token != sess.Identity.Token() {
			if _, err := sess.Identity.Restore(c.Request.Context(), token); err != nil {
				logger.Debug("session_restore_failed",
					zap.String("session_id", sess.ID),
					zap.Error(err),
				)
				if created && mode == detachSession {
					store.Delete(c.Request.Context(), sess.ID)
					detached = true
				}
			}
		}

		c.Set(sessionKey, sess)
		c.Set(detachedKey, detached)
		if !detached {
			c.Writer.Header().Set(sessionHeader, sess.ID)
		}
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}

// sessionDetached reports whether the request runs on an unregistered session.
func sessionDetached(c *gin.Context) bool {
	return c.GetBool(detachedKey)
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func errorBody(message string) gin.H {
	return gin.H{"error": message}
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorBody(message))
}
