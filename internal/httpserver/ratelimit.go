package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/cache"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type rateLimitKeyFunc func(*gin.Context) string

// RateLimitRule caps requests per key within a fixed window.
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// rateLimitMiddleware counts requests in Redis. Without Redis, or with an
// empty rule, every request passes. A Redis failure lets the request through.
func rateLimitMiddleware(c *cache.Cache, rule RateLimitRule, keyFunc rateLimitKeyFunc, logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		client := c.Client()
		if client == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			ctx.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(ctx))
		}
		if key == "" {
			key = ctx.ClientIP()
		}
		prefix := strings.TrimSpace(rule.Prefix)
		if prefix == "" {
			prefix = "ratelimit"
		}
		key = c.Key(fmt.Sprintf("%s:%s", prefix, key))

		result, err := rateLimitScript.Run(ctx.Request.Context(), client, []string{key}, rule.WindowSeconds).Int64Slice()
		if err != nil || len(result) < 2 {
			logger.Warn("rate_limit_unavailable", zap.String("key", key), zap.Error(err))
			ctx.Next()
			return
		}

		count, ttl := result[0], result[1]
		if count > int64(rule.MaxRequests) {
			wait := int(ttl)
			if wait < 1 {
				wait = rule.WindowSeconds
			}
			ctx.Header("Retry-After", strconv.Itoa(wait))
			abortWithError(ctx, http.StatusTooManyRequests,
				fmt.Sprintf("Too many attempts, try again in %d seconds", wait))
			return
		}
		ctx.Next()
	}
}

// keyByIPAndJSONField keys on a body field plus the client IP, restoring the
// body for the handler.
func keyByIPAndJSONField(field string) rateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(strings.TrimSpace(readJSONField(c, field)))
		if value == "" {
			return c.ClientIP()
		}
		return fmt.Sprintf("%s|%s", value, c.ClientIP())
	}
}

func readJSONField(c *gin.Context, field string) string {
	if c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if len(body) == 0 {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if text, ok := payload[field].(string); ok {
		return strings.TrimSpace(text)
	}
	return ""
}
