package http

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "github.com/assignment-sets/audio-saas-backend/internal/errors"
	"github.com/assignment-sets/audio-saas-backend/internal/httputil"
)

// identityHeader carries the authenticated account id, set by the platform
// gateway after it has verified the caller's access token.
const identityHeader = "X-Account-Id"

// CustomLoggerMiddleware logs request completion with structured fields.
// Request IDs are taken from the requestid middleware, which MUST be
// registered before this one.
func CustomLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		attrs := []any{
			slog.String("request_id", requestid.Get(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("duration", duration),
			slog.String("client_ip", c.ClientIP()),
		}

		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request completed", attrs...)
		case status >= http.StatusBadRequest:
			logger.Warn("request completed", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
	}
}

// IdentityMiddleware extracts the authenticated account id from the gateway
// identity header and stores it in the gin context for downstream handlers.
//
// The API trusts the header because it is only reachable through the gateway,
// which strips any client-supplied value before forwarding.
//
// Returns:
//   - 401 Unauthorized: Identity header missing or empty
//   - Continues: Account id stored under httputil.ContextAccountID
func IdentityMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := strings.TrimSpace(c.GetHeader(identityHeader))
		if accountID == "" {
			httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrUnauthorized, "missing identity header"), logger)
			c.Abort()
			return
		}

		c.Set(httputil.ContextAccountID, accountID)
		c.Next()
	}
}

// InternalTokenMiddleware protects service-to-service routes with a shared
// static token. Comparison is constant time.
//
// Returns:
//   - 401 Unauthorized: Missing or invalid bearer token
//   - Continues: Token matches the configured internal API token
func InternalTokenMiddleware(token string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			logger.Error("internal token middleware: no token configured")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		header := c.GetHeader("Authorization")
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrUnauthorized, "missing bearer token"), logger)
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrUnauthorized, "invalid internal token"), logger)
			c.Abort()
			return
		}

		c.Next()
	}
}

// rateLimiterStore holds per-account rate limiters with automatic cleanup.
type rateLimiterStore struct {
	limiters sync.Map // map[string]*rateLimiterEntry
	rps      float64
	burst    int
}

// rateLimiterEntry holds a rate limiter and last access time for cleanup.
type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
	mu         sync.Mutex
}

// RateLimitMiddleware enforces per-account rate limiting on authenticated
// requests.
//
// MUST be used after IdentityMiddleware (requires the account id in context).
// Uses token bucket algorithm via golang.org/x/time/rate. Each account gets
// an independent rate limiter.
//
// Returns:
//   - 429 Too Many Requests: Rate limit exceeded (includes Retry-After header)
//   - Continues: Request allowed within rate limit
func RateLimitMiddleware(rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := &rateLimiterStore{
		rps:   rps,
		burst: burst,
	}

	// Start cleanup goroutine for stale limiters (every 5 minutes)
	go store.cleanupStale(context.Background(), 5*time.Minute)

	return func(c *gin.Context) {
		accountID, err := httputil.AccountIDFromGin(c)
		if err != nil {
			// Should never happen, identity middleware runs first
			logger.Error("rate limit middleware: no account id in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		limiter := store.getLimiter(accountID)

		if !limiter.Allow() {
			reservation := limiter.Reserve()
			retryAfter := int(reservation.Delay().Seconds())
			reservation.Cancel()

			logger.Debug("rate limit exceeded",
				slog.String("account_id", accountID),
				slog.Int("retry_after", retryAfter))

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests. Please retry after the specified delay.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// getLimiter retrieves or creates a rate limiter for an account.
func (s *rateLimiterStore) getLimiter(accountID string) *rate.Limiter {
	if val, ok := s.limiters.Load(accountID); ok {
		entry := val.(*rateLimiterEntry)
		entry.mu.Lock()
		entry.lastAccess = time.Now()
		entry.mu.Unlock()
		return entry.limiter
	}

	limiter := rate.NewLimiter(rate.Limit(s.rps), s.burst)
	entry := &rateLimiterEntry{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	s.limiters.Store(accountID, entry)
	return limiter
}

// cleanupStale removes rate limiters that haven't been accessed recently.
// Runs periodically to prevent unbounded memory growth.
func (s *rateLimiterStore) cleanupStale(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Remove limiters not accessed in last hour
			threshold := time.Now().Add(-1 * time.Hour)
			s.limiters.Range(func(key, value interface{}) bool {
				entry := value.(*rateLimiterEntry)
				entry.mu.Lock()
				shouldDelete := entry.lastAccess.Before(threshold)
				entry.mu.Unlock()

				if shouldDelete {
					s.limiters.Delete(key)
				}
				return true
			})
		}
	}
}
