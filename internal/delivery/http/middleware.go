package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aliskhannn/exam-simulation/internal/metrics"
)

const userIDKey = "user_id"

// UserResolver maps a bearer credential to a user id.
type UserResolver interface {
	ResolveUserID(token string) (string, error)
}

// authMiddleware ensures each request carries a valid bearer token.
func authMiddleware(resolver UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			abortWith(c, http.StatusUnauthorized, errorBody{Code: "unauthorized", Message: "missing bearer token"})
			return
		}

		userID, err := resolver.ResolveUserID(token)
		if err != nil {
			abortWith(c, http.StatusUnauthorized, errorBody{Code: "unauthorized", Message: "invalid or expired token"})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// userLimiter is a token bucket per user.
type userLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	buckets   map[string]*bucket
	lastPrune time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newUserLimiter(perSecond float64, burst int) *userLimiter {
	return &userLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idle:    10 * time.Minute,
		buckets: make(map[string]*bucket),
	}
}

func (l *userLimiter) allow(userID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastPrune) > time.Minute {
		for id, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.idle {
				delete(l.buckets, id)
			}
		}
		l.lastPrune = now
	}

	b, ok := l.buckets[userID]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[userID] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// rateLimitMiddleware rejects users that exceed their write budget.
func rateLimitMiddleware(l *userLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(userID(c), time.Now()) {
			abortWith(c, http.StatusTooManyRequests, errorBody{Code: "rate_limited", Message: "too many requests"})
			return
		}
		c.Next()
	}
}

// requestLogger logs every request and records its duration.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.ObserveHTTP(c.Request.Method, route, status, elapsed.Seconds())

		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("user_id", userID(c)),
		)
	}
}
