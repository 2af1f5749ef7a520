package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	ierr "github.com/yourusername/invoice-desk/errors"
	"golang.org/x/time/rate"
)

// SessionAuthorizer validates a session token.
type SessionAuthorizer interface {
	Authorize(ctx context.Context, token string) error
}

// SessionAuthMiddleware rejects requests whose session header does not carry
// the active session token.
func SessionAuthMiddleware(gate SessionAuthorizer, header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(header)
		if err := gate.Authorize(c.Request.Context(), token); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalSessionAuth applies auth only when enabled is true.
func OptionalSessionAuth(enabled bool, gate SessionAuthorizer, header string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return SessionAuthMiddleware(gate, header)
}

// ClientLimiter keeps one token bucket per client key. Buckets idle for
// longer than ttl are dropped once the table grows past pruneAbove.
type ClientLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
	clients map[string]*clientBucket
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const pruneAbove = 1024

func NewClientLimiter(limit rate.Limit, burst int, ttl time.Duration) *ClientLimiter {
	return &ClientLimiter{
		limit:   limit,
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
		clients: make(map[string]*clientBucket),
	}
}

// Allow reports whether key may make another request now.
func (l *ClientLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucket, ok := l.clients[key]
	if !ok {
		if len(l.clients) >= pruneAbove {
			l.prune(now)
		}
		bucket = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = bucket
	}
	bucket.lastSeen = now
	return bucket.limiter.AllowN(now, 1)
}

func (l *ClientLimiter) prune(now time.Time) {
	for key, bucket := range l.clients {
		if now.Sub(bucket.lastSeen) > l.ttl {
			delete(l.clients, key)
		}
	}
}

// RateLimit throttles the wrapped routes per client IP.
func RateLimit(limiter *ClientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			_ = c.Error(ierr.NewError("rate limit exceeded").
				WithHint("Too many attempts, please wait and try again").
				Mark(ierr.ErrTooManyRequests))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CORS allows browser clients to send the session header.
func CORS(sessionHeader string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+sessionHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
