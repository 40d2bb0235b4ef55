package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/logging"
	"github.com/dmitrijs2005/sketchhub/internal/server/auth"
	"github.com/dmitrijs2005/sketchhub/internal/server/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	identityKey     = "identity"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

func observe(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// authRequired accepts a bearer access token and stores the caller's
// auth.Identity on the context.
func authRequired(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeaderName)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		id, err := auth.ParseToken(strings.TrimPrefix(header, common.BearerPrefix), secret)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, common.ErrTokenExpired) {
				msg = common.ErrTokenExpired.Error()
			}
			abort(c, http.StatusUnauthorized, msg)
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

func adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !identity(c).IsAdmin() {
			abort(c, http.StatusForbidden, "admin role required")
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) auth.Identity {
	id, _ := c.Get(identityKey)
	v, _ := id.(auth.Identity)
	return v
}

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// userLimiter throttles mutations per authenticated user with a token bucket.
// Buckets untouched for idleTTL are swept; by then they have refilled, so a
// fresh bucket behaves the same.
type userLimiter struct {
	mu        sync.Mutex
	limiters  map[int64]*limiterEntry
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// newUserLimiter returns nil when rps is not positive, which disables limiting.
func newUserLimiter(rps float64, burst int) *userLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	ttl := limiterIdleTTL
	if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > ttl {
		ttl = refill
	}
	return &userLimiter{
		limiters:  make(map[int64]*limiterEntry),
		limit:     rate.Limit(rps),
		burst:     burst,
		idleTTL:   ttl,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *userLimiter) get(userID int64) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}

	e, ok := l.limiters[userID]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = e
	}
	e.lastSeen = now
	return e.lim
}

// sweep drops idle buckets. Callers hold l.mu.
func (l *userLimiter) sweep(now time.Time) {
	for id, e := range l.limiters {
		if now.Sub(e.lastSeen) >= l.idleTTL {
			delete(l.limiters, id)
		}
	}
	l.lastSweep = now
}

func (l *userLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		if !l.get(identity(c).UserID).Allow() {
			abort(c, http.StatusTooManyRequests, common.ErrorRateLimited.Error())
			return
		}
		c.Next()
	}
}
