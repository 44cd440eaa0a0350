package rpchttp

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/louisbranch/formrpc/internal/platform/i18n"
)

// minLimiterIdle is the shortest time a client limiter is kept after its
// last request.
const minLimiterIdle = time.Minute

// RateLimit throttles each client IP to limit requests per second.
func RateLimit(limit rate.Limit, burst int) gin.HandlerFunc {
	limiters := newClientLimiters(limit, burst, time.Now)
	return func(c *gin.Context) {
		if !limiters.allow(c.ClientIP()) {
			tr := i18n.FromContext(c.Request.Context())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, Failure{Message: i18n.TooManyRequestsError(tr)})
			return
		}
		c.Next()
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters holds one token bucket per client. A bucket idle for longer
// than it takes to refill is dropped: a new one starts full, so eviction
// never grants extra requests.
type clientLimiters struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

func newClientLimiters(limit rate.Limit, burst int, now func() time.Time) *clientLimiters {
	if burst <= 0 {
		burst = 1
	}
	idle := minLimiterIdle
	if limit > 0 {
		if refill := time.Duration(float64(burst) / float64(limit) * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return &clientLimiters{
		limit:     limit,
		burst:     burst,
		idle:      idle,
		now:       now,
		clients:   map[string]*clientLimiter{},
		lastSweep: now(),
	}
}

func (l *clientLimiters) allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweepLocked(now)
	}
	client, ok := l.clients[key]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = client
	}
	client.lastSeen = now
	l.mu.Unlock()

	return client.limiter.AllowN(now, 1)
}

func (l *clientLimiters) sweepLocked(now time.Time) {
	for key, client := range l.clients {
		if now.Sub(client.lastSeen) >= l.idle {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}
