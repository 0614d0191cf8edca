package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/rohits-web03/edudrive/internal/apperr"
	"github.com/rohits-web03/edudrive/internal/utils"
)

const (
	limiterTableSize = 10000
	limiterIdleTTL   = 15 * time.Minute
)

// RateLimiter is a token bucket per caller. Authenticated requests are
// keyed by user id, anonymous ones by remote address.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// NewRateLimiter returns nil when rps is not positive, which disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = int(math.Ceil(rps))
	}
	return &RateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](limiterTableSize, nil, limiterIdleTTL),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// Allow consumes one token for key.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	l, ok := rl.limiters.Get(key)
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters.Add(key, l)
	}
	rl.mu.Unlock()
	return l.Allow()
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(callerKey(r)) {
			retry := int(math.Ceil(1 / float64(rl.limit)))
			w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
			utils.ErrorResponse(w, r, apperr.New(apperr.RateLimitExceeded, "Too many requests").
				WithDetails(map[string]any{"limit": float64(rl.limit), "burst": rl.burst}))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callerKey(r *http.Request) string {
	if id, ok := UserID(r.Context()); ok {
		return "user:" + id.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
