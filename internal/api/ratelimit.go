package api

import (
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// DeleteRateLimiter throttles destructive requests with a token bucket
// shared by all callers.
type DeleteRateLimiter struct {
	limiter *rate.Limiter
	refill  time.Duration
}

// NewDeleteRateLimiter allows a burst of capacity deletes, refilling one
// token every refill interval.
func NewDeleteRateLimiter(capacity int, refill time.Duration) *DeleteRateLimiter {
	return &DeleteRateLimiter{
		limiter: rate.NewLimiter(rate.Every(refill), capacity),
		refill:  refill,
	}
}

// Middleware rejects requests with 429 once the bucket is empty.
func (l *DeleteRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.limiter.Allow() {
			retry := int(l.refill.Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			WriteProblem(w, r, http.StatusTooManyRequests, "Too many delete requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
