package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientIdleTTL is how long a client may stay quiet before its bucket is
// dropped. Idle buckets are swept at most once per TTL, on request.
const clientIdleTTL = 10 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter is a token bucket per client IP. A bucket holds one
// minute worth of requests and refills evenly over that minute.
type clientLimiter struct {
	mu        sync.Mutex
	now       func() time.Time
	every     rate.Limit
	burst     int
	buckets   map[string]*clientBucket
	lastSweep time.Time
}

func newClientLimiter(requestsPerMinute int) *clientLimiter {
	return &clientLimiter{
		now:     time.Now,
		every:   rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:   requestsPerMinute,
		buckets: make(map[string]*clientBucket, 64),
	}
}

// reserve takes a token for ip. When none is available it returns false
// and the wait until the next token.
func (cl *clientLimiter) reserve(ip string) (bool, time.Duration) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.now()
	cl.sweep(now)

	b, ok := cl.buckets[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(cl.every, cl.burst)}
		cl.buckets[ip] = b
	}

	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)

		return false, delay
	}

	return true, 0
}

func (cl *clientLimiter) sweep(now time.Time) {
	if now.Sub(cl.lastSweep) < clientIdleTTL {
		return
	}

	cl.lastSweep = now

	for ip, b := range cl.buckets {
		if now.Sub(b.lastSeen) > clientIdleTTL {
			delete(cl.buckets, ip)
		}
	}
}

func (cl *clientLimiter) size() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	return len(cl.buckets)
}

// rateLimitMiddleware rejects clients over their per-minute budget with
// 429 and a Retry-After header in whole seconds.
func rateLimitMiddleware(limiter *clientLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := limiter.reserve(extractIP(r))
			if !ok {
				secs := int(math.Ceil(wait.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				writeJSON(w, http.StatusTooManyRequests,
					errorResponse{"rate limit exceeded"})

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractIP returns the client address: the first X-Forwarded-For hop when
// present, else the host part of RemoteAddr.
func extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
