package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gigmarket/portal-core/internal/api/response"
)

// RateLimit throttles requests per client IP with a token bucket. Buckets
// idle for more than ten minutes are pruned as new clients appear.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	type visitor struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu       sync.Mutex
		visitors = make(map[string]*visitor)
	)

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		v, ok := visitors[ip]
		if !ok {
			for addr, stale := range visitors {
				if time.Since(stale.lastSeen) > 10*time.Minute {
					delete(visitors, addr)
				}
			}
			v = &visitor{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			visitors[ip] = v
		}
		v.lastSeen = time.Now()
		return v.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !limiterFor(ip).Allow() {
				requestID := GetRequestID(r.Context())
				response.Err(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many attempts, slow down", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
