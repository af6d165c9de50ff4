package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	"github.com/getmockd/soapconnect/pkg/httputil"
)

// Middleware enforces per-IP limits. A nil limiter passes every request
// through. onLimited, when non-nil, is called for each rejected request.
func Middleware(l *PerIP, onLimited func(*http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retry := l.Allow(l.ClientIP(r))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.Burst()))
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			if onLimited != nil {
				onLimited(r)
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			httputil.WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests. Please slow down.")
		})
	}
}
