package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/AnshRaj112/laundry-backend/pkg/clientip"
)

// Order lookups by id accept loose forms (digits only, either prefix), which
// makes ids guessable. Anonymous callers get a tighter budget.
// Authenticated: 60 req/min burst 20. Anonymous: 10 req/min burst 5.
const (
	lookupAuthPerMinute = 60
	lookupAuthBurst     = 20
	lookupAnonPerMinute = 10
	lookupAnonBurst     = 5
)

// OrderLookupRateLimit must run after OptionalAuth.
func OrderLookupRateLimit() func(http.Handler) http.Handler {
	authed := newLimiterPool(rate.Limit(lookupAuthPerMinute/60.0), lookupAuthBurst)
	anon := newLimiterPool(rate.Limit(lookupAnonPerMinute/60.0), lookupAnonBurst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientip.LimiterKey(r)
			allowed := false
			if p, ok := PayloadFrom(r.Context()); ok {
				allowed = authed.allow(p.UserID + "@" + ip)
			} else {
				allowed = anon.allow(ip)
			}
			if !allowed {
				writeError(w, http.StatusTooManyRequests, "Too many order lookups. Please try again shortly.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
