package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AnshRaj112/laundry-backend/pkg/clientip"
)

const (
	// RateLimitWindow is the fixed window for the shared limiter.
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests per IP per window before the IP is blocked.
	RateLimitMaxRequests = 300
	RateLimitKeyPrefix   = "laundry:ratelimit:"
	BlockedIPKeyPrefix   = "laundry:blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked after exceeding the limit.
	BlockedIPDuration = 15 * time.Minute
)

// RedisRateLimit is a fixed-window per-IP limiter whose counters live in
// Redis, so every instance behind a load balancer shares them. It fails
// open when Redis is unavailable.
func RedisRateLimit(client redis.Cmdable, log *zap.Logger) func(http.Handler) http.Handler {
	log = log.With(zap.String("component", "ratelimit"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientip.LimiterKey(r)
			ctx, cancel := context.WithTimeout(r.Context(), time.Second)
			defer cancel()

			blocked, err := client.Exists(ctx, BlockedIPKeyPrefix+ip).Result()
			if err == nil && blocked > 0 {
				writeError(w, http.StatusTooManyRequests, "Your IP has been temporarily blocked due to excessive requests. Please try again later.")
				return
			}

			key := RateLimitKeyPrefix + ip
			count, err := client.Incr(ctx, key).Result()
			if err != nil {
				log.Warn("rate limit counter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				client.Expire(ctx, key, RateLimitWindow)
			}

			if count > RateLimitMaxRequests {
				if err := client.Set(ctx, BlockedIPKeyPrefix+ip, "1", BlockedIPDuration).Err(); err != nil {
					log.Warn("failed to block ip", zap.String("ip", ip), zap.Error(err))
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(BlockedIPDuration.Seconds())))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(RateLimitMaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(RateLimitMaxRequests-count, 10))
			next.ServeHTTP(w, r)
		})
	}
}
