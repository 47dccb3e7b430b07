package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const rateLimitPrefix = "ratelimit"

// RateLimiter wraps a fixed window limiter shared by every route.
type RateLimiter struct {
	limiter *limiter.Limiter
}

// NewRateLimiter creates an in-process limiter allowing rate requests per window.
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          rateLimitPrefix,
		CleanUpInterval: 5 * time.Minute,
	})
	return newRateLimiter(store, rate, window)
}

// NewRedisRateLimiter shares counters across replicas through Redis.
func NewRedisRateLimiter(client *redis.Client, rate int, window time.Duration) (*RateLimiter, error) {
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: rateLimitPrefix})
	if err != nil {
		return nil, err
	}
	return newRateLimiter(store, rate, window), nil
}

func newRateLimiter(store limiter.Store, rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{limiter: limiter.New(store, limiter.Rate{Period: window, Limit: int64(rate)})}
}

// GetClientKey identifies the client by its remote host. Forwarding headers
// are ignored here; a trusted proxy setup rewrites RemoteAddr upstream.
func GetClientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimitMiddleware rejects requests over the limit with 429. Store errors
// are logged and the request is let through.
func RateLimitMiddleware(rl *RateLimiter, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetClientKey(r)
			lc, err := rl.limiter.Get(r.Context(), key)
			if err != nil {
				logger.Error().Err(err).Str("client", key).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))

			if lc.Reached {
				retryAfter := lc.Reset - time.Now().Unix()
				if retryAfter < 0 {
					retryAfter = 0
				}
				h.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
