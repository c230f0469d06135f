package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"loan-backend/pkg/utils"
)

// NewLimiter builds an in-memory limiter from a formatted rate such as "10-M"
func NewLimiter(rate string) (*limiter.Limiter, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	return limiter.New(memory.NewStore(), r), nil
}

// RateLimit rejects a client IP with 429 once it exceeds the limiter's rate.
// Behind a proxy, handlers.ProxyHeaders must run first so RemoteAddr is the real client.
func RateLimit(l *limiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			result, err := l.Get(r.Context(), ip)
			if err != nil {
				LoggerFromContext(r.Context()).Error("rate limit check failed", slog.String("ip", ip), slog.String("error", err.Error()))
				utils.Error(w, http.StatusInternalServerError, "Internal server error during rate limit check")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))

			if result.Reached {
				LoggerFromContext(r.Context()).Warn("rate limit exceeded", slog.String("ip", ip), slog.Int64("limit", result.Limit))
				utils.Error(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
