package middleware

import (
	"net/http"
	"time"

	"github.com/venuetix/venuetix-backend/api/responses"
	pkgerrors "github.com/venuetix/venuetix-backend/pkg/errors"
	"github.com/venuetix/venuetix-backend/pkg/logger"
	pkgredis "github.com/venuetix/venuetix-backend/pkg/redis"
)

// RateLimit applies a fixed-window limit per scanner device. Requests
// without a device in context fall back to a per-operator window so an
// unregistered client cannot bypass the limiter.
func RateLimit(limiter pkgredis.RateLimiter, operation string, limit int64, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			subject := DeviceIDFromContext(r.Context())
			if subject == "" {
				subject = OperatorIDFromContext(r.Context())
			}
			scope := pkgredis.DeviceScope(operation, OrgIDFromContext(r.Context()), subject)

			allowed, count, err := limiter.FixedWindowAllow(r.Context(), scope, limit, window)
			if err != nil {
				// Limiter outages degrade open: scanning gates must not stall
				// on a redis hiccup.
				if logg != nil {
					logg.Error(r.Context(), "rate limit check failed", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if logg != nil {
					ctx := logg.WithFields(r.Context(), map[string]any{"scope": scope, "count": count})
					logg.Warn(ctx, "rate limit exceeded")
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
