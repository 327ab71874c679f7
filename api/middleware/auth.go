package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/venuetix/venuetix-backend/api/responses"
	pkgAuth "github.com/venuetix/venuetix-backend/pkg/auth"
	"github.com/venuetix/venuetix-backend/pkg/config"
	pkgerrors "github.com/venuetix/venuetix-backend/pkg/errors"
	"github.com/venuetix/venuetix-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// operator's identity and tenant.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseOperatorToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxOperatorID, claims.OperatorID.String())
			ctx = context.WithValue(ctx, ctxOrgID, claims.OrganizationID.String())
			ctx = context.WithValue(ctx, ctxRole, string(claims.Role))
			if claims.DeviceID != "" {
				ctx = context.WithValue(ctx, ctxDeviceID, claims.DeviceID)
			}

			if logg != nil {
				fields := map[string]any{
					"operator_id":     claims.OperatorID.String(),
					"organization_id": claims.OrganizationID.String(),
					"operator_role":   string(claims.Role),
				}
				if claims.DeviceID != "" {
					fields["device_id"] = claims.DeviceID
				}
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
