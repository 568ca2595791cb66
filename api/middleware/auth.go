package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/api/responses"
	pkgauth "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/auth"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/config"
	pkgerrors "github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/errors"
	"github.com/Maqoba-Jiyane/kasi-flavors-sub000/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
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

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID.String())
			ctx = context.WithValue(ctx, ctxRole, string(claims.Role))
			if claims.StoreID != nil {
				ctx = context.WithValue(ctx, ctxStoreID, claims.StoreID.String())
			}

			if logg != nil {
				fields := map[string]any{
					"user_id":    claims.UserID.String(),
					"actor_role": string(claims.Role),
				}
				if claims.StoreID != nil {
					fields["store_id"] = claims.StoreID.String()
				}
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireStore guards owner routes: the token must carry a store scope.
func RequireStore(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if StoreIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
