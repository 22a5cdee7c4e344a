package middleware

import (
	"context"
	"net/http"
	"strings"

	"pet-health-api/internal/platform/apperr"
	"pet-health-api/internal/platform/logger"
	"pet-health-api/internal/ports/auth"
)

type ctxKey string

const (
	claimsKey    ctxKey = "claims"
	authErrorKey ctxKey = "auth_error"
)

// AuthContext:
// - Si viene Bearer token => intenta Verify() y setea claims.
// - Si Verify falla, guarda el error en el contexto y sigue; RequireAuth decide el 401.
// - Sin token el request sigue igual (rutas públicas).
func AuthContext(verifier auth.AuthVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" || verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				ctx := context.WithValue(r.Context(), authErrorKey, err)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(map[string]any{
				"user_id": claims.UserID,
				"role":    string(claims.Role),
			}))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetClaims(ctx context.Context) (auth.Claims, bool) {
	v := ctx.Value(claimsKey)
	if v == nil {
		return auth.Claims{}, false
	}
	c, ok := v.(auth.Claims)
	return c, ok && strings.TrimSpace(c.UserID) != ""
}

// ActorFrom es el atajo que usan los handlers detrás de RequireAuth.
func ActorFrom(ctx context.Context) (auth.Actor, bool) {
	c, ok := GetClaims(ctx)
	if !ok {
		return auth.Actor{}, false
	}
	return c.Actor(), true
}

// WithClaims sirve para tests de handlers sin pasar por el verifier.
func WithClaims(ctx context.Context, c auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// RequireAuth corta con 401 si no hay claims verificadas.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetClaims(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		if err, ok := r.Context().Value(authErrorKey).(error); ok && err != nil {
			apperr.WriteError(w, r, err)
			return
		}
		apperr.WriteError(w, r, apperr.Unauthenticated("missing bearer token"))
	})
}

// RequireRole asume RequireAuth antes; igual responde 401 si no hay claims.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, _ := ActorFrom(r.Context())
			if err := auth.RequireRole(actor, roles...); err != nil {
				apperr.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(authHeader string) string {
	if strings.TrimSpace(authHeader) == "" {
		return ""
	}
	parts := strings.SplitN(strings.TrimSpace(authHeader), " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
