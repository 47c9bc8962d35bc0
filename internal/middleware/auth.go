package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"goldshop/internal/domain"
	"goldshop/internal/logger"
	"goldshop/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const principalKey contextKey = "principal"

// TokenValidator verifies access tokens
type TokenValidator interface {
	ValidateToken(tokenString string) (*service.Claims, error)
}

// Principal is the authenticated caller of a request
type Principal struct {
	UserID uuid.UUID
	Role   string
}

// Actor converts the principal for capability checks
func (p Principal) Actor() domain.Actor {
	return domain.Actor{ID: p.UserID, IsAdmin: p.Role == domain.RoleAdmin}
}

// AuthMiddleware validates bearer tokens and stores the caller in the request context
func AuthMiddleware(tokens TokenValidator, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger.FromContext(r.Context(), log)

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				l.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				l.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims, err := tokens.ValidateToken(parts[1])
			if err != nil {
				l.Debug("Token validation failed", zap.Error(err))
				if errors.Is(err, service.ErrTokenExpired) {
					RespondWithError(w, http.StatusUnauthorized, "token expired")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "invalid token")
				}
				return
			}

			if claims.UserID == uuid.Nil || claims.Role == "" {
				l.Warn("Token without user_id or role")
				RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			principal := Principal{UserID: claims.UserID, Role: claims.Role}
			ctx := context.WithValue(r.Context(), principalKey, principal)
			ctx = logger.WithContext(ctx, l.With(zap.String("user_id", claims.UserID.String())))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal returns the authenticated caller, if any
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	p, ok := GetPrincipal(ctx)
	return p.UserID, ok
}

// GetUserRole extracts user role from request context
func GetUserRole(ctx context.Context) (string, bool) {
	p, ok := GetPrincipal(ctx)
	return p.Role, ok
}

// WithPrincipal returns ctx carrying p. Used by handlers' tests and internal callers.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}
