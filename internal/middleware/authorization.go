package middleware

import (
	"net/http"

	"goldshop/internal/domain"
	"goldshop/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequireAdmin middleware ensures the user has admin role
func RequireAdmin(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r.Context())
			if !ok {
				logger.FromContext(r.Context(), log).Warn("Principal not found in context")
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			if p.Role != domain.RoleAdmin {
				logger.FromContext(r.Context(), log).Warn("Non-admin user attempted to access admin endpoint",
					zap.String("role", p.Role),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwnerOrAdmin lets the request through when the caller owns the user
// named by the URL parameter param, or is an admin.
func RequireOwnerOrAdmin(param string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID, err := uuid.Parse(chi.URLParam(r, param))
			if err != nil {
				RespondWithError(w, http.StatusBadRequest, "invalid "+param)
				return
			}

			p, ok := GetPrincipal(r.Context())
			if !ok || !p.Actor().Owns(ownerID) {
				logger.FromContext(r.Context(), log).Warn("Access to another user's resource denied",
					zap.String("owner_id", ownerID.String()),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
