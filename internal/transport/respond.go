package transport

import (
	"errors"
	"net/http"

	"goldshop/internal/domain"
	"goldshop/internal/logger"
	"goldshop/internal/middleware"
	"goldshop/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// respondServiceError maps a service failure onto an HTTP status.
func respondServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error, fallback string) {
	l := logger.FromContext(r.Context(), log)

	var stockErr *domain.StockError
	if errors.As(err, &stockErr) {
		l.Debug("Stock check failed", zap.Error(err))
		middleware.RespondWithErrorDetails(w, http.StatusConflict, stockErr.Unwrap().Error(), map[string]interface{}{
			"gold_id":   stockErr.GoldID.String(),
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
		return
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		middleware.RespondWithValidationErrors(w, []middleware.ValidationError{
			{Field: validationErr.Field, Message: validationErr.Message},
		})
		return
	}

	var storeErr *domain.StoreError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEmptyCart):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInvalidStatusTransition):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		middleware.RespondWithError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrInvalidCredentials):
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid username or password")
	case errors.Is(err, service.ErrTokenExpired):
		middleware.RespondWithError(w, http.StatusUnauthorized, "refresh token expired")
	case errors.Is(err, service.ErrInvalidToken):
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid refresh token")
	case errors.As(err, &storeErr) && storeErr.Retryable:
		l.Warn("Transaction aborted by contention", zap.Error(err))
		w.Header().Set("Retry-After", "1")
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "please retry")
	default:
		l.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}

// decodeRequest decodes and validates the body into v, writing the 400
// response itself when that fails.
func decodeRequest(w http.ResponseWriter, r *http.Request, log *zap.Logger, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.FromContext(r.Context(), log).Debug("Request validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// urlID parses the uuid URL parameter name.
func urlID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// requireAccess writes 403 unless the caller may act on ownerID's resources.
func requireAccess(w http.ResponseWriter, r *http.Request, ownerID uuid.UUID) bool {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok || !p.Actor().Owns(ownerID) {
		middleware.RespondWithError(w, http.StatusForbidden, "insufficient permissions")
		return false
	}
	return true
}
