package transport

import (
	"net/http"

	"goldshop/internal/domain"
	"goldshop/internal/logger"
	"goldshop/internal/middleware"
	"goldshop/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
	Family   string `json:"family" validate:"required,max=100"`
	Phone    string `json:"phone" validate:"omitempty,max=15"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the token refresh request payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UpdateUserRequest carries optional profile changes
type UpdateUserRequest struct {
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Family   *string `json:"family" validate:"omitempty,min=1,max=100"`
	Phone    *string `json:"phone" validate:"omitempty,max=15"`
}

// SetAdminRequest toggles the admin role
type SetAdminRequest struct {
	IsAdmin *bool `json:"is_admin" validate:"required"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	*service.TokenPair
	User *domain.User `json:"user"`
}

// UserHandler handles HTTP requests for accounts and authentication
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers the auth and user management routes
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/logout", h.Logout)
			r.Get("/profile", h.GetProfile)
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(authMiddleware)

		r.With(middleware.RequireAdmin(h.logger)).Get("/", h.ListUsers)

		r.Route("/{userID}", func(r chi.Router) {
			r.With(middleware.RequireOwnerOrAdmin("userID", h.logger)).Get("/", h.GetUser)
			r.With(middleware.RequireOwnerOrAdmin("userID", h.logger)).Put("/", h.UpdateUser)
			r.With(middleware.RequireAdmin(h.logger)).Delete("/", h.DeleteUser)
			r.With(middleware.RequireAdmin(h.logger)).Patch("/admin", h.SetAdmin)
		})
	})
}

// Register handles user registration
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	user, tokens, err := h.userService.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Family:   req.Family,
		Phone:    req.Phone,
	})
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to register user")
		return
	}

	logger.FromContext(r.Context(), h.logger).Info("User registered successfully", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, AuthResponse{TokenPair: tokens, User: user})
}

// Login handles user authentication
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	user, tokens, err := h.userService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to login")
		return
	}

	logger.FromContext(r.Context(), h.logger).Info("User logged in successfully", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, AuthResponse{TokenPair: tokens, User: user})
}

// Logout revokes the presented refresh token
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	if err := h.userService.Logout(r.Context(), req.RefreshToken); err != nil {
		respondServiceError(w, r, h.logger, err, "failed to logout")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
}

// Refresh exchanges a refresh token for a new token pair
func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	tokens, err := h.userService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to refresh token")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, tokens)
}

// GetProfile returns the authenticated user
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to get user profile")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to list users")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "userID")
	if !ok {
		return
	}

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to get user")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "userID")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	user, err := h.userService.UpdateUser(r.Context(), userID, service.UpdateUserInput{
		Password: req.Password,
		Name:     req.Name,
		Family:   req.Family,
		Phone:    req.Phone,
	})
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to update user")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "userID")
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(r.Context(), userID); err != nil {
		respondServiceError(w, r, h.logger, err, "failed to delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetAdmin grants or revokes the admin role
func (h *UserHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "userID")
	if !ok {
		return
	}

	var req SetAdminRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	user, err := h.userService.SetAdmin(r.Context(), userID, *req.IsAdmin)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to change role")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, user)
}
