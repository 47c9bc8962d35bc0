package transport

import (
	"net/http"

	"goldshop/internal/domain"
	"goldshop/internal/middleware"
	"goldshop/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UpdateStatusRequest moves an order to a new status
type UpdateStatusRequest struct {
	Status domain.OrderStatus `json:"status" validate:"required"`
}

// OrderHandler serves single orders
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/orders/{orderID}", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetOrder)
		r.With(middleware.RequireAdmin(h.logger)).Patch("/status", h.UpdateStatus)
	})
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(w, r, "orderID")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), orderID)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to get order")
		return
	}

	if !requireAccess(w, r, order.UserID) {
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(w, r, "orderID")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	order, err := h.orderService.UpdateOrderStatus(r.Context(), orderID, req.Status)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to update order status")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}
