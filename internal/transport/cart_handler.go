package transport

import (
	"net/http"

	"goldshop/internal/domain"
	"goldshop/internal/logger"
	"goldshop/internal/middleware"
	"goldshop/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AddItemRequest adds a gold item to a cart
type AddItemRequest struct {
	GoldID   uuid.UUID `json:"gold_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"gt=0"`
}

// UpdateItemRequest sets the quantity of a cart line
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

// CartResponse is a cart with its computed total
type CartResponse struct {
	*domain.Cart
	TotalPrice decimal.Decimal `json:"total_price"`
}

// CartHandler serves a user's cart, checkout and order history
type CartHandler struct {
	cartService  service.CartService
	orderService service.OrderService
	logger       *zap.Logger
}

func NewCartHandler(cartService service.CartService, orderService service.OrderService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService:  cartService,
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers the cart routes
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/carts", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Route("/items/{itemID}", func(r chi.Router) {
			r.Put("/", h.UpdateItem)
			r.Delete("/", h.RemoveItem)
		})

		r.Route("/{userID}", func(r chi.Router) {
			r.Use(middleware.RequireOwnerOrAdmin("userID", h.logger))
			r.Get("/", h.GetCart)
			r.Post("/items", h.AddItem)
			r.Delete("/items", h.ClearCart)
			r.Post("/checkout", h.Checkout)
			r.Get("/orders", h.ListOrders)
		})
	})
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "userID")
	if !ok {
		return
	}

	cart, err := h.cartService.GetCart(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to get cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{Cart: cart, TotalPrice: cart.Total()})
}

// AddItem adds quantity pieces of a gold item, merging with an existing line
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "userID")
	if !ok {
		return
	}

	var req AddItemRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	item, err := h.cartService.AddItem(r.Context(), userID, req.GoldID, req.Quantity)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to add item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, item)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.authorizeItem(w, r)
	if !ok {
		return
	}

	var req UpdateItemRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	item, err := h.cartService.UpdateItem(r.Context(), itemID, req.Quantity)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to update item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, item)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.authorizeItem(w, r)
	if !ok {
		return
	}

	if err := h.cartService.RemoveItem(r.Context(), itemID); err != nil {
		respondServiceError(w, r, h.logger, err, "failed to remove item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "userID")
	if !ok {
		return
	}

	if err := h.cartService.ClearCart(r.Context(), userID); err != nil {
		respondServiceError(w, r, h.logger, err, "failed to clear cart")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Checkout converts the cart into a completed order
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "userID")
	if !ok {
		return
	}

	order, err := h.orderService.Checkout(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to checkout")
		return
	}

	logger.FromContext(r.Context(), h.logger).Info("Checkout completed",
		zap.String("order_id", order.ID.String()),
		zap.String("total", order.TotalPrice.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

func (h *CartHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "userID")
	if !ok {
		return
	}

	orders, err := h.orderService.ListOrders(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// authorizeItem resolves the owner of the item in the URL and checks the caller against it.
func (h *CartHandler) authorizeItem(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	itemID, ok := urlID(w, r, "itemID")
	if !ok {
		return uuid.Nil, false
	}

	ownerID, err := h.cartService.ItemOwner(r.Context(), itemID)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to load item")
		return uuid.Nil, false
	}

	if !requireAccess(w, r, ownerID) {
		return uuid.Nil, false
	}
	return itemID, true
}
