package transport

import (
	"net/http"
	"strconv"

	"goldshop/internal/logger"
	"goldshop/internal/middleware"
	"goldshop/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GoldRequest is the create/replace payload for a catalog item. Decimals
// accept JSON strings or numbers.
type GoldRequest struct {
	Title        string          `json:"title" validate:"required,max=255"`
	Weight       decimal.Decimal `json:"weight" validate:"gt=0"`
	PricePerGram decimal.Decimal `json:"price_per_gram" validate:"gt=0"`
	Stock        int             `json:"stock" validate:"gte=0"`
	Description  string          `json:"description" validate:"max=2000"`
	ImageURL     string          `json:"image_url" validate:"omitempty,url,max=500"`
}

func (req GoldRequest) input() service.GoldInput {
	return service.GoldInput{
		Title:        req.Title,
		Weight:       req.Weight,
		PricePerGram: req.PricePerGram,
		Stock:        req.Stock,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
	}
}

// GoldHandler serves the catalog
type GoldHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

func NewGoldHandler(catalogService service.CatalogService, logger *zap.Logger) *GoldHandler {
	return &GoldHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers the catalog routes. Reads are public.
func (h *GoldHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/golds", func(r chi.Router) {
		r.Get("/", h.ListGolds)
		r.Get("/{goldID}", h.GetGold)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireAdmin(h.logger))
			r.Post("/", h.CreateGold)
			r.Put("/{goldID}", h.UpdateGold)
			r.Delete("/{goldID}", h.DeleteGold)
		})
	})
}

// ListGolds returns a page of the catalog.
// Query: page, page_size, sort_by, order, q
func (h *GoldHandler) ListGolds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := service.ListGoldsQuery{
		SortBy: q.Get("sort_by"),
		Order:  q.Get("order"),
		Search: q.Get("q"),
	}

	var err error
	if v := q.Get("page"); v != "" {
		if query.Page, err = strconv.Atoi(v); err != nil || query.Page < 1 {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid page")
			return
		}
	}
	if v := q.Get("page_size"); v != "" {
		if query.PageSize, err = strconv.Atoi(v); err != nil || query.PageSize < 1 {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid page_size")
			return
		}
	}

	page, err := h.catalogService.ListGolds(r.Context(), query)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to list golds")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, page)
}

func (h *GoldHandler) GetGold(w http.ResponseWriter, r *http.Request) {
	goldID, ok := urlID(w, r, "goldID")
	if !ok {
		return
	}

	gold, err := h.catalogService.GetGold(r.Context(), goldID)
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to get gold")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, gold)
}

func (h *GoldHandler) CreateGold(w http.ResponseWriter, r *http.Request) {
	var req GoldRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	gold, err := h.catalogService.CreateGold(r.Context(), req.input())
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to create gold")
		return
	}

	logger.FromContext(r.Context(), h.logger).Info("Gold created", zap.String("gold_id", gold.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, gold)
}

func (h *GoldHandler) UpdateGold(w http.ResponseWriter, r *http.Request) {
	goldID, ok := urlID(w, r, "goldID")
	if !ok {
		return
	}

	var req GoldRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	gold, err := h.catalogService.UpdateGold(r.Context(), goldID, req.input())
	if err != nil {
		respondServiceError(w, r, h.logger, err, "failed to update gold")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, gold)
}

func (h *GoldHandler) DeleteGold(w http.ResponseWriter, r *http.Request) {
	goldID, ok := urlID(w, r, "goldID")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteGold(r.Context(), goldID); err != nil {
		respondServiceError(w, r, h.logger, err, "failed to delete gold")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
