package transport

import (
	"net/http"
	"testing"

	"goldshop/internal/domain"
	"goldshop/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoldCatalogEndpoints(t *testing.T) {
	api := newTestAPI(t)
	_, userToken := api.register("buyer")
	_, adminToken := api.admin()

	create := map[string]interface{}{
		"title":          "Bahar Azadi coin",
		"weight":         "8.133",
		"price_per_gram": "71.5",
		"stock":          12,
		"image_url":      "https://cdn.example.com/coin.png",
	}

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/golds", "", create).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/golds", userToken, create).Code)

	w := api.do(http.MethodPost, "/api/golds", adminToken, create)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	gold := decode[domain.Gold](t, w)
	assert.True(t, gold.Weight.Equal(decimal.RequireFromString("8.133")))
	assert.True(t, gold.PricePerGram.Equal(decimal.RequireFromString("71.5")))
	assert.Equal(t, 12, gold.Stock)

	w = api.do(http.MethodGet, "/api/golds/"+gold.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bahar Azadi coin", decode[domain.Gold](t, w).Title)

	update := map[string]interface{}{"title": "Bahar Azadi coin", "weight": "8.133", "price_per_gram": "75", "stock": 3}
	w = api.do(http.MethodPut, "/api/golds/"+gold.ID.String(), adminToken, update)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[domain.Gold](t, w).Stock)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/golds/"+gold.ID.String(), adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/golds/"+gold.ID.String(), "", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/golds/"+uuid.NewString(), adminToken, nil).Code)
}

func TestGoldValidation(t *testing.T) {
	api := newTestAPI(t)
	_, adminToken := api.admin()

	cases := map[string]map[string]interface{}{
		"zero weight":    {"title": "bar", "weight": "0", "price_per_gram": "10", "stock": 1},
		"negative price": {"title": "bar", "weight": "1", "price_per_gram": "-10", "stock": 1},
		"negative stock": {"title": "bar", "weight": "1", "price_per_gram": "10", "stock": -1},
		"missing title":  {"weight": "1", "price_per_gram": "10", "stock": 1},
		"bad image url":  {"title": "bar", "weight": "1", "price_per_gram": "10", "stock": 1, "image_url": "not a url"},
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := api.do(http.MethodPost, "/api/golds", adminToken, body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestListGolds(t *testing.T) {
	api := newTestAPI(t)
	api.gold(5, "60", "1")
	api.gold(5, "40", "2")
	api.gold(5, "50", "3")

	w := api.do(http.MethodGet, "/api/golds?page=1&page_size=2&sort_by=price_per_gram&order=asc", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	page := decode[service.GoldPage](t, w)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.True(t, page.Items[0].PricePerGram.Equal(decimal.NewFromInt(40)))
	assert.True(t, page.Items[1].PricePerGram.Equal(decimal.NewFromInt(50)))

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/golds?page=zero", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/golds?page_size=-1", "", nil).Code)
}

func TestDeleteGoldReferencedByOrder(t *testing.T) {
	api := newTestAPI(t)
	user, token := api.register("buyer")
	_, adminToken := api.admin()
	gold := api.gold(5, "10", "1")

	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, cartPath(user.ID, "/items"), token, AddItemRequest{GoldID: gold.ID, Quantity: 1}).Code)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, cartPath(user.ID, "/checkout"), token, nil).Code)

	assert.Equal(t, http.StatusConflict, api.do(http.MethodDelete, "/api/golds/"+gold.ID.String(), adminToken, nil).Code)
}
