package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"goldshop/internal/config"
	"goldshop/internal/domain"
	"goldshop/internal/middleware"
	"goldshop/internal/repository/memory"
	"goldshop/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type testAPI struct {
	t       *testing.T
	store   *memory.Store
	users   service.UserService
	catalog service.CatalogService
	router  http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store := memory.NewStore()
	log := zap.NewNop()

	users := service.NewUserService(store,
		config.JWTConfig{Secret: "test-secret", AccessExpiry: 15, RefreshExpiry: 7},
		config.AuthConfig{BcryptCost: bcrypt.MinCost},
		log,
	)
	catalog := service.NewCatalogService(store, log)
	carts := service.NewCartService(store, nil, log)
	orders := service.NewOrderService(store, nil, log)

	auth := middleware.AuthMiddleware(users, log)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		NewUserHandler(users, log).RegisterRoutes(r, auth)
		NewGoldHandler(catalog, log).RegisterRoutes(r, auth)
		NewCartHandler(carts, orders, log).RegisterRoutes(r, auth)
		NewOrderHandler(orders, log).RegisterRoutes(r, auth)
	})

	return &testAPI{t: t, store: store, users: users, catalog: catalog, router: r}
}

// do sends a JSON request with an optional bearer token.
func (a *testAPI) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// register creates a regular user and returns it with its access token.
func (a *testAPI) register(username string) (*domain.User, string) {
	a.t.Helper()
	user, tokens, err := a.users.Register(context.Background(), service.RegisterInput{
		Username: username,
		Password: "password123",
		Name:     "Sara",
		Family:   "Ahmadi",
	})
	require.NoError(a.t, err)
	return user, tokens.AccessToken
}

func (a *testAPI) admin() (*domain.User, string) {
	a.t.Helper()
	_, _, err := a.users.SeedAdmin(context.Background(), "root", "rootpassword")
	require.NoError(a.t, err)
	user, tokens, err := a.users.Login(context.Background(), "root", "rootpassword")
	require.NoError(a.t, err)
	return user, tokens.AccessToken
}

func (a *testAPI) gold(stock int, pricePerGram, weight string) *domain.Gold {
	a.t.Helper()
	gold, err := a.catalog.CreateGold(context.Background(), service.GoldInput{
		Title:        "coin",
		Stock:        stock,
		PricePerGram: decimal.RequireFromString(pricePerGram),
		Weight:       decimal.RequireFromString(weight),
	})
	require.NoError(a.t, err)
	return gold
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorDetail {
	t.Helper()
	return decode[middleware.ErrorResponse](t, w).Error
}

func cartPath(userID uuid.UUID, suffix string) string {
	return "/api/carts/" + userID.String() + suffix
}
