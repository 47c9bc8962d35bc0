package service

import (
	"context"
	"testing"
	"time"

	"goldshop/internal/config"
	"goldshop/internal/domain"
	"goldshop/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	testJWTConfig  = config.JWTConfig{Secret: "test-secret", AccessExpiry: 15, RefreshExpiry: 7}
	testAuthConfig = config.AuthConfig{BcryptCost: bcrypt.MinCost}
)

func newTestUserService(store *memory.Store) UserService {
	return NewUserService(store, testJWTConfig, testAuthConfig, zap.NewNop())
}

func seedUser(t *testing.T, store *memory.Store) *domain.User {
	t.Helper()
	now := time.Now()
	user := &domain.User{
		ID:        uuid.New(),
		Username:  "u_" + uuid.NewString()[:8],
		Name:      "Test",
		Family:    "User",
		Role:      domain.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

func seedGold(t *testing.T, store *memory.Store, stock int, pricePerGram, weight string) *domain.Gold {
	t.Helper()
	now := time.Now()
	gold := &domain.Gold{
		ID:           uuid.New(),
		Title:        "Gold " + uuid.NewString()[:6],
		Weight:       decimal.RequireFromString(weight),
		PricePerGram: decimal.RequireFromString(pricePerGram),
		Stock:        stock,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.Golds().Create(context.Background(), gold))
	return gold
}

func stockOf(t *testing.T, store *memory.Store, goldID uuid.UUID) int {
	t.Helper()
	g, err := store.Golds().FindByID(context.Background(), goldID)
	require.NoError(t, err)
	return g.Stock
}
