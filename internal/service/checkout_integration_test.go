package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"goldshop/internal/database"
	"goldshop/internal/domain"
	"goldshop/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func setupPostgresStore(t *testing.T) (repository.Store, *sql.DB) {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres checkout tests skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:15",
		postgres.WithDatabase("goldshop"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.RunMigrations(db, zap.NewNop()))
	return repository.NewStore(db), db
}

func seedPostgres(t *testing.T, store repository.Store, stock int) (*domain.User, *domain.Gold) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	user := &domain.User{ID: uuid.New(), Username: "u_" + uuid.NewString()[:8], PasswordHash: "x", Name: "N", Family: "F", Role: domain.RoleUser, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.Users().Create(ctx, user))

	gold := &domain.Gold{ID: uuid.New(), Title: "Coin", Weight: decimal.NewFromInt(1), PricePerGram: decimal.NewFromInt(50), Stock: stock, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.Golds().Create(ctx, gold))
	return user, gold
}

func TestPostgresCheckout(t *testing.T) {
	store, _ := setupPostgresStore(t)
	carts := NewCartService(store, nil, zap.NewNop())
	orders := NewOrderService(store, nil, zap.NewNop())
	ctx := context.Background()

	t.Run("concrete scenario", func(t *testing.T) {
		user, gold := seedPostgres(t, store, 10)

		item, err := carts.AddItem(ctx, user.ID, gold.ID, 4)
		require.NoError(t, err)
		assert.True(t, item.TotalPrice.Equal(decimal.NewFromInt(200)))

		order, err := orders.Checkout(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(200)))

		stored, err := orders.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.True(t, stored.TotalPrice.Equal(stored.ItemsTotal()))

		g, err := store.Golds().FindByID(ctx, gold.ID)
		require.NoError(t, err)
		assert.Equal(t, 6, g.Stock)

		_, err = orders.Checkout(ctx, user.ID)
		assert.ErrorIs(t, err, domain.ErrEmptyCart)
	})

	t.Run("concurrent checkouts never oversell", func(t *testing.T) {
		first, gold := seedPostgres(t, store, 10)
		second, _ := seedPostgres(t, store, 0)

		for _, u := range []*domain.User{first, second} {
			_, err := carts.AddItem(ctx, u.ID, gold.ID, 6)
			require.NoError(t, err)
		}

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, u := range []*domain.User{first, second} {
			wg.Add(1)
			go func(i int, userID uuid.UUID) {
				defer wg.Done()
				_, errs[i] = orders.Checkout(ctx, userID)
			}(i, u.ID)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		}
		assert.Equal(t, 1, succeeded)

		g, err := store.Golds().FindByID(ctx, gold.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, g.Stock)
	})

	t.Run("insufficient stock leaves everything untouched", func(t *testing.T) {
		user, gold := seedPostgres(t, store, 5)
		_, other := seedPostgres(t, store, 3)

		_, err := carts.AddItem(ctx, user.ID, gold.ID, 2)
		require.NoError(t, err)
		_, err = carts.AddItem(ctx, user.ID, other.ID, 3)
		require.NoError(t, err)

		other.Stock = 1
		require.NoError(t, store.Golds().Update(ctx, other))

		_, err = orders.Checkout(ctx, user.ID)
		require.ErrorIs(t, err, domain.ErrInsufficientStock)

		g, err := store.Golds().FindByID(ctx, gold.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, g.Stock)

		list, err := orders.ListOrders(ctx, user.ID)
		require.NoError(t, err)
		assert.Empty(t, list)

		cart, err := carts.GetCart(ctx, user.ID)
		require.NoError(t, err)
		assert.Len(t, cart.Items, 2)
	})
}

func TestPostgresRefreshRotationHasOneWinner(t *testing.T) {
	store, _ := setupPostgresStore(t)
	users := NewUserService(store, testJWTConfig, testAuthConfig, zap.NewNop())
	ctx := context.Background()

	_, tokens, err := users.Register(ctx, RegisterInput{Username: "rotator", Password: "password123"})
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = users.Refresh(ctx, tokens.RefreshToken)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
	assert.Equal(t, 1, succeeded, "a refresh token must rotate exactly once")
}
