package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"goldshop/internal/cache"
	"goldshop/internal/domain"
	"goldshop/internal/repository/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAddItem_ComputesLineTotal(t *testing.T) {
	store := memory.NewStore()
	svc := NewCartService(store, nil, zap.NewNop())
	ctx := context.Background()
	user := seedUser(t, store)
	gold := seedGold(t, store, 10, "50", "1")

	item, err := svc.AddItem(ctx, user.ID, gold.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)
	assert.True(t, item.TotalPrice.Equal(decimal.NewFromInt(200)), "got %s", item.TotalPrice)
	assert.True(t, item.UnitPriceAtAdd.Equal(decimal.NewFromInt(50)))

	cart, err := svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.True(t, cart.Total().Equal(decimal.NewFromInt(200)))
}

func TestAddItem_MergesAndChecksCumulativeStock(t *testing.T) {
	store := memory.NewStore()
	svc := NewCartService(store, nil, zap.NewNop())
	ctx := context.Background()
	user := seedUser(t, store)
	gold := seedGold(t, store, 5, "10", "2")

	_, err := svc.AddItem(ctx, user.ID, gold.ID, 3)
	require.NoError(t, err)

	merged, err := svc.AddItem(ctx, user.ID, gold.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, merged.Quantity)
	assert.True(t, merged.TotalPrice.Equal(decimal.NewFromInt(100)))

	_, err = svc.AddItem(ctx, user.ID, gold.ID, 1)
	require.ErrorIs(t, err, domain.ErrOutOfStock)

	var stockErr *domain.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, gold.ID, stockErr.GoldID)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)

	cart, err := svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestAddItem_Errors(t *testing.T) {
	store := memory.NewStore()
	svc := NewCartService(store, nil, zap.NewNop())
	ctx := context.Background()
	user := seedUser(t, store)
	gold := seedGold(t, store, 5, "10", "1")

	_, err := svc.AddItem(ctx, user.ID, gold.ID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.AddItem(ctx, user.ID, uuid.New(), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.AddItem(ctx, uuid.New(), gold.ID, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateItem_RepricesFromLivePrice(t *testing.T) {
	store := memory.NewStore()
	svc := NewCartService(store, nil, zap.NewNop())
	ctx := context.Background()
	user := seedUser(t, store)
	gold := seedGold(t, store, 10, "50", "1")

	item, err := svc.AddItem(ctx, user.ID, gold.ID, 2)
	require.NoError(t, err)

	gold.PricePerGram = decimal.NewFromInt(60)
	require.NoError(t, store.Golds().Update(ctx, gold))

	updated, err := svc.UpdateItem(ctx, item.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Quantity)
	assert.True(t, updated.UnitPriceAtAdd.Equal(decimal.NewFromInt(60)))
	assert.True(t, updated.TotalPrice.Equal(decimal.NewFromInt(180)))

	_, err = svc.UpdateItem(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.UpdateItem(ctx, item.ID, -1)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRemoveAndClear(t *testing.T) {
	store := memory.NewStore()
	svc := NewCartService(store, nil, zap.NewNop())
	ctx := context.Background()
	user := seedUser(t, store)
	a := seedGold(t, store, 10, "50", "1")
	b := seedGold(t, store, 10, "20", "1")

	itemA, err := svc.AddItem(ctx, user.ID, a.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, user.ID, b.ID, 1)
	require.NoError(t, err)

	owner, err := svc.ItemOwner(ctx, itemA.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, owner)

	require.NoError(t, svc.RemoveItem(ctx, itemA.ID))
	assert.ErrorIs(t, svc.RemoveItem(ctx, itemA.ID), domain.ErrNotFound)

	require.NoError(t, svc.ClearCart(ctx, user.ID))
	cart, err := svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	// No cart yet: clearing is a no-op and reading returns an empty cart.
	other := seedUser(t, store)
	require.NoError(t, svc.ClearCart(ctx, other.ID))
	empty, err := svc.GetCart(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, empty.UserID)
	assert.Empty(t, empty.Items)
}

func TestGetCart_CachedAndInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := memory.NewStore()
	svc := NewCartService(store, cache.NewRedisCartCache(client, time.Minute), zap.NewNop())
	ctx := context.Background()
	user := seedUser(t, store)
	gold := seedGold(t, store, 10, "50", "1")
	key := "cart:" + user.ID.String()

	_, err := svc.AddItem(ctx, user.ID, gold.ID, 1)
	require.NoError(t, err)

	_, err = svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))

	// While cached, reads do not touch the store.
	store.FailOn("Carts.FindByUserID", errors.New("store down"))
	cart, err := svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	store.FailOn("Carts.FindByUserID", nil)

	_, err = svc.AddItem(ctx, user.ID, gold.ID, 1)
	require.NoError(t, err)
	assert.False(t, mr.Exists(key), "mutation must invalidate the cached cart")

	cart, err = svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

// interleavedCache runs beforeFill once, between the store read and the
// cache write of a GetCart, to model a mutation committing in that window.
type interleavedCache struct {
	cache.CartCache
	beforeFill func()
}

func (c *interleavedCache) Set(ctx context.Context, cart *domain.Cart, version int64) error {
	if c.beforeFill != nil {
		fill := c.beforeFill
		c.beforeFill = nil
		fill()
	}
	return c.CartCache.Set(ctx, cart, version)
}

func TestGetCart_CheckoutDuringFillDoesNotLeaveStaleCart(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := memory.NewStore()
	shared := &interleavedCache{CartCache: cache.NewRedisCartCache(client, time.Minute)}
	carts := NewCartService(store, shared, zap.NewNop())
	orders := NewOrderService(store, shared, zap.NewNop())
	ctx := context.Background()
	user := seedUser(t, store)
	gold := seedGold(t, store, 10, "50", "1")

	_, err := carts.AddItem(ctx, user.ID, gold.ID, 4)
	require.NoError(t, err)

	shared.beforeFill = func() {
		_, err := orders.Checkout(ctx, user.ID)
		require.NoError(t, err)
	}

	// This read raced the checkout, so it may see the old lines.
	_, err = carts.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, mr.Exists("cart:"+user.ID.String()), "raced fill must not be cached")

	cart, err := carts.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty(), "cart lines after committed checkout: %d", len(cart.Items))
	assert.Equal(t, 6, stockOf(t, store, gold.ID))
}

func TestGetCart_CacheOutageFallsBackToStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := memory.NewStore()
	svc := NewCartService(store, cache.NewRedisCartCache(client, time.Minute), zap.NewNop())
	ctx := context.Background()
	user := seedUser(t, store)
	gold := seedGold(t, store, 10, "50", "1")

	mr.Close()

	_, err := svc.AddItem(ctx, user.ID, gold.ID, 1)
	require.NoError(t, err)
	cart, err := svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}
