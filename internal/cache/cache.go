package cache

import (
	"context"
	"errors"

	"goldshop/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrStale is returned by Set when the cart was invalidated after its version was read.
	ErrStale = errors.New("cart invalidated since read")
)

// CartCache holds read-through copies of user carts.
//
// Fills are conditional: a reader takes Version before loading the cart from
// the store and passes it to Set. Delete bumps the version, so a fill that
// raced with a committed mutation is dropped instead of resurrecting old lines.
type CartCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	Version(ctx context.Context, userID uuid.UUID) (int64, error)
	Set(ctx context.Context, cart *domain.Cart, version int64) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

// NopCartCache never stores anything. Used when redis is not configured or unreachable.
type NopCartCache struct{}

func (NopCartCache) Get(context.Context, uuid.UUID) (*domain.Cart, error) { return nil, ErrCacheMiss }
func (NopCartCache) Version(context.Context, uuid.UUID) (int64, error)    { return 0, nil }
func (NopCartCache) Set(context.Context, *domain.Cart, int64) error       { return nil }
func (NopCartCache) Delete(context.Context, uuid.UUID) error              { return nil }
