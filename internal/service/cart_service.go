package service

import (
	"context"
	"errors"
	"time"

	"goldshop/internal/cache"
	"goldshop/internal/domain"
	"goldshop/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CartService manages the single in-progress cart of each user
type CartService interface {
	// GetCart returns the cart with its lines. A user without a cart gets an empty one.
	GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, goldID uuid.UUID, quantity int) (*domain.CartItem, error)
	UpdateItem(ctx context.Context, itemID uuid.UUID, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, itemID uuid.UUID) error
	ClearCart(ctx context.Context, userID uuid.UUID) error
	// ItemOwner returns the user whose cart holds the line.
	ItemOwner(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error)
}

type cartService struct {
	store  repository.Store
	cache  cache.CartCache
	group  singleflight.Group
	logger *zap.Logger
}

func NewCartService(store repository.Store, cartCache cache.CartCache, logger *zap.Logger) CartService {
	if cartCache == nil {
		cartCache = cache.NopCartCache{}
	}
	return &cartService{store: store, cache: cartCache, logger: logger.Named("cart")}
}

func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cached, err := s.cache.Get(ctx, userID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Cart cache read failed", zap.String("user_id", userID.String()), zap.Error(err))
	}

	v, err, _ := s.group.Do(userID.String(), func() (interface{}, error) {
		// The version must be read before the store so a concurrent
		// invalidation makes the fill below a no-op.
		version, verErr := s.cache.Version(ctx, userID)

		cart, err := s.loadCart(ctx, userID)
		if err != nil {
			return nil, err
		}
		if verErr != nil {
			return cart, nil
		}

		err = s.cache.Set(ctx, cart, version)
		if err != nil && !errors.Is(err, cache.ErrStale) {
			s.logger.Warn("Cart cache write failed", zap.String("user_id", userID.String()), zap.Error(err))
		}
		return cart, nil
	})
	if err != nil {
		return nil, storeErr("get cart", err)
	}

	return v.(*domain.Cart), nil
}

func (s *cartService) loadCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.store.Carts().FindByUserID(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return &domain.Cart{UserID: userID, Items: []domain.CartItem{}}, nil
	}
	if err != nil {
		return nil, err
	}

	cart.Items, err = s.store.Carts().ListItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem adds quantity of a gold to the cart, merging with an existing line.
// The merged quantity may not exceed the current stock.
func (s *cartService) AddItem(ctx context.Context, userID, goldID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "must be greater than 0")
	}

	var item *domain.CartItem
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		gold, err := tx.Golds().FindByID(ctx, goldID)
		if err != nil {
			return err
		}

		cart, err := tx.Carts().GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}

		existing, err := tx.Carts().FindItemByGold(ctx, cart.ID, goldID)
		if err != nil && !errors.Is(err, repository.ErrCartItemNotFound) {
			return err
		}

		total := quantity
		if existing != nil {
			total += existing.Quantity
		}
		if total > gold.Stock {
			return domain.NewOutOfStockError(goldID, total, gold.Stock)
		}

		if existing != nil {
			item = existing
			item.Reprice(total, gold)
			if err := tx.Carts().UpdateItem(ctx, item); err != nil {
				return err
			}
		} else {
			now := time.Now()
			item = &domain.CartItem{
				ID:        uuid.New(),
				CartID:    cart.ID,
				GoldID:    goldID,
				CreatedAt: now,
				UpdatedAt: now,
			}
			item.Reprice(total, gold)
			if err := tx.Carts().CreateItem(ctx, item); err != nil {
				return err
			}
		}
		item.Gold = gold

		return tx.Carts().Touch(ctx, cart.ID)
	})
	if err != nil {
		return nil, storeErr("add cart item", err)
	}

	s.invalidate(ctx, userID)
	return item, nil
}

// UpdateItem overwrites the quantity of a line and reprices it from the live
// gold price. Stock is checked at checkout, not here.
func (s *cartService) UpdateItem(ctx context.Context, itemID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if quantity <= 0 {
		return nil, domain.NewValidationError("quantity", "must be greater than 0")
	}

	var (
		item  *domain.CartItem
		owner uuid.UUID
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		item, err = tx.Carts().FindItem(ctx, itemID)
		if err != nil {
			return err
		}

		owner, err = tx.Carts().ItemOwner(ctx, itemID)
		if err != nil {
			return err
		}

		gold := item.Gold
		if gold == nil {
			if gold, err = tx.Golds().FindByID(ctx, item.GoldID); err != nil {
				return err
			}
		}

		item.Reprice(quantity, gold)
		item.Gold = gold
		if err := tx.Carts().UpdateItem(ctx, item); err != nil {
			return err
		}
		return tx.Carts().Touch(ctx, item.CartID)
	})
	if err != nil {
		return nil, storeErr("update cart item", err)
	}

	s.invalidate(ctx, owner)
	return item, nil
}

func (s *cartService) RemoveItem(ctx context.Context, itemID uuid.UUID) error {
	var owner uuid.UUID
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		owner, err = tx.Carts().ItemOwner(ctx, itemID)
		if err != nil {
			return err
		}
		return tx.Carts().DeleteItem(ctx, itemID)
	})
	if err != nil {
		return storeErr("remove cart item", err)
	}

	s.invalidate(ctx, owner)
	return nil
}

// ClearCart removes every line. Clearing a cart that was never created is a no-op.
func (s *cartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.store.Carts().FindByUserID(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return storeErr("clear cart", err)
	}

	if _, err := s.store.Carts().DeleteItems(ctx, cart.ID); err != nil {
		return storeErr("clear cart", err)
	}

	s.invalidate(ctx, userID)
	return nil
}

func (s *cartService) ItemOwner(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	owner, err := s.store.Carts().ItemOwner(ctx, itemID)
	if err != nil {
		return uuid.Nil, storeErr("find cart item owner", err)
	}
	return owner, nil
}

func (s *cartService) invalidate(ctx context.Context, userID uuid.UUID) {
	invalidateCart(ctx, s.cache, s.logger, userID)
}

func invalidateCart(ctx context.Context, c cache.CartCache, logger *zap.Logger, userID uuid.UUID) {
	if err := c.Delete(ctx, userID); err != nil {
		logger.Warn("Cart cache invalidation failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}
