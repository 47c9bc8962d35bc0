package memory

import (
	"context"
	"sort"
	"time"

	"goldshop/internal/domain"
	"goldshop/internal/repository"

	"github.com/google/uuid"
)

type cartRepo struct{ s *Store }

func (r cartRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return r.find(ctx, "Carts.FindByUserID", userID)
}

func (r cartRepo) FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return r.find(ctx, "Carts.FindByUserIDForUpdate", userID)
}

func (r cartRepo) find(ctx context.Context, op string, userID uuid.UUID) (*domain.Cart, error) {
	var found *domain.Cart
	err := r.s.do(ctx, op, func(st *state) error {
		c, ok := cartOf(st, userID)
		if !ok {
			return repository.ErrCartNotFound
		}
		c.Items = []domain.CartItem{}
		found = &c
		return nil
	})
	return found, err
}

func (r cartRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	var cart *domain.Cart
	err := r.s.do(ctx, "Carts.GetOrCreate", func(st *state) error {
		if c, ok := cartOf(st, userID); ok {
			c.Items = []domain.CartItem{}
			cart = &c
			return nil
		}
		if _, ok := st.users[userID]; !ok {
			return repository.ErrUserNotFound
		}
		now := time.Now()
		c := domain.Cart{ID: uuid.New(), UserID: userID, CreatedAt: now, UpdatedAt: now}
		st.carts[c.ID] = c
		c.Items = []domain.CartItem{}
		cart = &c
		return nil
	})
	return cart, err
}

func (r cartRepo) Touch(ctx context.Context, cartID uuid.UUID) error {
	return r.s.do(ctx, "Carts.Touch", func(st *state) error {
		c, ok := st.carts[cartID]
		if !ok {
			return repository.ErrCartNotFound
		}
		c.UpdatedAt = time.Now()
		st.carts[cartID] = c
		return nil
	})
}

func (r cartRepo) ListItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	items := []domain.CartItem{}
	err := r.s.do(ctx, "Carts.ListItems", func(st *state) error {
		for _, item := range st.cartItems {
			if item.CartID == cartID {
				items = append(items, withGold(st, item))
			}
		}
		return nil
	})
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID.String() < items[j].ID.String()
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, err
}

func (r cartRepo) FindItem(ctx context.Context, itemID uuid.UUID) (*domain.CartItem, error) {
	var found *domain.CartItem
	err := r.s.do(ctx, "Carts.FindItem", func(st *state) error {
		item, ok := st.cartItems[itemID]
		if !ok {
			return repository.ErrCartItemNotFound
		}
		item = withGold(st, item)
		found = &item
		return nil
	})
	return found, err
}

func (r cartRepo) FindItemByGold(ctx context.Context, cartID, goldID uuid.UUID) (*domain.CartItem, error) {
	var found *domain.CartItem
	err := r.s.do(ctx, "Carts.FindItemByGold", func(st *state) error {
		for _, item := range st.cartItems {
			if item.CartID == cartID && item.GoldID == goldID {
				item = withGold(st, item)
				found = &item
				return nil
			}
		}
		return repository.ErrCartItemNotFound
	})
	return found, err
}

func (r cartRepo) ItemOwner(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID
	err := r.s.do(ctx, "Carts.ItemOwner", func(st *state) error {
		item, ok := st.cartItems[itemID]
		if !ok {
			return repository.ErrCartItemNotFound
		}
		owner = st.carts[item.CartID].UserID
		return nil
	})
	return owner, err
}

func (r cartRepo) CreateItem(ctx context.Context, item *domain.CartItem) error {
	return r.s.do(ctx, "Carts.CreateItem", func(st *state) error {
		if _, ok := st.golds[item.GoldID]; !ok {
			return repository.ErrGoldNotFound
		}
		for _, existing := range st.cartItems {
			if existing.CartID == item.CartID && existing.GoldID == item.GoldID {
				return repository.ErrCartItemExists
			}
		}
		stored := *item
		stored.Gold = nil
		st.cartItems[item.ID] = stored
		return nil
	})
}

func (r cartRepo) UpdateItem(ctx context.Context, item *domain.CartItem) error {
	return r.s.do(ctx, "Carts.UpdateItem", func(st *state) error {
		existing, ok := st.cartItems[item.ID]
		if !ok {
			return repository.ErrCartItemNotFound
		}
		existing.Quantity = item.Quantity
		existing.UnitPriceAtAdd = item.UnitPriceAtAdd
		existing.TotalPrice = item.TotalPrice
		existing.UpdatedAt = time.Now()
		item.UpdatedAt = existing.UpdatedAt
		st.cartItems[item.ID] = existing
		return nil
	})
}

func (r cartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.s.do(ctx, "Carts.DeleteItem", func(st *state) error {
		if _, ok := st.cartItems[itemID]; !ok {
			return repository.ErrCartItemNotFound
		}
		delete(st.cartItems, itemID)
		return nil
	})
}

func (r cartRepo) DeleteItems(ctx context.Context, cartID uuid.UUID) (int64, error) {
	var n int64
	err := r.s.do(ctx, "Carts.DeleteItems", func(st *state) error {
		for id, item := range st.cartItems {
			if item.CartID == cartID {
				delete(st.cartItems, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func cartOf(st *state, userID uuid.UUID) (domain.Cart, bool) {
	for _, c := range st.carts {
		if c.UserID == userID {
			return c, true
		}
	}
	return domain.Cart{}, false
}

func deleteCart(st *state, cartID uuid.UUID) {
	for id, item := range st.cartItems {
		if item.CartID == cartID {
			delete(st.cartItems, id)
		}
	}
	delete(st.carts, cartID)
}

func withGold(st *state, item domain.CartItem) domain.CartItem {
	if g, ok := st.golds[item.GoldID]; ok {
		item.Gold = &g
	}
	return item
}
