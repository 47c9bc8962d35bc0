package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"goldshop/internal/database"
	"goldshop/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCartNotFound     = fmt.Errorf("cart %w", domain.ErrNotFound)
	ErrCartItemNotFound = fmt.Errorf("cart item %w", domain.ErrNotFound)
	ErrCartItemExists   = fmt.Errorf("gold already in cart: %w", domain.ErrConflict)
)

// CartRepository defines the interface for cart data access
type CartRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	// FindByUserIDForUpdate locks the cart row until the surrounding transaction ends.
	FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	// GetOrCreate returns the user's cart, creating it on first use.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	Touch(ctx context.Context, cartID uuid.UUID) error

	ListItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*domain.CartItem, error)
	FindItemByGold(ctx context.Context, cartID, goldID uuid.UUID) (*domain.CartItem, error)
	// ItemOwner returns the user owning the cart that holds itemID.
	ItemOwner(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error)
	CreateItem(ctx context.Context, item *domain.CartItem) error
	UpdateItem(ctx context.Context, item *domain.CartItem) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	// DeleteItems empties the cart and returns how many lines were removed.
	DeleteItems(ctx context.Context, cartID uuid.UUID) (int64, error)
}

type cartRepository struct {
	db DBTX
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db DBTX) CartRepository {
	return &cartRepository{db: db}
}

const cartItemColumns = `
	ci.id, ci.cart_id, ci.gold_id, ci.quantity, ci.unit_price_at_add, ci.total_price, ci.created_at, ci.updated_at,
	g.id, g.title, g.weight, g.price_per_gram, g.stock, COALESCE(g.description, ''), COALESCE(g.image_url, ''), g.created_at, g.updated_at`

func (r *cartRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return r.findCart(ctx, `SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`, userID)
}

func (r *cartRepository) FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return r.findCart(ctx, `SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1 FOR UPDATE`, userID)
}

func (r *cartRepository) findCart(ctx context.Context, query string, userID uuid.UUID) (*domain.Cart, error) {
	cart := &domain.Cart{Items: []domain.CartItem{}}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}

	return cart, nil
}

func (r *cartRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	query := `
		INSERT INTO carts (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, created_at, updated_at
	`

	cart := &domain.Cart{Items: []domain.CartItem{}}
	err := r.db.QueryRowContext(ctx, query, uuid.New(), userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}

	return cart, nil
}

func (r *cartRepository) Touch(ctx context.Context, cartID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}
	return expectAffected(result, ErrCartNotFound)
}

func (r *cartRepository) ListItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	query := `
		SELECT ` + cartItemColumns + `
		FROM cart_items ci
		JOIN golds g ON g.id = ci.gold_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id
	`

	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, *item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

func (r *cartRepository) FindItem(ctx context.Context, itemID uuid.UUID) (*domain.CartItem, error) {
	query := `
		SELECT ` + cartItemColumns + `
		FROM cart_items ci
		JOIN golds g ON g.id = ci.gold_id
		WHERE ci.id = $1
	`
	return r.findItem(ctx, query, itemID)
}

func (r *cartRepository) FindItemByGold(ctx context.Context, cartID, goldID uuid.UUID) (*domain.CartItem, error) {
	query := `
		SELECT ` + cartItemColumns + `
		FROM cart_items ci
		JOIN golds g ON g.id = ci.gold_id
		WHERE ci.cart_id = $1 AND ci.gold_id = $2
	`
	return r.findItem(ctx, query, cartID, goldID)
}

func (r *cartRepository) findItem(ctx context.Context, query string, args ...any) (*domain.CartItem, error) {
	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}
	return item, nil
}

func (r *cartRepository) ItemOwner(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	query := `
		SELECT c.user_id
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE ci.id = $1
	`

	var owner uuid.UUID
	if err := r.db.QueryRowContext(ctx, query, itemID).Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrCartItemNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to find cart item owner: %w", err)
	}
	return owner, nil
}

func (r *cartRepository) CreateItem(ctx context.Context, item *domain.CartItem) error {
	query := `
		INSERT INTO cart_items (id, cart_id, gold_id, quantity, unit_price_at_add, total_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.CartID,
		item.GoldID,
		item.Quantity,
		item.UnitPriceAtAdd,
		item.TotalPrice,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return ErrCartItemExists
		case database.IsForeignKeyViolation(err):
			return ErrGoldNotFound
		}
		return fmt.Errorf("failed to create cart item: %w", err)
	}

	return nil
}

func (r *cartRepository) UpdateItem(ctx context.Context, item *domain.CartItem) error {
	query := `
		UPDATE cart_items
		SET quantity = $2, unit_price_at_add = $3, total_price = $4
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		item.ID,
		item.Quantity,
		item.UnitPriceAtAdd,
		item.TotalPrice,
	).Scan(&item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCartItemNotFound
		}
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	return nil
}

func (r *cartRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return expectAffected(result, ErrCartItemNotFound)
}

func (r *cartRepository) DeleteItems(ctx context.Context, cartID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func scanCartItem(row rowScanner) (*domain.CartItem, error) {
	item := &domain.CartItem{Gold: &domain.Gold{}}
	err := row.Scan(
		&item.ID,
		&item.CartID,
		&item.GoldID,
		&item.Quantity,
		&item.UnitPriceAtAdd,
		&item.TotalPrice,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.Gold.ID,
		&item.Gold.Title,
		&item.Gold.Weight,
		&item.Gold.PricePerGram,
		&item.Gold.Stock,
		&item.Gold.Description,
		&item.Gold.ImageURL,
		&item.Gold.CreatedAt,
		&item.Gold.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}
