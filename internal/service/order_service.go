package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goldshop/internal/cache"
	"goldshop/internal/domain"
	"goldshop/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService turns carts into orders and manages their status
type OrderService interface {
	// Checkout converts the user's cart into a completed order in one
	// transaction: either every line is bought and the cart emptied, or
	// nothing changes.
	Checkout(ctx context.Context, userID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
}

type orderService struct {
	store  repository.Store
	cache  cache.CartCache
	logger *zap.Logger
	now    func() time.Time
}

func NewOrderService(store repository.Store, cartCache cache.CartCache, logger *zap.Logger) OrderService {
	if cartCache == nil {
		cartCache = cache.NopCartCache{}
	}
	return &orderService{store: store, cache: cartCache, logger: logger.Named("orders"), now: time.Now}
}

func (s *orderService) Checkout(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	var order *domain.Order

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		// Locking the cart serializes checkouts of the same user.
		cart, err := tx.Carts().FindByUserIDForUpdate(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return domain.ErrEmptyCart
		}
		if err != nil {
			return err
		}

		items, err := tx.Carts().ListItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return domain.ErrEmptyCart
		}

		ids := make([]uuid.UUID, len(items))
		for i, item := range items {
			ids[i] = item.GoldID
		}

		// Rows stay locked until commit, so the check below holds for the decrement.
		golds, err := tx.Golds().FindForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		for _, item := range items {
			gold, ok := golds[item.GoldID]
			if !ok {
				return repository.ErrGoldNotFound
			}
			if item.Quantity > gold.Stock {
				return domain.NewInsufficientStockError(item.GoldID, item.Quantity, gold.Stock)
			}
		}

		now := s.now()
		order = &domain.Order{
			ID:         uuid.New(),
			UserID:     userID,
			TotalPrice: decimal.Zero,
			Status:     domain.OrderStatusCompleted,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}

		total := decimal.Zero
		order.Items = make([]domain.OrderItem, 0, len(items))
		for _, item := range items {
			gold := golds[item.GoldID]

			ok, err := tx.Golds().DecrementStock(ctx, gold.ID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return domain.NewInsufficientStockError(gold.ID, item.Quantity, gold.Stock)
			}

			line := domain.OrderItem{
				ID:         uuid.New(),
				OrderID:    order.ID,
				GoldID:     gold.ID,
				Quantity:   item.Quantity,
				UnitPrice:  gold.PricePerGram,
				TotalPrice: gold.LineTotal(item.Quantity),
				CreatedAt:  now,
			}
			if err := tx.Orders().CreateItem(ctx, &line); err != nil {
				return err
			}

			total = total.Add(line.TotalPrice)
			order.Items = append(order.Items, line)
		}

		if err := tx.Orders().UpdateTotal(ctx, order.ID, total); err != nil {
			return err
		}
		order.TotalPrice = total

		event, err := domain.NewOrderCompletedEvent(order)
		if err != nil {
			return fmt.Errorf("build order event: %w", err)
		}
		if err := tx.Outbox().Create(ctx, event); err != nil {
			return err
		}

		if _, err := tx.Carts().DeleteItems(ctx, cart.ID); err != nil {
			return err
		}
		return tx.Carts().Touch(ctx, cart.ID)
	})
	if err != nil {
		err = storeErr("checkout", err)
		s.logger.Info("Checkout failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, err
	}

	invalidateCart(ctx, s.cache, s.logger, userID)

	s.logger.Info("Checkout completed",
		zap.String("user_id", userID.String()),
		zap.String("order_id", order.ID.String()),
		zap.String("total_price", order.TotalPrice.String()),
		zap.Int("lines", len(order.Items)),
	)
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	orders, err := s.store.Orders().ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr("list orders", err)
	}
	return orders, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.store.Orders().FindByID(ctx, orderID)
	if err != nil {
		return nil, storeErr("get order", err)
	}
	return order, nil
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.NewValidationError("status", "unknown order status")
	}

	var order *domain.Order
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		order, err = tx.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		if !order.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s to %s", domain.ErrInvalidStatusTransition, order.Status, status)
		}

		if err := tx.Orders().UpdateStatus(ctx, orderID, status); err != nil {
			return err
		}
		order.Status = status
		return nil
	})
	if err != nil {
		return nil, storeErr("update order status", err)
	}

	s.logger.Info("Order status changed", zap.String("order_id", orderID.String()), zap.String("status", string(status)))
	return order, nil
}
