package memory

import (
	"context"
	"sort"
	"time"

	"goldshop/internal/domain"
	"goldshop/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type orderRepo struct{ s *Store }

func (r orderRepo) Create(ctx context.Context, order *domain.Order) error {
	return r.s.do(ctx, "Orders.Create", func(st *state) error {
		if _, ok := st.users[order.UserID]; !ok {
			return repository.ErrUserNotFound
		}
		stored := *order
		stored.Items = nil
		st.orders[order.ID] = stored
		return nil
	})
}

func (r orderRepo) CreateItem(ctx context.Context, item *domain.OrderItem) error {
	return r.s.do(ctx, "Orders.CreateItem", func(st *state) error {
		if _, ok := st.orders[item.OrderID]; !ok {
			return repository.ErrOrderNotFound
		}
		if _, ok := st.golds[item.GoldID]; !ok {
			return repository.ErrGoldNotFound
		}
		st.orderItems[item.OrderID] = append(st.orderItems[item.OrderID], *item)
		return nil
	})
}

func (r orderRepo) UpdateTotal(ctx context.Context, orderID uuid.UUID, total decimal.Decimal) error {
	return r.update(ctx, "Orders.UpdateTotal", orderID, func(o *domain.Order) { o.TotalPrice = total })
}

func (r orderRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error {
	return r.update(ctx, "Orders.UpdateStatus", orderID, func(o *domain.Order) { o.Status = status })
}

func (r orderRepo) update(ctx context.Context, op string, orderID uuid.UUID, mutate func(*domain.Order)) error {
	return r.s.do(ctx, op, func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok {
			return repository.ErrOrderNotFound
		}
		mutate(&o)
		o.UpdatedAt = time.Now()
		st.orders[orderID] = o
		return nil
	})
}

func (r orderRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	var found *domain.Order
	err := r.s.do(ctx, "Orders.FindByID", func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok {
			return repository.ErrOrderNotFound
		}
		o.Items = append([]domain.OrderItem{}, st.orderItems[orderID]...)
		found = &o
		return nil
	})
	return found, err
}

func (r orderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	orders := []*domain.Order{}
	err := r.s.do(ctx, "Orders.ListByUser", func(st *state) error {
		for _, o := range st.orders {
			if o.UserID == userID {
				o.Items = append([]domain.OrderItem{}, st.orderItems[o.ID]...)
				orders = append(orders, &o)
			}
		}
		return nil
	})
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, err
}

type outboxRepo struct{ s *Store }

func (r outboxRepo) Create(ctx context.Context, event *domain.OutboxEvent) error {
	return r.s.do(ctx, "Outbox.Create", func(st *state) error {
		st.outbox = append(st.outbox, *event)
		return nil
	})
}

func (r outboxRepo) ListUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	events := []*domain.OutboxEvent{}
	err := r.s.do(ctx, "Outbox.ListUnpublished", func(st *state) error {
		for _, e := range st.outbox {
			if len(events) == limit {
				break
			}
			if e.PublishedAt == nil {
				events = append(events, &e)
			}
		}
		return nil
	})
	return events, err
}

func (r outboxRepo) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	return r.s.do(ctx, "Outbox.MarkPublished", func(st *state) error {
		for _, id := range ids {
			for i := range st.outbox {
				if st.outbox[i].ID == id {
					published := at
					st.outbox[i].PublishedAt = &published
				}
			}
		}
		return nil
	})
}
