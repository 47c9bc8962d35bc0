// Package memory is an in-process repository.Store. Transactions are
// serialized and run against a copy of the data that replaces the
// committed state only when the transaction succeeds.
package memory

import (
	"context"
	"sync"

	"goldshop/internal/domain"
	"goldshop/internal/repository"

	"github.com/google/uuid"
)

type state struct {
	users      map[uuid.UUID]domain.User
	tokens     map[string]domain.RefreshToken
	golds      map[uuid.UUID]domain.Gold
	carts      map[uuid.UUID]domain.Cart // keyed by cart id, Items unused
	cartItems  map[uuid.UUID]domain.CartItem
	orders     map[uuid.UUID]domain.Order // Items unused
	orderItems map[uuid.UUID][]domain.OrderItem
	outbox     []domain.OutboxEvent
}

func newState() *state {
	return &state{
		users:      map[uuid.UUID]domain.User{},
		tokens:     map[string]domain.RefreshToken{},
		golds:      map[uuid.UUID]domain.Gold{},
		carts:      map[uuid.UUID]domain.Cart{},
		cartItems:  map[uuid.UUID]domain.CartItem{},
		orders:     map[uuid.UUID]domain.Order{},
		orderItems: map[uuid.UUID][]domain.OrderItem{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	for k, v := range s.golds {
		c.golds[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.cartItems {
		c.cartItems[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderItems {
		c.orderItems[k] = append([]domain.OrderItem(nil), v...)
	}
	c.outbox = append([]domain.OutboxEvent(nil), s.outbox...)
	return c
}

type root struct {
	mu       sync.Mutex
	st       *state
	failures map[string]error
}

// Store implements repository.Store in memory
type Store struct {
	root *root
	tx   *state
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{root: &root{st: newState(), failures: map[string]error{}}}
}

// FailOn makes every later call of op (for example "Orders.CreateItem") return err.
// A nil err clears the failure.
func (s *Store) FailOn(op string, err error) {
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	if err == nil {
		delete(s.root.failures, op)
		return
	}
	s.root.failures[op] = err
}

func (s *Store) Users() repository.UserRepository                 { return userRepo{s} }
func (s *Store) RefreshTokens() repository.RefreshTokenRepository { return tokenRepo{s} }
func (s *Store) Golds() repository.GoldRepository                 { return goldRepo{s} }
func (s *Store) Carts() repository.CartRepository                 { return cartRepo{s} }
func (s *Store) Orders() repository.OrderRepository               { return orderRepo{s} }
func (s *Store) Outbox() repository.OutboxRepository              { return outboxRepo{s} }

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	s.root.mu.Lock()
	defer s.root.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.root.st.clone()
	if err := fn(&Store{root: s.root, tx: snapshot}); err != nil {
		return err
	}
	s.root.st = snapshot
	return nil
}

// do runs fn against the transaction snapshot, or under the lock when not in one.
func (s *Store) do(ctx context.Context, op string, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx != nil {
		if err := s.root.failures[op]; err != nil {
			return err
		}
		return fn(s.tx)
	}

	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	if err := s.root.failures[op]; err != nil {
		return err
	}
	return fn(s.root.st)
}
