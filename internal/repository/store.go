package repository

import (
	"context"
	"database/sql"

	"goldshop/internal/database"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx, so every
// repository can run either standalone or inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store groups the repositories and opens transactions spanning all of them
type Store interface {
	Users() UserRepository
	RefreshTokens() RefreshTokenRepository
	Golds() GoldRepository
	Carts() CartRepository
	Orders() OrderRepository
	Outbox() OutboxRepository

	// WithTx runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type sqlStore struct {
	db *sql.DB
	q  DBTX
}

// NewStore creates a Store backed by db
func NewStore(db *sql.DB) Store {
	return &sqlStore{db: db, q: db}
}

func (s *sqlStore) Users() UserRepository                 { return NewUserRepository(s.q) }
func (s *sqlStore) RefreshTokens() RefreshTokenRepository { return NewRefreshTokenRepository(s.q) }
func (s *sqlStore) Golds() GoldRepository                 { return NewGoldRepository(s.q) }
func (s *sqlStore) Carts() CartRepository                 { return NewCartRepository(s.q) }
func (s *sqlStore) Orders() OrderRepository               { return NewOrderRepository(s.q) }
func (s *sqlStore) Outbox() OutboxRepository              { return NewOutboxRepository(s.q) }

func (s *sqlStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	// Already inside a transaction: join it.
	if s.db == nil {
		return fn(s)
	}

	return database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		return fn(&sqlStore{q: tx})
	})
}
