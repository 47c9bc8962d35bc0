package repository

import (
	"context"
	"fmt"
	"time"

	"goldshop/internal/domain"

	"github.com/google/uuid"
)

// OutboxRepository stores domain events until they are published
type OutboxRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
	// ListUnpublished returns the oldest pending events. Inside a transaction the
	// rows stay locked and other publishers skip them.
	ListUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

type outboxRepository struct {
	db DBTX
}

// NewOutboxRepository creates a new instance of OutboxRepository
func NewOutboxRepository(db DBTX) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.AggregateID,
		event.EventType,
		string(event.Payload),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}

	return nil
}

func (r *outboxRepository) ListUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	query := `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list outbox events: %w", err)
	}
	defer rows.Close()

	events := []*domain.OutboxEvent{}
	for rows.Next() {
		event := &domain.OutboxEvent{}
		var payload []byte
		if err := rows.Scan(&event.ID, &event.AggregateID, &event.EventType, &payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		event.Payload = payload
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox events: %w", err)
	}

	return events, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	for _, id := range ids {
		_, err := r.db.ExecContext(ctx, `UPDATE outbox_events SET published_at = $2 WHERE id = $1`, id, at)
		if err != nil {
			return fmt.Errorf("failed to mark outbox event %s published: %w", id, err)
		}
	}
	return nil
}
