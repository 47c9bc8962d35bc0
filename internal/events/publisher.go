package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goldshop/internal/domain"
	"goldshop/internal/repository"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the part of *kafka.Writer the publisher needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter returns a writer for topic that hashes keys to partitions,
// keeping the events of one order in order.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// OutboxPublisher relays outbox rows to kafka
type OutboxPublisher struct {
	store     repository.Store
	writer    MessageWriter
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
	now       func() time.Time
}

func NewOutboxPublisher(store repository.Store, writer MessageWriter, interval time.Duration, batchSize int, logger *zap.Logger) *OutboxPublisher {
	return &OutboxPublisher{
		store:     store,
		writer:    writer,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger.Named("outbox"),
		now:       time.Now,
	}
}

// Run publishes pending events every interval until ctx is cancelled
func (p *OutboxPublisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("Outbox publisher started", zap.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox publisher stopped")
			return nil
		case <-ticker.C:
			n, err := p.PublishPending(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Warn("Outbox publish failed, retrying next tick", zap.Error(err), zap.Int("published", n))
				continue
			}
			if n > 0 {
				p.logger.Debug("Outbox events published", zap.Int("count", n))
			}
		}
	}
}

// PublishPending sends one batch of unpublished events in creation order and
// marks the delivered ones. Delivery stops at the first failure so a later
// event never overtakes an earlier one.
func (p *OutboxPublisher) PublishPending(ctx context.Context) (int, error) {
	var (
		published  int
		deliverErr error
	)

	err := p.store.WithTx(ctx, func(tx repository.Store) error {
		pending, err := tx.Outbox().ListUnpublished(ctx, p.batchSize)
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(pending))
		for _, event := range pending {
			if err := p.writer.WriteMessages(ctx, message(event)); err != nil {
				deliverErr = fmt.Errorf("publish event %s: %w", event.ID, err)
				break
			}
			ids = append(ids, event.ID)
		}

		if len(ids) > 0 {
			if err := tx.Outbox().MarkPublished(ctx, ids, p.now()); err != nil {
				return err
			}
		}
		published = len(ids)

		// Commit what was delivered even when a later event failed.
		return nil
	})
	if err != nil {
		return 0, err
	}

	return published, deliverErr
}

func message(event *domain.OutboxEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(event.AggregateID.String()),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.ID.String())},
		},
		Time: event.CreatedAt,
	}
}

func (p *OutboxPublisher) Close() error {
	return p.writer.Close()
}
