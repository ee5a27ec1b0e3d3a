package postgres

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// NullOutboxRepository stands in for the outbox when OUTBOX_ENABLED=false.
// Loan, accrual, payment and reconciliation events are logged at debug level
// and dropped; the relay finds nothing to publish.
type NullOutboxRepository struct {
	logger zerolog.Logger
}

// NewNullOutboxRepository creates a new NullOutboxRepository.
func NewNullOutboxRepository(logger zerolog.Logger) *NullOutboxRepository {
	return &NullOutboxRepository{logger: logger.With().Str("component", "outbox").Logger()}
}

func (r *NullOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	r.logger.Debug().
		Str("event_type", event.EventType).
		Str("aggregate_type", event.AggregateType).
		Str("aggregate_id", event.AggregateID).
		Msg("outbox disabled, event dropped")
	return nil
}

func (r *NullOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	return nil, nil
}

func (r *NullOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	return nil
}
