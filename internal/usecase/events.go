package usecase

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/iho/loanledger/internal/domain"
)

func eventPayload(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return map[string]any{}
	}
	return payload
}

func emitEvent(
	ctx context.Context,
	repo OutboxRepository,
	tx Transaction,
	idGen IDGenerator,
	aggregateType string,
	aggregateID int64,
	eventType string,
	payload any,
	at time.Time,
) error {
	if repo == nil {
		return nil
	}
	event := domain.NewOutboxEvent(
		idGen.Generate(),
		aggregateType,
		strconv.FormatInt(aggregateID, 10),
		eventType,
		eventPayload(payload),
		at,
	)
	return repo.Create(ctx, tx, event)
}

func actorFrom(ctx context.Context) string {
	if actor, ok := domain.ActorFromContext(ctx); ok {
		return actor
	}
	return systemActor
}

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}
