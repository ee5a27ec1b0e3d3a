package eventpublisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/metrics"
	"github.com/iho/loanledger/internal/usecase"
)

func TestProcessEventsPublishesAndMarks(t *testing.T) {
	repo := &stubOutboxRepo{
		events: []*domain.OutboxEvent{{ID: "evt-1", EventType: domain.EventTypePaymentApplied}},
	}
	pub := &stubPublisher{}
	ep := newTestPublisher(repo, pub)
	marked := time.Date(2024, 3, 15, 1, 30, 0, 0, time.UTC)
	ep.now = func() time.Time { return marked }

	fetched, published, err := ep.processEvents(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, fetched)
	assert.Equal(t, 1, published)
	require.Len(t, pub.published, 1)
	assert.Equal(t, []string{"evt-1"}, repo.marked)
	assert.Equal(t, marked, repo.markedAt)
	assert.Empty(t, repo.events)
}

func TestProcessEventsContinuesOnPublishError(t *testing.T) {
	repo := &stubOutboxRepo{
		events: []*domain.OutboxEvent{
			{ID: "evt-1", EventType: domain.EventTypeLoanDisbursed},
			{ID: "evt-2", EventType: domain.EventTypeAccrualClosed},
		},
	}
	pub := &stubPublisher{
		errorsByID: map[string]error{"evt-1": errors.New("fail")},
	}
	ep := newTestPublisher(repo, pub)

	fetched, published, err := ep.processEvents(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, fetched)
	assert.Equal(t, 1, published)
	require.Len(t, pub.published, 1)
	assert.Equal(t, "evt-2", pub.published[0].ID)
	assert.Equal(t, []string{"evt-2"}, repo.marked)
}

func TestTickDrainsBacklog(t *testing.T) {
	repo := &stubOutboxRepo{}
	for i := 0; i < 25; i++ {
		repo.events = append(repo.events, &domain.OutboxEvent{
			ID:        fmt.Sprintf("evt-%02d", i),
			EventType: domain.EventTypeAccrualClosed,
		})
	}
	pub := &stubPublisher{}
	ep := newTestPublisher(repo, pub)

	ep.tick(context.Background())

	assert.Len(t, pub.published, 25)
	assert.Equal(t, 3, repo.polls, "two full batches and a partial one")
	assert.Empty(t, repo.events)
}

func TestTickStopsAfterPublishFailure(t *testing.T) {
	repo := &stubOutboxRepo{}
	for i := 0; i < 15; i++ {
		repo.events = append(repo.events, &domain.OutboxEvent{ID: fmt.Sprintf("evt-%02d", i)})
	}
	pub := &stubPublisher{errorsByID: map[string]error{"evt-03": errors.New("stream down")}}
	ep := newTestPublisher(repo, pub)

	ep.tick(context.Background())

	assert.Equal(t, 1, repo.polls)
	assert.Len(t, pub.published, 9)
	assert.Len(t, repo.events, 6)
}

func TestTickLogsFetchError(t *testing.T) {
	var logs bytes.Buffer
	repo := &stubOutboxRepo{fetchErr: errors.New("pool closed")}
	ep := NewEventPublisher(Config{
		OutboxRepo: repo,
		Publisher:  &stubPublisher{},
		Logger:     zerolog.New(&logs),
		BatchSize:  10,
	})

	ep.tick(context.Background())

	assert.Equal(t, 1, repo.polls)
	assert.True(t, strings.Contains(logs.String(), "pool closed"))
}

func TestStartStopsOnContextCancellation(t *testing.T) {
	repo := &stubOutboxRepo{}
	pub := &stubPublisher{}
	ep := newTestPublisher(repo, pub)
	ep.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ep.Start(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop after cancel")
	}
}

func TestProcessEventsCountsOutcomes(t *testing.T) {
	registry := prometheus.NewRegistry()
	prevRegisterer, prevGatherer := prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = prevRegisterer
		prometheus.DefaultGatherer = prevGatherer
	})
	m := metrics.New()

	repo := &stubOutboxRepo{
		events: []*domain.OutboxEvent{
			{ID: "evt-1", EventType: domain.EventTypePaymentApplied},
			{ID: "evt-2", EventType: domain.EventTypePaymentApplied},
			{ID: "evt-3", EventType: domain.EventTypeMovementReconciled},
		},
	}
	pub := &stubPublisher{errorsByID: map[string]error{"evt-3": errors.New("stream down")}}
	ep := newTestPublisher(repo, pub)
	ep.metrics = m

	_, _, err := ep.processEvents(context.Background())
	require.NoError(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.EventsPublished.WithLabelValues(domain.EventTypePaymentApplied)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PublishErrors))
}

func TestLogPublisherWritesPayload(t *testing.T) {
	var logs bytes.Buffer
	pub := NewLogPublisher(zerolog.New(&logs))

	err := pub.Publish(context.Background(), &domain.OutboxEvent{
		ID:            "evt-9",
		EventType:     domain.EventTypeLoanDisbursed,
		AggregateType: "loan",
		AggregateID:   "90001",
		Payload:       map[string]any{"principal": "2000000"},
	})
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, `"aggregate_id":"90001"`)
	assert.Contains(t, out, `"payload":{"principal":"2000000"}`)
}

func newTestPublisher(repo *stubOutboxRepo, pub *stubPublisher) *EventPublisher {
	return NewEventPublisher(Config{
		OutboxRepo: repo,
		Publisher:  pub,
		Logger:     zerolog.Nop(),
		BatchSize:  10,
		Interval:   5 * time.Millisecond,
	})
}

// stubOutboxRepo drops events once they are marked, like the real outbox.
type stubOutboxRepo struct {
	events   []*domain.OutboxEvent
	marked   []string
	markedAt time.Time
	polls    int
	fetchErr error
}

func (s *stubOutboxRepo) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	return nil
}

func (s *stubOutboxRepo) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	s.polls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if len(s.events) <= limit {
		return append([]*domain.OutboxEvent(nil), s.events...), nil
	}
	return append([]*domain.OutboxEvent(nil), s.events[:limit]...), nil
}

func (s *stubOutboxRepo) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	s.marked = append(s.marked, id)
	s.markedAt = publishedAt
	for i, event := range s.events {
		if event.ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			break
		}
	}
	return nil
}

type stubPublisher struct {
	published  []*domain.OutboxEvent
	errorsByID map[string]error
}

func (s *stubPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	if err := s.errorsByID[event.ID]; err != nil {
		return err
	}
	s.published = append(s.published, event)
	return nil
}
