package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/loanledger/internal/domain"
)

// PostgreSQL error codes for retryable errors.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
)

// Retrier reruns a unit of work that lost a lock race: a deadlock, a
// serialization failure, or a sequence/loan lock wait that timed out. The
// accrual batch wraps each loan's closure in it. Business errors are returned
// on the first attempt.
type Retrier struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
	logger          zerolog.Logger
}

// RetrierOption tunes a Retrier.
type RetrierOption func(*Retrier)

// WithMaxRetries bounds the number of retries after the first attempt.
func WithMaxRetries(n int) RetrierOption {
	return func(r *Retrier) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

// WithBackoff sets the first and the largest wait between attempts.
func WithBackoff(initial, max time.Duration) RetrierOption {
	return func(r *Retrier) {
		if initial > 0 {
			r.initialInterval = initial
		}
		if max >= initial {
			r.maxInterval = max
		}
	}
}

// NewRetrier creates a retrier with three retries between 100ms and 2s.
func NewRetrier(logger zerolog.Logger, opts ...RetrierOption) *Retrier {
	r := &Retrier{
		maxRetries:      3,
		initialInterval: 100 * time.Millisecond,
		maxInterval:     2 * time.Second,
		maxElapsedTime:  30 * time.Second,
		logger:          logger.With().Str("component", "retrier").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retry runs operation until it succeeds, fails permanently, exhausts the
// retry budget or ctx ends.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = r.maxElapsedTime

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := operation()
		if err == nil {
			return nil
		}

		if ctx.Err() != nil || !isRetryableError(err) || attempt > r.maxRetries {
			return backoff.Permanent(err)
		}

		r.logger.Warn().Err(err).Int("attempt", attempt).Msg("lock contention, retrying")
		return err
	}, backoff.WithContext(b, ctx))
}

// isRetryableError reports whether err is lock contention rather than a
// business outcome.
func isRetryableError(err error) bool {
	if errors.Is(err, domain.ErrConcurrencyTimeout) {
		return true
	}
	switch pgErrorCode(err) {
	case pgErrDeadlock, pgErrSerializationFailure, pgErrLockNotAvailable:
		return true
	}
	return false
}
