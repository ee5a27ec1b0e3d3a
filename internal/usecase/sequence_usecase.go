package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/metrics"
)

// SequenceUseCase hands out gap-tolerant, never-repeating identifiers.
type SequenceUseCase struct {
	repo    SequenceRepository
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewSequenceUseCase creates a new SequenceUseCase.
func NewSequenceUseCase(repo SequenceRepository, m *metrics.Metrics, logger zerolog.Logger) *SequenceUseCase {
	return &SequenceUseCase{
		repo:    repo,
		metrics: m,
		logger:  logger.With().Str("component", "sequence").Logger(),
	}
}

// Next returns the next value of the counter for d.
func (uc *SequenceUseCase) Next(ctx context.Context, d domain.SequenceDomain) (int64, error) {
	return uc.Reserve(ctx, d, 1)
}

// Reserve advances the counter for d by count and returns the first value of
// the reserved block. The block is contiguous.
func (uc *SequenceUseCase) Reserve(ctx context.Context, d domain.SequenceDomain, count int) (int64, error) {
	if _, err := domain.ParseSequenceDomain(string(d)); err != nil {
		return 0, err
	}
	if count < 1 {
		return 0, fmt.Errorf("%w: reserve count must be positive", domain.ErrValidation)
	}

	first, err := uc.repo.Advance(ctx, d, int64(count))
	if err != nil {
		if errors.Is(err, domain.ErrConcurrencyTimeout) {
			uc.logger.Warn().Str("domain", string(d)).Msg("sequence lock wait timed out")
			if uc.metrics != nil {
				uc.metrics.SequenceTimeouts.WithLabelValues(string(d)).Inc()
			}
		}
		return 0, err
	}

	if uc.metrics != nil {
		uc.metrics.SequenceAllocations.WithLabelValues(string(d)).Add(float64(count))
	}

	return first, nil
}

// Set overrides a counter. Values below the current one are rejected.
func (uc *SequenceUseCase) Set(ctx context.Context, d domain.SequenceDomain, value int64) error {
	if _, err := domain.ParseSequenceDomain(string(d)); err != nil {
		return err
	}

	if err := uc.repo.Set(ctx, d, value); err != nil {
		return err
	}

	uc.logger.Info().Str("domain", string(d)).Int64("value", value).Msg("sequence counter overridden")
	return nil
}

// Current returns every counter.
func (uc *SequenceUseCase) Current(ctx context.Context) (domain.SequenceCounters, error) {
	return uc.repo.Current(ctx)
}
