package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/postgres/generated"
	"github.com/iho/loanledger/internal/usecase"
)

// MovementRepository implements usecase.MovementRepository.
type MovementRepository struct {
	pool    *pgxpool.Pool
	queries *generated.Queries
}

// NewMovementRepository creates a new MovementRepository.
func NewMovementRepository(pool *pgxpool.Pool) *MovementRepository {
	return &MovementRepository{
		pool:    pool,
		queries: generated.New(pool),
	}
}

// Create inserts a bank movement.
func (r *MovementRepository) Create(ctx context.Context, tx usecase.Transaction, movement *domain.BankMovement) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	return queries.CreateBankMovement(ctx, generated.CreateBankMovementParams{
		ID:                  movement.ID,
		Amount:              decimalToNumeric(movement.Amount),
		ReportedDate:        dateToPg(movement.ReportedDate),
		BatchID:             movement.BatchID,
		Reference:           movement.Reference,
		ReconciliationState: string(movement.ReconciliationState),
		ReconciliationID:    optionalInt8(movement.ReconciliationID),
		MatchedAt:           optionalTimestamptz(movement.MatchedAt),
		CreatedAt:           timeToPgTimestamptz(movement.CreatedAt),
	})
}

// GetByID retrieves a movement by ID.
func (r *MovementRepository) GetByID(ctx context.Context, id int64) (*domain.BankMovement, error) {
	row, err := r.queries.GetBankMovementByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMovementNotFound
		}

		return nil, err
	}

	return rowToMovement(row), nil
}

// GetByIDForUpdate retrieves a movement with a FOR UPDATE lock.
func (r *MovementRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id int64) (*domain.BankMovement, error) {
	queries := generated.New(tx.(*Tx).PgxTx())

	row, err := queries.GetBankMovementByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMovementNotFound
		}

		return nil, err
	}

	return rowToMovement(row), nil
}

// MarkMatched flips a movement to MATCHED.
func (r *MovementRepository) MarkMatched(ctx context.Context, tx usecase.Transaction, id, reconciliationID int64, at time.Time) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	affected, err := queries.MarkBankMovementMatched(ctx, generated.MarkBankMovementMatchedParams{
		ID:               id,
		ReconciliationID: pgtype.Int8{Int64: reconciliationID, Valid: true},
		MatchedAt:        timeToPgTimestamptz(at),
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrMovementNotFound
	}

	return nil
}

func rowToMovement(row generated.BankMovement) *domain.BankMovement {
	return &domain.BankMovement{
		ID:                  row.ID,
		Amount:              numericToDecimal(row.Amount),
		ReportedDate:        pgToDate(row.ReportedDate),
		BatchID:             row.BatchID,
		Reference:           row.Reference,
		ReconciliationState: domain.ReconciliationState(row.ReconciliationState),
		ReconciliationID:    int8Ptr(row.ReconciliationID),
		MatchedAt:           timestamptzPtr(row.MatchedAt),
		CreatedAt:           row.CreatedAt.Time,
	}
}
