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

// PaymentRepository implements usecase.PaymentRepository.
type PaymentRepository struct {
	pool    *pgxpool.Pool
	queries *generated.Queries
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{
		pool:    pool,
		queries: generated.New(pool),
	}
}

// Create inserts a new payment.
func (r *PaymentRepository) Create(ctx context.Context, tx usecase.Transaction, payment *domain.Payment) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	return queries.CreatePayment(ctx, generated.CreatePaymentParams{
		ID:                  payment.ID,
		LoanNumber:          payment.LoanNumber,
		Amount:              decimalToNumeric(payment.Amount),
		ReportedDate:        dateToPg(payment.ReportedDate),
		SourceFile:          payment.SourceFile,
		BatchID:             payment.BatchID,
		ReconciliationState: string(payment.ReconciliationState),
		ReconciliationID:    optionalInt8(payment.ReconciliationID),
		MovementID:          optionalInt8(payment.MovementID),
		MatchedAt:           optionalTimestamptz(payment.MatchedAt),
		AppliedAt:           optionalTimestamptz(payment.AppliedAt),
		AppliedAmount:       decimalToNumeric(payment.AppliedAmount),
		ResidualAmount:      decimalToNumeric(payment.ResidualAmount),
		CreatedAt:           timeToPgTimestamptz(payment.CreatedAt),
	})
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	row, err := r.queries.GetPaymentByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}

		return nil, err
	}

	return rowToPayment(row), nil
}

// GetByIDForUpdate retrieves a payment with a FOR UPDATE lock.
func (r *PaymentRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id int64) (*domain.Payment, error) {
	queries := generated.New(tx.(*Tx).PgxTx())

	row, err := queries.GetPaymentByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}

		return nil, err
	}

	return rowToPayment(row), nil
}

// MarkApplied records the allocation outcome. A payment is applied once.
func (r *PaymentRepository) MarkApplied(ctx context.Context, tx usecase.Transaction, payment *domain.Payment) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	affected, err := queries.MarkPaymentApplied(ctx, generated.MarkPaymentAppliedParams{
		ID:             payment.ID,
		AppliedAt:      optionalTimestamptz(payment.AppliedAt),
		AppliedAmount:  decimalToNumeric(payment.AppliedAmount),
		ResidualAmount: decimalToNumeric(payment.ResidualAmount),
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrPaymentAlreadyApplied
	}

	return nil
}

// ListUnmatchedForUpdate locks the reconciliation candidates of a batch.
func (r *PaymentRepository) ListUnmatchedForUpdate(ctx context.Context, tx usecase.Transaction, batchID string) ([]*domain.Payment, error) {
	queries := generated.New(tx.(*Tx).PgxTx())

	rows, err := queries.ListUnmatchedPaymentsForUpdate(ctx, batchID)
	if err != nil {
		return nil, err
	}

	payments := make([]*domain.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, rowToPayment(row))
	}

	return payments, nil
}

// MarkMatched flips the given payments to MATCHED.
func (r *PaymentRepository) MarkMatched(ctx context.Context, tx usecase.Transaction, ids []int64, reconciliationID, movementID int64, at time.Time) (int64, error) {
	queries := generated.New(tx.(*Tx).PgxTx())

	return queries.MarkPaymentsMatched(ctx, generated.MarkPaymentsMatchedParams{
		Column1:          ids,
		ReconciliationID: pgtype.Int8{Int64: reconciliationID, Valid: true},
		MovementID:       pgtype.Int8{Int64: movementID, Valid: true},
		MatchedAt:        timeToPgTimestamptz(at),
	})
}

func rowToPayment(row generated.Payment) *domain.Payment {
	return &domain.Payment{
		ID:                  row.ID,
		LoanNumber:          row.LoanNumber,
		Amount:              numericToDecimal(row.Amount),
		ReportedDate:        pgToDate(row.ReportedDate),
		SourceFile:          row.SourceFile,
		BatchID:             row.BatchID,
		ReconciliationState: domain.ReconciliationState(row.ReconciliationState),
		ReconciliationID:    int8Ptr(row.ReconciliationID),
		MovementID:          int8Ptr(row.MovementID),
		MatchedAt:           timestamptzPtr(row.MatchedAt),
		AppliedAt:           timestamptzPtr(row.AppliedAt),
		AppliedAmount:       numericToDecimal(row.AppliedAmount),
		ResidualAmount:      numericToDecimal(row.ResidualAmount),
		CreatedAt:           row.CreatedAt.Time,
	}
}
