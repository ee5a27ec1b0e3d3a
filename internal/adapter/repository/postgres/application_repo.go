package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/postgres/generated"
	"github.com/iho/loanledger/internal/usecase"
)

// PaymentApplicationRepository implements usecase.PaymentApplicationRepository.
type PaymentApplicationRepository struct {
	pool    *pgxpool.Pool
	queries *generated.Queries
}

// NewPaymentApplicationRepository creates a new PaymentApplicationRepository.
func NewPaymentApplicationRepository(pool *pgxpool.Pool) *PaymentApplicationRepository {
	return &PaymentApplicationRepository{
		pool:    pool,
		queries: generated.New(pool),
	}
}

// CreateBatch inserts the application records of one payment.
func (r *PaymentApplicationRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, records []*domain.PaymentApplication) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	for _, rec := range records {
		err := queries.CreatePaymentApplication(ctx, generated.CreatePaymentApplicationParams{
			ID:          rec.ID,
			PaymentID:   rec.PaymentID,
			EntryID:     rec.EntryID,
			LoanNumber:  rec.LoanNumber,
			OperationID: rec.OperationID,
			Concept:     string(rec.Concept),
			Amount:      decimalToNumeric(rec.Amount),
			AppliedAt:   timeToPgTimestamptz(rec.AppliedAt),
		})
		if err != nil {
			return fmt.Errorf("application of payment %d to entry %d: %w", rec.PaymentID, rec.EntryID, err)
		}
	}

	return nil
}

// ListByPayment lists the records of a payment in application order.
func (r *PaymentApplicationRepository) ListByPayment(ctx context.Context, paymentID int64) ([]*domain.PaymentApplication, error) {
	rows, err := r.queries.ListPaymentApplications(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	records := make([]*domain.PaymentApplication, 0, len(rows))
	for _, row := range rows {
		records = append(records, &domain.PaymentApplication{
			ID:          row.ID,
			PaymentID:   row.PaymentID,
			EntryID:     row.EntryID,
			LoanNumber:  row.LoanNumber,
			OperationID: row.OperationID,
			Concept:     domain.Concept(row.Concept),
			Amount:      numericToDecimal(row.Amount),
			AppliedAt:   row.AppliedAt.Time,
		})
	}

	return records, nil
}
