package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/postgres/generated"
	"github.com/iho/loanledger/internal/usecase"
)

// LoanRepository implements usecase.LoanRepository.
type LoanRepository struct {
	pool    *pgxpool.Pool
	queries *generated.Queries
}

// NewLoanRepository creates a new LoanRepository.
func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{
		pool:    pool,
		queries: generated.New(pool),
	}
}

// Create inserts a new loan.
func (r *LoanRepository) Create(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	err := queries.CreateLoan(ctx, generated.CreateLoanParams{
		Number:             loan.Number,
		DisbursementDate:   dateToPg(loan.DisbursementDate),
		MaturityDate:       optionalDate(loan.MaturityDate),
		LastAccrualDate:    optionalDate(loan.LastAccrualDate),
		Principal:          decimalToNumeric(loan.Principal),
		FirstInstallment:   decimalToNumeric(loan.FirstInstallment),
		AnnualRate:         decimalToNumeric(loan.AnnualRate),
		InsurancePerPeriod: decimalToNumeric(loan.InsurancePerPeriod),
		FeePerPeriod:       decimalToNumeric(loan.FeePerPeriod),
		TermMonths:         int32(loan.TermMonths),
		BillingDay:         int32(loan.BillingDay),
		State:              string(loan.State),
		AccrualSuspended:   loan.AccrualSuspended,
		WrittenOff:         loan.WrittenOff,
		CreatedBy:          loan.CreatedBy,
		CreatedAt:          timeToPgTimestamptz(loan.CreatedAt),
		UpdatedAt:          timeToPgTimestamptz(loan.UpdatedAt),
	})
	return translateLoanError(err)
}

// GetByNumber retrieves a loan by number.
func (r *LoanRepository) GetByNumber(ctx context.Context, number int64) (*domain.Loan, error) {
	row, err := r.queries.GetLoanByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}

		return nil, err
	}

	return rowToLoan(row), nil
}

// GetByNumberForUpdate retrieves a loan by number with a FOR UPDATE lock.
func (r *LoanRepository) GetByNumberForUpdate(ctx context.Context, tx usecase.Transaction, number int64) (*domain.Loan, error) {
	queries := generated.New(tx.(*Tx).PgxTx())

	row, err := queries.GetLoanByNumberForUpdate(ctx, number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}

		return nil, err
	}

	return rowToLoan(row), nil
}

// Update writes back every mutable field of the loan.
func (r *LoanRepository) Update(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	affected, err := queries.UpdateLoan(ctx, generated.UpdateLoanParams{
		Number:             loan.Number,
		DisbursementDate:   dateToPg(loan.DisbursementDate),
		MaturityDate:       optionalDate(loan.MaturityDate),
		LastAccrualDate:    optionalDate(loan.LastAccrualDate),
		Principal:          decimalToNumeric(loan.Principal),
		FirstInstallment:   decimalToNumeric(loan.FirstInstallment),
		AnnualRate:         decimalToNumeric(loan.AnnualRate),
		InsurancePerPeriod: decimalToNumeric(loan.InsurancePerPeriod),
		FeePerPeriod:       decimalToNumeric(loan.FeePerPeriod),
		TermMonths:         int32(loan.TermMonths),
		BillingDay:         int32(loan.BillingDay),
		State:              string(loan.State),
		AccrualSuspended:   loan.AccrualSuspended,
		WrittenOff:         loan.WrittenOff,
		UpdatedAt:          timeToPgTimestamptz(loan.UpdatedAt),
	})
	if err != nil {
		return translateLoanError(err)
	}
	if affected == 0 {
		return domain.ErrLoanNotFound
	}

	return nil
}

// List lists loans ordered by number.
func (r *LoanRepository) List(ctx context.Context, limit, offset int) ([]*domain.Loan, error) {
	rows, err := r.queries.ListLoans(ctx, generated.ListLoansParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, err
	}

	loans := make([]*domain.Loan, 0, len(rows))
	for _, row := range rows {
		loans = append(loans, rowToLoan(row))
	}

	return loans, nil
}

// ListDisbursedNumbers pages through disbursed loan numbers greater than afterNumber.
func (r *LoanRepository) ListDisbursedNumbers(ctx context.Context, afterNumber int64, limit int) ([]int64, error) {
	return r.queries.ListDisbursedLoanNumbers(ctx, generated.ListDisbursedLoanNumbersParams{
		Number: afterNumber,
		Limit:  int32(limit),
	})
}

func rowToLoan(row generated.Loan) *domain.Loan {
	return &domain.Loan{
		Number:             row.Number,
		DisbursementDate:   pgToDate(row.DisbursementDate),
		MaturityDate:       datePtr(row.MaturityDate),
		LastAccrualDate:    datePtr(row.LastAccrualDate),
		Principal:          numericToDecimal(row.Principal),
		FirstInstallment:   numericToDecimal(row.FirstInstallment),
		AnnualRate:         numericToDecimal(row.AnnualRate),
		InsurancePerPeriod: numericToDecimal(row.InsurancePerPeriod),
		FeePerPeriod:       numericToDecimal(row.FeePerPeriod),
		TermMonths:         int(row.TermMonths),
		BillingDay:         int(row.BillingDay),
		State:              domain.LoanState(row.State),
		AccrualSuspended:   row.AccrualSuspended,
		WrittenOff:         row.WrittenOff,
		CreatedBy:          row.CreatedBy,
		CreatedAt:          row.CreatedAt.Time,
		UpdatedAt:          row.UpdatedAt.Time,
	}
}
