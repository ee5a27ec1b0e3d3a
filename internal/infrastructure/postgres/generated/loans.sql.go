package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createLoan = `-- name: CreateLoan :exec
INSERT INTO loans (
    number, disbursement_date, maturity_date, last_accrual_date, principal, first_installment,
    annual_rate, insurance_per_period, fee_per_period, term_months, billing_day, state,
    accrual_suspended, written_off, created_by, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
`

type CreateLoanParams struct {
	Number             int64              `json:"number"`
	DisbursementDate   pgtype.Date        `json:"disbursement_date"`
	MaturityDate       pgtype.Date        `json:"maturity_date"`
	LastAccrualDate    pgtype.Date        `json:"last_accrual_date"`
	Principal          pgtype.Numeric     `json:"principal"`
	FirstInstallment   pgtype.Numeric     `json:"first_installment"`
	AnnualRate         pgtype.Numeric     `json:"annual_rate"`
	InsurancePerPeriod pgtype.Numeric     `json:"insurance_per_period"`
	FeePerPeriod       pgtype.Numeric     `json:"fee_per_period"`
	TermMonths         int32              `json:"term_months"`
	BillingDay         int32              `json:"billing_day"`
	State              string             `json:"state"`
	AccrualSuspended   bool               `json:"accrual_suspended"`
	WrittenOff         bool               `json:"written_off"`
	CreatedBy          string             `json:"created_by"`
	CreatedAt          pgtype.Timestamptz `json:"created_at"`
	UpdatedAt          pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) CreateLoan(ctx context.Context, arg CreateLoanParams) error {
	_, err := q.db.Exec(ctx, createLoan,
		arg.Number,
		arg.DisbursementDate,
		arg.MaturityDate,
		arg.LastAccrualDate,
		arg.Principal,
		arg.FirstInstallment,
		arg.AnnualRate,
		arg.InsurancePerPeriod,
		arg.FeePerPeriod,
		arg.TermMonths,
		arg.BillingDay,
		arg.State,
		arg.AccrualSuspended,
		arg.WrittenOff,
		arg.CreatedBy,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getLoanByNumber = `-- name: GetLoanByNumber :one
SELECT number, disbursement_date, maturity_date, last_accrual_date, principal, first_installment, annual_rate, insurance_per_period, fee_per_period, term_months, billing_day, state, accrual_suspended, written_off, created_by, created_at, updated_at FROM loans WHERE number = $1
`

func (q *Queries) GetLoanByNumber(ctx context.Context, number int64) (Loan, error) {
	row := q.db.QueryRow(ctx, getLoanByNumber, number)
	var i Loan
	err := row.Scan(
		&i.Number,
		&i.DisbursementDate,
		&i.MaturityDate,
		&i.LastAccrualDate,
		&i.Principal,
		&i.FirstInstallment,
		&i.AnnualRate,
		&i.InsurancePerPeriod,
		&i.FeePerPeriod,
		&i.TermMonths,
		&i.BillingDay,
		&i.State,
		&i.AccrualSuspended,
		&i.WrittenOff,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getLoanByNumberForUpdate = `-- name: GetLoanByNumberForUpdate :one
SELECT number, disbursement_date, maturity_date, last_accrual_date, principal, first_installment, annual_rate, insurance_per_period, fee_per_period, term_months, billing_day, state, accrual_suspended, written_off, created_by, created_at, updated_at FROM loans WHERE number = $1 FOR UPDATE
`

func (q *Queries) GetLoanByNumberForUpdate(ctx context.Context, number int64) (Loan, error) {
	row := q.db.QueryRow(ctx, getLoanByNumberForUpdate, number)
	var i Loan
	err := row.Scan(
		&i.Number,
		&i.DisbursementDate,
		&i.MaturityDate,
		&i.LastAccrualDate,
		&i.Principal,
		&i.FirstInstallment,
		&i.AnnualRate,
		&i.InsurancePerPeriod,
		&i.FeePerPeriod,
		&i.TermMonths,
		&i.BillingDay,
		&i.State,
		&i.AccrualSuspended,
		&i.WrittenOff,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listDisbursedLoanNumbers = `-- name: ListDisbursedLoanNumbers :many
SELECT number FROM loans
WHERE state = 'DISBURSED' AND number > $1
ORDER BY number
LIMIT $2
`

type ListDisbursedLoanNumbersParams struct {
	Number int64 `json:"number"`
	Limit  int32 `json:"limit"`
}

func (q *Queries) ListDisbursedLoanNumbers(ctx context.Context, arg ListDisbursedLoanNumbersParams) ([]int64, error) {
	rows, err := q.db.Query(ctx, listDisbursedLoanNumbers, arg.Number, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []int64{}
	for rows.Next() {
		var number int64
		if err := rows.Scan(&number); err != nil {
			return nil, err
		}
		items = append(items, number)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listLoans = `-- name: ListLoans :many
SELECT number, disbursement_date, maturity_date, last_accrual_date, principal, first_installment, annual_rate, insurance_per_period, fee_per_period, term_months, billing_day, state, accrual_suspended, written_off, created_by, created_at, updated_at FROM loans ORDER BY number LIMIT $1 OFFSET $2
`

type ListLoansParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListLoans(ctx context.Context, arg ListLoansParams) ([]Loan, error) {
	rows, err := q.db.Query(ctx, listLoans, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Loan{}
	for rows.Next() {
		var i Loan
		if err := rows.Scan(
			&i.Number,
			&i.DisbursementDate,
			&i.MaturityDate,
			&i.LastAccrualDate,
			&i.Principal,
			&i.FirstInstallment,
			&i.AnnualRate,
			&i.InsurancePerPeriod,
			&i.FeePerPeriod,
			&i.TermMonths,
			&i.BillingDay,
			&i.State,
			&i.AccrualSuspended,
			&i.WrittenOff,
			&i.CreatedBy,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateLoan = `-- name: UpdateLoan :execrows
UPDATE loans
SET disbursement_date = $2,
    maturity_date = $3,
    last_accrual_date = $4,
    principal = $5,
    first_installment = $6,
    annual_rate = $7,
    insurance_per_period = $8,
    fee_per_period = $9,
    term_months = $10,
    billing_day = $11,
    state = $12,
    accrual_suspended = $13,
    written_off = $14,
    updated_at = $15
WHERE number = $1
`

type UpdateLoanParams struct {
	Number             int64              `json:"number"`
	DisbursementDate   pgtype.Date        `json:"disbursement_date"`
	MaturityDate       pgtype.Date        `json:"maturity_date"`
	LastAccrualDate    pgtype.Date        `json:"last_accrual_date"`
	Principal          pgtype.Numeric     `json:"principal"`
	FirstInstallment   pgtype.Numeric     `json:"first_installment"`
	AnnualRate         pgtype.Numeric     `json:"annual_rate"`
	InsurancePerPeriod pgtype.Numeric     `json:"insurance_per_period"`
	FeePerPeriod       pgtype.Numeric     `json:"fee_per_period"`
	TermMonths         int32              `json:"term_months"`
	BillingDay         int32              `json:"billing_day"`
	State              string             `json:"state"`
	AccrualSuspended   bool               `json:"accrual_suspended"`
	WrittenOff         bool               `json:"written_off"`
	UpdatedAt          pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) UpdateLoan(ctx context.Context, arg UpdateLoanParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateLoan,
		arg.Number,
		arg.DisbursementDate,
		arg.MaturityDate,
		arg.LastAccrualDate,
		arg.Principal,
		arg.FirstInstallment,
		arg.AnnualRate,
		arg.InsurancePerPeriod,
		arg.FeePerPeriod,
		arg.TermMonths,
		arg.BillingDay,
		arg.State,
		arg.AccrualSuspended,
		arg.WrittenOff,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
