package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const accrualExists = `-- name: AccrualExists :one
SELECT EXISTS (
    SELECT 1 FROM ledger_entries
    WHERE loan_number = $1 AND concept = 'ACCRUAL' AND effective_date = $2
)
`

type AccrualExistsParams struct {
	LoanNumber    int64       `json:"loan_number"`
	EffectiveDate pgtype.Date `json:"effective_date"`
}

func (q *Queries) AccrualExists(ctx context.Context, arg AccrualExistsParams) (bool, error) {
	row := q.db.QueryRow(ctx, accrualExists, arg.LoanNumber, arg.EffectiveDate)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const conceptTotals = `-- name: ConceptTotals :many
SELECT concept,
       COALESCE(SUM(amount), 0)::numeric AS amount,
       COALESCE(SUM(settled_amount), 0)::numeric AS settled
FROM ledger_entries
WHERE loan_number = $1 AND due_date <= $2 AND state <> 'VOID'
GROUP BY concept
ORDER BY concept
`

type ConceptTotalsParams struct {
	LoanNumber int64       `json:"loan_number"`
	DueDate    pgtype.Date `json:"due_date"`
}

type ConceptTotalsRow struct {
	Concept string         `json:"concept"`
	Amount  pgtype.Numeric `json:"amount"`
	Settled pgtype.Numeric `json:"settled"`
}

func (q *Queries) ConceptTotals(ctx context.Context, arg ConceptTotalsParams) ([]ConceptTotalsRow, error) {
	rows, err := q.db.Query(ctx, conceptTotals, arg.LoanNumber, arg.DueDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ConceptTotalsRow{}
	for rows.Next() {
		var i ConceptTotalsRow
		if err := rows.Scan(&i.Concept, &i.Amount, &i.Settled); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createLedgerEntry = `-- name: CreateLedgerEntry :exec
INSERT INTO ledger_entries (
    id, loan_number, operation_id, operation_seq, effective_date, process_date, due_date,
    installment_number, concept, amount, settled_amount, state, settled_at, reference,
    created_by, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
`

type CreateLedgerEntryParams struct {
	ID                int64              `json:"id"`
	LoanNumber        int64              `json:"loan_number"`
	OperationID       int64              `json:"operation_id"`
	OperationSeq      int64              `json:"operation_seq"`
	EffectiveDate     pgtype.Date        `json:"effective_date"`
	ProcessDate       pgtype.Date        `json:"process_date"`
	DueDate           pgtype.Date        `json:"due_date"`
	InstallmentNumber pgtype.Int4        `json:"installment_number"`
	Concept           string             `json:"concept"`
	Amount            pgtype.Numeric     `json:"amount"`
	SettledAmount     pgtype.Numeric     `json:"settled_amount"`
	State             string             `json:"state"`
	SettledAt         pgtype.Timestamptz `json:"settled_at"`
	Reference         string             `json:"reference"`
	CreatedBy         string             `json:"created_by"`
	CreatedAt         pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) CreateLedgerEntry(ctx context.Context, arg CreateLedgerEntryParams) error {
	_, err := q.db.Exec(ctx, createLedgerEntry,
		arg.ID,
		arg.LoanNumber,
		arg.OperationID,
		arg.OperationSeq,
		arg.EffectiveDate,
		arg.ProcessDate,
		arg.DueDate,
		arg.InstallmentNumber,
		arg.Concept,
		arg.Amount,
		arg.SettledAmount,
		arg.State,
		arg.SettledAt,
		arg.Reference,
		arg.CreatedBy,
		arg.CreatedAt,
	)
	return err
}

const interestByLoan = `-- name: InterestByLoan :many
SELECT loan_number, COALESCE(SUM(amount), 0)::numeric AS interest
FROM ledger_entries
WHERE concept = 'ACCRUAL' AND effective_date BETWEEN $1 AND $2
GROUP BY loan_number
ORDER BY loan_number
`

type InterestByLoanParams struct {
	EffectiveDate   pgtype.Date `json:"effective_date"`
	EffectiveDate_2 pgtype.Date `json:"effective_date_2"`
}

type InterestByLoanRow struct {
	LoanNumber int64          `json:"loan_number"`
	Interest   pgtype.Numeric `json:"interest"`
}

func (q *Queries) InterestByLoan(ctx context.Context, arg InterestByLoanParams) ([]InterestByLoanRow, error) {
	rows, err := q.db.Query(ctx, interestByLoan, arg.EffectiveDate, arg.EffectiveDate_2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []InterestByLoanRow{}
	for rows.Next() {
		var i InterestByLoanRow
		if err := rows.Scan(&i.LoanNumber, &i.Interest); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listEntriesByLoan = `-- name: ListEntriesByLoan :many
SELECT id, loan_number, operation_id, operation_seq, effective_date, process_date, due_date, installment_number, concept, amount, settled_amount, state, settled_at, reference, created_by, created_at FROM ledger_entries
WHERE loan_number = $1
ORDER BY id
LIMIT $2 OFFSET $3
`

type ListEntriesByLoanParams struct {
	LoanNumber int64 `json:"loan_number"`
	Limit      int32 `json:"limit"`
	Offset     int32 `json:"offset"`
}

func (q *Queries) ListEntriesByLoan(ctx context.Context, arg ListEntriesByLoanParams) ([]LedgerEntry, error) {
	rows, err := q.db.Query(ctx, listEntriesByLoan, arg.LoanNumber, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LedgerEntry{}
	for rows.Next() {
		var i LedgerEntry
		if err := rows.Scan(
			&i.ID,
			&i.LoanNumber,
			&i.OperationID,
			&i.OperationSeq,
			&i.EffectiveDate,
			&i.ProcessDate,
			&i.DueDate,
			&i.InstallmentNumber,
			&i.Concept,
			&i.Amount,
			&i.SettledAmount,
			&i.State,
			&i.SettledAt,
			&i.Reference,
			&i.CreatedBy,
			&i.CreatedAt,
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

const listPendingEntries = `-- name: ListPendingEntries :many
SELECT id, loan_number, operation_id, operation_seq, effective_date, process_date, due_date, installment_number, concept, amount, settled_amount, state, settled_at, reference, created_by, created_at FROM ledger_entries
WHERE loan_number = $1
  AND due_date <= $2
  AND state IN ('PENDING', 'PARTIALLY_SETTLED')
  AND concept IN ('PLANNED_CAPITAL', 'PLANNED_INTEREST', 'PLANNED_INSURANCE', 'PLANNED_FEE')
ORDER BY due_date, installment_number, id
`

type ListPendingEntriesParams struct {
	LoanNumber int64       `json:"loan_number"`
	DueDate    pgtype.Date `json:"due_date"`
}

func (q *Queries) ListPendingEntries(ctx context.Context, arg ListPendingEntriesParams) ([]LedgerEntry, error) {
	rows, err := q.db.Query(ctx, listPendingEntries, arg.LoanNumber, arg.DueDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LedgerEntry{}
	for rows.Next() {
		var i LedgerEntry
		if err := rows.Scan(
			&i.ID,
			&i.LoanNumber,
			&i.OperationID,
			&i.OperationSeq,
			&i.EffectiveDate,
			&i.ProcessDate,
			&i.DueDate,
			&i.InstallmentNumber,
			&i.Concept,
			&i.Amount,
			&i.SettledAmount,
			&i.State,
			&i.SettledAt,
			&i.Reference,
			&i.CreatedBy,
			&i.CreatedAt,
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

const listPendingEntriesForUpdate = `-- name: ListPendingEntriesForUpdate :many
SELECT id, loan_number, operation_id, operation_seq, effective_date, process_date, due_date, installment_number, concept, amount, settled_amount, state, settled_at, reference, created_by, created_at FROM ledger_entries
WHERE loan_number = $1
  AND due_date <= $2
  AND state IN ('PENDING', 'PARTIALLY_SETTLED')
  AND concept IN ('PLANNED_CAPITAL', 'PLANNED_INTEREST', 'PLANNED_INSURANCE', 'PLANNED_FEE')
ORDER BY due_date, installment_number, id
FOR UPDATE
`

type ListPendingEntriesForUpdateParams struct {
	LoanNumber int64       `json:"loan_number"`
	DueDate    pgtype.Date `json:"due_date"`
}

func (q *Queries) ListPendingEntriesForUpdate(ctx context.Context, arg ListPendingEntriesForUpdateParams) ([]LedgerEntry, error) {
	rows, err := q.db.Query(ctx, listPendingEntriesForUpdate, arg.LoanNumber, arg.DueDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LedgerEntry{}
	for rows.Next() {
		var i LedgerEntry
		if err := rows.Scan(
			&i.ID,
			&i.LoanNumber,
			&i.OperationID,
			&i.OperationSeq,
			&i.EffectiveDate,
			&i.ProcessDate,
			&i.DueDate,
			&i.InstallmentNumber,
			&i.Concept,
			&i.Amount,
			&i.SettledAmount,
			&i.State,
			&i.SettledAt,
			&i.Reference,
			&i.CreatedBy,
			&i.CreatedAt,
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

const maxOperationSeq = `-- name: MaxOperationSeq :one
SELECT COALESCE(MAX(operation_seq), 0)::bigint
FROM ledger_entries
WHERE loan_number = $1 AND process_date = $2
`

type MaxOperationSeqParams struct {
	LoanNumber  int64       `json:"loan_number"`
	ProcessDate pgtype.Date `json:"process_date"`
}

func (q *Queries) MaxOperationSeq(ctx context.Context, arg MaxOperationSeqParams) (int64, error) {
	row := q.db.QueryRow(ctx, maxOperationSeq, arg.LoanNumber, arg.ProcessDate)
	var column_1 int64
	err := row.Scan(&column_1)
	return column_1, err
}

const sumAccruedInterest = `-- name: SumAccruedInterest :one
SELECT COALESCE(SUM(amount), 0)::numeric
FROM ledger_entries
WHERE loan_number = $1 AND concept = 'ACCRUAL' AND effective_date <= $2
`

type SumAccruedInterestParams struct {
	LoanNumber    int64       `json:"loan_number"`
	EffectiveDate pgtype.Date `json:"effective_date"`
}

func (q *Queries) SumAccruedInterest(ctx context.Context, arg SumAccruedInterestParams) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, sumAccruedInterest, arg.LoanNumber, arg.EffectiveDate)
	var column_1 pgtype.Numeric
	err := row.Scan(&column_1)
	return column_1, err
}

const sumSettledCapital = `-- name: SumSettledCapital :one
SELECT COALESCE(SUM(pa.amount), 0)::numeric
FROM payment_applications pa
JOIN payments p ON p.id = pa.payment_id
WHERE pa.loan_number = $1
  AND pa.concept = 'PLANNED_CAPITAL'
  AND p.reported_date <= $2
`

type SumSettledCapitalParams struct {
	LoanNumber   int64       `json:"loan_number"`
	ReportedDate pgtype.Date `json:"reported_date"`
}

func (q *Queries) SumSettledCapital(ctx context.Context, arg SumSettledCapitalParams) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, sumSettledCapital, arg.LoanNumber, arg.ReportedDate)
	var column_1 pgtype.Numeric
	err := row.Scan(&column_1)
	return column_1, err
}

const updateEntrySettlement = `-- name: UpdateEntrySettlement :execrows
UPDATE ledger_entries
SET settled_amount = $2,
    state = $3,
    settled_at = $4,
    effective_date = $5
WHERE id = $1
`

type UpdateEntrySettlementParams struct {
	ID            int64              `json:"id"`
	SettledAmount pgtype.Numeric     `json:"settled_amount"`
	State         string             `json:"state"`
	SettledAt     pgtype.Timestamptz `json:"settled_at"`
	EffectiveDate pgtype.Date        `json:"effective_date"`
}

func (q *Queries) UpdateEntrySettlement(ctx context.Context, arg UpdateEntrySettlementParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateEntrySettlement,
		arg.ID,
		arg.SettledAmount,
		arg.State,
		arg.SettledAt,
		arg.EffectiveDate,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
