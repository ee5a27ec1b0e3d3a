package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createPayment = `-- name: CreatePayment :exec
INSERT INTO payments (
    id, loan_number, amount, reported_date, source_file, batch_id, reconciliation_state,
    reconciliation_id, movement_id, matched_at, applied_at, applied_amount, residual_amount, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`

type CreatePaymentParams struct {
	ID                  int64              `json:"id"`
	LoanNumber          int64              `json:"loan_number"`
	Amount              pgtype.Numeric     `json:"amount"`
	ReportedDate        pgtype.Date        `json:"reported_date"`
	SourceFile          string             `json:"source_file"`
	BatchID             string             `json:"batch_id"`
	ReconciliationState string             `json:"reconciliation_state"`
	ReconciliationID    pgtype.Int8        `json:"reconciliation_id"`
	MovementID          pgtype.Int8        `json:"movement_id"`
	MatchedAt           pgtype.Timestamptz `json:"matched_at"`
	AppliedAt           pgtype.Timestamptz `json:"applied_at"`
	AppliedAmount       pgtype.Numeric     `json:"applied_amount"`
	ResidualAmount      pgtype.Numeric     `json:"residual_amount"`
	CreatedAt           pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) error {
	_, err := q.db.Exec(ctx, createPayment,
		arg.ID,
		arg.LoanNumber,
		arg.Amount,
		arg.ReportedDate,
		arg.SourceFile,
		arg.BatchID,
		arg.ReconciliationState,
		arg.ReconciliationID,
		arg.MovementID,
		arg.MatchedAt,
		arg.AppliedAt,
		arg.AppliedAmount,
		arg.ResidualAmount,
		arg.CreatedAt,
	)
	return err
}

const createPaymentApplication = `-- name: CreatePaymentApplication :exec
INSERT INTO payment_applications (id, payment_id, entry_id, loan_number, operation_id, concept, amount, applied_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

type CreatePaymentApplicationParams struct {
	ID          string             `json:"id"`
	PaymentID   int64              `json:"payment_id"`
	EntryID     int64              `json:"entry_id"`
	LoanNumber  int64              `json:"loan_number"`
	OperationID int64              `json:"operation_id"`
	Concept     string             `json:"concept"`
	Amount      pgtype.Numeric     `json:"amount"`
	AppliedAt   pgtype.Timestamptz `json:"applied_at"`
}

func (q *Queries) CreatePaymentApplication(ctx context.Context, arg CreatePaymentApplicationParams) error {
	_, err := q.db.Exec(ctx, createPaymentApplication,
		arg.ID,
		arg.PaymentID,
		arg.EntryID,
		arg.LoanNumber,
		arg.OperationID,
		arg.Concept,
		arg.Amount,
		arg.AppliedAt,
	)
	return err
}

const getPaymentByID = `-- name: GetPaymentByID :one
SELECT id, loan_number, amount, reported_date, source_file, batch_id, reconciliation_state, reconciliation_id, movement_id, matched_at, applied_at, applied_amount, residual_amount, created_at FROM payments WHERE id = $1
`

func (q *Queries) GetPaymentByID(ctx context.Context, id int64) (Payment, error) {
	row := q.db.QueryRow(ctx, getPaymentByID, id)
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.LoanNumber,
		&i.Amount,
		&i.ReportedDate,
		&i.SourceFile,
		&i.BatchID,
		&i.ReconciliationState,
		&i.ReconciliationID,
		&i.MovementID,
		&i.MatchedAt,
		&i.AppliedAt,
		&i.AppliedAmount,
		&i.ResidualAmount,
		&i.CreatedAt,
	)
	return i, err
}

const getPaymentByIDForUpdate = `-- name: GetPaymentByIDForUpdate :one
SELECT id, loan_number, amount, reported_date, source_file, batch_id, reconciliation_state, reconciliation_id, movement_id, matched_at, applied_at, applied_amount, residual_amount, created_at FROM payments WHERE id = $1 FOR UPDATE
`

func (q *Queries) GetPaymentByIDForUpdate(ctx context.Context, id int64) (Payment, error) {
	row := q.db.QueryRow(ctx, getPaymentByIDForUpdate, id)
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.LoanNumber,
		&i.Amount,
		&i.ReportedDate,
		&i.SourceFile,
		&i.BatchID,
		&i.ReconciliationState,
		&i.ReconciliationID,
		&i.MovementID,
		&i.MatchedAt,
		&i.AppliedAt,
		&i.AppliedAmount,
		&i.ResidualAmount,
		&i.CreatedAt,
	)
	return i, err
}

const listPaymentApplications = `-- name: ListPaymentApplications :many
SELECT id, payment_id, entry_id, loan_number, operation_id, concept, amount, applied_at FROM payment_applications
WHERE payment_id = $1
ORDER BY applied_at, id
`

func (q *Queries) ListPaymentApplications(ctx context.Context, paymentID int64) ([]PaymentApplication, error) {
	rows, err := q.db.Query(ctx, listPaymentApplications, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PaymentApplication{}
	for rows.Next() {
		var i PaymentApplication
		if err := rows.Scan(
			&i.ID,
			&i.PaymentID,
			&i.EntryID,
			&i.LoanNumber,
			&i.OperationID,
			&i.Concept,
			&i.Amount,
			&i.AppliedAt,
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

const listUnmatchedPaymentsForUpdate = `-- name: ListUnmatchedPaymentsForUpdate :many
SELECT id, loan_number, amount, reported_date, source_file, batch_id, reconciliation_state, reconciliation_id, movement_id, matched_at, applied_at, applied_amount, residual_amount, created_at FROM payments
WHERE reconciliation_state = 'UNMATCHED'
  AND ($1::text = '' OR batch_id = $1::text)
ORDER BY reported_date, id
FOR UPDATE
`

func (q *Queries) ListUnmatchedPaymentsForUpdate(ctx context.Context, batchID string) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listUnmatchedPaymentsForUpdate, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Payment{}
	for rows.Next() {
		var i Payment
		if err := rows.Scan(
			&i.ID,
			&i.LoanNumber,
			&i.Amount,
			&i.ReportedDate,
			&i.SourceFile,
			&i.BatchID,
			&i.ReconciliationState,
			&i.ReconciliationID,
			&i.MovementID,
			&i.MatchedAt,
			&i.AppliedAt,
			&i.AppliedAmount,
			&i.ResidualAmount,
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

const markPaymentApplied = `-- name: MarkPaymentApplied :execrows
UPDATE payments
SET applied_at = $2,
    applied_amount = $3,
    residual_amount = $4
WHERE id = $1 AND applied_at IS NULL
`

type MarkPaymentAppliedParams struct {
	ID             int64              `json:"id"`
	AppliedAt      pgtype.Timestamptz `json:"applied_at"`
	AppliedAmount  pgtype.Numeric     `json:"applied_amount"`
	ResidualAmount pgtype.Numeric     `json:"residual_amount"`
}

func (q *Queries) MarkPaymentApplied(ctx context.Context, arg MarkPaymentAppliedParams) (int64, error) {
	result, err := q.db.Exec(ctx, markPaymentApplied,
		arg.ID,
		arg.AppliedAt,
		arg.AppliedAmount,
		arg.ResidualAmount,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const markPaymentsMatched = `-- name: MarkPaymentsMatched :execrows
UPDATE payments
SET reconciliation_state = 'MATCHED',
    reconciliation_id = $2,
    movement_id = $3,
    matched_at = $4
WHERE id = ANY($1::bigint[]) AND reconciliation_state = 'UNMATCHED'
`

type MarkPaymentsMatchedParams struct {
	Column1          []int64            `json:"column_1"`
	ReconciliationID pgtype.Int8        `json:"reconciliation_id"`
	MovementID       pgtype.Int8        `json:"movement_id"`
	MatchedAt        pgtype.Timestamptz `json:"matched_at"`
}

func (q *Queries) MarkPaymentsMatched(ctx context.Context, arg MarkPaymentsMatchedParams) (int64, error) {
	result, err := q.db.Exec(ctx, markPaymentsMatched,
		arg.Column1,
		arg.ReconciliationID,
		arg.MovementID,
		arg.MatchedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
