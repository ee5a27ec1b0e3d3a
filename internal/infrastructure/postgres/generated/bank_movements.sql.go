package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createBankMovement = `-- name: CreateBankMovement :exec
INSERT INTO bank_movements (
    id, amount, reported_date, batch_id, reference, reconciliation_state, reconciliation_id, matched_at, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

type CreateBankMovementParams struct {
	ID                  int64              `json:"id"`
	Amount              pgtype.Numeric     `json:"amount"`
	ReportedDate        pgtype.Date        `json:"reported_date"`
	BatchID             string             `json:"batch_id"`
	Reference           string             `json:"reference"`
	ReconciliationState string             `json:"reconciliation_state"`
	ReconciliationID    pgtype.Int8        `json:"reconciliation_id"`
	MatchedAt           pgtype.Timestamptz `json:"matched_at"`
	CreatedAt           pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) CreateBankMovement(ctx context.Context, arg CreateBankMovementParams) error {
	_, err := q.db.Exec(ctx, createBankMovement,
		arg.ID,
		arg.Amount,
		arg.ReportedDate,
		arg.BatchID,
		arg.Reference,
		arg.ReconciliationState,
		arg.ReconciliationID,
		arg.MatchedAt,
		arg.CreatedAt,
	)
	return err
}

const getBankMovementByID = `-- name: GetBankMovementByID :one
SELECT id, amount, reported_date, batch_id, reference, reconciliation_state, reconciliation_id, matched_at, created_at FROM bank_movements WHERE id = $1
`

func (q *Queries) GetBankMovementByID(ctx context.Context, id int64) (BankMovement, error) {
	row := q.db.QueryRow(ctx, getBankMovementByID, id)
	var i BankMovement
	err := row.Scan(
		&i.ID,
		&i.Amount,
		&i.ReportedDate,
		&i.BatchID,
		&i.Reference,
		&i.ReconciliationState,
		&i.ReconciliationID,
		&i.MatchedAt,
		&i.CreatedAt,
	)
	return i, err
}

const getBankMovementByIDForUpdate = `-- name: GetBankMovementByIDForUpdate :one
SELECT id, amount, reported_date, batch_id, reference, reconciliation_state, reconciliation_id, matched_at, created_at FROM bank_movements WHERE id = $1 FOR UPDATE
`

func (q *Queries) GetBankMovementByIDForUpdate(ctx context.Context, id int64) (BankMovement, error) {
	row := q.db.QueryRow(ctx, getBankMovementByIDForUpdate, id)
	var i BankMovement
	err := row.Scan(
		&i.ID,
		&i.Amount,
		&i.ReportedDate,
		&i.BatchID,
		&i.Reference,
		&i.ReconciliationState,
		&i.ReconciliationID,
		&i.MatchedAt,
		&i.CreatedAt,
	)
	return i, err
}

const markBankMovementMatched = `-- name: MarkBankMovementMatched :execrows
UPDATE bank_movements
SET reconciliation_state = 'MATCHED',
    reconciliation_id = $2,
    matched_at = $3
WHERE id = $1
`

type MarkBankMovementMatchedParams struct {
	ID               int64              `json:"id"`
	ReconciliationID pgtype.Int8        `json:"reconciliation_id"`
	MatchedAt        pgtype.Timestamptz `json:"matched_at"`
}

func (q *Queries) MarkBankMovementMatched(ctx context.Context, arg MarkBankMovementMatchedParams) (int64, error) {
	result, err := q.db.Exec(ctx, markBankMovementMatched, arg.ID, arg.ReconciliationID, arg.MatchedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
