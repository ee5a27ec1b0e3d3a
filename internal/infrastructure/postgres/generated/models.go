package generated

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type BankMovement struct {
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

type LedgerEntry struct {
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

type Loan struct {
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

type OutboxEvent struct {
	ID            string             `json:"id"`
	AggregateID   string             `json:"aggregate_id"`
	AggregateType string             `json:"aggregate_type"`
	EventType     string             `json:"event_type"`
	Payload       []byte             `json:"payload"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	Published     bool               `json:"published"`
	PublishedAt   pgtype.Timestamptz `json:"published_at"`
}

type Payment struct {
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

type PaymentApplication struct {
	ID          string             `json:"id"`
	PaymentID   int64              `json:"payment_id"`
	EntryID     int64              `json:"entry_id"`
	LoanNumber  int64              `json:"loan_number"`
	OperationID int64              `json:"operation_id"`
	Concept     string             `json:"concept"`
	Amount      pgtype.Numeric     `json:"amount"`
	AppliedAt   pgtype.Timestamptz `json:"applied_at"`
}

type SequenceCounter struct {
	ID          int16 `json:"id"`
	Loan        int64 `json:"loan"`
	Operation   int64 `json:"operation"`
	Transaction int64 `json:"transaction"`
	Settlement  int64 `json:"settlement"`
	Payment     int64 `json:"payment"`
	Aux1        int64 `json:"aux1"`
	Aux2        int64 `json:"aux2"`
	Aux3        int64 `json:"aux3"`
	Aux4        int64 `json:"aux4"`
	Aux5        int64 `json:"aux5"`
}
