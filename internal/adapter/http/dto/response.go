package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// LoanResponse represents a loan in API responses.
type LoanResponse struct {
	Number             int64           `json:"number"`
	State              string          `json:"state"`
	DisbursementDate   Date            `json:"disbursement_date"`
	MaturityDate       *Date           `json:"maturity_date,omitempty"`
	LastAccrualDate    *Date           `json:"last_accrual_date,omitempty"`
	Principal          decimal.Decimal `json:"principal"`
	FirstInstallment   decimal.Decimal `json:"first_installment"`
	AnnualRate         decimal.Decimal `json:"annual_rate"`
	InsurancePerPeriod decimal.Decimal `json:"insurance_per_period"`
	FeePerPeriod       decimal.Decimal `json:"fee_per_period"`
	TermMonths         int             `json:"term_months"`
	BillingDay         int             `json:"billing_day"`
	AccrualSuspended   bool            `json:"accrual_suspended"`
	WrittenOff         bool            `json:"written_off"`
	CreatedBy          string          `json:"created_by,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// LoanFromDomain converts domain loan to response.
func LoanFromDomain(l *domain.Loan) *LoanResponse {
	return &LoanResponse{
		Number:             l.Number,
		State:              string(l.State),
		DisbursementDate:   NewDate(l.DisbursementDate),
		MaturityDate:       DatePtr(l.MaturityDate),
		LastAccrualDate:    DatePtr(l.LastAccrualDate),
		Principal:          l.Principal,
		FirstInstallment:   l.FirstInstallment,
		AnnualRate:         l.AnnualRate,
		InsurancePerPeriod: l.InsurancePerPeriod,
		FeePerPeriod:       l.FeePerPeriod,
		TermMonths:         l.TermMonths,
		BillingDay:         l.BillingDay,
		AccrualSuspended:   l.AccrualSuspended,
		WrittenOff:         l.WrittenOff,
		CreatedBy:          l.CreatedBy,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
	}
}

// LoansFromDomain converts domain loans to responses.
func LoansFromDomain(loans []*domain.Loan) []*LoanResponse {
	result := make([]*LoanResponse, len(loans))
	for i, l := range loans {
		result[i] = LoanFromDomain(l)
	}
	return result
}

// InstallmentResponse is one line of an amortization schedule.
type InstallmentResponse struct {
	Number    int             `json:"number"`
	DueDate   Date            `json:"due_date"`
	Capital   decimal.Decimal `json:"capital"`
	Interest  decimal.Decimal `json:"interest"`
	Insurance decimal.Decimal `json:"insurance"`
	Fee       decimal.Decimal `json:"fee"`
	Total     decimal.Decimal `json:"total"`
	Balance   decimal.Decimal `json:"balance"`
}

// ScheduleFromDomain converts schedule lines to responses.
func ScheduleFromDomain(lines []domain.InstallmentLine) []*InstallmentResponse {
	result := make([]*InstallmentResponse, len(lines))
	for i, line := range lines {
		result[i] = &InstallmentResponse{
			Number:    line.Number,
			DueDate:   NewDate(line.DueDate),
			Capital:   line.Capital,
			Interest:  line.Interest,
			Insurance: line.Insurance,
			Fee:       line.Fee,
			Total:     line.Total(),
			Balance:   line.Balance,
		}
	}
	return result
}

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID                int64           `json:"id"`
	LoanNumber        int64           `json:"loan_number"`
	OperationID       int64           `json:"operation_id"`
	OperationSeq      int64           `json:"operation_seq"`
	InstallmentNumber *int            `json:"installment_number,omitempty"`
	Concept           string          `json:"concept"`
	State             string          `json:"state"`
	Amount            decimal.Decimal `json:"amount"`
	SettledAmount     decimal.Decimal `json:"settled_amount"`
	Outstanding       decimal.Decimal `json:"outstanding"`
	DueDate           Date            `json:"due_date"`
	EffectiveDate     *Date           `json:"effective_date,omitempty"`
	ProcessDate       Date            `json:"process_date"`
	SettledAt         *time.Time      `json:"settled_at,omitempty"`
	Reference         string          `json:"reference,omitempty"`
	CreatedBy         string          `json:"created_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.LedgerEntry) *EntryResponse {
	return &EntryResponse{
		ID:                e.ID,
		LoanNumber:        e.LoanNumber,
		OperationID:       e.OperationID,
		OperationSeq:      e.OperationSeq,
		InstallmentNumber: e.InstallmentNumber,
		Concept:           string(e.Concept),
		State:             string(e.State),
		Amount:            e.Amount,
		SettledAmount:     e.SettledAmount,
		Outstanding:       e.Outstanding(),
		DueDate:           NewDate(e.DueDate),
		EffectiveDate:     DatePtr(e.EffectiveDate),
		ProcessDate:       NewDate(e.ProcessDate),
		SettledAt:         e.SettledAt,
		Reference:         e.Reference,
		CreatedBy:         e.CreatedBy,
		CreatedAt:         e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.LedgerEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// DisburseResponse is returned by a disbursement.
type DisburseResponse struct {
	Loan     *LoanResponse          `json:"loan"`
	Schedule []*InstallmentResponse `json:"schedule"`
	Entries  []*EntryResponse       `json:"entries"`
}

// DisburseFromResult converts a disbursement result to response.
func DisburseFromResult(r *usecase.DisburseResult) *DisburseResponse {
	return &DisburseResponse{
		Loan:     LoanFromDomain(r.Loan),
		Schedule: ScheduleFromDomain(r.Schedule),
		Entries:  EntriesFromDomain(r.Entries),
	}
}

// ConceptTotalResponse aggregates one concept of a statement.
type ConceptTotalResponse struct {
	Concept     string          `json:"concept"`
	Amount      decimal.Decimal `json:"amount"`
	Settled     decimal.Decimal `json:"settled"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// StatementResponse is a loan statement at a date.
type StatementResponse struct {
	LoanNumber      int64                   `json:"loan_number"`
	AsOf            Date                    `json:"as_of"`
	Totals          []*ConceptTotalResponse `json:"totals"`
	Outstanding     decimal.Decimal         `json:"outstanding"`
	AccruedInterest decimal.Decimal         `json:"accrued_interest"`
}

// StatementFromResult converts a statement to response.
func StatementFromResult(s *usecase.Statement) *StatementResponse {
	totals := make([]*ConceptTotalResponse, len(s.Totals))
	for i, t := range s.Totals {
		totals[i] = &ConceptTotalResponse{
			Concept:     string(t.Concept),
			Amount:      t.Amount,
			Settled:     t.Settled,
			Outstanding: t.Outstanding(),
		}
	}
	return &StatementResponse{
		LoanNumber:      s.LoanNumber,
		AsOf:            NewDate(s.AsOf),
		Totals:          totals,
		Outstanding:     s.Outstanding,
		AccruedInterest: s.AccruedInterest,
	}
}

// AccrualResponse is the outcome of closing one accrual period.
type AccrualResponse struct {
	Entry       *EntryResponse  `json:"entry"`
	Start       Date            `json:"start"`
	Cutoff      Date            `json:"cutoff"`
	Days        int             `json:"days"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Interest    decimal.Decimal `json:"interest"`
}

// AccrualFromResult converts an accrual result to response.
func AccrualFromResult(r *usecase.AccrualResult) *AccrualResponse {
	return &AccrualResponse{
		Entry:       EntryFromDomain(r.Entry),
		Start:       NewDate(r.Period.Start),
		Cutoff:      NewDate(r.Period.Cutoff),
		Days:        r.Period.Days,
		Outstanding: r.Period.Outstanding,
		Interest:    r.Period.Interest,
	}
}

// BatchResponse summarizes a batch accrual close.
type BatchResponse struct {
	Cutoff   Date             `json:"cutoff"`
	Closed   int              `json:"closed"`
	Skipped  int              `json:"skipped"`
	Failed   int              `json:"failed"`
	Interest decimal.Decimal  `json:"interest"`
	Errors   map[int64]string `json:"errors,omitempty"`
}

// BatchFromResult converts a batch result to response.
func BatchFromResult(r *usecase.BatchResult) *BatchResponse {
	return &BatchResponse{
		Cutoff:   NewDate(r.Cutoff),
		Closed:   r.Closed,
		Skipped:  r.Skipped,
		Failed:   r.Failed,
		Interest: r.Interest,
		Errors:   r.Errors,
	}
}

// LoanInterestResponse is the interest accrued by one loan.
type LoanInterestResponse struct {
	LoanNumber int64           `json:"loan_number"`
	Interest   decimal.Decimal `json:"interest"`
}

// PeriodInterestResponse reports the interest accrued in a date range.
type PeriodInterestResponse struct {
	From  Date                    `json:"from"`
	To    Date                    `json:"to"`
	Loans []*LoanInterestResponse `json:"loans"`
	Total decimal.Decimal         `json:"total"`
}

// PeriodInterestFromResult converts a period interest report to response.
func PeriodInterestFromResult(r *usecase.PeriodInterest) *PeriodInterestResponse {
	loans := make([]*LoanInterestResponse, len(r.Loans))
	for i, l := range r.Loans {
		loans[i] = &LoanInterestResponse{LoanNumber: l.LoanNumber, Interest: l.Interest}
	}
	return &PeriodInterestResponse{
		From:  NewDate(r.From),
		To:    NewDate(r.To),
		Loans: loans,
		Total: r.Total,
	}
}

// AccruedInterestResponse is a loan's accrued interest at a date.
type AccruedInterestResponse struct {
	LoanNumber int64           `json:"loan_number"`
	AsOf       Date            `json:"as_of"`
	Interest   decimal.Decimal `json:"interest"`
}

// PaymentResponse represents a payment in API responses.
type PaymentResponse struct {
	ID                  int64           `json:"id"`
	LoanNumber          int64           `json:"loan_number"`
	Amount              decimal.Decimal `json:"amount"`
	ReportedDate        Date            `json:"reported_date"`
	SourceFile          string          `json:"source_file,omitempty"`
	BatchID             string          `json:"batch_id,omitempty"`
	ReconciliationState string          `json:"reconciliation_state"`
	ReconciliationID    *int64          `json:"reconciliation_id,omitempty"`
	MovementID          *int64          `json:"movement_id,omitempty"`
	MatchedAt           *time.Time      `json:"matched_at,omitempty"`
	AppliedAt           *time.Time      `json:"applied_at,omitempty"`
	AppliedAmount       decimal.Decimal `json:"applied_amount"`
	ResidualAmount      decimal.Decimal `json:"residual_amount"`
	CreatedAt           time.Time       `json:"created_at"`
}

// PaymentFromDomain converts domain payment to response.
func PaymentFromDomain(p *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:                  p.ID,
		LoanNumber:          p.LoanNumber,
		Amount:              p.Amount,
		ReportedDate:        NewDate(p.ReportedDate),
		SourceFile:          p.SourceFile,
		BatchID:             p.BatchID,
		ReconciliationState: string(p.ReconciliationState),
		ReconciliationID:    p.ReconciliationID,
		MovementID:          p.MovementID,
		MatchedAt:           p.MatchedAt,
		AppliedAt:           p.AppliedAt,
		AppliedAmount:       p.AppliedAmount,
		ResidualAmount:      p.ResidualAmount,
		CreatedAt:           p.CreatedAt,
	}
}

// PaymentsFromDomain converts domain payments to responses.
func PaymentsFromDomain(payments []*domain.Payment) []*PaymentResponse {
	result := make([]*PaymentResponse, len(payments))
	for i, p := range payments {
		result[i] = PaymentFromDomain(p)
	}
	return result
}

// ApplicationResponse is one allocation of a payment to an entry.
type ApplicationResponse struct {
	ID          string          `json:"id"`
	PaymentID   int64           `json:"payment_id"`
	EntryID     int64           `json:"entry_id"`
	LoanNumber  int64           `json:"loan_number"`
	OperationID int64           `json:"operation_id"`
	Concept     string          `json:"concept"`
	Amount      decimal.Decimal `json:"amount"`
	AppliedAt   time.Time       `json:"applied_at"`
}

// ApplicationsFromDomain converts application records to responses.
func ApplicationsFromDomain(records []*domain.PaymentApplication) []*ApplicationResponse {
	result := make([]*ApplicationResponse, len(records))
	for i, r := range records {
		result[i] = &ApplicationResponse{
			ID:          r.ID,
			PaymentID:   r.PaymentID,
			EntryID:     r.EntryID,
			LoanNumber:  r.LoanNumber,
			OperationID: r.OperationID,
			Concept:     string(r.Concept),
			Amount:      r.Amount,
			AppliedAt:   r.AppliedAt,
		}
	}
	return result
}

// ApplicationResultResponse is returned by a payment application.
type ApplicationResultResponse struct {
	Payment      *PaymentResponse       `json:"payment"`
	Applications []*ApplicationResponse `json:"applications"`
	Applied      decimal.Decimal        `json:"applied"`
	Residual     decimal.Decimal        `json:"residual"`
}

// ApplicationResultFromResult converts an application result to response.
func ApplicationResultFromResult(r *usecase.ApplicationResult) *ApplicationResultResponse {
	return &ApplicationResultResponse{
		Payment:      PaymentFromDomain(r.Payment),
		Applications: ApplicationsFromDomain(r.Records),
		Applied:      r.Applied,
		Residual:     r.Residual,
	}
}

// MovementResponse represents a bank movement in API responses.
type MovementResponse struct {
	ID                  int64           `json:"id"`
	Amount              decimal.Decimal `json:"amount"`
	ReportedDate        Date            `json:"reported_date"`
	BatchID             string          `json:"batch_id"`
	Reference           string          `json:"reference,omitempty"`
	ReconciliationState string          `json:"reconciliation_state"`
	ReconciliationID    *int64          `json:"reconciliation_id,omitempty"`
	MatchedAt           *time.Time      `json:"matched_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

// MovementFromDomain converts domain movement to response.
func MovementFromDomain(m *domain.BankMovement) *MovementResponse {
	return &MovementResponse{
		ID:                  m.ID,
		Amount:              m.Amount,
		ReportedDate:        NewDate(m.ReportedDate),
		BatchID:             m.BatchID,
		Reference:           m.Reference,
		ReconciliationState: string(m.ReconciliationState),
		ReconciliationID:    m.ReconciliationID,
		MatchedAt:           m.MatchedAt,
		CreatedAt:           m.CreatedAt,
	}
}

// MatchResponse is the outcome of reconciling a movement.
type MatchResponse struct {
	Movement         *MovementResponse  `json:"movement"`
	Matched          bool               `json:"matched"`
	Strategy         string             `json:"strategy,omitempty"`
	Message          string             `json:"message,omitempty"`
	Total            decimal.Decimal    `json:"total"`
	PoolSize         int                `json:"pool_size"`
	ReconciliationID int64              `json:"reconciliation_id,omitempty"`
	Payments         []*PaymentResponse `json:"payments"`
}

// MatchFromOutcome converts a reconciliation outcome to response.
func MatchFromOutcome(o *usecase.MatchOutcome) *MatchResponse {
	return &MatchResponse{
		Movement:         MovementFromDomain(o.Movement),
		Matched:          o.Result.Matched,
		Strategy:         o.Result.Strategy,
		Message:          o.Result.Message,
		Total:            o.Result.Total,
		PoolSize:         o.Result.PoolSize,
		ReconciliationID: o.ReconciliationID,
		Payments:         PaymentsFromDomain(o.Payments),
	}
}

// SequenceValueResponse is a single counter value.
type SequenceValueResponse struct {
	Domain string `json:"domain"`
	Value  int64  `json:"value"`
	Count  int    `json:"count,omitempty"`
}

// CountersResponse lists every counter.
type CountersResponse struct {
	Counters map[string]int64 `json:"counters"`
}

// CountersFromDomain converts counters to response.
func CountersFromDomain(c domain.SequenceCounters) *CountersResponse {
	out := make(map[string]int64, len(c))
	for d, v := range c {
		out[string(d)] = v
	}
	return &CountersResponse{Counters: out}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	// Code names the domain error, e.g. "period_already_closed".
	Code string `json:"code,omitempty"`
}

// HealthResponse represents health check response.
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}
