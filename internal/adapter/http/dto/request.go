package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// LoanTermsRequest carries the terms of a new loan or a schedule preview.
type LoanTermsRequest struct {
	DisbursementDate   Date            `json:"disbursement_date"`
	Principal          decimal.Decimal `json:"principal"`
	FirstInstallment   decimal.Decimal `json:"first_installment"`
	AnnualRate         decimal.Decimal `json:"annual_rate"`
	InsurancePerPeriod decimal.Decimal `json:"insurance_per_period"`
	FeePerPeriod       decimal.Decimal `json:"fee_per_period"`
	TermMonths         int             `json:"term_months"`
	BillingDay         int             `json:"billing_day"`
}

// ToScheduleTerms converts to schedule generator terms.
func (r *LoanTermsRequest) ToScheduleTerms() domain.ScheduleTerms {
	return domain.ScheduleTerms{
		DisbursementDate:   r.DisbursementDate.Time,
		Principal:          r.Principal,
		FirstInstallment:   r.FirstInstallment,
		AnnualRate:         r.AnnualRate,
		InsurancePerPeriod: r.InsurancePerPeriod,
		FeePerPeriod:       r.FeePerPeriod,
		TermMonths:         r.TermMonths,
		BillingDay:         r.BillingDay,
	}
}

// ToUseCaseInput converts to use case input.
func (r *LoanTermsRequest) ToUseCaseInput() usecase.CreateLoanInput {
	return usecase.CreateLoanInput{
		DisbursementDate:   r.DisbursementDate.Time,
		Principal:          r.Principal,
		FirstInstallment:   r.FirstInstallment,
		AnnualRate:         r.AnnualRate,
		InsurancePerPeriod: r.InsurancePerPeriod,
		FeePerPeriod:       r.FeePerPeriod,
		TermMonths:         r.TermMonths,
		BillingDay:         r.BillingDay,
	}
}

// UpdateLoanRequest changes the terms of a loan that is not yet disbursed.
// Omitted fields keep their value.
type UpdateLoanRequest struct {
	DisbursementDate   *Date            `json:"disbursement_date,omitempty"`
	Principal          *decimal.Decimal `json:"principal,omitempty"`
	FirstInstallment   *decimal.Decimal `json:"first_installment,omitempty"`
	AnnualRate         *decimal.Decimal `json:"annual_rate,omitempty"`
	InsurancePerPeriod *decimal.Decimal `json:"insurance_per_period,omitempty"`
	FeePerPeriod       *decimal.Decimal `json:"fee_per_period,omitempty"`
	TermMonths         *int             `json:"term_months,omitempty"`
	BillingDay         *int             `json:"billing_day,omitempty"`
}

// ToDomain converts to a domain terms update.
func (r *UpdateLoanRequest) ToDomain() domain.LoanTermsUpdate {
	return domain.LoanTermsUpdate{
		DisbursementDate:   r.DisbursementDate.Ptr(),
		Principal:          r.Principal,
		FirstInstallment:   r.FirstInstallment,
		AnnualRate:         r.AnnualRate,
		InsurancePerPeriod: r.InsurancePerPeriod,
		FeePerPeriod:       r.FeePerPeriod,
		TermMonths:         r.TermMonths,
		BillingDay:         r.BillingDay,
	}
}

// DisburseRequest disburses a loan.
type DisburseRequest struct {
	DisbursementDate *Date  `json:"disbursement_date,omitempty"`
	Reference        string `json:"reference"`
}

// ToUseCaseInput converts to use case input.
func (r *DisburseRequest) ToUseCaseInput(loanNumber int64) usecase.DisburseInput {
	return usecase.DisburseInput{
		LoanNumber:       loanNumber,
		DisbursementDate: r.DisbursementDate.Ptr(),
		Reference:        r.Reference,
	}
}

// PostEntryRequest posts one manual ledger entry.
type PostEntryRequest struct {
	DueDate           Date            `json:"due_date"`
	EffectiveDate     *Date           `json:"effective_date,omitempty"`
	InstallmentNumber *int            `json:"installment_number,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Concept           string          `json:"concept"`
	Reference         string          `json:"reference"`
}

// ToUseCaseInput converts to use case input.
func (r *PostEntryRequest) ToUseCaseInput(loanNumber int64) usecase.PostEntryInput {
	return usecase.PostEntryInput{
		LoanNumber:        loanNumber,
		DueDate:           r.DueDate.Time,
		EffectiveDate:     r.EffectiveDate.Ptr(),
		InstallmentNumber: r.InstallmentNumber,
		Amount:            r.Amount,
		Concept:           domain.Concept(r.Concept),
		Reference:         r.Reference,
	}
}

// ClosePeriodRequest closes one loan's accrual period.
type ClosePeriodRequest struct {
	CutoffDate   Date   `json:"cutoff_date"`
	Reference    string `json:"reference"`
	OperationSeq int64  `json:"operation_seq,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ClosePeriodRequest) ToUseCaseInput(loanNumber int64) usecase.ClosePeriodInput {
	return usecase.ClosePeriodInput{
		LoanNumber:   loanNumber,
		CutoffDate:   r.CutoffDate.Time,
		Reference:    r.Reference,
		OperationSeq: r.OperationSeq,
	}
}

// CloseAllPeriodsRequest runs the batch accrual close.
type CloseAllPeriodsRequest struct {
	CutoffDate Date `json:"cutoff_date"`
}

// RegisterPaymentRequest records an incoming payment.
type RegisterPaymentRequest struct {
	LoanNumber   int64           `json:"loan_number"`
	Amount       decimal.Decimal `json:"amount"`
	ReportedDate Date            `json:"reported_date"`
	SourceFile   string          `json:"source_file"`
	BatchID      string          `json:"batch_id"`
}

// ToUseCaseInput converts to use case input.
func (r *RegisterPaymentRequest) ToUseCaseInput() usecase.RegisterPaymentInput {
	return usecase.RegisterPaymentInput{
		LoanNumber:   r.LoanNumber,
		Amount:       r.Amount,
		ReportedDate: r.ReportedDate.Time,
		SourceFile:   r.SourceFile,
		BatchID:      r.BatchID,
	}
}

// ApplyPaymentRequest allocates a payment against pending entries.
type ApplyPaymentRequest struct {
	AsOf           *Date `json:"as_of,omitempty"`
	RequireMatched bool  `json:"require_matched"`
}

// ToUseCaseInput converts to use case input.
func (r *ApplyPaymentRequest) ToUseCaseInput(paymentID int64) usecase.ApplyPaymentInput {
	return usecase.ApplyPaymentInput{
		PaymentID:      paymentID,
		AsOf:           r.AsOf.Ptr(),
		RequireMatched: r.RequireMatched,
	}
}

// RegisterMovementRequest records a bank movement.
type RegisterMovementRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	ReportedDate Date            `json:"reported_date"`
	BatchID      string          `json:"batch_id"`
	Reference    string          `json:"reference"`
}

// ToUseCaseInput converts to use case input.
func (r *RegisterMovementRequest) ToUseCaseInput() usecase.RegisterMovementInput {
	return usecase.RegisterMovementInput{
		Amount:       r.Amount,
		ReportedDate: r.ReportedDate.Time,
		BatchID:      r.BatchID,
		Reference:    r.Reference,
	}
}

// ReserveSequenceRequest reserves a block of identifiers. Count defaults to 1.
type ReserveSequenceRequest struct {
	Count int `json:"count"`
}

// SetSequenceRequest overrides a counter.
type SetSequenceRequest struct {
	Value int64 `json:"value"`
}
