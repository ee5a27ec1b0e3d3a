package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/metrics"
)

// PaymentUseCase registers payments and applies them against ledger obligations.
type PaymentUseCase struct {
	txManager       TransactionManager
	loanRepo        LoanRepository
	ledgerRepo      LedgerEntryRepository
	paymentRepo     PaymentRepository
	applicationRepo PaymentApplicationRepository
	outboxRepo      OutboxRepository
	sequences       SequenceAllocator
	idGen           IDGenerator
	metrics         *metrics.Metrics
	logger          zerolog.Logger
}

// NewPaymentUseCase creates a new PaymentUseCase.
func NewPaymentUseCase(
	txManager TransactionManager,
	loanRepo LoanRepository,
	ledgerRepo LedgerEntryRepository,
	paymentRepo PaymentRepository,
	applicationRepo PaymentApplicationRepository,
	outboxRepo OutboxRepository,
	sequences SequenceAllocator,
	idGen IDGenerator,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *PaymentUseCase {
	return &PaymentUseCase{
		txManager:       txManager,
		loanRepo:        loanRepo,
		ledgerRepo:      ledgerRepo,
		paymentRepo:     paymentRepo,
		applicationRepo: applicationRepo,
		outboxRepo:      outboxRepo,
		sequences:       sequences,
		idGen:           idGen,
		metrics:         m,
		logger:          logger.With().Str("component", "payment").Logger(),
	}
}

// RegisterPaymentInput represents a payment reported by ingestion.
type RegisterPaymentInput struct {
	ReportedDate time.Time
	Amount       decimal.Decimal
	SourceFile   string
	BatchID      string
	LoanNumber   int64
}

// ApplyPaymentInput represents input for applying a payment.
type ApplyPaymentInput struct {
	// AsOf limits allocation to entries due on or before it. Nil means the
	// payment's reported date.
	AsOf *time.Time
	// RequireMatched rejects payments not yet reconciled against the bank.
	RequireMatched bool
	PaymentID      int64
}

// ApplicationResult is the outcome of applying one payment.
type ApplicationResult struct {
	Payment  *domain.Payment
	Records  []*domain.PaymentApplication
	Applied  decimal.Decimal
	Residual decimal.Decimal
}

// RegisterPayment records an incoming payment as UNMATCHED.
func (uc *PaymentUseCase) RegisterPayment(ctx context.Context, input RegisterPaymentInput) (*domain.Payment, error) {
	payment := &domain.Payment{
		LoanNumber:          input.LoanNumber,
		Amount:              input.Amount,
		ReportedDate:        domain.DateOnly(input.ReportedDate),
		SourceFile:          input.SourceFile,
		BatchID:             input.BatchID,
		ReconciliationState: domain.ReconciliationUnmatched,
		AppliedAmount:       decimal.Zero,
		ResidualAmount:      decimal.Zero,
	}
	if err := payment.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateReference(input.SourceFile); err != nil {
		return nil, err
	}
	if err := domain.ValidateReference(input.BatchID); err != nil {
		return nil, err
	}

	loan, err := uc.loanRepo.GetByNumber(ctx, input.LoanNumber)
	if err != nil {
		return nil, err
	}
	if err := checkPaymentDate(loan, payment.ReportedDate); err != nil {
		return nil, err
	}

	id, err := uc.sequences.Next(ctx, domain.SequencePayment)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	payment.ID = id
	payment.CreatedAt = time.Now().UTC()
	if err := uc.paymentRepo.Create(txCtx, tx, payment); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.PaymentsRegistered.Inc()
	}

	return payment, nil
}

// GetPayment retrieves a payment by ID.
func (uc *PaymentUseCase) GetPayment(ctx context.Context, id int64) (*domain.Payment, error) {
	return uc.paymentRepo.GetByID(ctx, id)
}

// Apply allocates a payment oldest-first across the loan's open planned
// entries. The loan row lock serializes concurrent payments for one loan.
// The unallocated remainder is returned as Residual.
func (uc *PaymentUseCase) Apply(ctx context.Context, input ApplyPaymentInput) (*ApplicationResult, error) {
	start := time.Now()

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	payment, err := uc.paymentRepo.GetByIDForUpdate(txCtx, tx, input.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.Applied() {
		return nil, fmt.Errorf("%w: payment %d", domain.ErrPaymentAlreadyApplied, payment.ID)
	}
	if input.RequireMatched && payment.ReconciliationState != domain.ReconciliationMatched {
		return nil, fmt.Errorf("%w: payment %d", domain.ErrPaymentNotMatched, payment.ID)
	}

	loan, err := uc.loanRepo.GetByNumberForUpdate(txCtx, tx, payment.LoanNumber)
	if err != nil {
		return nil, err
	}

	asOf := payment.ReportedDate
	if input.AsOf != nil {
		asOf = domain.DateOnly(*input.AsOf)
	}
	if err := checkPaymentDate(loan, asOf); err != nil {
		return nil, err
	}

	entries, err := uc.ledgerRepo.ListPendingForUpdate(txCtx, tx, loan.Number, asOf)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: loan %d as of %s", domain.ErrNothingToApply, loan.Number, formatDate(asOf))
	}

	now := time.Now().UTC()
	plan := domain.Allocate(entries, payment.Amount, now)
	if len(plan.Allocations) == 0 {
		return nil, fmt.Errorf("%w: loan %d as of %s", domain.ErrNothingToApply, loan.Number, formatDate(asOf))
	}

	operationID, err := uc.sequences.Next(txCtx, domain.SequenceOperation)
	if err != nil {
		return nil, err
	}

	records := make([]*domain.PaymentApplication, 0, len(plan.Allocations))
	for _, alloc := range plan.Allocations {
		if err := uc.ledgerRepo.UpdateSettlement(txCtx, tx, alloc.Entry); err != nil {
			return nil, err
		}
		records = append(records, &domain.PaymentApplication{
			ID:          uc.idGen.Generate(),
			PaymentID:   payment.ID,
			EntryID:     alloc.Entry.ID,
			LoanNumber:  loan.Number,
			OperationID: operationID,
			Concept:     alloc.Entry.Concept,
			Amount:      alloc.Amount,
			AppliedAt:   now,
		})
	}

	if err := uc.applicationRepo.CreateBatch(txCtx, tx, records); err != nil {
		return nil, err
	}

	payment.AppliedAt = &now
	payment.AppliedAmount = plan.Applied
	payment.ResidualAmount = plan.Residual
	if err := uc.paymentRepo.MarkApplied(txCtx, tx, payment); err != nil {
		return nil, err
	}

	if err := emitEvent(txCtx, uc.outboxRepo, tx, uc.idGen, domain.AggregateTypePayment, payment.ID,
		domain.EventTypePaymentApplied, domain.PaymentAppliedEvent{
			PaymentID:  payment.ID,
			LoanNumber: loan.Number,
			Applied:    plan.Applied.String(),
			Residual:   plan.Residual.String(),
			Entries:    len(records),
		}, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.PaymentsApplied.Inc()
		uc.metrics.PaymentAmount.Observe(plan.Applied.InexactFloat64())
		uc.metrics.PaymentResidual.Add(plan.Residual.InexactFloat64())
		uc.metrics.PaymentDuration.Observe(time.Since(start).Seconds())
	}

	if plan.Residual.IsPositive() {
		uc.logger.Info().
			Int64("payment_id", payment.ID).
			Int64("loan_number", loan.Number).
			Str("residual", plan.Residual.String()).
			Msg("payment applied with residual")
	}

	return &ApplicationResult{
		Payment:  payment,
		Records:  records,
		Applied:  plan.Applied,
		Residual: plan.Residual,
	}, nil
}

// ListApplications returns the application records of a payment.
func (uc *PaymentUseCase) ListApplications(ctx context.Context, paymentID int64) ([]*domain.PaymentApplication, error) {
	if _, err := uc.paymentRepo.GetByID(ctx, paymentID); err != nil {
		return nil, err
	}
	return uc.applicationRepo.ListByPayment(ctx, paymentID)
}

func checkPaymentDate(loan *domain.Loan, date time.Time) error {
	if loan.State == domain.LoanStateDisbursed && date.Before(domain.DateOnly(loan.DisbursementDate)) {
		return fmt.Errorf("%w: %s precedes disbursement of loan %d",
			domain.ErrInvalidDate, formatDate(date), loan.Number)
	}
	return nil
}
