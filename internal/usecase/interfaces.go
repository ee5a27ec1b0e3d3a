package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
)

// LoanRepository defines data access for loans.
type LoanRepository interface {
	Create(ctx context.Context, tx Transaction, loan *domain.Loan) error
	GetByNumber(ctx context.Context, number int64) (*domain.Loan, error)
	GetByNumberForUpdate(ctx context.Context, tx Transaction, number int64) (*domain.Loan, error)
	Update(ctx context.Context, tx Transaction, loan *domain.Loan) error
	List(ctx context.Context, limit, offset int) ([]*domain.Loan, error)
	// ListDisbursedNumbers pages through DISBURSED loans by number, starting after afterNumber.
	ListDisbursedNumbers(ctx context.Context, afterNumber int64, limit int) ([]int64, error)
}

// LedgerEntryRepository defines data access for ledger entries.
type LedgerEntryRepository interface {
	CreateBatch(ctx context.Context, tx Transaction, entries []*domain.LedgerEntry) error
	UpdateSettlement(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	ListPending(ctx context.Context, loanNumber int64, asOf time.Time) ([]*domain.LedgerEntry, error)
	ListPendingForUpdate(ctx context.Context, tx Transaction, loanNumber int64, asOf time.Time) ([]*domain.LedgerEntry, error)
	ListByLoan(ctx context.Context, loanNumber int64, limit, offset int) ([]*domain.LedgerEntry, error)
	SettledCapital(ctx context.Context, tx Transaction, loanNumber int64, asOf time.Time) (decimal.Decimal, error)
	AccrualExists(ctx context.Context, tx Transaction, loanNumber int64, cutoff time.Time) (bool, error)
	MaxOperationSeq(ctx context.Context, tx Transaction, loanNumber int64, processDate time.Time) (int64, error)
	ConceptTotals(ctx context.Context, loanNumber int64, asOf time.Time) ([]domain.ConceptTotal, error)
	AccruedInterest(ctx context.Context, loanNumber int64, asOf time.Time) (decimal.Decimal, error)
	InterestByLoan(ctx context.Context, from, to time.Time) ([]domain.LoanInterestTotal, error)
}

// PaymentRepository defines data access for received payments.
type PaymentRepository interface {
	Create(ctx context.Context, tx Transaction, payment *domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id int64) (*domain.Payment, error)
	MarkApplied(ctx context.Context, tx Transaction, payment *domain.Payment) error
	// ListUnmatchedForUpdate locks UNMATCHED payments of a batch, or of every
	// batch when batchID is empty, ordered by reported date then id.
	ListUnmatchedForUpdate(ctx context.Context, tx Transaction, batchID string) ([]*domain.Payment, error)
	// MarkMatched flips UNMATCHED payments to MATCHED and returns the number of rows changed.
	MarkMatched(ctx context.Context, tx Transaction, ids []int64, reconciliationID, movementID int64, at time.Time) (int64, error)
}

// PaymentApplicationRepository defines data access for payment application records.
type PaymentApplicationRepository interface {
	CreateBatch(ctx context.Context, tx Transaction, records []*domain.PaymentApplication) error
	ListByPayment(ctx context.Context, paymentID int64) ([]*domain.PaymentApplication, error)
}

// MovementRepository defines data access for bank movements.
type MovementRepository interface {
	Create(ctx context.Context, tx Transaction, movement *domain.BankMovement) error
	GetByID(ctx context.Context, id int64) (*domain.BankMovement, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id int64) (*domain.BankMovement, error)
	MarkMatched(ctx context.Context, tx Transaction, id, reconciliationID int64, at time.Time) error
}

// SequenceRepository owns the singleton counter row. Each call runs in its
// own short transaction so counter locks are never held across business work.
type SequenceRepository interface {
	// Advance adds count to the counter and returns the first value of the reserved block.
	Advance(ctx context.Context, d domain.SequenceDomain, count int64) (int64, error)
	Set(ctx context.Context, d domain.SequenceDomain, value int64) error
	Current(ctx context.Context) (domain.SequenceCounters, error)
}

// SequenceAllocator hands out unique identifiers.
type SequenceAllocator interface {
	Next(ctx context.Context, d domain.SequenceDomain) (int64, error)
	Reserve(ctx context.Context, d domain.SequenceDomain, count int) (int64, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier reruns an operation while it fails with a transient error.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key whose request failed so the client can retry.
	Release(ctx context.Context, key string) error
}
