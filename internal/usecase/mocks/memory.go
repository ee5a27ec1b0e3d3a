package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// MemoryStore is an in-memory stand-in for the Postgres repositories.
// Transactions are serialized by a single store-wide lock and roll back to a
// snapshot, which is enough to exercise use-case atomicity in tests.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	loans        map[int64]domain.Loan
	entries      map[int64]domain.LedgerEntry
	payments     map[int64]domain.Payment
	movements    map[int64]domain.BankMovement
	applications []domain.PaymentApplication
	outbox       []domain.OutboxEvent

	failures map[string]error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		loans:     map[int64]domain.Loan{},
		entries:   map[int64]domain.LedgerEntry{},
		payments:  map[int64]domain.Payment{},
		movements: map[int64]domain.BankMovement{},
		failures:  map[string]error{},
	}
}

// FailOn makes the named operation (for example "entries.CreateBatch") return err.
func (s *MemoryStore) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *MemoryStore) fail(op string) error {
	return s.failures[op]
}

func (s *MemoryStore) Loans() *MemoryLoanRepository { return &MemoryLoanRepository{s} }
func (s *MemoryStore) Entries() *MemoryLedgerEntryRepository { return &MemoryLedgerEntryRepository{s} }
func (s *MemoryStore) Payments() *MemoryPaymentRepository { return &MemoryPaymentRepository{s} }
func (s *MemoryStore) Applications() *MemoryApplicationRepository { return &MemoryApplicationRepository{s} }
func (s *MemoryStore) Movements() *MemoryMovementRepository { return &MemoryMovementRepository{s} }
func (s *MemoryStore) Outbox() *MemoryOutboxRepository { return &MemoryOutboxRepository{s} }
func (s *MemoryStore) TxManager() *MemoryTxManager { return &MemoryTxManager{s} }

// Entry returns a copy of a stored ledger entry.
func (s *MemoryStore) Entry(id int64) (domain.LedgerEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// AllEntries returns every stored entry ordered by ID.
func (s *MemoryStore) AllEntries() []domain.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LedgerEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Events returns every outbox event in creation order.
func (s *MemoryStore) Events() []domain.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.OutboxEvent(nil), s.outbox...)
}

// ApplicationRecords returns every payment application record.
func (s *MemoryStore) ApplicationRecords() []domain.PaymentApplication {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.PaymentApplication(nil), s.applications...)
}

type snapshot struct {
	loans        map[int64]domain.Loan
	entries      map[int64]domain.LedgerEntry
	payments     map[int64]domain.Payment
	movements    map[int64]domain.BankMovement
	applications []domain.PaymentApplication
	outbox       []domain.OutboxEvent
}

func (s *MemoryStore) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		loans:        copyMap(s.loans),
		entries:      copyMap(s.entries),
		payments:     copyMap(s.payments),
		movements:    copyMap(s.movements),
		applications: append([]domain.PaymentApplication(nil), s.applications...),
		outbox:       append([]domain.OutboxEvent(nil), s.outbox...),
	}
}

func (s *MemoryStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loans = snap.loans
	s.entries = snap.entries
	s.payments = snap.payments
	s.movements = snap.movements
	s.applications = snap.applications
	s.outbox = snap.outbox
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// MemoryTxManager implements usecase.TransactionManager over a MemoryStore.
type MemoryTxManager struct {
	store *MemoryStore
}

// Begin blocks until no other transaction is open.
func (m *MemoryTxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.store.txMu.Lock()
	return &MemoryTx{store: m.store, snap: m.store.snapshot()}, nil
}

// MemoryTx is one in-memory transaction.
type MemoryTx struct {
	store *MemoryStore
	snap  snapshot
	once  sync.Once
}

func (t *MemoryTx) Commit(ctx context.Context) error {
	t.once.Do(func() { t.store.txMu.Unlock() })
	return nil
}

func (t *MemoryTx) Rollback(ctx context.Context) error {
	t.once.Do(func() {
		t.store.restore(t.snap)
		t.store.txMu.Unlock()
	})
	return nil
}

// MemoryLoanRepository implements usecase.LoanRepository.
type MemoryLoanRepository struct{ s *MemoryStore }

func (r *MemoryLoanRepository) Create(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("loans.Create"); err != nil {
		return err
	}
	if _, ok := r.s.loans[loan.Number]; ok {
		return fmt.Errorf("loan %d already exists", loan.Number)
	}
	r.s.loans[loan.Number] = *loan
	return nil
}

func (r *MemoryLoanRepository) GetByNumber(ctx context.Context, number int64) (*domain.Loan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	loan, ok := r.s.loans[number]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	return &loan, nil
}

func (r *MemoryLoanRepository) GetByNumberForUpdate(ctx context.Context, tx usecase.Transaction, number int64) (*domain.Loan, error) {
	return r.GetByNumber(ctx, number)
}

func (r *MemoryLoanRepository) Update(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("loans.Update"); err != nil {
		return err
	}
	if _, ok := r.s.loans[loan.Number]; !ok {
		return domain.ErrLoanNotFound
	}
	r.s.loans[loan.Number] = *loan
	return nil
}

func (r *MemoryLoanRepository) List(ctx context.Context, limit, offset int) ([]*domain.Loan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	numbers := make([]int64, 0, len(r.s.loans))
	for n := range r.s.loans {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	var out []*domain.Loan
	for i := offset; i < len(numbers) && len(out) < limit; i++ {
		loan := r.s.loans[numbers[i]]
		out = append(out, &loan)
	}
	return out, nil
}

func (r *MemoryLoanRepository) ListDisbursedNumbers(ctx context.Context, afterNumber int64, limit int) ([]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var numbers []int64
	for n, loan := range r.s.loans {
		if n > afterNumber && loan.State == domain.LoanStateDisbursed {
			numbers = append(numbers, n)
		}
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	if len(numbers) > limit {
		numbers = numbers[:limit]
	}
	return numbers, nil
}

// MemoryLedgerEntryRepository implements usecase.LedgerEntryRepository.
type MemoryLedgerEntryRepository struct{ s *MemoryStore }

type entryKey struct {
	effective time.Time
	process   time.Time
	loan      int64
	seq       int64
}

func keyOf(e domain.LedgerEntry) entryKey {
	k := entryKey{loan: e.LoanNumber, process: domain.DateOnly(e.ProcessDate), seq: e.OperationSeq}
	if e.EffectiveDate != nil {
		k.effective = domain.DateOnly(*e.EffectiveDate)
	}
	return k
}

func (r *MemoryLedgerEntryRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, entries []*domain.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("entries.CreateBatch"); err != nil {
		return err
	}

	keys := map[entryKey]bool{}
	for _, e := range r.s.entries {
		keys[keyOf(e)] = true
	}
	for _, e := range entries {
		if _, ok := r.s.entries[e.ID]; ok {
			return fmt.Errorf("%w: entry id %d", domain.ErrDuplicateLedgerEntry, e.ID)
		}
		k := keyOf(*e)
		if keys[k] {
			return fmt.Errorf("%w: loan %d seq %d", domain.ErrDuplicateLedgerEntry, e.LoanNumber, e.OperationSeq)
		}
		keys[k] = true
	}
	for _, e := range entries {
		r.s.entries[e.ID] = *e
	}
	return nil
}

func (r *MemoryLedgerEntryRepository) UpdateSettlement(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("entries.UpdateSettlement"); err != nil {
		return err
	}
	stored, ok := r.s.entries[entry.ID]
	if !ok {
		return fmt.Errorf("entry %d not found", entry.ID)
	}
	if entry.SettledAmount.GreaterThan(stored.Amount) {
		return fmt.Errorf("entry %d would be over-settled", entry.ID)
	}
	stored.SettledAmount = entry.SettledAmount
	stored.State = entry.State
	stored.SettledAt = entry.SettledAt
	stored.EffectiveDate = entry.EffectiveDate
	r.s.entries[entry.ID] = stored
	return nil
}

func (r *MemoryLedgerEntryRepository) ListPending(ctx context.Context, loanNumber int64, asOf time.Time) ([]*domain.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.LedgerEntry
	for _, e := range r.s.entries {
		if e.LoanNumber == loanNumber && e.Concept.Payable() && e.State.Open() && !e.DueDate.After(asOf) {
			entry := e
			out = append(out, &entry)
		}
	}
	domain.SortForAllocation(out)
	return out, nil
}

func (r *MemoryLedgerEntryRepository) ListPendingForUpdate(ctx context.Context, tx usecase.Transaction, loanNumber int64, asOf time.Time) ([]*domain.LedgerEntry, error) {
	return r.ListPending(ctx, loanNumber, asOf)
}

func (r *MemoryLedgerEntryRepository) ListByLoan(ctx context.Context, loanNumber int64, limit, offset int) ([]*domain.LedgerEntry, error) {
	var all []*domain.LedgerEntry
	for _, e := range r.s.AllEntries() {
		if e.LoanNumber == loanNumber {
			entry := e
			all = append(all, &entry)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryLedgerEntryRepository) SettledCapital(ctx context.Context, tx usecase.Transaction, loanNumber int64, asOf time.Time) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	total := decimal.Zero
	for _, a := range r.s.applications {
		if a.LoanNumber != loanNumber || a.Concept != domain.ConceptPlannedCapital {
			continue
		}
		if p, ok := r.s.payments[a.PaymentID]; ok && !p.ReportedDate.After(asOf) {
			total = total.Add(a.Amount)
		}
	}
	return total, nil
}

func (r *MemoryLedgerEntryRepository) AccrualExists(ctx context.Context, tx usecase.Transaction, loanNumber int64, cutoff time.Time) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, e := range r.s.entries {
		if e.LoanNumber == loanNumber && e.Concept == domain.ConceptAccrual &&
			e.EffectiveDate != nil && e.EffectiveDate.Equal(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryLedgerEntryRepository) MaxOperationSeq(ctx context.Context, tx usecase.Transaction, loanNumber int64, processDate time.Time) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var maxSeq int64
	for _, e := range r.s.entries {
		if e.LoanNumber == loanNumber && e.ProcessDate.Equal(processDate) && e.OperationSeq > maxSeq {
			maxSeq = e.OperationSeq
		}
	}
	return maxSeq, nil
}

func (r *MemoryLedgerEntryRepository) ConceptTotals(ctx context.Context, loanNumber int64, asOf time.Time) ([]domain.ConceptTotal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	totals := map[domain.Concept]*domain.ConceptTotal{}
	for _, e := range r.s.entries {
		if e.LoanNumber != loanNumber || e.DueDate.After(asOf) || e.State == domain.EntryStateVoid {
			continue
		}
		t, ok := totals[e.Concept]
		if !ok {
			t = &domain.ConceptTotal{Concept: e.Concept, Amount: decimal.Zero, Settled: decimal.Zero}
			totals[e.Concept] = t
		}
		t.Amount = t.Amount.Add(e.Amount)
		t.Settled = t.Settled.Add(e.SettledAmount)
	}

	out := make([]domain.ConceptTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Concept < out[j].Concept })
	return out, nil
}

func (r *MemoryLedgerEntryRepository) AccruedInterest(ctx context.Context, loanNumber int64, asOf time.Time) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	total := decimal.Zero
	for _, e := range r.s.entries {
		if e.LoanNumber == loanNumber && e.Concept == domain.ConceptAccrual &&
			e.EffectiveDate != nil && !e.EffectiveDate.After(asOf) {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (r *MemoryLedgerEntryRepository) InterestByLoan(ctx context.Context, from, to time.Time) ([]domain.LoanInterestTotal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	byLoan := map[int64]decimal.Decimal{}
	for _, e := range r.s.entries {
		if e.Concept != domain.ConceptAccrual || e.EffectiveDate == nil {
			continue
		}
		if e.EffectiveDate.Before(from) || e.EffectiveDate.After(to) {
			continue
		}
		byLoan[e.LoanNumber] = byLoan[e.LoanNumber].Add(e.Amount)
	}

	out := make([]domain.LoanInterestTotal, 0, len(byLoan))
	for n, v := range byLoan {
		out = append(out, domain.LoanInterestTotal{LoanNumber: n, Interest: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoanNumber < out[j].LoanNumber })
	return out, nil
}

// MemoryPaymentRepository implements usecase.PaymentRepository.
type MemoryPaymentRepository struct{ s *MemoryStore }

func (r *MemoryPaymentRepository) Create(ctx context.Context, tx usecase.Transaction, payment *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[payment.ID]; ok {
		return fmt.Errorf("payment %d already exists", payment.ID)
	}
	r.s.payments[payment.ID] = *payment
	return nil
}

func (r *MemoryPaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return &p, nil
}

func (r *MemoryPaymentRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id int64) (*domain.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r *MemoryPaymentRepository) MarkApplied(ctx context.Context, tx usecase.Transaction, payment *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("payments.MarkApplied"); err != nil {
		return err
	}
	stored, ok := r.s.payments[payment.ID]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	stored.AppliedAt = payment.AppliedAt
	stored.AppliedAmount = payment.AppliedAmount
	stored.ResidualAmount = payment.ResidualAmount
	r.s.payments[payment.ID] = stored
	return nil
}

func (r *MemoryPaymentRepository) ListUnmatchedForUpdate(ctx context.Context, tx usecase.Transaction, batchID string) ([]*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Payment
	for _, p := range r.s.payments {
		if p.ReconciliationState != domain.ReconciliationUnmatched {
			continue
		}
		if batchID != "" && p.BatchID != batchID {
			continue
		}
		payment := p
		out = append(out, &payment)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReportedDate.Equal(out[j].ReportedDate) {
			return out[i].ReportedDate.Before(out[j].ReportedDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryPaymentRepository) MarkMatched(ctx context.Context, tx usecase.Transaction, ids []int64, reconciliationID, movementID int64, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var changed int64
	for _, id := range ids {
		p, ok := r.s.payments[id]
		if !ok || p.ReconciliationState != domain.ReconciliationUnmatched {
			continue
		}
		rec, mov, matchedAt := reconciliationID, movementID, at
		p.ReconciliationState = domain.ReconciliationMatched
		p.ReconciliationID = &rec
		p.MovementID = &mov
		p.MatchedAt = &matchedAt
		r.s.payments[id] = p
		changed++
	}
	return changed, nil
}

// MemoryApplicationRepository implements usecase.PaymentApplicationRepository.
type MemoryApplicationRepository struct{ s *MemoryStore }

func (r *MemoryApplicationRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, records []*domain.PaymentApplication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("applications.CreateBatch"); err != nil {
		return err
	}
	for _, rec := range records {
		r.s.applications = append(r.s.applications, *rec)
	}
	return nil
}

func (r *MemoryApplicationRepository) ListByPayment(ctx context.Context, paymentID int64) ([]*domain.PaymentApplication, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.PaymentApplication
	for _, rec := range r.s.applications {
		if rec.PaymentID == paymentID {
			record := rec
			out = append(out, &record)
		}
	}
	return out, nil
}

// MemoryMovementRepository implements usecase.MovementRepository.
type MemoryMovementRepository struct{ s *MemoryStore }

func (r *MemoryMovementRepository) Create(ctx context.Context, tx usecase.Transaction, movement *domain.BankMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.movements[movement.ID] = *movement
	return nil
}

func (r *MemoryMovementRepository) GetByID(ctx context.Context, id int64) (*domain.BankMovement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.movements[id]
	if !ok {
		return nil, domain.ErrMovementNotFound
	}
	return &m, nil
}

func (r *MemoryMovementRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id int64) (*domain.BankMovement, error) {
	return r.GetByID(ctx, id)
}

func (r *MemoryMovementRepository) MarkMatched(ctx context.Context, tx usecase.Transaction, id, reconciliationID int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.movements[id]
	if !ok {
		return domain.ErrMovementNotFound
	}
	rec, matchedAt := reconciliationID, at
	m.ReconciliationState = domain.ReconciliationMatched
	m.ReconciliationID = &rec
	m.MatchedAt = &matchedAt
	r.s.movements[id] = m
	return nil
}

// MemoryOutboxRepository implements usecase.OutboxRepository.
type MemoryOutboxRepository struct{ s *MemoryStore }

func (r *MemoryOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("outbox.Create"); err != nil {
		return err
	}
	r.s.outbox = append(r.s.outbox, *event)
	return nil
}

func (r *MemoryOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range r.s.outbox {
		if e.Published {
			continue
		}
		event := e
		out = append(out, &event)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.outbox {
		if r.s.outbox[i].ID == id {
			at := publishedAt
			r.s.outbox[i].Published = true
			r.s.outbox[i].PublishedAt = &at
			return nil
		}
	}
	return errors.New("outbox event not found")
}

// MemorySequenceRepository implements usecase.SequenceRepository.
type MemorySequenceRepository struct {
	mu       sync.Mutex
	counters domain.SequenceCounters

	AdvanceFunc func(ctx context.Context, d domain.SequenceDomain, count int64) (int64, error)
}

// NewMemorySequenceRepository starts every counter at its default.
func NewMemorySequenceRepository() *MemorySequenceRepository {
	return &MemorySequenceRepository{counters: domain.DefaultSequenceCounters()}
}

func (m *MemorySequenceRepository) Advance(ctx context.Context, d domain.SequenceDomain, count int64) (int64, error) {
	if m.AdvanceFunc != nil {
		return m.AdvanceFunc(ctx, d, count)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	first := m.counters[d] + 1
	m.counters[d] += count
	return first, nil
}

func (m *MemorySequenceRepository) Set(ctx context.Context, d domain.SequenceDomain, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := domain.CheckAdvance(d, m.counters[d], value); err != nil {
		return err
	}
	m.counters[d] = value
	return nil
}

func (m *MemorySequenceRepository) Current(ctx context.Context) (domain.SequenceCounters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyMap(m.counters), nil
}

// SequentialIDGenerator implements usecase.IDGenerator with predictable IDs.
type SequentialIDGenerator struct {
	mu      sync.Mutex
	counter int
}

func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return "id-" + strconv.Itoa(g.counter)
}
