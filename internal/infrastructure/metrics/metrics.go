package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Loan metrics
	LoansCreated    prometheus.Counter
	LoansDisbursed  prometheus.Counter
	LoanTransitions *prometheus.CounterVec

	// Ledger metrics
	EntriesPosted *prometheus.CounterVec

	// Accrual metrics
	AccrualsClosed       *prometheus.CounterVec
	AccrualBatchDuration prometheus.Histogram
	AccruedInterest      prometheus.Counter

	// Payment metrics
	PaymentsRegistered prometheus.Counter
	PaymentsApplied    prometheus.Counter
	PaymentAmount      prometheus.Histogram
	PaymentResidual    prometheus.Counter
	PaymentDuration    prometheus.Histogram

	// Reconciliation metrics
	Reconciliations *prometheus.CounterVec
	CandidatePool   prometheus.Histogram

	// Sequence metrics
	SequenceAllocations *prometheus.CounterVec
	SequenceTimeouts    *prometheus.CounterVec

	// Outbox metrics
	EventsPublished *prometheus.CounterVec
	PublishErrors   prometheus.Counter

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Loan metrics
		LoansCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loanledger_loans_created_total",
			Help: "Total number of loans created",
		}),
		LoansDisbursed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loanledger_loans_disbursed_total",
			Help: "Total number of loans disbursed",
		}),
		LoanTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_loan_transitions_total",
				Help: "Loan lifecycle transitions by target state",
			},
			[]string{"state"},
		),

		// Ledger metrics
		EntriesPosted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_entries_posted_total",
				Help: "Ledger entries posted by concept",
			},
			[]string{"concept"},
		),

		// Accrual metrics
		AccrualsClosed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_accruals_total",
				Help: "Accrual period closures by outcome",
			},
			[]string{"outcome"},
		),
		AccrualBatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "loanledger_accrual_batch_duration_seconds",
			Help:    "Duration of the batch accrual close",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		AccruedInterest: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loanledger_accrued_interest_total",
			Help: "Interest posted by accrual closures",
		}),

		// Payment metrics
		PaymentsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loanledger_payments_registered_total",
			Help: "Total number of payments registered",
		}),
		PaymentsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loanledger_payments_applied_total",
			Help: "Total number of payments applied",
		}),
		PaymentAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "loanledger_payment_applied_amount",
			Help:    "Amounts allocated per payment",
			Buckets: []float64{1000, 10000, 50000, 100000, 500000, 1000000, 5000000},
		}),
		PaymentResidual: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loanledger_payment_residual_total",
			Help: "Payment amounts left unallocated",
		}),
		PaymentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "loanledger_payment_apply_duration_seconds",
			Help:    "Duration of payment application",
			Buckets: prometheus.DefBuckets,
		}),

		// Reconciliation metrics
		Reconciliations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_reconciliations_total",
				Help: "Reconciliation attempts by strategy and result",
			},
			[]string{"strategy", "result"},
		),
		CandidatePool: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "loanledger_reconciliation_pool_size",
			Help:    "Number of candidate payments per reconciliation",
			Buckets: []float64{1, 5, 10, 20, 40, 100, 500, 1000},
		}),

		// Sequence metrics
		SequenceAllocations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_sequence_allocations_total",
				Help: "Identifiers allocated per sequence domain",
			},
			[]string{"domain"},
		),
		SequenceTimeouts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_sequence_timeouts_total",
				Help: "Sequence lock waits that timed out",
			},
			[]string{"domain"},
		),

		// Outbox metrics
		EventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_events_published_total",
				Help: "Outbox events published by type",
			},
			[]string{"event_type"},
		),
		PublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loanledger_event_publish_errors_total",
			Help: "Outbox events that failed to publish",
		}),

		// Cache metrics
		CacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_cache_lookups_total",
				Help: "Schedule cache lookups by result",
			},
			[]string{"result"},
		),

		// Rate limiting metrics
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),
	}
}
