package usecase

import "time"

const (
	// DefaultTransactionTimeout caps every ledger transaction. Loan and
	// sequence rows stay locked for at most this long.
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is the replay window used when IDEMPOTENCY_TTL is unset.
	IdempotencyKeyTTL = 24 * time.Hour

	// ScheduleCacheTTL bounds how long a disbursed loan's schedule stays cached.
	ScheduleCacheTTL = time.Hour
	// scheduleCachePrefix namespaces cached amortization plans by loan number.
	scheduleCachePrefix = "schedule:"

	// accrualBatchPageSize is how many loan numbers the batch close reads per page.
	accrualBatchPageSize = 200

	// systemActor is recorded on events raised without an X-Actor header.
	systemActor = "system"
)
