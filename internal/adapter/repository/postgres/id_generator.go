package postgres

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator generates the string keys of payment applications and
// outbox events. Ledger numbers (loans, operations, payments) come from
// the sequence counters instead.
type ULIDGenerator struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy io.Reader
}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return newULIDGenerator(time.Now, rand.Reader)
}

func newULIDGenerator(now func() time.Time, source io.Reader) *ULIDGenerator {
	return &ULIDGenerator{
		now:     now,
		entropy: ulid.Monotonic(source, 0),
	}
}

// Generate returns a new ULID. IDs generated within the same millisecond
// still sort in generation order.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}
