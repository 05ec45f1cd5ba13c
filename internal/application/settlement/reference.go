package settlement

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/coopay/backend/internal/domain/settlement"
	"github.com/oklog/ulid/v2"
)

// ReferenceGenerator mints gateway references
type ReferenceGenerator interface {
	New(kind settlement.Kind) string
}

// ULIDReferences produces sortable references like CTB-01J9Z3...
type ULIDReferences struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewULIDReferences creates a ULID-backed generator
func NewULIDReferences() *ULIDReferences {
	return &ULIDReferences{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New returns a fresh reference for kind
func (g *ULIDReferences) New(kind settlement.Kind) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	return kind.ReferencePrefix() + "-" + id.String()
}
