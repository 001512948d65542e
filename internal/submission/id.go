package submission

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// IDLength is the number of characters in a generated submission id.
const IDLength = 8

// IDGenerator assigns ids to new submissions.
// Implemented by RandomIDGenerator (production) and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// RandomIDGenerator draws ids from a random UUIDv4.
//
// Eight hex characters give 32 bits of entropy, which is plenty for a
// human-moderated queue where the id is a reference, not a secret.
//
// Thread-safety: stateless and safe for concurrent use.
type RandomIDGenerator struct{}

// Generate returns the first IDLength hex characters of a new UUIDv4.
func (RandomIDGenerator) Generate() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:IDLength]
}

// FixedGenerator returns predetermined ids for testing.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
//
// Panics if all ids have been consumed so that a test creating more
// submissions than it declared fails loudly.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
