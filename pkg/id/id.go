// Package id produces identifiers for trades and futures positions.
package id

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Generator hands out unique ids. Implementations must be safe for
// concurrent use.
type Generator interface {
	NewID() string
}

// UUID generates random RFC 4122 identifiers.
type UUID struct{}

var _ Generator = UUID{}

// NewUUID returns a UUID generator.
func NewUUID() UUID { return UUID{} }

func (UUID) NewID() string { return uuid.NewString() }

// Sequence generates prefixed sequential identifiers. Deterministic, so
// tests can assert on them.
type Sequence struct {
	prefix string
	n      *atomic.Int64
}

var _ Generator = (*Sequence)(nil)

// NewSequence returns a generator yielding prefix-1, prefix-2, ...
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix, n: atomic.NewInt64(0)}
}

func (s *Sequence) NewID() string {
	return fmt.Sprintf("%s-%d", s.prefix, s.n.Inc())
}
