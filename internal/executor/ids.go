package executor

import (
	"strconv"
	"sync/atomic"
)

// IDGenerator issues order and execution identifiers from two independent counters.
// Both start at 1 and are never reset for the lifetime of the generator.
type IDGenerator struct {
	orderSeq atomic.Uint64
	execSeq  atomic.Uint64
}

// NewIDGenerator returns a generator whose first identifiers are "1".
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// NextOrderID returns the next order identifier.
func (g *IDGenerator) NextOrderID() string {
	return strconv.FormatUint(g.orderSeq.Add(1), 10)
}

// NextExecID returns the next execution identifier.
func (g *IDGenerator) NextExecID() string {
	return strconv.FormatUint(g.execSeq.Add(1), 10)
}
