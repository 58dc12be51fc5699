package testutil

import (
	"fmt"
	"sync/atomic"
)

// SequentialTxIDs generates predictable transaction IDs: tx-000001,
// tx-000002, ... so stored rows can be compared against fixed expectations.
//
// Implements store.TxIDGenerator.
//
// Thread-safety: SequentialTxIDs is safe for concurrent use.
type SequentialTxIDs struct {
	prefix string
	n      atomic.Int64
}

// NewSequentialTxIDs creates a generator. An empty prefix uses "tx".
func NewSequentialTxIDs(prefix string) *SequentialTxIDs {
	if prefix == "" {
		prefix = "tx"
	}
	return &SequentialTxIDs{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialTxIDs) Generate() string {
	return fmt.Sprintf("%s-%06d", g.prefix, g.n.Add(1))
}
