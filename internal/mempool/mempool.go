// Package mempool is a proposalgen.PayloadSource backing live nodes: a
// capacity-bounded pool of pending transaction bytes, ordered oldest-first
// so proposals make steady progress instead of starving early submitters.
// Adapted from the teacher's internal/mempool (Mempool.AddTransaction /
// GetPendingTransactions / RemoveTransactions), generalized from its
// core.Transaction domain type to the opaque transaction bytes this
// core's Block.Payload carries (spec §1: transaction-manager internals are
// out of scope; only the PayloadSource contract matters here).
package mempool

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrTransactionExists   = errors.New("transaction already exists in mempool")
	ErrInvalidTransaction  = errors.New("empty transaction")
	ErrMempoolCapacityFull = errors.New("mempool capacity is full")
)

// Mempool holds pending transaction bytes in FIFO priority order.
type Mempool struct {
	mu       sync.RWMutex
	pending  map[string][]byte
	order    []string
	capacity int
}

// New constructs a Mempool bounded to capacity transactions.
func New(capacity int) *Mempool {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Mempool{pending: make(map[string][]byte), capacity: capacity}
}

// AddTransaction admits a raw transaction into the pool, keyed by its own
// bytes (transaction identity/dedup is the transaction-manager's concern;
// this pool treats byte-identical submissions as duplicates).
func (mp *Mempool) AddTransaction(tx []byte) error {
	if len(tx) == 0 {
		return ErrInvalidTransaction
	}
	key := string(tx)

	mp.mu.Lock()
	defer mp.mu.Unlock()
	if _, exists := mp.pending[key]; exists {
		return ErrTransactionExists
	}
	if len(mp.pending) >= mp.capacity {
		return fmt.Errorf("%w: %d/%d", ErrMempoolCapacityFull, len(mp.pending), mp.capacity)
	}
	mp.pending[key] = tx
	mp.order = append(mp.order, key)
	return nil
}

// NextPayload implements proposalgen.PayloadSource: it packs pending
// transactions, oldest first, into a gob-encoded batch no larger than
// maxBytes. Transactions that would overflow the budget are left pending
// for a future proposal rather than truncated mid-transaction.
func (mp *Mempool) NextPayload(maxBytes int) []byte {
	mp.mu.RLock()
	batch := make([][]byte, 0, len(mp.order))
	size := 0
	for _, key := range mp.order {
		tx, ok := mp.pending[key]
		if !ok {
			continue
		}
		if size+len(tx) > maxBytes {
			break
		}
		batch = append(batch, tx)
		size += len(tx)
	}
	mp.mu.RUnlock()

	if len(batch) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(batch); err != nil {
		return nil
	}
	return buf.Bytes()
}

// RemoveTransactions evicts the given transactions (e.g. confirmed ones
// once their containing block commits) and drops them from the FIFO order.
func (mp *Mempool) RemoveTransactions(txs [][]byte) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	for _, tx := range txs {
		delete(mp.pending, string(tx))
	}
	newOrder := make([]string, 0, len(mp.order))
	for _, key := range mp.order {
		if _, ok := mp.pending[key]; ok {
			newOrder = append(newOrder, key)
		}
	}
	mp.order = newOrder
}

// Size returns the current number of pending transactions.
func (mp *Mempool) Size() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return len(mp.pending)
}
