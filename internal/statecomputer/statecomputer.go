// Package statecomputer is the block-execution / state-machine-replication
// collaborator (spec §6: StateComputer.sync_to, StateComputer.get_epoch_proof).
// Execution internals are explicitly out of scope (spec §1); this package
// holds only the interface and a demo in-memory implementation, grounded on
// the teacher's internal/state/contract_state.go (sync.RWMutex-guarded
// in-memory ledger, sentinel errors).
package statecomputer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/empower1/epochcore/internal/consensustypes"
)

var (
	ErrNoCommittedLedger     = errors.New("no ledger info has been committed yet")
	ErrEpochProofUnavailable = errors.New("no epoch-change proof available for the requested span")
)

// StateComputer drives state replay and answers epoch-proof queries.
type StateComputer interface {
	// SyncTo drives state replay up to target; idempotent.
	SyncTo(ctx context.Context, target consensustypes.LedgerInfoWithSignatures) error
	// GetEpochProof returns a verifiable chain of epoch-boundary ledger
	// infos over the half-open span [start, end).
	GetEpochProof(ctx context.Context, start, end uint64) (*consensustypes.EpochChangeProof, error)
}

// InMemory is a demo StateComputer holding committed ledger infos by epoch.
type InMemory struct {
	mu      sync.RWMutex
	synced  consensustypes.LedgerInfoWithSignatures
	history map[uint64]consensustypes.LedgerInfoWithSignatures
}

// NewInMemory constructs an InMemory state computer seeded with the genesis
// ledger info.
func NewInMemory(genesis consensustypes.LedgerInfoWithSignatures) *InMemory {
	return &InMemory{
		synced:  genesis,
		history: map[uint64]consensustypes.LedgerInfoWithSignatures{genesis.Info.Epoch: genesis},
	}
}

// Commit records a newly committed ledger info, making it available to
// future GetEpochProof calls. Test and demo helper; not part of the
// collaborator contract itself.
func (s *InMemory) Commit(li consensustypes.LedgerInfoWithSignatures) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[li.Info.Epoch] = li
	if li.Info.Epoch >= s.synced.Info.Epoch {
		s.synced = li
	}
}

func (s *InMemory) SyncTo(ctx context.Context, target consensustypes.LedgerInfoWithSignatures) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if target.Info.Epoch < s.synced.Info.Epoch {
		return nil
	}
	s.synced = target
	s.history[target.Info.Epoch] = target
	return nil
}

func (s *InMemory) GetEpochProof(ctx context.Context, start, end uint64) (*consensustypes.EpochChangeProof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var infos []consensustypes.LedgerInfoWithSignatures
	for e := start; e < end; e++ {
		li, ok := s.history[e]
		if !ok {
			return nil, fmt.Errorf("%w: missing epoch %d in span [%d,%d)", ErrEpochProofUnavailable, e, start, end)
		}
		infos = append(infos, li)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("%w: empty span [%d,%d)", ErrEpochProofUnavailable, start, end)
	}
	return &consensustypes.EpochChangeProof{LedgerInfos: infos}, nil
}
