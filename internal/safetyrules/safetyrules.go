// Package safetyrules is the local voting-safety module enforcing BFT
// voting invariants across rounds and epochs (spec §6: "SafetyRulesManager.
// client()"). The teacher has no equivalent subsystem; this is grounded
// directly on epoch_manager.rs's `safety_rules_manager.client()` /
// `safety_rules.start_new_epoch(highest_qc)` contract.
package safetyrules

import (
	"errors"
	"fmt"
	"sync"

	"github.com/empower1/epochcore/internal/consensustypes"
)

var (
	// ErrEpochTransitionFailed is fatal per spec §7: the node cannot
	// safely accept further consensus traffic with inconsistent safety
	// state.
	ErrEpochTransitionFailed = errors.New("safety rules failed to transition to new epoch")
)

// Manager constructs per-epoch safety-rules clients.
type Manager interface {
	Client() Client
}

// Client enforces BFT voting invariants within one epoch.
type Client interface {
	// StartNewEpoch transitions safety state to a new epoch, seeded from
	// the block store's highest quorum certificate (spec §4.6 step 3).
	StartNewEpoch(epoch uint64, highestQC consensustypes.QuorumCert) error
	// LastVotedRound returns the highest round this client has voted in
	// during the current epoch, the safety invariant that prevents
	// double-voting or voting backward.
	LastVotedRound() uint64
}

// InMemoryManager is a demo-grade Manager: it tracks last-voted-round per
// epoch in memory, with no persistence of its own (persistence of the
// safety state is the storage collaborator's job via RecoveryData.last_vote).
type InMemoryManager struct {
	mu      sync.Mutex
	current *inMemoryClient
}

// NewInMemoryManager constructs an InMemoryManager.
func NewInMemoryManager() *InMemoryManager {
	return &InMemoryManager{}
}

func (m *InMemoryManager) Client() Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		m.current = &inMemoryClient{}
	}
	return m.current
}

type inMemoryClient struct {
	mu        sync.Mutex
	epoch     uint64
	lastVoted uint64
}

func (c *inMemoryClient) StartNewEpoch(epoch uint64, highestQC consensustypes.QuorumCert) error {
	if epoch < highestQC.Epoch {
		return fmt.Errorf("%w: epoch %d precedes highest QC epoch %d", ErrEpochTransitionFailed, epoch, highestQC.Epoch)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch = epoch
	c.lastVoted = highestQC.Round
	return nil
}

func (c *inMemoryClient) LastVotedRound() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastVoted
}
