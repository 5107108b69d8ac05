// Package storage is the persistent-storage collaborator (spec §6:
// "PersistentStorage.start() -> RecoveryData"). Persistent block and vote
// storage internals are out of scope (spec §1); this package holds the
// interface, the RecoveryData shape, and a BoltDB-backed implementation.
package storage

import (
	"github.com/empower1/epochcore/internal/consensustypes"
	"github.com/empower1/epochcore/internal/validatorset"
)

// RecoveryData is the authoritative source of the new epoch number and
// validator set on every epoch transition (spec §3, §4.5 step 2).
type RecoveryData struct {
	Epoch      uint64
	Validators []validatorset.ValidatorInfo
	RootBlock  consensustypes.Block
	LastVote   *consensustypes.VoteMsg // nil if no vote was cast this epoch
}

// PersistentStorage yields recovery data on demand. Implementations must be
// safe for concurrent use (spec §5: shared, multiple owners).
type PersistentStorage interface {
	Start() (RecoveryData, error)
}
