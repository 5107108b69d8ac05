// Package epoch is the epoch lifecycle and message admission layer (spec
// §1): it classifies inbound consensus messages against the node's current
// epoch, verifies and forwards in-epoch traffic, helps peers that have
// diverged, and drives verified epoch transitions. Grounded throughout on
// epoch_manager.rs's EpochManager, translated to Go with tagged-interface
// marker methods standing in for the Rust enums (FromNetworkMsg, EpochMsg,
// ClassificationResult) and context.Context carried on every blocking call,
// per the teacher's internal/core/block.go ctx-plus-cancel idiom.
package epoch

import (
	"errors"
	"fmt"

	"github.com/empower1/epochcore/internal/consensustypes"
	"github.com/empower1/epochcore/internal/validatorset"
)

// ErrNoVerifier is returned if an EpochInfo is constructed without a
// verifier, which would violate C1's invariant that the verifier is exactly
// the committee authorized to sign messages tagged with epoch.
var ErrNoVerifier = errors.New("epoch info requires a non-nil verifier")

// EpochInfo is the current epoch number and the committee authorized to
// sign messages tagged with it (spec §3). Immutable within an epoch.
type EpochInfo struct {
	Epoch    uint64
	Verifier *validatorset.Verifier
}

// EpochState is C1: holds the current EpochInfo, mutated only via Install.
// Per spec §5, EpochState is single-owner (the Manager's cooperative task)
// and needs no internal locking.
type EpochState struct {
	info EpochInfo
}

// NewEpochState constructs an EpochState from its initial EpochInfo.
func NewEpochState(info EpochInfo) (*EpochState, error) {
	if info.Verifier == nil {
		return nil, ErrNoVerifier
	}
	return &EpochState{info: info}, nil
}

// Epoch returns the current epoch number.
func (s *EpochState) Epoch() uint64 { return s.info.Epoch }

// Verifier returns the current committee's signature-verification policy.
func (s *EpochState) Verifier() *validatorset.Verifier { return s.info.Verifier }

// Install atomically replaces the EpochInfo, enforcing C1's monotonicity
// invariant: the epoch may never move backward.
func (s *EpochState) Install(info EpochInfo) error {
	if info.Verifier == nil {
		return ErrNoVerifier
	}
	if info.Epoch < s.info.Epoch {
		return fmt.Errorf("%w: local epoch %d, attempted %d", ErrEpochRegression, s.info.Epoch, info.Epoch)
	}
	s.info = info
	return nil
}

// FromNetworkMsg is the closed set of inbound message variants a peer may
// send (spec §3). Implemented by the six *NetMsg types below.
type FromNetworkMsg interface {
	isFromNetworkMsg()
}

type ProposalNetMsg struct{ Msg consensustypes.ProposalMsg }
type VoteNetMsg struct{ Msg consensustypes.VoteMsg }
type SyncNetMsg struct{ Msg consensustypes.SyncInfo }
type RequestBlockNetMsg struct{ Msg consensustypes.BlockRequest }
type EpochChangeNetMsg struct{ Msg consensustypes.EpochChangeProof }
type RequestEpochNetMsg struct{ Msg consensustypes.EpochRetrievalRequest }

func (ProposalNetMsg) isFromNetworkMsg()     {}
func (VoteNetMsg) isFromNetworkMsg()         {}
func (SyncNetMsg) isFromNetworkMsg()         {}
func (RequestBlockNetMsg) isFromNetworkMsg() {}
func (EpochChangeNetMsg) isFromNetworkMsg()  {}
func (RequestEpochNetMsg) isFromNetworkMsg() {}

// EpochMsg is the closed set of verified, current-epoch messages handed off
// to the event processor (spec §3: "Current(EpochMsg) — forward to event
// processor").
type EpochMsg interface {
	isEpochMsg()
}

type ProposalEpochMsg struct{ Msg consensustypes.ProposalMsg }
type VoteEpochMsg struct{ Msg consensustypes.VoteMsg }
type SyncEpochMsg struct{ Msg consensustypes.SyncInfo }
type RequestBlockEpochMsg struct{ Msg consensustypes.BlockRequest }

func (ProposalEpochMsg) isEpochMsg()     {}
func (VoteEpochMsg) isEpochMsg()         {}
func (SyncEpochMsg) isEpochMsg()         {}
func (RequestBlockEpochMsg) isEpochMsg() {}

// ClassificationResult is the outcome of running a FromNetworkMsg through
// C2 and C4 (spec §3).
type ClassificationResult interface {
	isClassificationResult()
}

// Current means msg should be forwarded to the active event processor.
type Current struct{ Msg EpochMsg }

// NotCurrent means the message was handled or dropped at this layer; there
// is nothing further for the caller to do.
type NotCurrent struct{}

// NewStart means the epoch advanced; Processor is the freshly built
// replacement the outer driver must swap in.
type NewStart struct{ Processor *EventProcessor }

func (Current) isClassificationResult()    {}
func (NotCurrent) isClassificationResult() {}
func (NewStart) isClassificationResult()   {}
