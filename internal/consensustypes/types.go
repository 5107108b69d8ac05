// Package consensustypes defines the wire-level bodies carried by consensus
// messages: proposals, votes, sync info, epoch-change proofs, and the
// epoch-retrieval request/response pair.
package consensustypes

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/empower1/epochcore/internal/validatorset"
	"lukechampine.com/blake3"
)

var (
	ErrEmptyProof       = errors.New("epoch change proof has no ledger infos")
	ErrProofChainBroken = errors.New("epoch change proof does not chain from the trusted epoch")
	ErrProofNotVerified = errors.New("epoch change proof failed signature verification")
)

// BlockID is a content hash identifying a block.
type BlockID [32]byte

func (b BlockID) String() string {
	return fmt.Sprintf("%x", b[:8])
}

// HashBlockID derives a BlockID from arbitrary block bytes using blake3.
func HashBlockID(data []byte) BlockID {
	return BlockID(blake3.Sum256(data))
}

// Block is the minimal proposed-block shape this layer needs to reason
// about: enough to identify it, chain it, and hash it. Execution and
// payload semantics live in the state-computer collaborator.
type Block struct {
	ID        BlockID
	Round     uint64
	Epoch     uint64
	ParentID  BlockID
	Author    validatorset.Author
	Timestamp int64
	Payload   []byte
}

// QuorumCert is an aggregated signature proving a quorum of an epoch's
// validators voted for a block.
type QuorumCert struct {
	BlockID    BlockID
	Round      uint64
	Epoch      uint64
	Signatures map[validatorset.Author][]byte
}

// ProposalMsg carries a proposed block signed by its author.
type ProposalMsg struct {
	Epoch     uint64
	Author    validatorset.Author
	Block     Block
	Signature []byte
}

// SigningBytes returns the bytes a proposal's signature is computed over.
func (p *ProposalMsg) SigningBytes() []byte {
	buf := make([]byte, 0, 48)
	buf = binary.BigEndian.AppendUint64(buf, p.Epoch)
	buf = binary.BigEndian.AppendUint64(buf, p.Block.Round)
	buf = append(buf, p.Block.ID[:]...)
	return buf
}

// VoteMsg carries one validator's vote for a round, signed individually;
// aggregation into a QuorumCert happens in the event processor (out of
// scope here).
type VoteMsg struct {
	Epoch     uint64
	Author    validatorset.Author
	BlockID   BlockID
	Round     uint64
	Signature []byte
}

// SigningBytes returns the bytes a vote's signature is computed over.
func (v *VoteMsg) SigningBytes() []byte {
	buf := make([]byte, 0, 48)
	buf = binary.BigEndian.AppendUint64(buf, v.Epoch)
	buf = binary.BigEndian.AppendUint64(buf, v.Round)
	buf = append(buf, v.BlockID[:]...)
	return buf
}

// SyncInfo bundles a peer's highest-known quorum certificates, used to nudge
// lagging peers forward. Verification is deferred to point of use (spec §4.2).
type SyncInfo struct {
	Epoch         uint64
	HighestQC     QuorumCert
	HighestCommit QuorumCert
}

// LedgerInfo is the committed state digest at an epoch boundary.
type LedgerInfo struct {
	Epoch          uint64
	Round          uint64
	RootBlockID    BlockID
	NextValidators []validatorset.ValidatorInfo // non-nil only at an epoch boundary
	TimestampUsec  int64
}

// LedgerInfoWithSignatures is a LedgerInfo endorsed by a quorum of the
// epoch it closes.
type LedgerInfoWithSignatures struct {
	Info       LedgerInfo
	Signatures map[validatorset.Author][]byte
}

// SigningBytes returns the bytes a ledger info's signatures are computed over.
func (l *LedgerInfo) SigningBytes() []byte {
	buf := make([]byte, 0, 64)
	buf = binary.BigEndian.AppendUint64(buf, l.Epoch)
	buf = binary.BigEndian.AppendUint64(buf, l.Round)
	buf = append(buf, l.RootBlockID[:]...)
	return buf
}

// EpochChangeProof is a verifiable chain of signed ledger infos establishing
// the transition from a trusted epoch to a later one.
type EpochChangeProof struct {
	LedgerInfos []LedgerInfoWithSignatures
}

// TargetEpoch returns the epoch of the proof's final (highest) ledger info:
// the last epoch the proof closes, whose NextValidators hand off to the
// epoch after it.
func (p *EpochChangeProof) TargetEpoch() (uint64, error) {
	if len(p.LedgerInfos) == 0 {
		return 0, ErrEmptyProof
	}
	return p.LedgerInfos[len(p.LedgerInfos)-1].Info.Epoch, nil
}

// Verify checks that the proof forms an unbroken chain of validator-set
// handoffs starting from trustedVerifier (the committee of the epoch the
// caller currently trusts), and returns the ledger info and validator set
// the chain ends at. Each link's signatures must satisfy quorum under the
// verifier installed by the previous link.
func (p *EpochChangeProof) Verify(trustedEpoch uint64, trustedVerifier *validatorset.Verifier) (*LedgerInfoWithSignatures, *validatorset.Verifier, error) {
	if len(p.LedgerInfos) == 0 {
		return nil, nil, ErrEmptyProof
	}
	verifier := trustedVerifier
	expectEpoch := trustedEpoch
	var last *LedgerInfoWithSignatures
	for i := range p.LedgerInfos {
		link := &p.LedgerInfos[i]
		if link.Info.Epoch != expectEpoch {
			return nil, nil, fmt.Errorf("%w: expected epoch %d, got %d at link %d", ErrProofChainBroken, expectEpoch, link.Info.Epoch, i)
		}
		if err := verifier.VerifyMultiSignatures(link.Info.SigningBytes(), link.Signatures); err != nil {
			return nil, nil, fmt.Errorf("%w: link %d: %v", ErrProofNotVerified, i, err)
		}
		if link.Info.NextValidators != nil {
			verifier = validatorset.NewVerifier(link.Info.NextValidators)
		}
		expectEpoch = link.Info.Epoch + 1
		last = link
	}
	return last, verifier, nil
}

// EpochRetrievalRequest asks a peer for the chain of epoch-change proofs
// covering the half-open span [StartEpoch, EndEpoch). This is the one
// wire-level contract this layer imposes: it must round-trip losslessly.
type EpochRetrievalRequest struct {
	StartEpoch uint64
	EndEpoch   uint64
}

// BlockRequest asks a peer for a block by id, epoch-agnostic at this layer.
type BlockRequest struct {
	BlockID BlockID
}

// BlockResponse answers a BlockRequest.
type BlockResponse struct {
	Block Block
}
