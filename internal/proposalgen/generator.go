// Package proposalgen builds signed proposal blocks when this node is the
// round's elected proposer (spec §4.6 step 4). Grounded on the teacher's
// internal/consensus/proposer.go ProposerService.CreateProposalBlock:
// gather payload, stamp monotonic timestamp, sign, hash.
package proposalgen

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/empower1/epochcore/internal/blockstore"
	"github.com/empower1/epochcore/internal/consensustypes"
	"github.com/empower1/epochcore/internal/crypto"
	"github.com/empower1/epochcore/internal/validatorset"
)

var (
	ErrNotConfigured      = errors.New("proposal generator not configured")
	ErrBlockSigningFailed = errors.New("failed to sign proposal block")
)

// PayloadSource supplies the bytes a new proposal's block should carry,
// truncated to at most maxBytes. Mirrors the teacher's MempoolRetriever
// seam (dependency-inverted so tests can stub it).
type PayloadSource interface {
	NextPayload(maxBytes int) []byte
}

// TimeSource supplies a monotonically advancing timestamp in microseconds.
type TimeSource interface {
	NowUsec() int64
}

// Generator builds ProposalMsg values for rounds where self is the elected
// proposer.
type Generator struct {
	self         validatorset.Author
	privKey      *ecdsa.PrivateKey
	blockStore   *blockstore.BlockStore
	payload      PayloadSource
	clock        TimeSource
	maxBlockSize int
}

// New constructs a Generator. maxBlockSize bounds the payload bytes pulled
// from the payload source (spec's max_block_size option).
func New(self validatorset.Author, privKey *ecdsa.PrivateKey, bs *blockstore.BlockStore, payload PayloadSource, clock TimeSource, maxBlockSize int) (*Generator, error) {
	if privKey == nil || bs == nil || payload == nil || clock == nil {
		return nil, fmt.Errorf("%w: private key, block store, payload source, and clock are all required", ErrNotConfigured)
	}
	return &Generator{self: self, privKey: privKey, blockStore: bs, payload: payload, clock: clock, maxBlockSize: maxBlockSize}, nil
}

// Generate builds and signs a new proposal extending the current highest
// quorum certificate for the given epoch and round.
func (g *Generator) Generate(epoch, round uint64) (*consensustypes.ProposalMsg, error) {
	qc := g.blockStore.HighestQC()

	block := consensustypes.Block{
		Round:     round,
		Epoch:     epoch,
		ParentID:  qc.BlockID,
		Author:    g.self,
		Timestamp: g.clock.NowUsec(),
		Payload:   g.payload.NextPayload(g.maxBlockSize),
	}
	block.ID = consensustypes.HashBlockID(append(append([]byte{}, block.ParentID[:]...), block.Payload...))

	proposal := &consensustypes.ProposalMsg{Epoch: epoch, Author: g.self, Block: block}
	sig, err := crypto.Sign(g.privKey, proposal.SigningBytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlockSigningFailed, err)
	}
	proposal.Signature = sig
	return proposal, nil
}
