// Package wire is the gob envelope consensus messages travel in between
// peers, grounded in the teacher's p2p.Message/EncodePayload/DecodePayload
// pattern (internal/p2p/message.go) generalized from a single flat payload
// to one of seven tagged bodies.
package wire

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/empower1/epochcore/internal/consensustypes"
)

var (
	ErrEmptyEnvelope         = errors.New("consensus message envelope carries no body")
	ErrMultipleBodies        = errors.New("consensus message envelope carries more than one body")
	ErrEnvelopeSerialization   = errors.New("failed to gob-encode consensus message envelope")
	ErrEnvelopeDeserialization = errors.New("failed to gob-decode consensus message envelope")
)

// ConsensusMsg is the one-of envelope for the seven wire message variants
// named in spec §6. Exactly one field must be set.
type ConsensusMsg struct {
	Proposal       *consensustypes.ProposalMsg
	Vote           *consensustypes.VoteMsg
	Sync           *consensustypes.SyncInfo
	BlockRequest   *consensustypes.BlockRequest
	BlockResponse  *consensustypes.BlockResponse
	EpochChange    *consensustypes.EpochChangeProof
	EpochRetrieval *consensustypes.EpochRetrievalRequest
}

func init() {
	gob.Register(&consensustypes.ProposalMsg{})
	gob.Register(&consensustypes.VoteMsg{})
	gob.Register(&consensustypes.SyncInfo{})
	gob.Register(&consensustypes.BlockRequest{})
	gob.Register(&consensustypes.BlockResponse{})
	gob.Register(&consensustypes.EpochChangeProof{})
	gob.Register(&consensustypes.EpochRetrievalRequest{})
}

// bodyCount returns how many of the envelope's fields are populated.
func (m *ConsensusMsg) bodyCount() int {
	n := 0
	for _, set := range []bool{
		m.Proposal != nil, m.Vote != nil, m.Sync != nil, m.BlockRequest != nil,
		m.BlockResponse != nil, m.EpochChange != nil, m.EpochRetrieval != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// Encode serializes the envelope to bytes via gob.
func (m *ConsensusMsg) Encode() ([]byte, error) {
	switch n := m.bodyCount(); {
	case n == 0:
		return nil, ErrEmptyEnvelope
	case n > 1:
		return nil, ErrMultipleBodies
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvelopeSerialization, err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes bytes produced by Encode back into a ConsensusMsg.
func Decode(data []byte) (*ConsensusMsg, error) {
	var m ConsensusMsg
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvelopeDeserialization, err)
	}
	if m.bodyCount() != 1 {
		return nil, fmt.Errorf("%w: decoded envelope carries %d bodies", ErrEnvelopeDeserialization, m.bodyCount())
	}
	return &m, nil
}
