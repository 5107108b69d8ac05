package wire

import (
	"testing"

	"github.com/empower1/epochcore/internal/consensustypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsensusMsgEncodeDecodeRoundTrip(t *testing.T) {
	msg := &ConsensusMsg{EpochRetrieval: &consensustypes.EpochRetrievalRequest{StartEpoch: 4, EndEpoch: 5}}

	data, err := msg.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.NotNil(t, decoded.EpochRetrieval)
	assert.Equal(t, uint64(4), decoded.EpochRetrieval.StartEpoch)
	assert.Equal(t, uint64(5), decoded.EpochRetrieval.EndEpoch)
}

func TestConsensusMsgEncodeRejectsEmptyEnvelope(t *testing.T) {
	_, err := (&ConsensusMsg{}).Encode()
	assert.ErrorIs(t, err, ErrEmptyEnvelope)
}

func TestConsensusMsgEncodeRejectsMultipleBodies(t *testing.T) {
	msg := &ConsensusMsg{
		EpochRetrieval: &consensustypes.EpochRetrievalRequest{StartEpoch: 1, EndEpoch: 2},
		BlockRequest:   &consensustypes.BlockRequest{},
	}
	_, err := msg.Encode()
	assert.ErrorIs(t, err, ErrMultipleBodies)
}
