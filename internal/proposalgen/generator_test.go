package proposalgen

import (
	"testing"

	"github.com/empower1/epochcore/internal/blockstore"
	"github.com/empower1/epochcore/internal/consensustypes"
	"github.com/empower1/epochcore/internal/crypto"
	"github.com/empower1/epochcore/internal/validatorset"
	"github.com/stretchr/testify/require"
)

type stubPayload struct{ data []byte }

func (s stubPayload) NextPayload(maxBytes int) []byte {
	if len(s.data) > maxBytes {
		return s.data[:maxBytes]
	}
	return s.data
}

type stubClock struct{ usec int64 }

func (s stubClock) NowUsec() int64 { return s.usec }

func TestGeneratorProducesSignedProposal(t *testing.T) {
	priv, err := crypto.GenerateECDSAKeyPair()
	require.NoError(t, err)
	author, err := validatorset.NewAuthor(&priv.PublicKey)
	require.NoError(t, err)

	root := consensustypes.Block{ID: consensustypes.HashBlockID([]byte("root"))}
	bs := blockstore.New(root, 10)

	gen, err := New(author, priv, bs, stubPayload{data: []byte("hello world")}, stubClock{usec: 42}, 5)
	require.NoError(t, err)

	proposal, err := gen.Generate(3, 7)
	require.NoError(t, err)
	require.Equal(t, uint64(3), proposal.Epoch)
	require.Equal(t, uint64(7), proposal.Block.Round)
	require.Equal(t, "hello", string(proposal.Block.Payload))
	require.Equal(t, root.ID, proposal.Block.ParentID)

	require.True(t, crypto.Verify(&priv.PublicKey, proposal.SigningBytes(), proposal.Signature))
}

func TestGeneratorRejectsMissingDependencies(t *testing.T) {
	_, err := New("author", nil, nil, nil, nil, 10)
	require.ErrorIs(t, err, ErrNotConfigured)
}
