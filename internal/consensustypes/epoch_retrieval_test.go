package consensustypes

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/empower1/epochcore/internal/crypto"
	"github.com/empower1/epochcore/internal/validatorset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEpochRetrievalRequestGobRoundTrip(t *testing.T) {
	req := EpochRetrievalRequest{StartEpoch: 4, EndEpoch: 5}

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(req))

	var decoded EpochRetrievalRequest
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	assert.Equal(t, req, decoded)
}

func TestEpochChangeProofVerifyChain(t *testing.T) {
	priv1, err := crypto.GenerateECDSAKeyPair()
	require.NoError(t, err)
	author1, err := validatorset.NewAuthor(&priv1.PublicKey)
	require.NoError(t, err)
	v1 := validatorset.ValidatorInfo{Author: author1, PublicKey: &priv1.PublicKey, VotingPower: 1}
	verifier5 := validatorset.NewVerifier([]validatorset.ValidatorInfo{v1})

	priv2, err := crypto.GenerateECDSAKeyPair()
	require.NoError(t, err)
	author2, err := validatorset.NewAuthor(&priv2.PublicKey)
	require.NoError(t, err)
	v2 := validatorset.ValidatorInfo{Author: author2, PublicKey: &priv2.PublicKey, VotingPower: 1}

	info := LedgerInfo{Epoch: 5, Round: 10, NextValidators: []validatorset.ValidatorInfo{v2}}
	sig, err := crypto.Sign(priv1, info.SigningBytes())
	require.NoError(t, err)

	proof := &EpochChangeProof{LedgerInfos: []LedgerInfoWithSignatures{
		{Info: info, Signatures: map[validatorset.Author][]byte{author1: sig}},
	}}

	last, nextVerifier, err := proof.Verify(5, verifier5)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), last.Info.Epoch)
	assert.True(t, nextVerifier.Contains(author2))
	assert.False(t, nextVerifier.Contains(author1))

	target, err := proof.TargetEpoch()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), target)
}

func TestEpochChangeProofRejectsWrongStartEpoch(t *testing.T) {
	verifier := validatorset.NewVerifier(nil)
	proof := &EpochChangeProof{LedgerInfos: []LedgerInfoWithSignatures{
		{Info: LedgerInfo{Epoch: 9}},
	}}
	_, _, err := proof.Verify(5, verifier)
	assert.ErrorIs(t, err, ErrProofChainBroken)
}
