package validatorset

import (
	"crypto/ecdsa"
	"testing"

	"github.com/empower1/epochcore/internal/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeValidator(t *testing.T, power uint64) (ValidatorInfo, *ecdsa.PrivateKey) {
	t.Helper()
	priv, err := crypto.GenerateECDSAKeyPair()
	require.NoError(t, err)
	author, err := NewAuthor(&priv.PublicKey)
	require.NoError(t, err)
	return ValidatorInfo{Author: author, PublicKey: &priv.PublicKey, VotingPower: power}, priv
}

func TestVerifierQuorumVotingPower(t *testing.T) {
	v1, _ := makeValidator(t, 1)
	v2, _ := makeValidator(t, 1)
	v3, _ := makeValidator(t, 1)
	v4, _ := makeValidator(t, 1)

	verifier := NewVerifier([]ValidatorInfo{v1, v2, v3, v4})
	assert.Equal(t, uint64(4), verifier.TotalVotingPower())
	// floor(2*4/3) + 1 == 3
	assert.Equal(t, uint64(3), verifier.QuorumVotingPower())
}

func TestVerifierSignatureVerification(t *testing.T) {
	v1, priv1 := makeValidator(t, 1)
	v2, _ := makeValidator(t, 1)
	verifier := NewVerifier([]ValidatorInfo{v1, v2})

	msg := []byte("round 7 vote")
	sig, err := crypto.Sign(priv1, msg)
	require.NoError(t, err)

	assert.NoError(t, verifier.VerifySignature(v1.Author, msg, sig))
	assert.ErrorIs(t, verifier.VerifySignature(v2.Author, msg, sig), ErrInvalidSignature)
	assert.ErrorIs(t, verifier.VerifySignature(Author("nobody"), msg, sig), ErrUnknownAuthor)
}

func TestVerifierMultiSignatureQuorum(t *testing.T) {
	v1, priv1 := makeValidator(t, 1)
	v2, priv2 := makeValidator(t, 1)
	v3, _ := makeValidator(t, 1)
	verifier := NewVerifier([]ValidatorInfo{v1, v2, v3})

	msg := []byte("epoch 6 ledger info")
	sig1, err := crypto.Sign(priv1, msg)
	require.NoError(t, err)
	sig2, err := crypto.Sign(priv2, msg)
	require.NoError(t, err)

	// Only 2 of 3 voting power: below quorum (2 < 3).
	err = verifier.VerifyMultiSignatures(msg, map[Author][]byte{v1.Author: sig1, v2.Author: sig2})
	assert.ErrorIs(t, err, ErrInsufficientVotingPower)
}

func TestVerifierOrderedAuthorsIsSorted(t *testing.T) {
	v1, _ := makeValidator(t, 1)
	v2, _ := makeValidator(t, 1)
	v3, _ := makeValidator(t, 1)
	verifier := NewVerifier([]ValidatorInfo{v3, v1, v2})

	ordered := verifier.OrderedAuthors()
	require.Len(t, ordered, 3)
	for i := 1; i < len(ordered); i++ {
		assert.True(t, ordered[i-1] < ordered[i])
	}
}
