// Package validatorset holds the committee of validators authorized to
// sign consensus messages for an epoch, and the signature-verification
// policy over that committee.
package validatorset

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/empower1/epochcore/internal/crypto"
)

var (
	ErrInvalidAuthor = errors.New("invalid author")
)

// Author identifies a validator by the hex-encoded bytes of its uncompressed
// P-256 public key. It is stable across epochs; committee membership is not.
type Author string

// NewAuthor derives an Author from a raw uncompressed P-256 public key.
func NewAuthor(pubKey *ecdsa.PublicKey) (Author, error) {
	raw, err := crypto.SerializePublicKeyToBytes(pubKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAuthor, err)
	}
	return Author(crypto.PublicKeyBytesToAddress(raw)), nil
}

// DID renders the author as a did:key identifier, reusing the teacher's
// multicodec/multibase DID scheme over the same uncompressed public key.
func (a Author) DID(pubKey *ecdsa.PublicKey) (string, error) {
	return crypto.GenerateDIDKeyFromECDSAPublicKey(pubKey)
}

func (a Author) String() string {
	return string(a)
}
