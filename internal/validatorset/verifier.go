package validatorset

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sort"

	"github.com/empower1/epochcore/internal/crypto"
	"go.uber.org/multierr"
)

var (
	// ErrUnknownAuthor is returned when a signature is attributed to an
	// author outside the verifier's committee.
	ErrUnknownAuthor = errors.New("author is not a member of this epoch's validator set")
	// ErrInvalidSignature is returned when a signature fails cryptographic
	// verification against the author's registered public key.
	ErrInvalidSignature = errors.New("signature verification failed")
	// ErrInsufficientVotingPower is returned when aggregated signatures do
	// not reach quorum.
	ErrInsufficientVotingPower = errors.New("insufficient voting power for quorum")
)

// ValidatorInfo is one committee member's identity and voting weight.
type ValidatorInfo struct {
	Author      Author
	PublicKey   *ecdsa.PublicKey
	VotingPower uint64
}

// Verifier is the signature-verification policy for one epoch's committee:
// the set of authorized public keys and the voting-power threshold required
// for quorum. It is immutable once constructed (spec: "verifier is exactly
// the committee authorized to sign messages tagged with epoch").
type Verifier struct {
	validators map[Author]ValidatorInfo
	total      uint64
	quorum     uint64
}

// NewVerifier builds a Verifier from a committee, computing Byzantine
// quorum voting power as floor(2*total/3) + 1.
func NewVerifier(validators []ValidatorInfo) *Verifier {
	m := make(map[Author]ValidatorInfo, len(validators))
	var total uint64
	for _, v := range validators {
		m[v.Author] = v
		total += v.VotingPower
	}
	return &Verifier{
		validators: m,
		total:      total,
		quorum:     total*2/3 + 1,
	}
}

// Contains reports whether author is a member of this committee.
func (v *Verifier) Contains(author Author) bool {
	_, ok := v.validators[author]
	return ok
}

// TotalVotingPower returns the committee's aggregate voting power.
func (v *Verifier) TotalVotingPower() uint64 { return v.total }

// QuorumVotingPower returns the voting power required to reach Byzantine
// quorum over this committee.
func (v *Verifier) QuorumVotingPower() uint64 { return v.quorum }

// VerifySignature checks a single author's signature over msg.
func (v *Verifier) VerifySignature(author Author, msg, sig []byte) error {
	info, ok := v.validators[author]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAuthor, author)
	}
	if !crypto.Verify(info.PublicKey, msg, sig) {
		return fmt.Errorf("%w: author %s", ErrInvalidSignature, author)
	}
	return nil
}

// VerifyMultiSignatures checks a set of per-author signatures over msg and
// requires their combined voting power to reach quorum. Every bad signature
// is reported, not just the first, so a caller can log the full set of
// misbehaving or unrecognized signers in one pass.
func (v *Verifier) VerifyMultiSignatures(msg []byte, sigs map[Author][]byte) error {
	var (
		power uint64
		errs  error
	)
	for author, sig := range sigs {
		if err := v.VerifySignature(author, msg, sig); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		power += v.validators[author].VotingPower
	}
	if errs != nil {
		return errs
	}
	if power < v.quorum {
		return fmt.Errorf("%w: got %d, need %d", ErrInsufficientVotingPower, power, v.quorum)
	}
	return nil
}

// OrderedAuthors returns the committee's authors in canonical ascending
// order, the iteration order proposer-election strategies build their
// rotation from (spec §4.6 step 6).
func (v *Verifier) OrderedAuthors() []Author {
	authors := make([]Author, 0, len(v.validators))
	for a := range v.validators {
		authors = append(authors, a)
	}
	sort.Slice(authors, func(i, j int) bool { return authors[i] < authors[j] })
	return authors
}

// VotingPower returns the registered voting power for author, or 0 if the
// author is not a committee member.
func (v *Verifier) VotingPower(author Author) uint64 {
	return v.validators[author].VotingPower
}
