// Package proposerelection maps (epoch, round) to the validator(s)
// permitted to propose in that round, per spec §4.6 step 6. Grounded in
// epoch_manager.rs's create_proposer_election (RotatingProposer,
// MultiProposer, FixedProposer/choose_leader) and the teacher's
// internal/consensus/proposer.go address-sorted selection idiom.
package proposerelection

import (
	"strings"

	"github.com/empower1/epochcore/internal/validatorset"
)

// ProposerElection is a closed set of strategies (spec §9: "tagged variants
// where the set is closed").
type ProposerElection interface {
	// GetValidProposer returns the author permitted to propose at round.
	GetValidProposer(round uint64) validatorset.Author
	// IsValidProposer reports whether author may propose at round.
	IsValidProposer(author validatorset.Author, round uint64) bool
}

// RotatingProposer cycles through proposers in order, each holding the
// proposer role for contiguousRounds consecutive rounds before rotating.
type RotatingProposer struct {
	proposers        []validatorset.Author
	contiguousRounds uint64
}

// NewRotatingProposer builds a RotatingProposer over proposers (already in
// the verifier's canonical order), each serving contiguousRounds rounds.
func NewRotatingProposer(proposers []validatorset.Author, contiguousRounds uint64) *RotatingProposer {
	if contiguousRounds == 0 {
		contiguousRounds = 1
	}
	return &RotatingProposer{proposers: proposers, contiguousRounds: contiguousRounds}
}

func (r *RotatingProposer) GetValidProposer(round uint64) validatorset.Author {
	if len(r.proposers) == 0 {
		return ""
	}
	idx := (round / r.contiguousRounds) % uint64(len(r.proposers))
	return r.proposers[idx]
}

func (r *RotatingProposer) IsValidProposer(author validatorset.Author, round uint64) bool {
	return r.GetValidProposer(round) == author
}

// multiProposerWindow is the sliding window size spec §4.6 step 6 fixes for
// MultiProposer ("MultiProposer(epoch, proposers, window=2)"): exactly 2
// proposers are valid per round, not a tunable.
const multiProposerWindow = 2

// MultiProposer allows a window of multiProposerWindow proposers (in
// rotation order) to all be valid for a given round, reducing latency at
// the cost of permitting concurrent proposals. epoch offsets the
// round-to-index mapping so the same round number doesn't always pick the
// same proposers across successive epochs.
type MultiProposer struct {
	epoch     uint64
	proposers []validatorset.Author
}

// NewMultiProposer builds a MultiProposer over proposers (already in the
// verifier's canonical order), seeded with the epoch it serves, per the
// spec's documented construction signature.
func NewMultiProposer(epoch uint64, proposers []validatorset.Author) *MultiProposer {
	return &MultiProposer{epoch: epoch, proposers: proposers}
}

func (m *MultiProposer) GetValidProposer(round uint64) validatorset.Author {
	if len(m.proposers) == 0 {
		return ""
	}
	idx := (m.epoch + round) % uint64(len(m.proposers))
	return m.proposers[idx]
}

func (m *MultiProposer) IsValidProposer(author validatorset.Author, round uint64) bool {
	n := uint64(len(m.proposers))
	if n == 0 {
		return false
	}
	base := (m.epoch + round) % n
	for i := uint64(0); i < multiProposerWindow; i++ {
		if m.proposers[(base+i)%n] == author {
			return true
		}
	}
	return false
}

// FixedProposer always elects the same single leader, deterministically
// chosen by ChooseLeader's smallest-address tie-break (spec §4.6 step 6,
// §8 scenario S6).
type FixedProposer struct {
	leader validatorset.Author
}

// NewFixedProposer wraps ChooseLeader's deterministic pick as a one-element
// rotating proposer.
func NewFixedProposer(proposers []validatorset.Author) *FixedProposer {
	return &FixedProposer{leader: ChooseLeader(proposers)}
}

func (f *FixedProposer) GetValidProposer(round uint64) validatorset.Author {
	return f.leader
}

func (f *FixedProposer) IsValidProposer(author validatorset.Author, round uint64) bool {
	return f.leader == author
}

// ChooseLeader deterministically picks the address that sorts smallest
// among proposers. Two independent calls over the same set (in any input
// order) always return the same leader.
func ChooseLeader(proposers []validatorset.Author) validatorset.Author {
	if len(proposers) == 0 {
		return ""
	}
	smallest := proposers[0]
	for _, a := range proposers[1:] {
		if strings.Compare(string(a), string(smallest)) < 0 {
			smallest = a
		}
	}
	return smallest
}
