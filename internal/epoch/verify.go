package epoch

import (
	"context"
	"errors"
	"fmt"

	"github.com/empower1/epochcore/internal/consensustypes"
	"github.com/empower1/epochcore/internal/validatorset"
)

// ErrMalformedProposal fires when a Proposal's block fields are internally
// inconsistent, independent of signature validity (spec §4.4: "verify
// well-formedness (structural invariants of the proposal type)").
var ErrMalformedProposal = errors.New("proposal block is structurally malformed")

// verify is C4: the in-epoch validator (spec §4.4). msg has already passed
// C2 and is known to carry the current epoch.
func (m *Manager) verify(ctx context.Context, peerID validatorset.Author, msg FromNetworkMsg) (ClassificationResult, error) {
	verifier := m.state.Verifier()

	switch v := msg.(type) {
	case ProposalNetMsg:
		p := v.Msg
		if err := checkProposalWellFormed(&p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProposalVerification, err)
		}
		if err := verifier.VerifySignature(p.Author, p.SigningBytes(), p.Signature); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProposalVerification, err)
		}
		// Authorship check is load-bearing (spec §4.4): prevents a peer
		// from relaying another validator's validly-signed proposal.
		if p.Author != peerID {
			return nil, fmt.Errorf("%w: proposal author %s, sending peer %s", ErrAuthorshipMismatch, p.Author, peerID)
		}
		return Current{Msg: ProposalEpochMsg{Msg: p}}, nil

	case VoteNetMsg:
		vote := v.Msg
		if err := verifier.VerifySignature(vote.Author, vote.SigningBytes(), vote.Signature); err != nil {
			wrapped := fmt.Errorf("%w: %v", ErrVoteVerification, err)
			if m.audit != nil {
				m.audit.RecordInvalidVote(peerID, vote, wrapped)
			}
			return nil, wrapped
		}
		return Current{Msg: VoteEpochMsg{Msg: vote}}, nil

	case SyncNetMsg:
		// Verified on use (spec §4.4); forwarded as-is.
		return Current{Msg: SyncEpochMsg{Msg: v.Msg}}, nil

	case RequestBlockNetMsg:
		return Current{Msg: RequestBlockEpochMsg{Msg: v.Msg}}, nil

	case EpochChangeNetMsg:
		proof := v.Msg
		targetLI, _, err := proof.Verify(m.state.Epoch(), verifier)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEpochChangeVerification, err)
		}
		if m.epochChangeRaceHook != nil {
			m.epochChangeRaceHook()
		}
		// Preserve this check even though the source questions its
		// necessity (spec §9 open question): do not infer intent to
		// remove it.
		if m.state.Epoch() > targetLI.Info.Epoch {
			return NotCurrent{}, nil
		}
		processor, err := m.startNewEpoch(ctx, *targetLI)
		if err != nil {
			return nil, err
		}
		return NewStart{Processor: processor}, nil

	case RequestEpochNetMsg:
		m.serviceEpochRequest(ctx, v.Msg, peerID)
		return NotCurrent{}, nil

	default:
		return nil, fmt.Errorf("unclassifiable message of type %T", v)
	}
}

// checkProposalWellFormed enforces the structural invariants a proposal
// must satisfy before its signature is even worth checking: the block must
// declare the epoch it claims, and carry a non-zero id.
func checkProposalWellFormed(p *consensustypes.ProposalMsg) error {
	if p.Block.Epoch != p.Epoch {
		return fmt.Errorf("%w: block epoch %d does not match proposal epoch %d", ErrMalformedProposal, p.Block.Epoch, p.Epoch)
	}
	if p.Block.Author != p.Author {
		return fmt.Errorf("%w: block author %s does not match proposal author %s", ErrMalformedProposal, p.Block.Author, p.Author)
	}
	var zero consensustypes.BlockID
	if p.Block.ID == zero {
		return fmt.Errorf("%w: block id is empty", ErrMalformedProposal)
	}
	return nil
}
