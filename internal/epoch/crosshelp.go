package epoch

import (
	"context"

	"github.com/empower1/epochcore/internal/consensustypes"
	"github.com/empower1/epochcore/internal/validatorset"
	"github.com/empower1/epochcore/internal/wire"
)

// crossEpochHelp is C3: process_different_epoch (spec §4.3). All sends are
// best-effort; failure is logged and never fatal to the Manager.
func (m *Manager) crossEpochHelp(ctx context.Context, otherEpoch uint64, peerID validatorset.Author) {
	local := m.state.Epoch()

	switch {
	case otherEpoch < local:
		proof, err := m.stateComputer.GetEpochProof(ctx, otherEpoch, local)
		if err != nil {
			m.log.Warnw("failed to build catch-up proof for lagging peer", "peer", peerID, "other_epoch", otherEpoch, "local_epoch", local, "error", err)
			return
		}
		if err := m.sender.SendTo(ctx, peerID, &wire.ConsensusMsg{EpochChange: proof}); err != nil {
			m.log.Warnw("failed to send epoch-change proof to lagging peer", "peer", peerID, "error", err)
		}

	case otherEpoch > local:
		req := &consensustypes.EpochRetrievalRequest{StartEpoch: local, EndEpoch: otherEpoch}
		if err := m.sender.SendTo(ctx, peerID, &wire.ConsensusMsg{EpochRetrieval: req}); err != nil {
			m.log.Warnw("failed to send epoch retrieval request to leading peer", "peer", peerID, "error", err)
		}

	default:
		m.log.Warnw("cross-epoch help invoked with an epoch matching local; this indicates a caller bug", "peer", peerID, "epoch", otherEpoch)
	}
}

// serviceEpochRequest answers a RequestEpoch by replying with a proof
// spanning exactly the requested range (spec §4.4: RequestEpoch "invoke
// C3's reply-with-proof path").
func (m *Manager) serviceEpochRequest(ctx context.Context, req consensustypes.EpochRetrievalRequest, peerID validatorset.Author) {
	proof, err := m.stateComputer.GetEpochProof(ctx, req.StartEpoch, req.EndEpoch)
	if err != nil {
		m.log.Warnw("failed to service epoch retrieval request", "peer", peerID, "start_epoch", req.StartEpoch, "end_epoch", req.EndEpoch, "error", err)
		return
	}
	if err := m.sender.SendTo(ctx, peerID, &wire.ConsensusMsg{EpochChange: proof}); err != nil {
		m.log.Warnw("failed to send epoch retrieval reply", "peer", peerID, "error", err)
	}
}
