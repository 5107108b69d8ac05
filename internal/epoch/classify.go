package epoch

import (
	"context"

	"github.com/empower1/epochcore/internal/metrics"
	"github.com/empower1/epochcore/internal/validatorset"
)

// classify is C2: the message classifier (spec §4.2). It returns whether
// msg should continue on to C4 (verify). When it returns false, any
// required cross-epoch help has already been dispatched as a side effect.
func (m *Manager) classify(ctx context.Context, peerID validatorset.Author, msg FromNetworkMsg) bool {
	local := m.state.Epoch()

	switch v := msg.(type) {
	case ProposalNetMsg:
		// Stale/future proposals have no remediation path: drop silently,
		// no help offered (spec §4.2 tie-break rationale).
		if v.Msg.Epoch != local {
			metrics.IncRejectedMessage("proposal_wrong_epoch")
			return false
		}
		return true

	case VoteNetMsg:
		if v.Msg.Epoch != local {
			m.crossEpochHelp(ctx, v.Msg.Epoch, peerID)
			return false
		}
		return true

	case SyncNetMsg:
		if v.Msg.Epoch != local {
			m.crossEpochHelp(ctx, v.Msg.Epoch, peerID)
			return false
		}
		return true

	case EpochChangeNetMsg:
		msgEpoch, err := v.Msg.TargetEpoch()
		if err != nil {
			m.log.Debugw("dropping epoch-change proof: failed to extract target epoch", "peer", peerID, "error", err)
			metrics.IncRejectedMessage("epoch_change_extraction_failed")
			return false
		}
		if msgEpoch == local {
			return true
		}
		m.crossEpochHelp(ctx, msgEpoch, peerID)
		return false

	case RequestBlockNetMsg:
		return true

	case RequestEpochNetMsg:
		if v.Msg.EndEpoch <= local {
			return true
		}
		m.log.Warnw("dropping RequestEpoch beyond local horizon", "peer", peerID, "end_epoch", v.Msg.EndEpoch, "local_epoch", local)
		metrics.IncRejectedMessage("request_epoch_beyond_horizon")
		return false

	default:
		m.log.Warnw("dropping message of unrecognized type", "peer", peerID, "type", v)
		return false
	}
}
