package epoch

import (
	"github.com/empower1/epochcore/internal/consensustypes"
	"github.com/empower1/epochcore/internal/validatorset"
	"go.uber.org/zap"
)

// AuditSink records security-relevant events that should survive beyond the
// regular log stream, e.g. for a downstream alerting pipeline. Spec §4.4
// requires exactly one record per rejected Vote, tagged "invalid consensus
// vote" (spec §8 invariant 2).
type AuditSink interface {
	RecordInvalidVote(peer validatorset.Author, vote consensustypes.VoteMsg, cause error)
}

// ZapAuditSink logs audit records at warn level under a dedicated logger
// name, keeping them greppable apart from ordinary operational logs.
type ZapAuditSink struct {
	log *zap.SugaredLogger
}

// NewZapAuditSink wraps log (typically log.Named("security-audit")) as an AuditSink.
func NewZapAuditSink(log *zap.SugaredLogger) *ZapAuditSink {
	return &ZapAuditSink{log: log}
}

func (a *ZapAuditSink) RecordInvalidVote(peer validatorset.Author, vote consensustypes.VoteMsg, cause error) {
	a.log.Warnw("invalid consensus vote", "peer", peer, "vote_author", vote.Author, "vote_epoch", vote.Epoch, "vote_round", vote.Round, "error", cause)
}
