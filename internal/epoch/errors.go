package epoch

import "errors"

// Sentinel errors surfaced or absorbed per spec §7's error table. Decode
// and epoch-extraction failures, and cross-epoch help/send failures, are
// logged and dropped internally — they never reach the caller as errors.
var (
	// ErrProposalVerification covers both signature and well-formedness
	// failures on a Proposal (spec §4.4, §7).
	ErrProposalVerification = errors.New("proposal failed signature or well-formedness verification")
	// ErrAuthorshipMismatch fires when a Proposal's author does not match
	// the sending peer (spec §4.4: "load-bearing" check).
	ErrAuthorshipMismatch = errors.New("proposal author does not match sending peer")
	// ErrVoteVerification fires when a Vote's signature fails verification;
	// always paired with exactly one security-audit record (spec §8 invariant 2).
	ErrVoteVerification = errors.New("vote failed signature verification")
	// ErrEpochChangeVerification fires when an EpochChange proof does not
	// verify under the trusted verifier (spec §4.4).
	ErrEpochChangeVerification = errors.New("epoch change proof failed verification")
	// ErrStorageStartFailed is fatal per spec §7: the process must restart.
	ErrStorageStartFailed = errors.New("persistent storage failed to start recovery")
	// ErrSafetyRulesTransitionFailed is fatal per spec §7.
	ErrSafetyRulesTransitionFailed = errors.New("safety rules failed to transition to new epoch")
	// ErrUpdateEligibleNodesFailed is fatal per spec §7.
	ErrUpdateEligibleNodesFailed = errors.New("network sender failed to update eligible nodes")
	// ErrEpochRegression fires if recovery data names an epoch behind the
	// current one, violating C1's monotonicity invariant (spec §4.1).
	ErrEpochRegression = errors.New("recovery data names an epoch behind the current one")
	// ErrBuildEventProcessor wraps any other C6 construction failure.
	ErrBuildEventProcessor = errors.New("failed to build event processor")
)
