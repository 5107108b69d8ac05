package epoch

import (
	"context"
	"fmt"

	"github.com/empower1/epochcore/internal/consensustypes"
	"github.com/empower1/epochcore/internal/metrics"
	"github.com/empower1/epochcore/internal/validatorset"
)

// startNewEpoch is C5: the epoch transition driver (spec §4.5). Invariant:
// after this returns successfully, the local epoch is exactly
// recovery.Epoch, which is >= the previous epoch and >= target.Info.Epoch.
func (m *Manager) startNewEpoch(ctx context.Context, target consensustypes.LedgerInfoWithSignatures) (*EventProcessor, error) {
	// Step 1: best-effort sync. A transient failure here must not block
	// recovery — storage.start() below is the authoritative source of
	// truth regardless (spec §4.5 step 1, §9 open question).
	if err := m.stateComputer.SyncTo(ctx, target); err != nil {
		m.log.Errorw("state-computer sync_to failed, continuing with storage as source of truth", "target_epoch", target.Info.Epoch, "error", err)
	}

	// Step 2: obtain fresh recovery data, the authoritative source of the
	// new epoch number and validator set.
	recovery, err := m.storage.Start()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageStartFailed, err)
	}

	// Step 3: install the new EpochInfo atomically.
	verifier := validatorset.NewVerifier(recovery.Validators)
	if err := m.state.Install(EpochInfo{Epoch: recovery.Epoch, Verifier: verifier}); err != nil {
		return nil, err
	}

	// Step 4: build the per-epoch event processor from recovery data.
	processor, err := m.buildEventProcessor(ctx, recovery)
	if err != nil {
		return nil, err
	}

	metrics.IncEpochTransition()
	return processor, nil
}
