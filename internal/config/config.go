// Package config holds the epoch manager's tunable options (spec §5:
// pacemaker_initial_timeout_ms, proposer_type, contiguous_rounds,
// max_block_size, max_pruned_blocks_in_mem).
package config

import (
	"fmt"
	"time"

	"github.com/pbnjay/memory"
)

// ProposerType selects which proposer-election strategy the factory wires
// up (spec §4.6 step 6).
type ProposerType string

const (
	ProposerRotating ProposerType = "rotating"
	ProposerMulti    ProposerType = "multi"
	ProposerFixed    ProposerType = "fixed"
)

// Config is the full set of options the epoch manager reads at startup.
// Every field has a spec-recommended default (see Default) so a zero-value
// Config is never handed to the factory directly.
type Config struct {
	PacemakerInitialTimeout time.Duration
	ProposerType            ProposerType
	ContiguousRounds        uint64
	MaxBlockSize            int
	MaxPrunedBlocksInMem    int
}

// Default returns sensible defaults, sizing MaxPrunedBlocksInMem off the
// host's available memory the way a long-running validator process should:
// more headroom on a bigger box, a conservative floor on a small one.
func Default() Config {
	return Config{
		PacemakerInitialTimeout: time.Second,
		ProposerType:            ProposerRotating,
		ContiguousRounds:        1,
		MaxBlockSize:            1 << 20, // 1 MiB
		MaxPrunedBlocksInMem:    defaultMaxPrunedBlocksInMem(),
	}
}

// defaultMaxPrunedBlocksInMem scales with available system memory: one
// retained block per 4MiB of RAM, bounded to [256, 65536].
func defaultMaxPrunedBlocksInMem() int {
	const (
		bytesPerBlock = 4 << 20
		floor         = 256
		ceiling       = 65536
	)
	avail := memory.TotalMemory()
	if avail == 0 {
		return floor
	}
	n := int(avail / bytesPerBlock)
	if n < floor {
		return floor
	}
	if n > ceiling {
		return ceiling
	}
	return n
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.PacemakerInitialTimeout <= 0 {
		return fmt.Errorf("pacemaker_initial_timeout_ms must be positive")
	}
	if c.ContiguousRounds == 0 {
		return fmt.Errorf("contiguous_rounds must be positive")
	}
	if c.MaxBlockSize <= 0 {
		return fmt.Errorf("max_block_size must be positive")
	}
	if c.MaxPrunedBlocksInMem <= 0 {
		return fmt.Errorf("max_pruned_blocks_in_mem must be positive")
	}
	switch c.ProposerType {
	case ProposerRotating, ProposerMulti, ProposerFixed:
	default:
		return fmt.Errorf("unknown proposer_type %q", c.ProposerType)
	}
	return nil
}
