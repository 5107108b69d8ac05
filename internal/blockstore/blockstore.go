// Package blockstore holds the highest quorum certificate and a bounded
// set of recent blocks for the current epoch (spec §4.6 step 2). Block
// execution and persistence internals are out of scope (spec §1); this is
// the in-memory working set the event processor builds rounds against,
// grounded on the teacher's internal/core/blockchain.go map-of-blocks-plus-
// height-index idiom.
package blockstore

import (
	"sync"

	"github.com/empower1/epochcore/internal/consensustypes"
)

// BlockStore holds the highest-known quorum certificate and a pruned
// working set of recent blocks, capped at maxPrunedBlocks.
type BlockStore struct {
	mu              sync.RWMutex
	blocks          map[consensustypes.BlockID]consensustypes.Block
	order           []consensustypes.BlockID
	highestQC       consensustypes.QuorumCert
	maxPrunedBlocks int
}

// New constructs a BlockStore seeded from recovery data's root block, with
// the given cap on retained pruned blocks (spec's max_pruned_blocks_in_mem).
func New(root consensustypes.Block, maxPrunedBlocks int) *BlockStore {
	bs := &BlockStore{
		blocks:          make(map[consensustypes.BlockID]consensustypes.Block),
		maxPrunedBlocks: maxPrunedBlocks,
	}
	bs.insert(root)
	return bs
}

// InsertBlock adds a block to the working set, pruning the oldest entries
// beyond the configured cap.
func (bs *BlockStore) InsertBlock(b consensustypes.Block) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.insert(b)
}

func (bs *BlockStore) insert(b consensustypes.Block) {
	if _, exists := bs.blocks[b.ID]; exists {
		return
	}
	bs.blocks[b.ID] = b
	bs.order = append(bs.order, b.ID)
	if bs.maxPrunedBlocks > 0 {
		for len(bs.order) > bs.maxPrunedBlocks {
			oldest := bs.order[0]
			bs.order = bs.order[1:]
			delete(bs.blocks, oldest)
		}
	}
}

// Block looks up a block by id.
func (bs *BlockStore) Block(id consensustypes.BlockID) (consensustypes.Block, bool) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	b, ok := bs.blocks[id]
	return b, ok
}

// InsertQC records a quorum certificate as the highest known if its round
// is at least the current highest (a QC of equal round replaces it).
func (bs *BlockStore) InsertQC(qc consensustypes.QuorumCert) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if qc.Round >= bs.highestQC.Round {
		bs.highestQC = qc
	}
}

// HighestQC returns the highest quorum certificate observed so far.
func (bs *BlockStore) HighestQC() consensustypes.QuorumCert {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.highestQC
}

// Len returns the number of blocks currently retained.
func (bs *BlockStore) Len() int {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return len(bs.blocks)
}
