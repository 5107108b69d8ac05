package blockstore

import (
	"testing"

	"github.com/empower1/epochcore/internal/consensustypes"
	"github.com/stretchr/testify/require"
)

func TestBlockStorePrunesBeyondCap(t *testing.T) {
	root := consensustypes.Block{ID: consensustypes.HashBlockID([]byte("root")), Round: 0}
	bs := New(root, 2)
	require.Equal(t, 1, bs.Len())

	b1 := consensustypes.Block{ID: consensustypes.HashBlockID([]byte("b1")), Round: 1}
	b2 := consensustypes.Block{ID: consensustypes.HashBlockID([]byte("b2")), Round: 2}
	bs.InsertBlock(b1)
	bs.InsertBlock(b2)
	require.Equal(t, 2, bs.Len())

	if _, ok := bs.Block(root.ID); ok {
		t.Fatalf("expected root block to be pruned once cap exceeded")
	}
	if _, ok := bs.Block(b2.ID); !ok {
		t.Fatalf("expected most recent block to remain")
	}
}

func TestBlockStoreHighestQCMonotonic(t *testing.T) {
	root := consensustypes.Block{ID: consensustypes.HashBlockID([]byte("root"))}
	bs := New(root, 10)

	bs.InsertQC(consensustypes.QuorumCert{Round: 3})
	bs.InsertQC(consensustypes.QuorumCert{Round: 1})
	require.Equal(t, uint64(3), bs.HighestQC().Round)

	bs.InsertQC(consensustypes.QuorumCert{Round: 5})
	require.Equal(t, uint64(5), bs.HighestQC().Round)
}
