package proposerelection

import (
	"testing"

	"github.com/empower1/epochcore/internal/validatorset"
	"github.com/stretchr/testify/assert"
)

func TestChooseLeaderDeterministic(t *testing.T) {
	a, b, c := validatorset.Author("0xbbb"), validatorset.Author("0xaaa"), validatorset.Author("0xccc")

	leader1 := ChooseLeader([]validatorset.Author{a, b, c})
	leader2 := ChooseLeader([]validatorset.Author{c, a, b})

	assert.Equal(t, validatorset.Author("0xaaa"), leader1)
	assert.Equal(t, leader1, leader2)
}

func TestFixedProposerUsesChosenLeader(t *testing.T) {
	a, b, c := validatorset.Author("0xbbb"), validatorset.Author("0xaaa"), validatorset.Author("0xccc")
	fp := NewFixedProposer([]validatorset.Author{a, b, c})

	assert.Equal(t, validatorset.Author("0xaaa"), fp.GetValidProposer(0))
	assert.Equal(t, validatorset.Author("0xaaa"), fp.GetValidProposer(42))
	assert.True(t, fp.IsValidProposer("0xaaa", 7))
	assert.False(t, fp.IsValidProposer("0xbbb", 7))
}

func TestRotatingProposerCyclesEveryContiguousRounds(t *testing.T) {
	proposers := []validatorset.Author{"a", "b", "c"}
	rp := NewRotatingProposer(proposers, 2)

	assert.Equal(t, validatorset.Author("a"), rp.GetValidProposer(0))
	assert.Equal(t, validatorset.Author("a"), rp.GetValidProposer(1))
	assert.Equal(t, validatorset.Author("b"), rp.GetValidProposer(2))
	assert.Equal(t, validatorset.Author("b"), rp.GetValidProposer(3))
	assert.Equal(t, validatorset.Author("c"), rp.GetValidProposer(4))
	assert.Equal(t, validatorset.Author("a"), rp.GetValidProposer(6))
}

func TestMultiProposerWindowIsTwo(t *testing.T) {
	proposers := []validatorset.Author{"a", "b", "c", "d"}
	mp := NewMultiProposer(0, proposers)

	assert.True(t, mp.IsValidProposer("a", 0))
	assert.True(t, mp.IsValidProposer("b", 0))
	assert.False(t, mp.IsValidProposer("c", 0))
	assert.Equal(t, validatorset.Author("a"), mp.GetValidProposer(0))
}

func TestMultiProposerEpochOffsetsRotation(t *testing.T) {
	proposers := []validatorset.Author{"a", "b", "c", "d"}

	mp0 := NewMultiProposer(0, proposers)
	mp1 := NewMultiProposer(1, proposers)

	assert.Equal(t, validatorset.Author("a"), mp0.GetValidProposer(0))
	assert.Equal(t, validatorset.Author("b"), mp1.GetValidProposer(0))
	assert.True(t, mp1.IsValidProposer("b", 0))
	assert.True(t, mp1.IsValidProposer("c", 0))
	assert.False(t, mp1.IsValidProposer("a", 0))
}
