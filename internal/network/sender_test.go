package network

import (
	"context"
	"testing"

	"github.com/empower1/epochcore/internal/consensustypes"
	"github.com/empower1/epochcore/internal/crypto"
	"github.com/empower1/epochcore/internal/validatorset"
	"github.com/empower1/epochcore/internal/wire"
	"github.com/stretchr/testify/require"
)

// fakeTransport models the peers it holds live connections to separately
// from any validator-set membership, mirroring WSSender: Peers() reflects
// connectedPeers, not whatever NetworkSender's eligible set says.
type fakeTransport struct {
	sent           map[validatorset.Author]int
	connectedPeers []validatorset.Author
}

func (f *fakeTransport) Send(ctx context.Context, to validatorset.Author, payload []byte) error {
	if f.sent == nil {
		f.sent = make(map[validatorset.Author]int)
	}
	f.sent[to]++
	return nil
}

func (f *fakeTransport) Peers() []validatorset.Author {
	return f.connectedPeers
}

func newTestVerifier(t *testing.T, n int) (*validatorset.Verifier, []validatorset.Author) {
	var infos []validatorset.ValidatorInfo
	var authors []validatorset.Author
	for i := 0; i < n; i++ {
		priv, err := crypto.GenerateECDSAKeyPair()
		require.NoError(t, err)
		author, err := validatorset.NewAuthor(&priv.PublicKey)
		require.NoError(t, err)
		infos = append(infos, validatorset.ValidatorInfo{Author: author, PublicKey: &priv.PublicKey, VotingPower: 1})
		authors = append(authors, author)
	}
	return validatorset.NewVerifier(infos), authors
}

var testVote = &consensustypes.VoteMsg{Epoch: 1, Round: 1}

func TestNetworkSenderSendToIsNotGatedByEligibility(t *testing.T) {
	verifier, _ := newTestVerifier(t, 2)
	transport := &fakeTransport{}
	ns := NewNetworkSender(transport, verifier, nil)

	// A peer outside the installed validator set — e.g. a stale or future
	// committee member replying to a cross-epoch-help message — must still
	// be reachable via SendTo (spec §6: send_to carries no such
	// restriction).
	_, stranger := newTestVerifier(t, 1)
	err := ns.SendTo(context.Background(), stranger[0], &wire.ConsensusMsg{Vote: testVote})
	require.NoError(t, err)
	require.Equal(t, 1, transport.sent[stranger[0]])
}

func TestNetworkSenderBroadcastsToConnectedTransportPeers(t *testing.T) {
	verifier, authors := newTestVerifier(t, 3)
	// Only 2 of the 3 committee members have a live connection; one
	// committee member (authors[2]) doesn't, and one connected peer
	// (extra) isn't a committee member at all.
	_, strangers := newTestVerifier(t, 1)
	extra := strangers[0]
	transport := &fakeTransport{connectedPeers: []validatorset.Author{authors[0], authors[1], extra}}
	ns := NewNetworkSender(transport, verifier, nil)

	msg := &wire.ConsensusMsg{Vote: testVote}
	require.NoError(t, ns.Broadcast(context.Background(), msg))
	require.Len(t, transport.sent, 3)
	require.Equal(t, 1, transport.sent[authors[0]])
	require.Equal(t, 1, transport.sent[authors[1]])
	require.Equal(t, 1, transport.sent[extra])
	require.Equal(t, 0, transport.sent[authors[2]])
}

func TestNetworkSenderUpdateEligibleNodesSwapsSet(t *testing.T) {
	verifier, authors := newTestVerifier(t, 1)
	transport := &fakeTransport{}
	ns := NewNetworkSender(transport, verifier, nil)
	require.True(t, ns.IsEligible(authors[0]))

	newVerifier, newAuthors := newTestVerifier(t, 1)
	ns.UpdateEligibleNodes(newVerifier)

	require.False(t, ns.IsEligible(authors[0]))
	require.True(t, ns.IsEligible(newAuthors[0]))

	// SendTo remains unaffected by eligibility regardless of which set is
	// installed.
	require.NoError(t, ns.SendTo(context.Background(), authors[0], &wire.ConsensusMsg{Vote: testVote}))
	require.NoError(t, ns.SendTo(context.Background(), newAuthors[0], &wire.ConsensusMsg{Vote: testVote}))
}

func TestNetworkSenderStopRejectsFurtherSends(t *testing.T) {
	verifier, authors := newTestVerifier(t, 1)
	transport := &fakeTransport{}
	ns := NewNetworkSender(transport, verifier, nil)
	ns.Stop()

	err := ns.SendTo(context.Background(), authors[0], &wire.ConsensusMsg{Vote: testVote})
	require.ErrorIs(t, err, ErrSenderStopped)
}
