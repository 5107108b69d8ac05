// Package network is the consensus transport collaborator (spec §4.6 step
// 7: ConsensusNetworkSender / update_eligible_nodes). Grounded on the
// teacher's internal/p2p/manager.go NetworkManager: peer-map-plus-logger
// shape, start/stop lifecycle, and its Debugf-on-stdlib-logger pattern
// (here fixed by using zap.SugaredLogger, spec'd in SPEC_FULL.md §4.7).
package network

import (
	"context"
	"errors"
	"sync"

	"github.com/empower1/epochcore/internal/validatorset"
	"github.com/empower1/epochcore/internal/wire"
	"go.uber.org/zap"
)

var (
	// ErrUnknownPeer is the reason the inbound accept path (not SendTo/
	// Broadcast, see NetworkSender) gives when refusing a connection from a
	// peer outside the current validator set; later messages from such a
	// peer are dropped without an error.
	ErrUnknownPeer   = errors.New("peer is not a member of the current epoch's validator set")
	ErrSenderStopped = errors.New("network sender has been stopped")
)

// Transport delivers an encoded envelope to a single named peer and reports
// who it currently holds a connection to. WSSender is the production
// implementation; tests may substitute their own.
type Transport interface {
	Send(ctx context.Context, to validatorset.Author, payload []byte) error
	Peers() []validatorset.Author
}

// ConsensusNetworkSender is what the event processor depends on: send a
// message to one peer, to every peer the transport is connected to, or replace the
// eligible set wholesale on an epoch transition (spec §6: "send_to",
// "update_eligible_nodes").
type ConsensusNetworkSender interface {
	SendTo(ctx context.Context, to validatorset.Author, msg *wire.ConsensusMsg) error
	Broadcast(ctx context.Context, msg *wire.ConsensusMsg) error
	UpdateEligibleNodes(verifier *validatorset.Verifier) error
}

// NetworkSender wraps a Transport with the currently installed validator
// set, letting the set be swapped wholesale on epoch transitions (spec's
// update_eligible_nodes). Per spec §4.6 step 1, that set filters who may
// send *us* consensus messages — it is consulted via IsEligible by the
// inbound accept/dispatch path (cmd/epochmgrd/cli/server.go), not by
// SendTo/Broadcast below: send_to carries no such restriction (spec §6).
type NetworkSender struct {
	mu        sync.RWMutex
	stopped   bool
	eligible  map[validatorset.Author]struct{}
	transport Transport
	log       *zap.SugaredLogger
}

// NewNetworkSender constructs a NetworkSender scoped to the given verifier's
// validator set.
func NewNetworkSender(transport Transport, verifier *validatorset.Verifier, log *zap.SugaredLogger) *NetworkSender {
	ns := &NetworkSender{transport: transport, log: log}
	_ = ns.UpdateEligibleNodes(verifier)
	return ns
}

// UpdateEligibleNodes replaces the committee IsEligible checks against,
// called on every epoch transition (spec §4.6 step 1). Failure to update is
// fatal at the call site (spec §7): without this filter the node cannot
// safely tell current-epoch senders from an impersonating stale peer.
func (ns *NetworkSender) UpdateEligibleNodes(verifier *validatorset.Verifier) error {
	eligible := make(map[validatorset.Author]struct{}, len(verifier.OrderedAuthors()))
	for _, a := range verifier.OrderedAuthors() {
		eligible[a] = struct{}{}
	}
	ns.mu.Lock()
	ns.eligible = eligible
	ns.mu.Unlock()
	return nil
}

// IsEligible reports whether author is a member of the currently installed
// validator set. This is the one place the eligible set is enforced: spec
// §4.6 step 1 scopes it to filtering who may send this node consensus
// messages, so inbound transports consult it before admitting a connection
// or dispatching a message (cmd/epochmgrd/cli/server.go), never SendTo or
// Broadcast.
func (ns *NetworkSender) IsEligible(author validatorset.Author) bool {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	_, ok := ns.eligible[author]
	return ok
}

// Stop marks the sender as no longer accepting sends; used during epoch
// shutdown so stale goroutines don't leak messages to the wrong epoch.
func (ns *NetworkSender) Stop() {
	ns.mu.Lock()
	ns.stopped = true
	ns.mu.Unlock()
}

// SendTo delivers msg to a single peer. It is peer-addressed, not
// committee-gated (spec §6's send_to imposes no membership restriction):
// whether to is reachable at all is the transport's concern, surfaced as
// whatever error Transport.Send returns for an unknown peer.
func (ns *NetworkSender) SendTo(ctx context.Context, to validatorset.Author, msg *wire.ConsensusMsg) error {
	ns.mu.RLock()
	stopped := ns.stopped
	ns.mu.RUnlock()
	if stopped {
		return ErrSenderStopped
	}
	payload, err := msg.Encode()
	if err != nil {
		return err
	}
	if err := ns.transport.Send(ctx, to, payload); err != nil {
		if ns.log != nil {
			ns.log.Warnw("failed to send consensus message", "peer", to, "error", err)
		}
		return err
	}
	return nil
}

// Broadcast delivers msg to every peer the transport currently holds a
// connection to, independent of committee membership (see SendTo).
func (ns *NetworkSender) Broadcast(ctx context.Context, msg *wire.ConsensusMsg) error {
	ns.mu.RLock()
	stopped := ns.stopped
	ns.mu.RUnlock()
	if stopped {
		return ErrSenderStopped
	}

	payload, err := msg.Encode()
	if err != nil {
		return err
	}
	var firstErr error
	for _, peer := range ns.transport.Peers() {
		if err := ns.transport.Send(ctx, peer, payload); err != nil {
			if ns.log != nil {
				ns.log.Warnw("failed to broadcast consensus message", "peer", peer, "error", err)
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
