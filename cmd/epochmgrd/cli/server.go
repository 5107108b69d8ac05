package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/empower1/epochcore/internal/epoch"
	"github.com/empower1/epochcore/internal/mempool"
	"github.com/empower1/epochcore/internal/network"
	"github.com/empower1/epochcore/internal/validatorset"
	"github.com/empower1/epochcore/internal/wire"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Validator-to-validator traffic; the committee is a closed set
	// authenticated at the message layer (signatures), not by origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// peerServer accepts inbound websocket connections from committee peers,
// registers them with the shared WSSender, and feeds decoded envelopes into
// driver for classification and verification. Grounded on the teacher's
// internal/p2p/manager.go accept loop, generalized from raw TCP framing to
// gorilla/websocket. eligibility gates both the accept and the dispatch
// step against the currently installed validator set — the purpose spec
// §4.6 step 1 actually assigns that set ("filter who may send us consensus
// messages"); NetworkSender's SendTo/Broadcast carry no such gate (spec
// §6), see internal/network/sender.go.
type peerServer struct {
	sender      *network.WSSender
	eligibility *network.NetworkSender
	driver      *driver
	log         *zap.SugaredLogger
}

func (s *peerServer) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	peerParam := r.URL.Query().Get("peer")
	if peerParam == "" {
		http.Error(w, "missing peer query parameter", http.StatusBadRequest)
		return
	}
	peer := validatorset.Author(peerParam)

	if !s.eligibility.IsEligible(peer) {
		s.log.Warnw("rejecting connection from non-committee peer", "peer", peer)
		http.Error(w, network.ErrUnknownPeer.Error(), http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("websocket upgrade failed", "peer", peer, "error", err)
		return
	}
	s.sender.AddPeer(peer, conn)
	s.log.Infow("peer connected", "peer", peer)
	go s.readLoop(peer, conn)
}

func (s *peerServer) readLoop(peer validatorset.Author, conn *websocket.Conn) {
	defer s.sender.RemovePeer(peer)
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			s.log.Infow("peer disconnected", "peer", peer, "error", err)
			return
		}
		// The committee can change between accept and any later message on
		// a long-lived connection (an epoch transition since handleUpgrade
		// ran); re-check on every dispatch rather than trusting the
		// accept-time decision.
		if !s.eligibility.IsEligible(peer) {
			s.log.Warnw("dropping message from peer no longer in the validator set", "peer", peer)
			continue
		}
		s.driver.handleInbound(context.Background(), peer, payload)
	}
}

// driver owns the active EventProcessor and feeds inbound wire messages
// through the epoch.Manager, swapping in a replacement EventProcessor the
// moment ProcessMessage reports a NewStart (spec §5: "atomic swap from the
// outer driver's point of view"). Each peer has its own read loop, but
// handleInbound holds mu while it runs the Manager, so the Manager and
// active are only ever touched by one message at a time.
type driver struct {
	mu      sync.Mutex
	manager *epoch.Manager
	active  *epoch.EventProcessor
	log     *zap.SugaredLogger
}

func (d *driver) handleInbound(ctx context.Context, peer validatorset.Author, payload []byte) {
	netMsg, err := decodeNetworkMsg(payload)
	if err != nil {
		d.log.Warnw("dropping undecodable consensus envelope", "peer", peer, "error", err)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	result, err := d.manager.ProcessMessage(ctx, peer, netMsg)
	if err != nil {
		d.log.Warnw("message rejected", "peer", peer, "error", err)
		return
	}

	switch r := result.(type) {
	case epoch.NewStart:
		if d.active != nil {
			d.active.Stop()
		}
		d.active = r.Processor
		d.active.Start(ctx)
		d.log.Infow("epoch transitioned", "new_epoch", d.active.Epoch)
	case epoch.Current:
		// Forwarding Current messages into the live EventProcessor (block
		// assembly, voting, sync) is the event processor's own
		// round-management loop, out of scope for this layer (spec §1).
	case epoch.NotCurrent:
	}
}

// submitTxHandler accepts raw transaction bytes over HTTP and admits them
// to the local mempool, the one write path operators have into the pool
// this node's proposals draw from.
func submitTxHandler(pool *mempool.Mempool, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		if err := pool.AddTransaction(body); err != nil {
			if errors.Is(err, mempool.ErrTransactionExists) {
				w.WriteHeader(http.StatusConflict)
				return
			}
			log.Warnw("rejected submitted transaction", "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// decodeNetworkMsg unwraps a wire envelope into the epoch package's closed
// FromNetworkMsg set. BlockResponse is not one of the six classifier
// variants (spec §4.2): it answers a RequestBlock out-of-band and is the
// caller's concern, not the epoch manager's.
func decodeNetworkMsg(payload []byte) (epoch.FromNetworkMsg, error) {
	env, err := wire.Decode(payload)
	if err != nil {
		return nil, err
	}
	switch {
	case env.Proposal != nil:
		return epoch.ProposalNetMsg{Msg: *env.Proposal}, nil
	case env.Vote != nil:
		return epoch.VoteNetMsg{Msg: *env.Vote}, nil
	case env.Sync != nil:
		return epoch.SyncNetMsg{Msg: *env.Sync}, nil
	case env.BlockRequest != nil:
		return epoch.RequestBlockNetMsg{Msg: *env.BlockRequest}, nil
	case env.EpochChange != nil:
		return epoch.EpochChangeNetMsg{Msg: *env.EpochChange}, nil
	case env.EpochRetrieval != nil:
		return epoch.RequestEpochNetMsg{Msg: *env.EpochRetrieval}, nil
	default:
		return nil, fmt.Errorf("envelope carries no classifiable body (%T)", env)
	}
}
