package network

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/empower1/epochcore/internal/validatorset"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrPeerNotConnected = errors.New("no websocket connection open for peer")

// WSSender is a websocket-backed Transport: one persistent connection per
// peer, dialed lazily and redialed on failure by the caller (spec leaves
// connection management / retry policy to the network collaborator, §1).
// Grounded on the teacher's internal/p2p/manager.go activePeers map, ported
// from raw TCP framing to gorilla/websocket's message framing.
type WSSender struct {
	mu    sync.RWMutex
	conns map[validatorset.Author]*websocket.Conn
	log   *zap.SugaredLogger
}

// NewWSSender constructs an empty WSSender; connections are registered via
// AddPeer as they're established.
func NewWSSender(log *zap.SugaredLogger) *WSSender {
	return &WSSender{conns: make(map[validatorset.Author]*websocket.Conn), log: log}
}

// AddPeer registers an already-dialed or already-accepted websocket
// connection for a peer.
func (w *WSSender) AddPeer(author validatorset.Author, conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if old, ok := w.conns[author]; ok {
		old.Close()
	}
	w.conns[author] = conn
}

// RemovePeer closes and forgets a peer's connection.
func (w *WSSender) RemovePeer(author validatorset.Author) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if conn, ok := w.conns[author]; ok {
		conn.Close()
		delete(w.conns, author)
	}
}

// Peers returns the authors this sender currently holds an open connection
// to. Broadcast uses this, not the validator-set eligible list, as the
// target roster: who we're connected to is a transport fact, independent
// of committee membership.
func (w *WSSender) Peers() []validatorset.Author {
	w.mu.RLock()
	defer w.mu.RUnlock()
	peers := make([]validatorset.Author, 0, len(w.conns))
	for author := range w.conns {
		peers = append(peers, author)
	}
	return peers
}

// Send implements Transport by writing a binary websocket message.
func (w *WSSender) Send(ctx context.Context, to validatorset.Author, payload []byte) error {
	w.mu.RLock()
	conn, ok := w.conns[to]
	w.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrPeerNotConnected, to)
	}
	if deadline, hasDeadline := ctx.Deadline(); hasDeadline {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		if w.log != nil {
			w.log.Warnw("websocket write failed, dropping peer", "peer", to, "error", err)
		}
		w.RemovePeer(to)
		return err
	}
	return nil
}

// Close closes every open connection.
func (w *WSSender) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for author, conn := range w.conns {
		conn.Close()
		delete(w.conns, author)
	}
}
