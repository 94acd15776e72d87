// Package broadcast bridges WebSocket connections to the session event broker.
//
// A single goroutine owns the connection registry (actor pattern, no mutexes);
// per-connection writer goroutines absorb slow clients. For every connection
// the adapter subscribes to the broker first and fetches the current snapshot
// second, then discards stale revisions, so the caller observes a gapless,
// monotonically increasing revision sequence with no window between "read
// state" and "first event".
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/wmtorode/poker-planning/internal/broker"
	"github.com/wmtorode/poker-planning/internal/domain"
	"github.com/wmtorode/poker-planning/internal/metrics"
)

const cmdBufferSize = 256

// Close frame reasons handed to disconnected clients.
const (
	reasonLagged   = "subscriber lagged"
	reasonSlow     = "slow consumer"
	reasonShutdown = "server shutting down"
)

// SessionSource is what the adapter needs from the operation layer: a current
// snapshot and a live event stream per session.
type SessionSource interface {
	GetSession(ctx context.Context, sessionID string) (domain.Snapshot, error)
	Subscribe(sessionID string) *broker.Subscription
}

// --- Command types ---

type broadcasterCmd interface{ isBroadcasterCmd() }

type baseCmd struct{}

func (baseCmd) isBroadcasterCmd() {}

type registerCmd struct {
	baseCmd
	sessionID string
	conn      *websocket.Conn
	errCh     chan error
}

type unregisterCmd struct {
	baseCmd
	sessionID string
	conn      *websocket.Conn
	reason    string
}

type clientCountCmd struct {
	baseCmd
	sessionID string
	replyCh   chan int
}

type stopCmd struct {
	baseCmd
}

type client struct {
	writer *clientWriter
	sub    *broker.Subscription
}

type sessionClients map[*websocket.Conn]*client

// Broadcaster manages WebSocket subscribers per session.
type Broadcaster struct {
	cmdCh                chan broadcasterCmd
	clock                clockwork.Clock
	source               SessionSource
	active               map[string]sessionClients
	maxClientsPerSession int
	done                 chan struct{}
}

func NewBroadcaster(source SessionSource, clock clockwork.Clock, maxClientsPerSession int) *Broadcaster {
	b := &Broadcaster{
		cmdCh:                make(chan broadcasterCmd, cmdBufferSize),
		clock:                clock,
		source:               source,
		active:               make(map[string]sessionClients),
		maxClientsPerSession: maxClientsPerSession,
		done:                 make(chan struct{}),
	}
	go b.run()
	return b
}

var errStopped = errors.New("broadcaster stopped")

// send queues cmd for the actor. It reports false once the actor has shut
// down, so late callers never block on a queue nobody drains.
func (b *Broadcaster) send(cmd broadcasterCmd) bool {
	select {
	case b.cmdCh <- cmd:
		return true
	case <-b.done:
		return false
	}
}

// Register attaches a connection to a session's event stream. The current
// snapshot is delivered first, followed by every event published after it.
func (b *Broadcaster) Register(sessionID string, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	if !b.send(registerCmd{sessionID: sessionID, conn: conn, errCh: errCh}) {
		conn.Close()
		return errStopped
	}
	select {
	case err := <-errCh:
		return err
	case <-b.done:
		conn.Close()
		return errStopped
	}
}

// Unregister detaches a connection, releasing its subscription immediately.
// After Stop it is a no-op.
func (b *Broadcaster) Unregister(sessionID string, conn *websocket.Conn) {
	b.send(unregisterCmd{sessionID: sessionID, conn: conn})
}

// ClientCount returns the number of connections attached to a session, or
// zero once the broadcaster has stopped.
func (b *Broadcaster) ClientCount(sessionID string) int {
	replyCh := make(chan int, 1)
	if !b.send(clientCountCmd{sessionID: sessionID, replyCh: replyCh}) {
		return 0
	}
	select {
	case n := <-replyCh:
		return n
	case <-b.done:
		return 0
	}
}

// Stop disconnects all clients and shuts the actor down. Safe to call more
// than once.
func (b *Broadcaster) Stop() {
	b.send(stopCmd{})
	<-b.done
}

func (b *Broadcaster) run() {
	defer close(b.done)

	for cmd := range b.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			c.errCh <- b.handleRegister(c.sessionID, c.conn)
		case unregisterCmd:
			b.handleUnregister(c.sessionID, c.conn, c.reason)
		case clientCountCmd:
			c.replyCh <- len(b.active[c.sessionID])
		case stopCmd:
			b.handleStop()
			return
		}
	}
}

func (b *Broadcaster) handleRegister(sessionID string, conn *websocket.Conn) error {
	clients, exists := b.active[sessionID]
	if !exists {
		clients = make(sessionClients)
		b.active[sessionID] = clients
	}

	if len(clients) >= b.maxClientsPerSession {
		slog.Warn("Rejecting client: max clients reached", "session_id", sessionID, "max_clients", b.maxClientsPerSession)
		conn.Close()
		return fmt.Errorf("max clients per session (%d) reached", b.maxClientsPerSession)
	}

	// Subscribe before reading state so no mutation falls in between. Events
	// older than the initial snapshot are dropped in the forward loop.
	sub := b.source.Subscribe(sessionID)
	initial, err := b.source.GetSession(context.Background(), sessionID)
	if err != nil {
		sub.Close()
		conn.Close()
		return fmt.Errorf("reading session %s: %w", sessionID, err)
	}

	data, err := json.Marshal(initial)
	if err != nil {
		sub.Close()
		conn.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	cw := newClientWriter(conn, b.clock)
	cw.sendCh <- data
	clients[conn] = &client{writer: cw, sub: sub}

	go b.forward(sessionID, conn, cw, sub, initial.Revision)

	metrics.ConnectedClients.Inc()
	slog.Debug("Client registered", "session_id", sessionID, "total_clients", len(clients), "revision", initial.Revision)
	return nil
}

// forward pumps broker events into the connection's writer. Publishing happens
// outside the store lock, so racing mutations can land on the topic out of
// order; snapshots carry complete state, so anything at or below the last
// forwarded revision is superseded and dropped. The loop exits when the
// subscription channel closes: on plain unregister that is all, on lagged
// eviction it schedules the disconnect itself. A full writer buffer means the
// client is not consuming; it gets disconnected rather than buffered forever.
func (b *Broadcaster) forward(sessionID string, conn *websocket.Conn, cw *clientWriter, sub *broker.Subscription, lastRevision uint64) {
	for snap := range sub.C() {
		if snap.Revision <= lastRevision {
			continue
		}

		data, err := json.Marshal(snap)
		if err != nil {
			slog.Error("Failed to marshal snapshot", "session_id", sessionID, "error", err)
			continue
		}

		select {
		case cw.sendCh <- data:
			lastRevision = snap.Revision
		default:
			metrics.SlowClientsEvicted.Inc()
			slog.Warn("Disconnecting slow client", "session_id", sessionID)
			b.send(unregisterCmd{sessionID: sessionID, conn: conn, reason: reasonSlow})
			return
		}
	}

	if sub.Lagged() {
		metrics.SlowClientsEvicted.Inc()
		slog.Warn("Disconnecting lagged subscriber", "session_id", sessionID)
		b.send(unregisterCmd{sessionID: sessionID, conn: conn, reason: reasonLagged})
	}
}

func (b *Broadcaster) handleUnregister(sessionID string, conn *websocket.Conn, reason string) {
	clients, exists := b.active[sessionID]
	if !exists {
		return
	}

	cl, exists := clients[conn]
	if !exists {
		return
	}

	cl.sub.Close()
	cl.writer.stop(reason)
	delete(clients, conn)
	metrics.ConnectedClients.Dec()

	if len(clients) == 0 {
		delete(b.active, sessionID)
		slog.Debug("Last client disconnected", "session_id", sessionID)
	} else {
		slog.Debug("Client unregistered", "session_id", sessionID, "remaining_clients", len(clients))
	}
}

func (b *Broadcaster) handleStop() {
	total := 0
	for sessionID, clients := range b.active {
		for _, cl := range clients {
			cl.sub.Close()
			cl.writer.stop(reasonShutdown)
			total++
		}
		delete(b.active, sessionID)
	}
	metrics.ConnectedClients.Sub(float64(total))
	slog.Info("Broadcaster stopped", "disconnected_clients", total)
}
