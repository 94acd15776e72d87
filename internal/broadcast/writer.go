package broadcast

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	messageBufferSize = 16
)

// clientWriter owns all writes to one WebSocket connection. Snapshots are
// queued on a bounded channel; the run goroutine is the only writer, so pings
// and payloads never interleave.
type clientWriter struct {
	conn     *websocket.Conn
	clock    clockwork.Clock
	sendCh   chan []byte
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newClientWriter(conn *websocket.Conn, clock clockwork.Clock) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		clock:  clock,
		sendCh: make(chan []byte, messageBufferSize),
		done:   make(chan struct{}),
	}
	cw.refreshReadDeadline()
	conn.SetPongHandler(func(string) error {
		cw.refreshReadDeadline()
		return nil
	})
	cw.wg.Add(1)
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	ticker := cw.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer cw.wg.Done()

	for {
		select {
		case msg := <-cw.sendCh:
			cw.refreshWriteDeadline()
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.Chan():
			cw.refreshWriteDeadline()
			if err := cw.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-cw.done:
			return
		}
	}
}

// stop shuts the writer down. A non-empty reason is sent as a close frame
// before the connection drops. Safe to call more than once.
func (cw *clientWriter) stop(reason string) {
	cw.stopOnce.Do(func() {
		close(cw.done)

		// The run goroutine must exit before the close frame is written;
		// gorilla/websocket does not allow concurrent writers.
		cw.wg.Wait()

		if reason != "" {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
			cw.refreshWriteDeadline()
			_ = cw.conn.WriteMessage(websocket.CloseMessage, msg)
		}
		_ = cw.conn.Close()
	})
}

func (cw *clientWriter) refreshWriteDeadline() {
	_ = cw.conn.SetWriteDeadline(cw.clock.Now().Add(writeDeadline))
}

func (cw *clientWriter) refreshReadDeadline() {
	_ = cw.conn.SetReadDeadline(cw.clock.Now().Add(pongDeadline))
}
