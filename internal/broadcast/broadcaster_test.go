package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmtorode/poker-planning/internal/app"
	"github.com/wmtorode/poker-planning/internal/broker"
	"github.com/wmtorode/poker-planning/internal/domain"
	"github.com/wmtorode/poker-planning/internal/store"
)

type testHarness struct {
	svc         *app.Service
	events      *broker.Broker
	broadcaster *Broadcaster
	dial        func(sessionID string) *ws.Conn
}

func newHarness(t *testing.T, maxClients int) *testHarness {
	t.Helper()

	events := broker.New(16)
	svc := app.NewService(store.New(), events, domain.DefaultDeck())
	broadcaster := NewBroadcaster(svc, clockwork.NewRealClock(), maxClients)
	t.Cleanup(broadcaster.Stop)

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session")
		svc.EnsureSession(r.Context(), sessionID)

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		if err := broadcaster.Register(sessionID, conn); err != nil {
			return
		}
		go func() {
			defer broadcaster.Unregister(sessionID, conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
		}()
	}))
	t.Cleanup(server.Close)

	dial := func(sessionID string) *ws.Conn {
		t.Helper()
		url := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	return &testHarness{svc: svc, events: events, broadcaster: broadcaster, dial: dial}
}

func readSnapshot(t *testing.T, conn *ws.Conn) domain.Snapshot {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	return snap
}

func waitForClientCount(b *Broadcaster, sessionID string, expected int) bool {
	for range 100 {
		if b.ClientCount(sessionID) == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func TestBroadcaster_InitialSnapshotThenEvents(t *testing.T) {
	h := newHarness(t, 50)
	ctx := context.Background()

	_, alice, err := h.svc.Join(ctx, "S1", "Alice", false)
	require.NoError(t, err)

	conn := h.dial("S1")

	initial := readSnapshot(t, conn)
	assert.Equal(t, uint64(1), initial.Revision)
	require.Len(t, initial.Participants, 1)

	_, err = h.svc.Vote(ctx, "S1", alice, "5")
	require.NoError(t, err)

	update := readSnapshot(t, conn)
	assert.Equal(t, uint64(2), update.Revision)
	assert.True(t, update.Participants[0].HasVoted)
	assert.Empty(t, update.Participants[0].Value, "hidden vote leaked over the wire")
}

func TestBroadcaster_StaleAndDuplicateRevisionsAreDropped(t *testing.T) {
	h := newHarness(t, 50)
	ctx := context.Background()

	_, _, err := h.svc.Join(ctx, "S1", "Alice", false)
	require.NoError(t, err)

	conn := h.dial("S1")
	initial := readSnapshot(t, conn)
	require.Equal(t, uint64(1), initial.Revision)

	// Replaying the initial revision must be invisible to the client.
	h.events.Publish("S1", domain.Snapshot{ID: "S1", Revision: 1})
	h.events.Publish("S1", domain.Snapshot{ID: "S1", Revision: 2})

	next := readSnapshot(t, conn)
	assert.Equal(t, uint64(2), next.Revision)
}

func TestBroadcaster_OutOfOrderEventsAfterAttach(t *testing.T) {
	h := newHarness(t, 50)
	ctx := context.Background()

	_, _, err := h.svc.Join(ctx, "S1", "Alice", false)
	require.NoError(t, err)

	conn := h.dial("S1")
	require.Equal(t, uint64(1), readSnapshot(t, conn).Revision)

	// Racing mutations publish outside the store lock, so a newer revision can
	// land on the topic first. The stale one must never reach the client.
	h.events.Publish("S1", domain.Snapshot{ID: "S1", Revision: 3})
	h.events.Publish("S1", domain.Snapshot{ID: "S1", Revision: 2})
	h.events.Publish("S1", domain.Snapshot{ID: "S1", Revision: 4})

	assert.Equal(t, uint64(3), readSnapshot(t, conn).Revision)
	assert.Equal(t, uint64(4), readSnapshot(t, conn).Revision, "superseded revision leaked to the client")
}

func TestBroadcaster_RevisionsAreStrictlyIncreasing(t *testing.T) {
	h := newHarness(t, 50)
	ctx := context.Background()

	conn := h.dial("S1")
	last := readSnapshot(t, conn).Revision

	_, alice, err := h.svc.Join(ctx, "S1", "Alice", false)
	require.NoError(t, err)
	_, err = h.svc.Vote(ctx, "S1", alice, "5")
	require.NoError(t, err)
	_, err = h.svc.Reveal(ctx, "S1")
	require.NoError(t, err)
	_, err = h.svc.Reset(ctx, "S1", nil)
	require.NoError(t, err)

	for range 4 {
		snap := readSnapshot(t, conn)
		assert.Equal(t, last+1, snap.Revision, "revision gap or reorder")
		last = snap.Revision
	}
}

func TestBroadcaster_MaxClientsPerSession(t *testing.T) {
	h := newHarness(t, 1)

	first := h.dial("S1")
	readSnapshot(t, first)
	require.True(t, waitForClientCount(h.broadcaster, "S1", 1))

	// The second client is rejected; the registry must not grow.
	second := h.dial("S1")
	require.NoError(t, second.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := second.ReadMessage()
	assert.Error(t, err, "rejected client should see its connection die")
	assert.Equal(t, 1, h.broadcaster.ClientCount("S1"))
}

func TestBroadcaster_DisconnectReleasesSubscription(t *testing.T) {
	h := newHarness(t, 50)

	conn := h.dial("S1")
	readSnapshot(t, conn)
	require.True(t, waitForClientCount(h.broadcaster, "S1", 1))
	require.Equal(t, 1, h.events.SubscriberCount("S1"))

	conn.Close()

	require.True(t, waitForClientCount(h.broadcaster, "S1", 0))
	for range 100 {
		if h.events.SubscriberCount("S1") == 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, 0, h.events.SubscriberCount("S1"), "broker subscription leaked after disconnect")
}

func TestBroadcaster_SubscribersAreIndependent(t *testing.T) {
	h := newHarness(t, 50)
	ctx := context.Background()

	first := h.dial("S1")
	second := h.dial("S1")
	readSnapshot(t, first)
	readSnapshot(t, second)

	_, _, err := h.svc.Join(ctx, "S1", "Alice", false)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), readSnapshot(t, first).Revision)
	assert.Equal(t, uint64(1), readSnapshot(t, second).Revision)
}

func TestBroadcaster_StopDisconnectsClients(t *testing.T) {
	h := newHarness(t, 50)

	conn := h.dial("S1")
	readSnapshot(t, conn)
	require.True(t, waitForClientCount(h.broadcaster, "S1", 1))

	h.broadcaster.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

// Connections unwind after shutdown; their commands land on a queue nobody
// drains and must not block, no matter how many there are.
func TestBroadcaster_CommandsAfterStopDoNotBlock(t *testing.T) {
	h := newHarness(t, 50)

	conn := h.dial("S1")
	readSnapshot(t, conn)
	require.True(t, waitForClientCount(h.broadcaster, "S1", 1))

	h.broadcaster.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range cmdBufferSize + 8 {
			h.broadcaster.Unregister("S1", conn)
		}
		assert.Equal(t, 0, h.broadcaster.ClientCount("S1"))
		assert.Error(t, h.broadcaster.Register("S1", conn))
		h.broadcaster.Stop()
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("post-stop command blocked")
	}
}
