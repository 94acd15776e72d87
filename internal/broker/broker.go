// Package broker fans out session snapshots to live subscribers.
//
// One topic per session id. Publishing never blocks: every subscription owns a
// bounded channel, and a subscriber that cannot keep up is dropped with a
// lagged flag instead of stalling the publisher. Fresh subscriptions see only
// events published after they attach; there is no replay.
package broker

import (
	"sync"

	"github.com/wmtorode/poker-planning/internal/domain"
	"github.com/wmtorode/poker-planning/internal/metrics"
)

const defaultBuffer = 16

// Subscription is one subscriber's view of a topic. Receive from C until it is
// closed; a closed channel plus Lagged() means the subscriber was evicted for
// falling behind and must re-attach (fresh Subscribe plus a fresh read of
// current state) to recover.
type Subscription struct {
	broker    *Broker
	sessionID string
	ch        chan domain.Snapshot
	lagged    bool
	closed    bool
}

// C is the delivery channel. It is closed on Close or on lagged eviction.
func (sub *Subscription) C() <-chan domain.Snapshot {
	return sub.ch
}

// Lagged reports whether the subscription was evicted as a slow consumer.
// Meaningful once C is closed.
func (sub *Subscription) Lagged() bool {
	sub.broker.mu.Lock()
	defer sub.broker.mu.Unlock()
	return sub.lagged
}

// Close unsubscribes. Idempotent; no deliveries happen after it returns.
func (sub *Subscription) Close() {
	sub.broker.remove(sub)
}

// Broker is the per-session publish/subscribe hub.
type Broker struct {
	mu     sync.Mutex
	topics map[string]map[*Subscription]struct{}
	buffer int
}

// New creates a broker whose subscriptions buffer up to buffer snapshots.
func New(buffer int) *Broker {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broker{
		topics: make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe attaches to a session's topic. The topic is created on first use.
func (b *Broker) Subscribe(sessionID string) *Subscription {
	sub := &Subscription{
		broker:    b,
		sessionID: sessionID,
		ch:        make(chan domain.Snapshot, b.buffer),
	}

	b.mu.Lock()
	subs, ok := b.topics[sessionID]
	if !ok {
		subs = make(map[*Subscription]struct{})
		b.topics[sessionID] = subs
	}
	subs[sub] = struct{}{}
	b.mu.Unlock()

	metrics.SubscribersActive.Inc()
	return sub
}

// Publish delivers snap to every subscription attached to the session's topic
// at call time, in publish order. Slow subscribers are evicted, never waited
// on. Publishing to a topic with no subscribers drops the snapshot.
func (b *Broker) Publish(sessionID string, snap domain.Snapshot) {
	var evicted int

	b.mu.Lock()
	for sub := range b.topics[sessionID] {
		select {
		case sub.ch <- snap:
		default:
			b.evictLocked(sub)
			evicted++
		}
	}
	b.mu.Unlock()

	metrics.EventsPublishedTotal.Inc()
	if evicted > 0 {
		metrics.SubscribersLaggedTotal.Add(float64(evicted))
	}
}

// SubscriberCount reports the number of live subscriptions for a session.
func (b *Broker) SubscriberCount(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[sessionID])
}

func (b *Broker) evictLocked(sub *Subscription) {
	sub.lagged = true
	b.removeLocked(sub)
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(sub)
}

// removeLocked detaches sub and closes its channel. The broker mutex makes the
// close safe against a concurrent Publish: whoever removes the subscription
// from the topic is the one that closes the channel.
func (b *Broker) removeLocked(sub *Subscription) {
	if sub.closed {
		return
	}
	sub.closed = true

	subs := b.topics[sub.sessionID]
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.topics, sub.sessionID)
	}
	close(sub.ch)
	metrics.SubscribersActive.Dec()
}
