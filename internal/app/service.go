// Package app is the operation layer: it validates input, drives session
// state transitions through the store and publishes the committed snapshot on
// the session's broker topic. It is the only writer to the store.
package app

import (
	"context"

	"github.com/google/uuid"

	"github.com/wmtorode/poker-planning/internal/broker"
	"github.com/wmtorode/poker-planning/internal/domain"
	"github.com/wmtorode/poker-planning/internal/logging"
	"github.com/wmtorode/poker-planning/internal/metrics"
	"github.com/wmtorode/poker-planning/internal/store"
)

// Service orchestrates the session operations. Sessions are created lazily:
// any operation addressed to an unseen session id registers it first.
type Service struct {
	store  *store.Store
	broker *broker.Broker
	deck   domain.Deck
}

func NewService(st *store.Store, br *broker.Broker, deck domain.Deck) *Service {
	if len(deck) == 0 {
		deck = domain.DefaultDeck()
	}
	return &Service{store: st, broker: br, deck: deck}
}

// Deck returns the configured card set.
func (s *Service) Deck() domain.Deck {
	return s.deck
}

// EnsureSession registers the session if it does not exist yet and returns its
// current snapshot. Idempotent; a bare create is not a mutation and publishes
// no event.
func (s *Service) EnsureSession(_ context.Context, sessionID string) domain.Snapshot {
	return s.store.Create(sessionID)
}

// GetSession returns the current snapshot without touching the broker.
func (s *Service) GetSession(_ context.Context, sessionID string) (domain.Snapshot, error) {
	return s.store.Get(sessionID)
}

// Subscribe attaches to the session's event stream. Events published before
// the subscription attached are not replayed; pair with GetSession to observe
// current state.
func (s *Service) Subscribe(sessionID string) *broker.Subscription {
	return s.broker.Subscribe(sessionID)
}

// Join adds a participant, creating the session on first use of its id.
// Returns the committed snapshot and the freshly minted participant id.
func (s *Service) Join(ctx context.Context, sessionID, name string, spectator bool) (domain.Snapshot, uuid.UUID, error) {
	s.store.Create(sessionID)

	var participant domain.Participant
	snap, err := s.apply(ctx, "join", sessionID, func(sess *domain.Session) error {
		var err error
		participant, err = sess.Join(name, spectator)
		return err
	})
	if err != nil {
		return domain.Snapshot{}, uuid.Nil, err
	}
	return snap, participant.ID, nil
}

// Vote sets or overwrites a participant's vote for the current round.
func (s *Service) Vote(ctx context.Context, sessionID string, participantID uuid.UUID, value string) (domain.Snapshot, error) {
	if !s.deck.Contains(value) {
		metrics.MutationsTotal.WithLabelValues("vote", "error").Inc()
		return domain.Snapshot{}, domain.ErrInvalidVoteValue
	}
	return s.apply(ctx, "vote", sessionID, func(sess *domain.Session) error {
		return sess.SetVote(participantID, value)
	})
}

// Reveal exposes the current round's votes. Revealing twice is an error.
func (s *Service) Reveal(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	return s.apply(ctx, "reveal", sessionID, func(sess *domain.Session) error {
		return sess.Reveal()
	})
}

// Reset starts a new round, archiving the previous one if it was revealed.
// newTopic, when non-nil, replaces the session topic.
func (s *Service) Reset(ctx context.Context, sessionID string, newTopic *string) (domain.Snapshot, error) {
	return s.apply(ctx, "reset", sessionID, func(sess *domain.Session) error {
		sess.Reset(newTopic)
		return nil
	})
}

// SetTopic relabels what is being estimated without disturbing the round.
func (s *Service) SetTopic(ctx context.Context, sessionID, topic string) (domain.Snapshot, error) {
	return s.apply(ctx, "set_topic", sessionID, func(sess *domain.Session) error {
		sess.Topic = topic
		return nil
	})
}

// Leave removes a participant and purges their vote.
func (s *Service) Leave(ctx context.Context, sessionID string, participantID uuid.UUID) (domain.Snapshot, error) {
	return s.apply(ctx, "leave", sessionID, func(sess *domain.Session) error {
		return sess.Leave(participantID)
	})
}

// apply runs one state transition: mutate under the session's lock, then
// publish the committed snapshot. Publishing happens after the lock is
// released, so a slow broker can never hold up the store.
func (s *Service) apply(_ context.Context, op, sessionID string, fn func(*domain.Session) error) (domain.Snapshot, error) {
	snap, err := s.store.Mutate(sessionID, fn)
	if err != nil {
		metrics.MutationsTotal.WithLabelValues(op, "error").Inc()
		return domain.Snapshot{}, err
	}

	metrics.MutationsTotal.WithLabelValues(op, "ok").Inc()
	s.broker.Publish(sessionID, snap)

	logging.WithSession(sessionID).Debug("Session mutated", "operation", op, "revision", snap.Revision)
	return snap, nil
}
