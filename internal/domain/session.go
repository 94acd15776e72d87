package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Participant is one connected user in a session. Spectators watch but never
// vote and do not count towards reveal readiness.
type Participant struct {
	ID          uuid.UUID
	Name        string
	IsSpectator bool
}

// Round is an archived estimation round. Only revealed rounds are archived, so
// a Round never contains a hidden vote.
type Round struct {
	Topic string            `json:"topic,omitempty"`
	Votes map[string]string `json:"votes"`
}

// Session is one estimation round-table. It is owned by the store and mutated
// only under the store's per-session lock; callers only ever see Snapshots.
type Session struct {
	ID           string
	Topic        string
	Participants []Participant
	Votes        map[uuid.UUID]string
	Revealed     bool
	Revision     uint64
	History      []Round
}

// NewSession creates an empty session at revision zero.
func NewSession(id string) *Session {
	return &Session{
		ID:    id,
		Votes: make(map[uuid.UUID]string),
	}
}

func (s *Session) participant(id uuid.UUID) *Participant {
	for i := range s.Participants {
		if s.Participants[i].ID == id {
			return &s.Participants[i]
		}
	}
	return nil
}

// Join adds a participant with a freshly minted id and returns it.
// Names are display labels and need not be unique.
func (s *Session) Join(name string, spectator bool) (Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Participant{}, ErrInvalidName
	}
	p := Participant{ID: uuid.New(), Name: name, IsSpectator: spectator}
	s.Participants = append(s.Participants, p)
	return p, nil
}

// Leave removes a participant and purges their current vote, keeping the
// no-orphan-votes invariant.
func (s *Session) Leave(participantID uuid.UUID) error {
	for i := range s.Participants {
		if s.Participants[i].ID == participantID {
			s.Participants = append(s.Participants[:i], s.Participants[i+1:]...)
			delete(s.Votes, participantID)
			return nil
		}
	}
	return ErrParticipantNotFound
}

// SetVote records or overwrites a participant's vote for the current round.
func (s *Session) SetVote(participantID uuid.UUID, value string) error {
	p := s.participant(participantID)
	if p == nil {
		return ErrParticipantNotFound
	}
	if p.IsSpectator {
		return ErrSpectatorCannotVote
	}
	if s.Revealed {
		return ErrAlreadyRevealed
	}
	s.Votes[participantID] = value
	return nil
}

// Reveal makes the current round's votes visible. Revealing twice is an error.
func (s *Session) Reveal() error {
	if s.Revealed {
		return ErrAlreadyRevealed
	}
	s.Revealed = true
	return nil
}

// Reset starts a new round: votes are cleared and the reveal flag drops.
// A revealed round is archived to History first. Participants are untouched;
// the topic changes only when newTopic is non-nil.
func (s *Session) Reset(newTopic *string) {
	if s.Revealed {
		s.archiveRound()
	}
	s.Votes = make(map[uuid.UUID]string)
	s.Revealed = false
	if newTopic != nil {
		s.Topic = *newTopic
	}
}

func (s *Session) archiveRound() {
	round := Round{Topic: s.Topic, Votes: make(map[string]string, len(s.Votes))}
	for _, p := range s.Participants {
		if value, ok := s.Votes[p.ID]; ok {
			round.Votes[p.Name] = value
		}
	}
	s.History = append(s.History, round)
}
