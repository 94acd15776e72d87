package domain

import "github.com/google/uuid"

// ParticipantView is the externally visible shape of a participant.
// Value is populated only once the round is revealed.
type ParticipantView struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	IsSpectator bool      `json:"isSpectator"`
	HasVoted    bool      `json:"hasVoted"`
	Value       string    `json:"value,omitempty"`
}

// Snapshot is an immutable copy of a session's state at a given revision.
// Redaction of hidden votes happens here, in the constructor, so nothing
// downstream of the store can leak a value before reveal.
type Snapshot struct {
	ID           string            `json:"id"`
	Topic        string            `json:"topic,omitempty"`
	Revealed     bool              `json:"revealed"`
	Revision     uint64            `json:"revision"`
	Participants []ParticipantView `json:"participants"`
	History      []Round           `json:"history,omitempty"`
}

// Snapshot builds the redacted external view of the session.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:           s.ID,
		Topic:        s.Topic,
		Revealed:     s.Revealed,
		Revision:     s.Revision,
		Participants: make([]ParticipantView, 0, len(s.Participants)),
	}
	for _, p := range s.Participants {
		value, voted := s.Votes[p.ID]
		view := ParticipantView{
			ID:          p.ID,
			Name:        p.Name,
			IsSpectator: p.IsSpectator,
			HasVoted:    voted,
		}
		if s.Revealed {
			view.Value = value
		}
		snap.Participants = append(snap.Participants, view)
	}
	if len(s.History) > 0 {
		snap.History = make([]Round, 0, len(s.History))
		for _, r := range s.History {
			votes := make(map[string]string, len(r.Votes))
			for name, value := range r.Votes {
				votes[name] = value
			}
			snap.History = append(snap.History, Round{Topic: r.Topic, Votes: votes})
		}
	}
	return snap
}
