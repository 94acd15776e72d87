package domain

import "errors"

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrParticipantNotFound = errors.New("participant not found in session")
	ErrAlreadyRevealed     = errors.New("votes already revealed")
	ErrSpectatorCannotVote = errors.New("spectators cannot vote")
	ErrInvalidVoteValue    = errors.New("vote value not in deck")
	ErrInvalidName         = errors.New("participant name must not be empty")
)
