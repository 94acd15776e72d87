package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/wmtorode/poker-planning/internal/domain"
)

type joinRequest struct {
	Name      string `json:"name"`
	Spectator bool   `json:"spectator"`
}

type joinResponse struct {
	ParticipantID uuid.UUID       `json:"participantId"`
	Session       domain.Snapshot `json:"session"`
}

type voteRequest struct {
	ParticipantID uuid.UUID `json:"participantId"`
	Value         string    `json:"value"`
}

type resetRequest struct {
	Topic *string `json:"topic"`
}

type topicRequest struct {
	Topic string `json:"topic"`
}

type leaveRequest struct {
	ParticipantID uuid.UUID `json:"participantId"`
}

func (s *Server) handleGetDeck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"deck": s.app.Deck()})
}

func (s *Server) handleGetSession(c echo.Context) error {
	snap, err := s.app.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleJoin(c echo.Context) error {
	var req joinRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	snap, participantID, err := s.app.Join(c.Request().Context(), c.Param("id"), req.Name, req.Spectator)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, joinResponse{ParticipantID: participantID, Session: snap})
}

func (s *Server) handleVote(c echo.Context) error {
	var req voteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}
	if req.ParticipantID == uuid.Nil {
		return c.JSON(http.StatusBadRequest, errorBody("participantId is required"))
	}

	snap, err := s.app.Vote(c.Request().Context(), c.Param("id"), req.ParticipantID, req.Value)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleReveal(c echo.Context) error {
	snap, err := s.app.Reveal(c.Request().Context(), c.Param("id"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleReset(c echo.Context) error {
	var req resetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	snap, err := s.app.Reset(c.Request().Context(), c.Param("id"), req.Topic)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleSetTopic(c echo.Context) error {
	var req topicRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	snap, err := s.app.SetTopic(c.Request().Context(), c.Param("id"), req.Topic)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleLeave(c echo.Context) error {
	var req leaveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}
	if req.ParticipantID == uuid.Nil {
		return c.JSON(http.StatusBadRequest, errorBody("participantId is required"))
	}

	snap, err := s.app.Leave(c.Request().Context(), c.Param("id"), req.ParticipantID)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// domainError maps domain sentinel errors to HTTP status codes. The mapping
// lives only here at the transport edge.
func domainError(c echo.Context, err error) error {
	var status int
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrParticipantNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyRevealed):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrSpectatorCannotVote):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidVoteValue), errors.Is(err, domain.ErrInvalidName):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}
	return c.JSON(status, errorBody(err.Error()))
}
