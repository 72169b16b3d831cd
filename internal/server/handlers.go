package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/christopherklint97/bookr/internal/booking"
	"github.com/christopherklint97/bookr/internal/session"
)

type chatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

type sessionResponse struct {
	SessionID      string            `json:"session_id"`
	State          string            `json:"state"`
	Messages       []booking.Message `json:"messages"`
	BookingRequest booking.Draft     `json:"booking_request"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "bookr booking assistant",
		"endpoints": []string{"POST /chat", "GET /session/:id", "DELETE /session/:id", "GET /health"},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	active, err := s.store.Len(c.Request.Context())
	if err != nil {
		s.logger.Warn("counting sessions failed", "error", err)
		active = -1
	}
	c.JSON(http.StatusOK, gin.H{
		"status":                 "healthy",
		"calendar_authenticated": s.engine.Backend().IsReal(),
		"active_sessions":        active,
	})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "message is required")
		return
	}

	ctx := c.Request.Context()
	id := req.SessionID
	if id == "" {
		id = session.NewID()
	}

	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.store.Get(ctx, id)
	switch {
	case errors.Is(err, session.ErrNotFound):
		rec = session.NewRecord(s.engine.NewSession())
		rec.ID = id
		s.engine.ProcessTurn(ctx, rec.Session, "")
		s.logger.Info("session created", "session_id", id)
	case err != nil:
		s.logger.Error("loading session failed", "session_id", id, "error", err)
		errorJSON(c, http.StatusInternalServerError, "session storage unavailable")
		return
	}

	before := rec.Session.Phase
	sess := s.engine.ProcessTurn(ctx, rec.Session, req.Message)
	if before != booking.PhaseComplete && sess.Phase == booking.PhaseComplete && sess.ConfirmedSlot != nil {
		s.notifier.Booked(sess.Draft.Title, sess.ConfirmedSlot.Start)
	}

	if err := s.store.Put(ctx, rec); err != nil {
		s.logger.Error("saving session failed", "session_id", id, "error", err)
		errorJSON(c, http.StatusInternalServerError, "session storage unavailable")
		return
	}

	s.logger.Debug("chat turn", "session_id", id, "from", before, "to", sess.Phase)
	c.JSON(http.StatusOK, chatResponse{
		Response:  sess.LastAgentReply,
		SessionID: id,
		State:     string(sess.Phase),
	})
}

func (s *Server) handleGetSession(c *gin.Context) {
	id := c.Param("id")
	rec, err := s.store.Get(c.Request.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.logger.Error("loading session failed", "session_id", id, "error", err)
		errorJSON(c, http.StatusInternalServerError, "session storage unavailable")
		return
	}

	messages := rec.Session.Transcript
	if messages == nil {
		messages = []booking.Message{}
	}
	c.JSON(http.StatusOK, sessionResponse{
		SessionID:      id,
		State:          string(rec.Session.Phase),
		Messages:       messages,
		BookingRequest: rec.Session.Draft,
	})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	id := c.Param("id")

	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	err := s.store.Delete(c.Request.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.logger.Error("deleting session failed", "session_id", id, "error", err)
		errorJSON(c, http.StatusInternalServerError, "session storage unavailable")
		return
	}

	s.logger.Info("session deleted", "session_id", id)
	c.JSON(http.StatusOK, gin.H{"message": "Session deleted successfully"})
}
