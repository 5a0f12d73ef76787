package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/icebreaker"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/session"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/watcher"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessionUseCase    *session.SessionUseCase
	watcher           *watcher.SessionWatcher
	icebreakerUseCase *icebreaker.IcebreakerUseCase
	log               *slog.Logger
}

func NewSessionHandler(
	sessionUseCase *session.SessionUseCase,
	watcher *watcher.SessionWatcher,
	icebreakerUseCase *icebreaker.IcebreakerUseCase,
	log *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessionUseCase:    sessionUseCase,
		watcher:           watcher,
		icebreakerUseCase: icebreakerUseCase,
		log:               log,
	}
}

// DecisionRequest is a participant's answer.
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=yes no"`
}

// SessionConflictResponse carries the current view along with the reason a
// write was refused, so the client can render the real state.
type SessionConflictResponse struct {
	Error   string             `json:"error"`
	Session domain.SessionView `json:"session"`
}

// GetSession handles GET /sessions/:session_id
// @Summary Get session
// @Description Returns the caller's view of the session, resolving it first if it is due
// @Tags sessions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} domain.SessionView
// @Failure 403 {object} ErrorResponse
// @Router /sessions/{session_id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	view, err := h.sessionUseCase.Get(c.Request.Context(), userID, c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitDecision handles POST /sessions/:session_id/decision
// @Summary Submit decision
// @Description Records yes or no. Decisions cannot be changed; resubmitting the same answer is accepted.
// @Tags sessions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body DecisionRequest true "Decision"
// @Success 200 {object} domain.SessionView
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} SessionConflictResponse
// @Router /sessions/{session_id}/decision [post]
func (h *SessionHandler) SubmitDecision(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "decision must be yes or no"})
		return
	}

	view, err := h.sessionUseCase.Submit(c.Request.Context(), userID, c.Param("session_id"), req.Decision)
	if errors.Is(err, domain.ErrSessionEnded) || errors.Is(err, domain.ErrDecisionAlreadySet) {
		c.JSON(http.StatusConflict, SessionConflictResponse{Error: err.Error(), Session: view})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// LeaveSession handles POST /sessions/:session_id/leave
// @Summary Leave session
// @Description Ends the session as abandoned unless it already resolves on its own
// @Tags sessions
// @Security BearerAuth
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} domain.SessionView
// @Failure 403 {object} ErrorResponse
// @Router /sessions/{session_id}/leave [post]
func (h *SessionHandler) LeaveSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	view, err := h.sessionUseCase.Leave(c.Request.Context(), userID, c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Detach handles POST /sessions/:session_id/detach, the beacon a client
// sends while unloading. Its outcome is never reported back.
// @Summary Detach from session
// @Description Best-effort leave signal; always answers 202
// @Tags sessions
// @Security BearerAuth
// @Param session_id path string true "Session ID"
// @Success 202
// @Router /sessions/{session_id}/detach [post]
func (h *SessionHandler) Detach(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	sessionID := c.Param("session_id")
	if err := h.sessionUseCase.Detach(c.Request.Context(), userID, sessionID); err != nil {
		h.log.Warn("detach failed", "session_id", sessionID, "user_id", userID, "error", err)
	}
	c.Status(http.StatusAccepted)
}

// Acknowledge handles POST /sessions/:session_id/ack
// @Summary Acknowledge ended session
// @Description Records that the caller saw the outcome. The session is archived once both participants acknowledge.
// @Tags sessions
// @Security BearerAuth
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /sessions/{session_id}/ack [post]
func (h *SessionHandler) Acknowledge(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	archived, err := h.sessionUseCase.Acknowledge(c.Request.Context(), userID, c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"archived": archived})
}

// Events handles GET /sessions/:session_id/events as server-sent events.
// Dropping the connection before the session ends counts as detachment.
// @Summary Session events
// @Description Server-sent "session" events carrying the caller's view, until the session ends
// @Tags sessions
// @Security BearerAuth
// @Produce text/event-stream
// @Param session_id path string true "Session ID"
// @Success 200 {object} domain.SessionView
// @Failure 403 {object} ErrorResponse
// @Router /sessions/{session_id}/events [get]
func (h *SessionHandler) Events(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	views, err := h.watcher.Watch(c.Request.Context(), userID, c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Stream(func(w io.Writer) bool {
		view, open := <-views
		if !open {
			return false
		}
		c.SSEvent("session", view)
		return !view.Ended
	})
}

// Icebreakers handles GET /sessions/:session_id/icebreakers
// @Summary Icebreakers
// @Description Suggests opening lines based on both participants' interests
// @Tags sessions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string][]string
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{session_id}/icebreakers [get]
func (h *SessionHandler) Icebreakers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	lines, err := h.icebreakerUseCase.Suggest(c.Request.Context(), userID, c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"icebreakers": lines})
}
