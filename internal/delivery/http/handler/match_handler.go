package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gdugdh24/mpit2026-roulette/internal/domain"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/matchmaking"
	"github.com/gin-gonic/gin"
)

const heartbeatInterval = 15 * time.Second

type MatchHandler struct {
	coordinator *matchmaking.MatchCoordinator
}

func NewMatchHandler(coordinator *matchmaking.MatchCoordinator) *MatchHandler {
	return &MatchHandler{
		coordinator: coordinator,
	}
}

// FindPartner handles POST /match/search
// @Summary Find a random partner
// @Description Cancels any previous search, queues the caller and pairs them with the longest-waiting user if there is one
// @Tags match
// @Security BearerAuth
// @Produce json
// @Success 200 {object} matchmaking.SearchResult
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /match/search [post]
func (h *MatchHandler) FindPartner(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.coordinator.FindPartner(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetTicket handles GET /match/search/:ticket_id
// @Summary Get search ticket
// @Description Current state of a ticket. A matched ticket carries its session id until the session is archived.
// @Tags match
// @Security BearerAuth
// @Produce json
// @Param ticket_id path string true "Ticket ID"
// @Success 200 {object} matchmaking.SearchResult
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /match/search/{ticket_id} [get]
func (h *MatchHandler) GetTicket(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.coordinator.Ticket(c.Request.Context(), userID, c.Param("ticket_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CancelSearch handles DELETE /match/search/:ticket_id
// @Summary Cancel search
// @Description Withdraws a waiting ticket. Safe to repeat; a ticket that already matched is left alone.
// @Tags match
// @Security BearerAuth
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /match/search/{ticket_id} [delete]
func (h *MatchHandler) CancelSearch(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.coordinator.Cancel(c.Request.Context(), userID, c.Param("ticket_id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "search cancelled"})
}

// TicketEvents handles GET /match/search/:ticket_id/events as server-sent
// events. It emits the ticket state whenever it may have changed and ends
// once the ticket is no longer waiting.
// @Summary Ticket events
// @Description Server-sent "ticket" events with the ticket state
// @Tags match
// @Security BearerAuth
// @Produce text/event-stream
// @Param ticket_id path string true "Ticket ID"
// @Success 200 {object} matchmaking.SearchResult
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /match/search/{ticket_id}/events [get]
func (h *MatchHandler) TicketEvents(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	ticketID := c.Param("ticket_id")

	// Subscribe before the first read so a match in between is not lost.
	events, stop, err := h.coordinator.Subscribe(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer stop()

	current, err := h.coordinator.Ticket(ctx, userID, ticketID)
	if err != nil {
		respondError(c, err)
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	sent := false
	c.Stream(func(w io.Writer) bool {
		if !sent {
			sent = true
			c.SSEvent("ticket", current)
			return current.Status == domain.TicketWaiting
		}

		select {
		case <-ctx.Done():
			return false
		case ev, open := <-events:
			if !open {
				return false
			}
			if ev.TicketID != "" && ev.TicketID != ticketID {
				return true
			}
		case <-heartbeat.C:
		}

		latest, err := h.coordinator.Ticket(ctx, userID, ticketID)
		if err != nil {
			c.SSEvent("error", ErrorResponse{Error: err.Error()})
			return false
		}
		if latest.Status == current.Status {
			c.SSEvent("ping", gin.H{"status": latest.Status})
			return true
		}
		current = latest
		c.SSEvent("ticket", current)
		return current.Status == domain.TicketWaiting
	})
}
