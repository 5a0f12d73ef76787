package domain

import (
	"strconv"
	"time"
)

type EventType string

const (
	EventTicketMatched   EventType = "ticket.matched"
	EventTicketCancelled EventType = "ticket.cancelled"
	EventSessionUpdated  EventType = "session.updated"
	EventSessionEnded    EventType = "session.ended"
)

// Event is a change notification. It carries identifiers only; subscribers
// re-read the record it points at and never trust the event for state.
type Event struct {
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	UserID    int       `json:"user_id,omitempty"`
	At        time.Time `json:"at"`
}

// Topics used on the change feed.
func SessionTopic(sessionID string) string { return "session:" + sessionID }
func UserTopic(userID int) string          { return "user:" + strconv.Itoa(userID) }
