package domain

import "time"

type TicketStatus string

const (
	TicketWaiting   TicketStatus = "waiting"
	TicketMatched   TicketStatus = "matched"
	TicketCancelled TicketStatus = "cancelled"
)

// WaitingTicket is a user's queued intent to be paired. SessionID is set only
// by the pairing transaction that moves the ticket to matched.
type WaitingTicket struct {
	ID          string       `json:"id" db:"id"`
	UserID      int          `json:"user_id" db:"user_id"`
	DisplayName string       `json:"display_name" db:"display_name"`
	PhotoURL    *string      `json:"photo_url" db:"photo_url"`
	QueuedAt    time.Time    `json:"queued_at" db:"queued_at"`
	Status      TicketStatus `json:"status" db:"status"`
	SessionID   *string      `json:"session_id,omitempty" db:"session_id"`
}

func (t *WaitingTicket) IsWaiting() bool {
	return t.Status == TicketWaiting
}
