package domain

import "time"

// DefaultSessionTTL is how long a paired session stays open before it is
// resolved by timeout.
const DefaultSessionTTL = 240 * time.Second

type Decision string

const (
	DecisionPending Decision = "pending"
	DecisionYes     Decision = "yes"
	DecisionNo      Decision = "no"
)

// ParseDecision accepts only the values a participant may submit.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionYes, DecisionNo:
		return Decision(s), nil
	}
	return "", ErrInvalidDecision
}

type EndedReason string

const (
	EndedBothYes   EndedReason = "both_yes"
	EndedOneNo     EndedReason = "one_no"
	EndedBothNo    EndedReason = "both_no"
	EndedTimeout   EndedReason = "timeout"
	EndedAbandoned EndedReason = "abandoned"
)

// Side identifies which participant slot a user occupies.
type Side string

const (
	SideA Side = "a"
	SideB Side = "b"
)

// MatchSession is the shared record two paired users coordinate through.
// Once Ended is true nothing on the record changes again.
type MatchSession struct {
	ID           string       `json:"id" db:"id"`
	ParticipantA int          `json:"participant_a" db:"participant_a"`
	ParticipantB int          `json:"participant_b" db:"participant_b"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	ExpiresAt    time.Time    `json:"expires_at" db:"expires_at"`
	DecisionA    Decision     `json:"decision_a" db:"decision_a"`
	DecisionB    Decision     `json:"decision_b" db:"decision_b"`
	Ended        bool         `json:"ended" db:"ended"`
	EndedReason  *EndedReason `json:"ended_reason,omitempty" db:"ended_reason"`
	EndedBy      *int         `json:"ended_by,omitempty" db:"ended_by"`
	EndedAt      *time.Time   `json:"ended_at,omitempty" db:"ended_at"`
}

// NewMatchSession builds a fresh session; the expiry is anchored to creation.
func NewMatchSession(id string, participantA, participantB int, createdAt time.Time, ttl time.Duration) *MatchSession {
	return &MatchSession{
		ID:           id,
		ParticipantA: participantA,
		ParticipantB: participantB,
		CreatedAt:    createdAt,
		ExpiresAt:    createdAt.Add(ttl),
		DecisionA:    DecisionPending,
		DecisionB:    DecisionPending,
	}
}

func (s *MatchSession) HasUser(userID int) bool {
	return s.ParticipantA == userID || s.ParticipantB == userID
}

func (s *MatchSession) SideOf(userID int) (Side, bool) {
	switch userID {
	case s.ParticipantA:
		return SideA, true
	case s.ParticipantB:
		return SideB, true
	}
	return "", false
}

func (s *MatchSession) GetOtherUserID(userID int) (int, bool) {
	if s.ParticipantA == userID {
		return s.ParticipantB, true
	}
	if s.ParticipantB == userID {
		return s.ParticipantA, true
	}
	return 0, false
}

func (s *MatchSession) DecisionOf(side Side) Decision {
	if side == SideA {
		return s.DecisionA
	}
	return s.DecisionB
}

// ChannelWritable reports whether chat messages may still be written for
// this session.
func (s *MatchSession) ChannelWritable() bool {
	return !s.Ended
}

// ChatChannel is the handle the message service keys ephemeral chat on.
type ChatChannel struct {
	SessionID string    `json:"session_id" db:"session_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
